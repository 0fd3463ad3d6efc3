package model

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ContentTypePDF is the only external artifact format produced by the engine.
const ContentTypePDF = "application/pdf"

// PageSize is the physical size of a page in PDF points (1/72 inch).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// A4 is the page size used by the built-in renderer and the placeholder synthesizer.
var A4 = PageSize{Width: 595, Height: 842}

// Artifact is a rendered document: its encoded bytes plus the ordered page geometry.
// Artifacts are never mutated in place; each stage returns a new value.
type Artifact struct {
	Content []byte
	Pages   []PageSize
}

// PageCount returns the number of pages in the artifact, or zero when its
// geometry is unknown.
func (a *Artifact) PageCount() int {
	if a == nil {
		return 0
	}
	return len(a.Pages)
}

// Size returns the encoded size in bytes.
func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Content)
}

// Digest returns the hex encoded BLAKE3-256 digest of the artifact bytes.
func (a *Artifact) Digest() string {
	if a == nil {
		return ""
	}
	sum := blake3.Sum256(a.Content)
	return hex.EncodeToString(sum[:])
}

// Ref builds the lightweight handle stored on a job record.
func (a *Artifact) Ref(filename string) *ArtifactRef {
	if a == nil {
		return nil
	}
	return &ArtifactRef{
		Filename:  filename,
		Size:      a.Size(),
		PageCount: a.PageCount(),
		Digest:    a.Digest(),
	}
}

// ArtifactRef describes a produced artifact without retaining its bytes.
// PageCount is zero, and omitted, when the page geometry could not be read.
type ArtifactRef struct {
	Filename  string `json:"filename"             yaml:"filename"`
	Size      int    `json:"size"                 yaml:"size"`
	PageCount int    `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	Digest    string `json:"digest"               yaml:"digest"`
}
