package delivery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// ResponseCapture records what the HTTP API answered to one SDK call. SDKs
// flatten API failures into plain errors; providers classify from the capture
// instead.
type ResponseCapture struct {
	Status int    // zero when no response arrived
	Body   string // leading bytes of a non-2xx body
	Err    error  // transport failure, if any
}

// Kind classifies the captured exchange. It returns KindUnknown when nothing
// was captured.
func (c *ResponseCapture) Kind() ErrorKind {
	switch {
	case c.Status != 0:
		return ClassifyHTTPStatus(c.Status)
	case c.Err != nil:
		return ClassifyTransport(c.Err)
	default:
		return KindUnknown
	}
}

type captureKey struct{}

// WithResponseCapture returns a context whose requests, when sent through a
// client from CapturingClient, record their outcome into c.
func WithResponseCapture(ctx context.Context, c *ResponseCapture) context.Context {
	return context.WithValue(ctx, captureKey{}, c)
}

// CapturingClient returns a copy of base (or a new client with timeout) whose
// transport records responses into the ResponseCapture carried by the request
// context.
func CapturingClient(base *http.Client, timeout time.Duration) *http.Client {
	var out http.Client
	if base != nil {
		out = *base
	} else {
		out.Timeout = timeout
	}
	next := out.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	out.Transport = captureTransport{next: next}
	return &out
}

type captureTransport struct {
	next http.RoundTripper
}

func (t captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	c, ok := req.Context().Value(captureKey{}).(*ResponseCapture)
	if !ok {
		return resp, err
	}
	if err != nil {
		c.Err = err
		return resp, err
	}

	c.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.Body = strings.TrimSpace(string(head))
		resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), resp.Body), Closer: resp.Body}
	}
	return resp, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
