// Package model defines the core data types shared across the brief generation engine.
package model

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of a generation job.
type JobStatus string

const (
	// JobStatusRunning indicates the generation worker has been started and the caller is waiting.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the worker finished before the deadline.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the worker raised, or every delivery provider failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusTimedOutBackground indicates the deadline elapsed first and the job continues unattended.
	JobStatusTimedOutBackground JobStatus = "processing_background"
	// JobStatusCompletedAndSent indicates the background work finished and the artifact was delivered.
	JobStatusCompletedAndSent JobStatus = "completed_and_sent"
)

// Valid returns true if the JobStatus is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusRunning, JobStatusCompleted, JobStatusFailed,
		JobStatusTimedOutBackground, JobStatusCompletedAndSent:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s JobStatus) String() string { return string(s) }

// Stage names where a job error originated. Used for job records, logs and notifications.
const (
	StageRender       = "render"
	StageCompress     = "compress"
	StageDeliver      = "deliver"
	StageContinuation = "continuation"
	StageSweep        = "sweep"
)

// GenerateParams carries the caller's input for one generation request.
type GenerateParams struct {
	Title     string            `json:"title"`
	Recipient string            `json:"recipient"`
	Content   ContentSpec       `json:"content"`
	Deadline  time.Duration     `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ContentSpec is the opaque description handed to the content renderer.
type ContentSpec struct {
	Ticker  string            `json:"ticker,omitempty"`
	Company string            `json:"company,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Filename returns the attachment/download name for the artifact produced by these params.
func (p GenerateParams) Filename() string {
	name := strings.TrimSpace(p.Title)
	if name == "" {
		name = "report"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\r', '\n':
			return '_'
		}
		return r
	}, name)
	return name + ".pdf"
}

// Job is the tracked lifecycle state of one generation request.
type Job struct {
	ID           string         `json:"task_id"`
	Status       JobStatus      `json:"status"`
	Params       GenerateParams `json:"params"`
	Result       *ArtifactRef   `json:"artifact,omitempty"`
	Error        string         `json:"error,omitempty"`
	ErrorStage   string         `json:"error_stage,omitempty"`
	DeliveredVia string         `json:"delivered_via,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Recipient returns the delivery address for the job.
func (j Job) Recipient() string { return j.Params.Recipient }

// Age returns how long ago the job was created relative to now.
func (j Job) Age(now time.Time) time.Duration { return now.Sub(j.CreatedAt) }

// Fail records err against the given stage and moves the job to Failed.
func (j *Job) Fail(stage string, err error) {
	j.Status = JobStatusFailed
	j.ErrorStage = stage
	if err != nil {
		j.Error = fmt.Sprintf("%s: %v", stage, err)
	} else {
		j.Error = stage + ": unknown error"
	}
}
