package model

import "time"

// Outcome is the result of racing a generation worker against its deadline.
type Outcome string

const (
	// OutcomeCompleted means the artifact was ready before the deadline.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed means the worker raised before the deadline.
	OutcomeFailed Outcome = "failed"
	// OutcomeTimedOut means neither was observed in time.
	OutcomeTimedOut Outcome = "timed_out"
)

// ResponseStatus is the status reported to the caller of Generate.
type ResponseStatus string

const (
	// ResponseCompleted carries the full artifact.
	ResponseCompleted ResponseStatus = "completed"
	// ResponsePartial carries a placeholder artifact; the real one follows by email.
	ResponsePartial ResponseStatus = "partial"
	// ResponseAccepted carries no artifact; placeholder synthesis produced nothing renderable.
	ResponseAccepted ResponseStatus = "accepted"
	// ResponseFailed carries the render error.
	ResponseFailed ResponseStatus = "failed"
)

// PartialMessage is returned alongside a placeholder artifact.
const PartialMessage = "Report generation is taking longer than expected. " +
	"The complete version will be sent to your email shortly."

// AcceptedMessage is returned when no placeholder could be produced.
const AcceptedMessage = "Report generation is in progress. The complete version will be sent to your email."

// GenerateResult is the response of one Generate call.
type GenerateResult struct {
	Status   ResponseStatus
	TaskID   string
	Artifact *Artifact
	Filename string
	Message  string
	Error    string
}

// JobStatusView is the public projection of a job returned by status queries.
type JobStatusView struct {
	TaskID       string       `json:"task_id"       yaml:"task_id"`
	Status       JobStatus    `json:"status"        yaml:"status"`
	Title        string       `json:"title"         yaml:"title"`
	Recipient    string       `json:"recipient"     yaml:"recipient"`
	CreatedAt    time.Time    `json:"created_at"    yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"    yaml:"updated_at"`
	Error        string       `json:"error,omitempty"         yaml:"error,omitempty"`
	DeliveredVia string       `json:"delivered_via,omitempty" yaml:"delivered_via,omitempty"`
	Artifact     *ArtifactRef `json:"artifact,omitempty"      yaml:"artifact,omitempty"`
}

// View projects a job into its public status view.
func (j Job) View() JobStatusView {
	return JobStatusView{
		TaskID:       j.ID,
		Status:       j.Status,
		Title:        j.Params.Title,
		Recipient:    j.Params.Recipient,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		Error:        j.Error,
		DeliveredVia: j.DeliveredVia,
		Artifact:     j.Result,
	}
}

// CleanupResult reports how many job records a retention sweep removed.
type CleanupResult struct {
	RemovedCount int `json:"removed_count" yaml:"removed_count"`
}
