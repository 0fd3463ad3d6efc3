// Package job holds the lifecycle rules for generation jobs.
package job

import "github.com/periwatch/brief-api/internal/domain/model"

// transitions lists the allowed next statuses for each non-terminal status.
var transitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusRunning: {
		model.JobStatusCompleted,
		model.JobStatusFailed,
		model.JobStatusTimedOutBackground,
	},
	model.JobStatusTimedOutBackground: {
		model.JobStatusCompletedAndSent,
		model.JobStatusFailed,
	},
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s model.JobStatus) bool {
	switch s {
	case model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCompletedAndSent:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from one status to another is allowed.
// Staying in the same non-terminal status is allowed so that records can be annotated.
func CanTransition(from, to model.JobStatus) bool {
	if IsTerminal(from) || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsSuccess reports whether s is a terminal success status that carries an artifact.
func IsSuccess(s model.JobStatus) bool {
	return s == model.JobStatusCompleted || s == model.JobStatusCompletedAndSent
}
