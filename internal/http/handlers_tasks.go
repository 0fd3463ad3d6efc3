package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/periwatch/brief-api/internal/errors"
)

const defaultCleanupHours = 24

// TaskHandlers serves task status and cleanup endpoints.
type TaskHandlers struct {
	Svc GenerationAPI
}

type notFoundResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Status handles GET /api/task-status/{id}.
func (h *TaskHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.Svc.GetStatus(r.Context(), id)
	if apperrors.IsNotFound(err) {
		WriteJSON(w, http.StatusNotFound, notFoundResponse{TaskID: id, Status: "not_found"})
		return
	}
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

type cleanupRequest struct {
	Hours *float64 `json:"hours,omitempty"`
}

type cleanupResponse struct {
	RemovedCount int    `json:"removed_count"`
	Message      string `json:"message"`
}

// Cleanup handles POST /api/cleanup-tasks. An empty body uses the default age.
func (h *TaskHandlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	hours := float64(defaultCleanupHours)
	if req.Hours != nil {
		hours = *req.Hours
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		WriteAppError(w, apperrors.ValidationField("hours", "hours must be positive"))
		return
	}

	maxAge := time.Duration(math.MaxInt64)
	if hours < float64(math.MaxInt64)/float64(time.Hour) {
		maxAge = time.Duration(hours * float64(time.Hour))
	}
	res, err := h.Svc.Cleanup(r.Context(), maxAge)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cleanupResponse{
		RemovedCount: res.RemovedCount,
		Message:      fmt.Sprintf("Removed %d tasks older than %g hours", res.RemovedCount, hours),
	})
}
