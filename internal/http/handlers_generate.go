package httpx

import (
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/periwatch/brief-api/internal/domain/model"
	apperrors "github.com/periwatch/brief-api/internal/errors"
)

// Response headers set on PDF responses.
const (
	HeaderPDFStatus      = "X-PDF-Status"
	HeaderTaskID         = "X-Task-ID"
	HeaderMessage        = "X-Message"
	HeaderArtifactDigest = "X-Artifact-Digest"
)

const minRequestedDeadline = time.Second

// GenerateHandlers serves the generate-pdf endpoint.
type GenerateHandlers struct {
	Svc GenerationAPI
}

type generateRequest struct {
	Title    string            `json:"title"`
	Email    string            `json:"email"`
	Ticker   string            `json:"ticker"`
	Company  string            `json:"company"`
	Timeout  *float64          `json:"timeout,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type acceptedResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type failedResponse struct {
	Error  string `json:"error"`
	TaskID string `json:"task_id,omitempty"`
}

// Generate handles GET|POST /api/generate-pdf. It blocks for at most the
// resolved deadline and answers with the full PDF, a placeholder PDF, or a
// JSON acknowledgement.
func (h *GenerateHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	params, err := req.params()
	if err != nil {
		WriteAppError(w, err)
		return
	}

	result, err := h.Svc.Generate(r.Context(), params)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	switch result.Status {
	case model.ResponseCompleted:
		w.Header().Set(HeaderArtifactDigest, result.Artifact.Digest())
		writePDF(w, result)
	case model.ResponsePartial:
		w.Header().Set(HeaderMessage, result.Message)
		writePDF(w, result)
	case model.ResponseAccepted:
		WriteJSON(w, http.StatusAccepted, acceptedResponse{
			TaskID:  result.TaskID,
			Status:  string(result.Status),
			Message: result.Message,
		})
	default:
		WriteJSON(w, http.StatusInternalServerError, failedResponse{
			Error:  result.Error,
			TaskID: result.TaskID,
		})
	}
}

func (h *GenerateHandlers) readRequest(w http.ResponseWriter, r *http.Request) (generateRequest, bool) {
	var req generateRequest
	if r.Method == http.MethodPost && isJSON(r) {
		return req, DecodeJSON(w, r, &req)
	}

	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return req, false
	}
	req.Title = r.Form.Get("title")
	req.Email = r.Form.Get("email")
	req.Ticker = r.Form.Get("ticker")
	req.Company = r.Form.Get("company")
	if raw := strings.TrimSpace(r.Form.Get("timeout")); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			WriteAppError(w, apperrors.ValidationField("timeout", "timeout must be a number of seconds"))
			return req, false
		}
		req.Timeout = &secs
	}
	return req, true
}

func (req generateRequest) params() (model.GenerateParams, error) {
	params := model.GenerateParams{
		Title:     req.Title,
		Recipient: req.Email,
		Content: model.ContentSpec{
			Ticker:  req.Ticker,
			Company: req.Company,
			Extra:   req.Extra,
		},
		Metadata: req.Metadata,
	}
	if req.Timeout != nil {
		deadline, err := requestedDeadline(*req.Timeout)
		if err != nil {
			return params, err
		}
		params.Deadline = deadline
	}
	return params, nil
}

// requestedDeadline converts a caller timeout in seconds. The upper bound is
// applied by the service's deadline policy.
func requestedDeadline(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, apperrors.ValidationField("timeout", "timeout must be a non-negative number of seconds")
	}
	if secs > math.MaxInt64/float64(time.Second) {
		return math.MaxInt64, nil
	}
	d := time.Duration(secs * float64(time.Second))
	if d < minRequestedDeadline {
		d = minRequestedDeadline
	}
	return d, nil
}

func writePDF(w http.ResponseWriter, result model.GenerateResult) {
	h := w.Header()
	h.Set("Content-Type", model.ContentTypePDF)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	h.Set("Content-Length", strconv.Itoa(result.Artifact.Size()))
	h.Set(HeaderPDFStatus, string(result.Status))
	h.Set(HeaderTaskID, result.TaskID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Artifact.Content); err != nil {
		// The caller went away; the job record still reflects the outcome.
		return
	}
}

func isJSON(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}
