package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/periwatch/brief-api/internal/domain/model"
)

const maxPDFBytes = 256 << 20

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type generateQuery struct {
	Title   string
	Email   string
	Ticker  string
	Company string
	Timeout float64
}

type generateResponse struct {
	TaskID   string
	Status   string
	Filename string
	Digest   string
	Message  string
	Error    string
	PDF      []byte
}

// apiError is the JSON error body written by briefd.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
	Status  int    `json:"-"`
}

func (e *apiError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%d): %s [%s]", e.Code, e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (c *apiClient) Generate(ctx context.Context, q generateQuery) (*generateResponse, error) {
	form := url.Values{}
	form.Set("email", q.Email)
	if q.Title != "" {
		form.Set("title", q.Title)
	}
	if q.Ticker != "" {
		form.Set("ticker", q.Ticker)
	}
	if q.Company != "" {
		form.Set("company", q.Company)
	}
	if q.Timeout > 0 {
		form.Set("timeout", strconv.FormatFloat(q.Timeout, 'f', -1, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/generate-pdf",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode == http.StatusOK && ct == model.ContentTypePDF {
		pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
		if err != nil {
			return nil, fmt.Errorf("read pdf: %w", err)
		}
		return &generateResponse{
			TaskID:   resp.Header.Get("X-Task-ID"),
			Status:   resp.Header.Get("X-PDF-Status"),
			Filename: attachmentName(resp.Header.Get("Content-Disposition")),
			Digest:   resp.Header.Get("X-Artifact-Digest"),
			Message:  resp.Header.Get("X-Message"),
			PDF:      pdf,
		}, nil
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		var body struct {
			TaskID  string `json:"task_id"`
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &generateResponse{TaskID: body.TaskID, Status: body.Status, Message: body.Message}, nil
	case http.StatusInternalServerError:
		var body struct {
			Error  string `json:"error"`
			TaskID string `json:"task_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &generateResponse{TaskID: body.TaskID, Status: "failed", Error: body.Error}, nil
	default:
		return nil, decodeAPIError(resp)
	}
}

func (c *apiClient) Status(ctx context.Context, id string) (model.JobStatusView, error) {
	var view model.JobStatusView
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/task-status/"+url.PathEscape(id), nil)
	if err != nil {
		return view, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return view, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return view, fmt.Errorf("task %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return view, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return view, fmt.Errorf("decode response: %w", err)
	}
	return view, nil
}

type cleanupResponse struct {
	RemovedCount int    `json:"removed_count" yaml:"removed_count"`
	Message      string `json:"message"       yaml:"message"`
}

func (c *apiClient) Cleanup(ctx context.Context, hours float64) (cleanupResponse, error) {
	var out cleanupResponse
	body, err := json.Marshal(map[string]float64{"hours": hours})
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/cleanup-tasks", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("cleanup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apiError{Status: resp.StatusCode}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(apiErr); err != nil || apiErr.Code == "" {
		return fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}
	return apiErr
}

func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return "report.pdf"
	}
	return params["filename"]
}

func printResult(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
