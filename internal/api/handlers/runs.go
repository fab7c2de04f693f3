package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/api/middleware"
	"github.com/felixgeelhaar/pyquest/internal/queue"
	"github.com/google/uuid"
)

// MaxSourceBytes caps submitted playground code.
const MaxSourceBytes = 64 * 1024

// JobPublisher publishes run jobs for the worker pool.
type JobPublisher interface {
	PublishRunJob(ctx context.Context, job *queue.RunJob) error
}

// ResultWaiter delivers run results back by job id.
type ResultWaiter interface {
	Subscribe(jobID string, handler queue.ResultHandler)
	Unsubscribe(jobID string)
}

// RunsHandler executes playground code: it publishes a run job to the
// queue and waits for the worker's result on the results queue. When the
// result does not arrive in time the job id is returned so clients can
// retry.
type RunsHandler struct {
	publisher      JobPublisher
	results        ResultWaiter
	defaultTimeout int // seconds, per job
	maxWait        time.Duration
}

// NewRunsHandler creates a new playground runs handler
func NewRunsHandler(publisher JobPublisher, results ResultWaiter, defaultTimeout int) *RunsHandler {
	if defaultTimeout <= 0 {
		defaultTimeout = 30
	}
	return &RunsHandler{
		publisher:      publisher,
		results:        results,
		defaultTimeout: defaultTimeout,
		maxWait:        time.Duration(defaultTimeout+5) * time.Second,
	}
}

// RunRequest is the request body for running playground code
type RunRequest struct {
	Code      string `json:"code"`
	Stdin     string `json:"stdin,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`    // seconds
	SessionID string `json:"session_id,omitempty"` // lesson session, if any
}

// RunResponse is the outcome of a playground run
type RunResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	ExitCode   int    `json:"exit_code"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Run publishes the code as a run job and waits for its result
func (h *RunsHandler) Run(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		jsonError(w, http.StatusBadRequest, "code is required")
		return
	}
	if len(req.Code) > MaxSourceBytes {
		jsonError(w, http.StatusBadRequest, "code exceeds the size limit")
		return
	}

	timeout := req.Timeout
	if timeout <= 0 || timeout > h.defaultTimeout {
		timeout = h.defaultTimeout
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		sessionID = id
	}

	job := queue.CreateRunJob(user.ID, sessionID, req.Code, timeout)
	job.Stdin = req.Stdin

	resultCh := make(chan *queue.RunResult, 1)
	h.results.Subscribe(job.ID.String(), func(result *queue.RunResult) {
		select {
		case resultCh <- result:
		default:
		}
	})
	defer h.results.Unsubscribe(job.ID.String())

	if err := h.publisher.PublishRunJob(r.Context(), job); err != nil {
		slog.Error("publish run job failed", "job_id", job.ID, "error", err)
		jsonError(w, http.StatusServiceUnavailable, "code execution is unavailable")
		return
	}

	select {
	case result := <-resultCh:
		jsonResponse(w, http.StatusOK, map[string]any{
			"result": RunResponse{
				JobID:      result.JobID.String(),
				Status:     result.Status,
				Stdout:     result.Stdout,
				Stderr:     result.Stderr,
				ExitCode:   result.ExitCode,
				Error:      result.Error,
				DurationMS: result.Duration.Milliseconds(),
			},
		})

	case <-time.After(h.maxWait):
		// The worker may still finish; the result queue TTL covers a
		// client retry.
		jsonResponse(w, http.StatusAccepted, map[string]any{
			"result": RunResponse{
				JobID:  job.ID.String(),
				Status: "pending",
			},
		})

	case <-r.Context().Done():
	}
}
