package handlers

import (
	"net/http"
	"strings"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

// JobByID handles GET (status) and DELETE (cancel) on /v1/jobs/{id}.
func (api *API) JobByID(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/jobs/"))
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, ok := api.manager.JobStatus(jobID)
		if !ok {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeJSON(w, http.StatusOK, jobPayload(job))
	case http.MethodDelete:
		if !api.manager.CancelJob(jobID) {
			writeError(w, r, http.StatusConflict, "not_cancellable", "job is unknown, terminal, or already cancelling")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "cancelled": true})
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// Jobs handles GET /v1/jobs?state=queued|active|completed.
func (api *API) Jobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var jobs []domain.Job
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	switch state {
	case "", "active":
		jobs = api.manager.ActiveJobs()
	case "queued":
		jobs = api.manager.QueuedJobs()
	case "completed":
		jobs = api.manager.CompletedJobs()
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_request", "state must be queued, active or completed")
		return
	}

	payload := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, jobPayload(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": payload})
}

func jobPayload(job domain.Job) map[string]any {
	payload := map[string]any{
		"job_id":     job.ID,
		"type":       job.Type,
		"priority":   job.Priority,
		"status":     job.Status,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.BatchID != "" {
		payload["batch_id"] = job.BatchID
	}
	if job.SourceURL != "" {
		payload["url"] = job.SourceURL
	}
	if len(job.SourceURLs) > 0 {
		payload["urls"] = job.SourceURLs
	}
	if job.CurrentStage >= 0 {
		payload["current_stage"] = job.CurrentStage
		payload["attempts"] = job.Attempts
	}
	if len(job.Errors) > 0 {
		payload["errors"] = job.Errors
	}
	return payload
}
