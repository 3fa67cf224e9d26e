package handlers

import (
	"errors"
	"net/http"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/pipeline"
)

type importRequest struct {
	URL      string `json:"url"`
	Priority string `json:"priority,omitempty"`
}

type batchImportRequest struct {
	URLs     []string `json:"urls"`
	Priority string   `json:"priority,omitempty"`
	// Parallel overrides the configured default when present.
	Parallel *bool `json:"parallel,omitempty"`
}

// Imports handles POST /v1/imports: admit a single-URL import job.
func (api *API) Imports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request importRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	jobID, err := api.manager.CreateSingleJob(request.URL, domain.Priority(request.Priority))
	if err != nil {
		if errors.Is(err, pipeline.ErrSourceRequired) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "url is required")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to create job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": domain.JobStatusPending,
	})
}

// BatchImports handles POST /v1/imports/batch: admit a multi-URL import.
func (api *API) BatchImports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request batchImportRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	parallel := api.defaultParallel
	if request.Parallel != nil {
		parallel = *request.Parallel
	}

	batchID, err := api.manager.CreateBatchJob(request.URLs, domain.Priority(request.Priority), parallel)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyBatch) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "urls must contain at least one entry")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to create batch")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id": batchID,
		"parallel": parallel,
	})
}
