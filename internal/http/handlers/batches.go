package handlers

import (
	"net/http"
	"strings"
)

// BatchByID handles GET /v1/batches/{id}.
func (api *API) BatchByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	batchID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/batches/"))
	if batchID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "batch id is required")
		return
	}

	batch, ok := api.manager.BatchStatus(batchID)
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found", "batch not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id":       batch.ID,
		"status":         batch.Status,
		"total_jobs":     batch.TotalJobs,
		"completed_jobs": batch.CompletedJobs,
		"failed_jobs":    batch.FailedJobs,
		"created_at":     batch.CreatedAt,
		"updated_at":     batch.UpdatedAt,
	})
}
