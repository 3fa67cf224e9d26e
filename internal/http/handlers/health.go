package handlers

import "net/http"

// Health reports process liveness plus a readiness snapshot of the import
// pipeline: queue depth, active imports, and knowledge-store reachability.
func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	stats := api.manager.Statistics()
	documents, err := api.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  "knowledge store unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queued_jobs": stats.QueuedJobs,
		"active_jobs": stats.ActiveJobs,
		"documents":   len(documents),
	})
}
