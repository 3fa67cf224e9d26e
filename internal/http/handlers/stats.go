package handlers

import "net/http"

// Stats handles GET /v1/stats.
func (api *API) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, api.manager.Statistics())
}
