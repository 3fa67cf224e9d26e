package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http/middleware"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/knowledge"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/pipeline"
)

var errInvalidPayload = errors.New("invalid payload")

// API adapts the pipeline manager's in-process surface to HTTP for the
// surrounding application.
type API struct {
	manager *pipeline.Manager
	store   knowledge.Store
	// defaultParallel is applied when a batch request does not set the
	// parallel flag explicitly.
	defaultParallel bool
}

func NewAPI(manager *pipeline.Manager, store knowledge.Store, defaultParallel bool) *API {
	return &API{
		manager:         manager,
		store:           store,
		defaultParallel: defaultParallel,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}
