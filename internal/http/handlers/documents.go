package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/knowledge"
)

// Documents handles GET /v1/documents: list the imported knowledge base.
func (api *API) Documents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	docs, err := api.store.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list documents")
		return
	}

	payload := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, documentSummary(doc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": payload})
}

// DocumentByID handles GET /v1/documents/{id}.
func (api *API) DocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	documentID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/documents/"))
	if documentID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}

	doc, err := api.store.Get(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "document not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load document")
		return
	}

	payload := documentSummary(doc)
	payload["content"] = doc.Content
	writeJSON(w, http.StatusOK, payload)
}

func documentSummary(doc *knowledge.Document) map[string]any {
	payload := map[string]any{
		"document_id":  doc.ID,
		"source_url":   doc.SourceURL,
		"title":        doc.Title,
		"content_type": doc.ContentType,
		"word_count":   doc.WordCount,
		"checksum":     doc.Checksum,
		"imported_at":  doc.ImportedAt,
	}
	if len(doc.Interactive) > 0 {
		payload["interactive"] = doc.Interactive
	}
	if doc.QualityScore > 0 {
		payload["quality_score"] = doc.QualityScore
	}
	return payload
}
