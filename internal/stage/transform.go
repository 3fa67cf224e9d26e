package stage

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern         = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// interactiveMarkers maps HTML fragments to the element labels recorded when
// interactive transformation is enabled.
var interactiveMarkers = []struct {
	marker string
	label  string
}{
	{"<form", "form"},
	{"<input", "input"},
	{"<button", "button"},
	{"<select", "select"},
	{"<textarea", "textarea"},
	{"<video", "video"},
	{"<audio", "audio"},
	{"<canvas", "canvas"},
	{"<iframe", "iframe"},
}

// Transformer reduces the fetched payload to clean text blocks for the
// knowledge base, and optionally records the interactive elements present in
// HTML sources.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

func (t *Transformer) Run(_ context.Context, sc *domain.StageContext) error {
	body := sc.GetString(KeyBody)
	kind := sc.GetString(KeyDocKind)

	text := body
	switch kind {
	case DocKindHTML, DocKindFeed, DocKindXML:
		text = stripTags(body)
	}
	text = collapseWhitespace(text)
	if text == "" {
		return domain.ValidationError(errors.New("no textual content after transformation"))
	}
	sc.Set(KeyText, text)

	if sc.Options.InteractiveTransformation && kind == DocKindHTML {
		sc.Set(KeyInteractive, detectInteractive(body))
	}
	return nil
}

func stripTags(markup string) string {
	withoutScripts := scriptStylePattern.ReplaceAllString(markup, " ")
	return tagPattern.ReplaceAllString(withoutScripts, " ")
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func detectInteractive(body string) []string {
	lower := strings.ToLower(body)
	elements := make([]string, 0)
	for _, candidate := range interactiveMarkers {
		if strings.Contains(lower, candidate.marker) {
			elements = append(elements, candidate.label)
		}
	}
	return elements
}
