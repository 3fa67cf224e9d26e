package stage

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

var (
	titlePattern   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingPattern = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
)

// Analyzer inspects the fetched payload: it guesses the document kind,
// extracts a title and a word count, and optionally scores content quality.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Run(_ context.Context, sc *domain.StageContext) error {
	body := sc.GetString(KeyBody)
	if strings.TrimSpace(body) == "" {
		return domain.ValidationError(errors.New("document body is empty"))
	}

	kind := detectKind(sc.GetString(KeyContentType), body)
	title := extractTitle(body, kind, sc.SourceURL)
	wordCount := countWords(stripTags(body))

	sc.Set(KeyDocKind, kind)
	sc.Set(KeyTitle, title)
	sc.Set(KeyWordCount, wordCount)

	if sc.Options.QualityAssessment {
		sc.Set(KeyQualityScore, qualityScore(body, kind, title, wordCount))
	}
	return nil
}

// detectKind combines the declared content type with a payload sniff; the
// sniff wins when the header is missing or generic.
func detectKind(contentType, body string) string {
	declared := strings.ToLower(contentType)
	switch {
	case strings.Contains(declared, "application/json"):
		return DocKindJSON
	case strings.Contains(declared, "rss") || strings.Contains(declared, "atom"):
		return DocKindFeed
	case strings.Contains(declared, "html"):
		return DocKindHTML
	case strings.Contains(declared, "xml"):
		return sniffXMLKind(body)
	}

	trimmed := strings.TrimSpace(body)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html"):
		return DocKindHTML
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return DocKindJSON
	case strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<"):
		return sniffXMLKind(trimmed)
	default:
		return DocKindText
	}
}

func sniffXMLKind(body string) string {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<rss") || strings.Contains(lower, "<feed") {
		return DocKindFeed
	}
	return DocKindXML
}

func extractTitle(body, kind, sourceURL string) string {
	switch kind {
	case DocKindHTML, DocKindFeed, DocKindXML:
		if match := titlePattern.FindStringSubmatch(body); match != nil {
			if title := collapseWhitespace(stripTags(match[1])); title != "" {
				return title
			}
		}
		if match := headingPattern.FindStringSubmatch(body); match != nil {
			if title := collapseWhitespace(stripTags(match[1])); title != "" {
				return title
			}
		}
	default:
		for _, line := range strings.Split(body, "\n") {
			if title := collapseWhitespace(line); title != "" {
				return truncate(title, 120)
			}
		}
	}
	return sourceURL
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// qualityScore is a 0..1 heuristic: substance (word count), structure
// (headings), and a meaningful title each contribute.
func qualityScore(body, kind, title string, wordCount int) float64 {
	score := 0.0

	switch {
	case wordCount >= 300:
		score += 0.5
	case wordCount >= 50:
		score += 0.3
	case wordCount > 0:
		score += 0.1
	}

	if strings.TrimSpace(title) != "" && !strings.HasPrefix(title, "http") {
		score += 0.2
	}

	if kind == DocKindHTML {
		if headings := len(headingPattern.FindAllString(body, -1)); headings > 0 {
			score += 0.2
		}
	} else {
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
