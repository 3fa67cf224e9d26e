package stage

import (
	"context"
	"strings"
	"testing"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

func analyzeBody(t *testing.T, body, contentType string, options domain.StageOptions) *domain.StageContext {
	t.Helper()
	sc := domain.NewStageContext("https://example.com/doc", options)
	sc.Set(KeyBody, body)
	sc.Set(KeyContentType, contentType)
	if err := NewAnalyzer().Run(context.Background(), sc); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return sc
}

func TestAnalyzeEmptyBodyFails(t *testing.T) {
	sc := domain.NewStageContext("https://example.com/doc", domain.StageOptions{})
	sc.Set(KeyBody, "   \n\t  ")
	err := NewAnalyzer().Run(context.Background(), sc)
	assertKind(t, err, domain.ErrorKindValidation)
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"declared json", "application/json; charset=utf-8", `{"a":1}`, DocKindJSON},
		{"declared html", "text/html", "<p>hi</p>", DocKindHTML},
		{"declared rss", "application/rss+xml", "<rss></rss>", DocKindFeed},
		{"declared xml sniffs feed", "application/xml", `<?xml version="1.0"?><feed></feed>`, DocKindFeed},
		{"declared xml stays xml", "text/xml", `<?xml version="1.0"?><data/>`, DocKindXML},
		{"sniffed doctype", "", "<!DOCTYPE html><html></html>", DocKindHTML},
		{"sniffed html tag", "", "<html><body></body></html>", DocKindHTML},
		{"sniffed json object", "", `  {"key": "value"}`, DocKindJSON},
		{"sniffed json array", "", `[1, 2, 3]`, DocKindJSON},
		{"sniffed atom feed", "", `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`, DocKindFeed},
		{"sniffed xml", "", `<?xml version="1.0"?><records/>`, DocKindXML},
		{"plain text", "text/plain; charset=utf-8", "just words", DocKindText},
		{"fallback text", "", "just words", DocKindText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectKind(tc.contentType, tc.body); got != tc.want {
				t.Fatalf("detectKind(%q, ...) = %s, expected %s", tc.contentType, got, tc.want)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	t.Run("html title tag", func(t *testing.T) {
		sc := analyzeBody(t, "<html><head><title>  The\n Title </title></head><body>text</body></html>", "text/html", domain.StageOptions{})
		if got := sc.GetString(KeyTitle); got != "The Title" {
			t.Fatalf("title %q", got)
		}
	})
	t.Run("falls back to heading", func(t *testing.T) {
		sc := analyzeBody(t, "<html><body><h1>Heading Title</h1><p>text</p></body></html>", "text/html", domain.StageOptions{})
		if got := sc.GetString(KeyTitle); got != "Heading Title" {
			t.Fatalf("title %q", got)
		}
	})
	t.Run("plain text first line", func(t *testing.T) {
		sc := analyzeBody(t, "\n\nFirst Line\nsecond line", "text/plain", domain.StageOptions{})
		if got := sc.GetString(KeyTitle); got != "First Line" {
			t.Fatalf("title %q", got)
		}
	})
	t.Run("long first line truncated", func(t *testing.T) {
		sc := analyzeBody(t, strings.Repeat("a", 500), "text/plain", domain.StageOptions{})
		if got := sc.GetString(KeyTitle); len(got) != 120 {
			t.Fatalf("title length %d, expected 120", len(got))
		}
	})
	t.Run("untitled html falls back to url", func(t *testing.T) {
		sc := analyzeBody(t, "<html><body><p>no title here</p></body></html>", "text/html", domain.StageOptions{})
		if got := sc.GetString(KeyTitle); got != "https://example.com/doc" {
			t.Fatalf("title %q", got)
		}
	})
}

func TestAnalyzeWordCountIgnoresMarkup(t *testing.T) {
	sc := analyzeBody(t, "<html><body><p>one two three</p></body></html>", "text/html", domain.StageOptions{})
	if got := sc.GetInt(KeyWordCount); got != 3 {
		t.Fatalf("word count %d, expected 3", got)
	}
}

func TestQualityScoreGatedOnOption(t *testing.T) {
	body := "<html><head><title>Guide</title></head><body><h1>Intro</h1><p>" +
		strings.Repeat("word ", 400) + "</p></body></html>"

	sc := analyzeBody(t, body, "text/html", domain.StageOptions{})
	if _, ok := sc.Get(KeyQualityScore); ok {
		t.Fatal("quality score set although assessment is disabled")
	}

	sc = analyzeBody(t, body, "text/html", domain.StageOptions{QualityAssessment: true})
	score, ok := sc.Get(KeyQualityScore)
	if !ok {
		t.Fatal("quality score missing")
	}
	// Substantial body, real title and headings: every component applies.
	if got := score.(float64); got < 0.85 {
		t.Fatalf("score %v too low for a rich document", got)
	}

	sc = analyzeBody(t, "thin", "text/plain", domain.StageOptions{QualityAssessment: true})
	thin, ok := sc.Get(KeyQualityScore)
	if !ok {
		t.Fatal("quality score missing for thin document")
	}
	if got := thin.(float64); got >= 0.85 {
		t.Fatalf("score %v too high for a one-word document", got)
	}
}
