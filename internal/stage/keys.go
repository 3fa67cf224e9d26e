package stage

// Keys under which stages publish their outputs into the stage context.
const (
	KeyBody        = "fetch.body"
	KeyContentType = "fetch.content_type"
	KeyStatusCode  = "fetch.status_code"

	KeyDocKind      = "analyze.kind"
	KeyTitle        = "analyze.title"
	KeyWordCount    = "analyze.word_count"
	KeyQualityScore = "analyze.quality_score"

	KeyText        = "transform.text"
	KeyInteractive = "transform.interactive"

	KeyDocumentID  = "integrate.document_id"
	KeyDuplicateOf = "integrate.duplicate_of"
)

// Document kinds recognized by the analyze stage.
const (
	DocKindHTML = "html"
	DocKindJSON = "json"
	DocKindFeed = "feed"
	DocKindXML  = "xml"
	DocKindText = "text"
)
