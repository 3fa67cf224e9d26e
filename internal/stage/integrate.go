package stage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/knowledge"
)

// Integrator writes the transformed result into the knowledge store. With
// duplicate detection enabled, a source whose transformed content matches an
// existing document is recorded as a duplicate instead of stored twice; the
// stage still succeeds so the import is not reported as a failure.
type Integrator struct {
	store  knowledge.Store
	logger *log.Logger
}

func NewIntegrator(store knowledge.Store, logger *log.Logger) *Integrator {
	return &Integrator{store: store, logger: logger}
}

func (i *Integrator) Run(ctx context.Context, sc *domain.StageContext) error {
	text := sc.GetString(KeyText)
	if text == "" {
		return domain.ValidationError(errors.New("nothing to integrate: transform output missing"))
	}

	sum := sha256.Sum256([]byte(text))
	checksum := hex.EncodeToString(sum[:])

	if sc.Options.DuplicateDetection {
		existing, err := i.store.FindByChecksum(ctx, checksum)
		switch {
		case err == nil:
			sc.Set(KeyDuplicateOf, existing.ID)
			if i.logger != nil {
				i.logger.Printf("duplicate content source=%s existing_doc=%s", sc.SourceURL, existing.ID)
			}
			return nil
		case !errors.Is(err, knowledge.ErrNotFound):
			return fmt.Errorf("duplicate lookup: %w", err)
		}
	}

	doc := &knowledge.Document{
		ID:          uuid.NewString(),
		SourceURL:   sc.SourceURL,
		Title:       sc.GetString(KeyTitle),
		Content:     text,
		ContentType: sc.GetString(KeyContentType),
		WordCount:   sc.GetInt(KeyWordCount),
		Checksum:    checksum,
		ImportedAt:  time.Now().UTC(),
	}
	if elements, ok := sc.Get(KeyInteractive); ok {
		doc.Interactive, _ = elements.([]string)
	}
	if score, ok := sc.Get(KeyQualityScore); ok {
		doc.QualityScore, _ = score.(float64)
	}

	if err := i.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	sc.Set(KeyDocumentID, doc.ID)
	return nil
}
