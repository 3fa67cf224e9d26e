package knowledge

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is one imported source as kept in the knowledge base.
type Document struct {
	ID          string
	SourceURL   string
	Title       string
	Content     string
	ContentType string
	WordCount   int
	// Checksum fingerprints the transformed content for duplicate detection.
	Checksum string
	// Interactive lists detected interactive elements (forms, scripts,
	// media) when interactive transformation is enabled.
	Interactive  []string
	QualityScore float64
	ImportedAt   time.Time
}

// Store abstracts knowledge-base persistence. The pipeline only requires the
// in-memory implementation; durability is a concern of the embedding
// application.
type Store interface {
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	FindByChecksum(ctx context.Context, checksum string) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps documents in memory for the process lifetime.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*Document),
	}
}

func (s *MemoryStore) Put(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) FindByChecksum(_ context.Context, checksum string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.documents {
		if doc.Checksum == checksum {
			return cloneDocument(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, cloneDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ImportedAt.After(docs[j].ImportedAt)
	})
	return docs, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func cloneDocument(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	clone := *doc
	clone.Interactive = append([]string(nil), doc.Interactive...)
	return &clone
}
