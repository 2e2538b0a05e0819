package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/repositories"
)

// DocumentRepository keeps the ledger document in process memory
type DocumentRepository struct {
	mu     sync.RWMutex
	stored *entities.Document
}

// NewDocumentRepository creates a repository seeded with doc, or an empty document when nil
func NewDocumentRepository(doc *entities.Document) *DocumentRepository {
	if doc == nil {
		doc = entities.NewDocument()
	}
	doc.Normalize()
	return &DocumentRepository{stored: doc}
}

// Verify interface compliance
var _ repositories.DocumentRepository = (*DocumentRepository)(nil)

// Load returns a deep copy so callers never share state with the store
func (r *DocumentRepository) Load(ctx context.Context) (*entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stored.Clone()
}

// Save replaces the stored document when the revisions match
func (r *DocumentRepository) Save(ctx context.Context, doc *entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.Revision != r.stored.Revision {
		return fmt.Errorf("save at revision %d, stored %d: %w", doc.Revision, r.stored.Revision, entities.ErrConcurrentModification)
	}
	next, err := doc.Clone()
	if err != nil {
		return err
	}
	next.Revision++
	r.stored = next
	doc.Revision = next.Revision
	return nil
}
