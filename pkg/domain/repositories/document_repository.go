package repositories

import (
	"context"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

// DocumentRepository loads and saves the whole ledger document.
// Save must be atomic: a failed save leaves the previously stored document intact.
type DocumentRepository interface {
	// Load returns a private copy of the stored document; an empty document if none exists yet
	Load(ctx context.Context) (*entities.Document, error)
	// Save stores doc if doc.Revision equals the stored revision, then increments
	// doc.Revision. A mismatch returns entities.ErrConcurrentModification.
	Save(ctx context.Context, doc *entities.Document) error
}

// Unlock releases a lock obtained from a Locker
type Unlock func(ctx context.Context) error

// Locker serializes writers of one document
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}
