// Package queue persists the import review queue. Entries are keyed by
// source URL; upserts are idempotent and never overwrite an entry a human
// reviewer has moved to a terminal status.
package queue

import (
	"context"

	"github.com/leafgrid/catalog-sync/internal/model"
)

// Store defines the persistence interface for the import queue.
type Store interface {
	// Upsert inserts or overwrites the entry for entry.URL. When the stored
	// entry is already in a terminal status the call is a silent no-op:
	// completed human decisions are never clobbered by re-scrapes.
	Upsert(ctx context.Context, entry *model.QueueEntry) error

	// GetByURL returns the entry for a URL, or nil when none exists.
	GetByURL(ctx context.Context, url string) (*model.QueueEntry, error)

	// GetByID returns the entry with the given row id, or nil when none
	// exists. The review surface addresses entries by id.
	GetByID(ctx context.Context, id int64) (*model.QueueEntry, error)

	// ListByStatus returns entries whose status is in the given set, most
	// recently created first.
	ListByStatus(ctx context.Context, statuses []model.Status) ([]model.QueueEntry, error)

	// SetStatus writes a status unconditionally. This is the review path:
	// it is the mechanism that reaches terminal states, so no terminal
	// protection applies.
	SetStatus(ctx context.Context, id int64, status model.Status) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
