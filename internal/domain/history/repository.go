package history

import (
	"context"
	"time"

	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
)

// Repository defines operations for the history log.
// The log is write-once, read-many: there are no update or delete operations.
type Repository interface {
	// Append inserts a new entry.
	Append(ctx context.Context, entry *Entry) error

	// GetByID retrieves a single entry.
	GetByID(ctx context.Context, entryID id.ID) (*Entry, error)

	// List retrieves entries ordered by creation time descending.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Entry], error)

	// SumChanges totals quantity_change across all entries for a material.
	// By the consistency invariant this equals the material's current on-hand.
	SumChanges(ctx context.Context, materialID id.ID) (types.Quantity, error)
}

// ListFilter for filtering history entries.
type ListFilter struct {
	domain.ListFilter

	MaterialID *id.ID
	Action     *Action
	DateFrom   *time.Time
	DateTo     *time.Time
}
