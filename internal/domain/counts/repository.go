package counts

import (
	"context"
	"time"

	"plantstock/internal/core/id"
	"plantstock/internal/domain"
)

// Repository defines persistence operations for count sessions.
// Items are child rows of the session and are saved as a set.
type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, sessionID id.ID) (*Session, error)
	Update(ctx context.Context, session *Session) error

	GetItems(ctx context.Context, sessionID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, sessionID id.ID, items []Item) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error)
}

// ListFilter for filtering count sessions.
type ListFilter struct {
	domain.ListFilter

	FacilityID string
	Department string
	Status     *SessionStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}
