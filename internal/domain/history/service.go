package history

import (
	"context"

	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
	"plantstock/pkg/logger"
)

// Service is the history log writer.
//
// Append runs inside the caller's transaction: the materials service invokes it
// from the same transactional unit that commits the quantity change, so a
// failed append rolls the quantity change back. A ledger update without its
// audit entry is an invariant violation, never a logged-and-swallowed warning.
type Service struct {
	repo Repository
}

// NewService creates a new history service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and persists an entry.
func (s *Service) Append(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return err
	}

	logger.Debug(ctx, "history entry appended",
		"material_id", entry.MaterialID,
		"action", entry.Action,
		"change", entry.QuantityChange,
	)
	return nil
}

// GetByID retrieves a single entry.
func (s *Service) GetByID(ctx context.Context, entryID id.ID) (*Entry, error) {
	return s.repo.GetByID(ctx, entryID)
}

// ListForMaterial returns a material's entries, newest first.
func (s *Service) ListForMaterial(ctx context.Context, materialID id.ID, limit, offset int) (domain.ListResult[*Entry], error) {
	filter := ListFilter{ListFilter: domain.ListFilter{Limit: limit, Offset: offset}}
	filter.MaterialID = &materialID
	return s.repo.List(ctx, filter)
}

// ListByAction returns entries of one action kind, newest first.
func (s *Service) ListByAction(ctx context.Context, action Action, limit, offset int) (domain.ListResult[*Entry], error) {
	filter := ListFilter{ListFilter: domain.ListFilter{Limit: limit, Offset: offset}}
	filter.Action = &action
	return s.repo.List(ctx, filter)
}

// List retrieves entries with arbitrary filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Entry], error) {
	return s.repo.List(ctx, filter)
}

// SumChanges totals quantity_change for a material across its full history.
func (s *Service) SumChanges(ctx context.Context, materialID id.ID) (types.Quantity, error) {
	return s.repo.SumChanges(ctx, materialID)
}
