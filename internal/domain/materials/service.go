package materials

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/core/tx"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
	"plantstock/internal/domain/history"
	"plantstock/pkg/logger"
)

// Service is the material ledger. It owns the single adjustment primitive that
// every quantity mutation (manual adjustment, receipt, issue, count
// reconciliation) funnels through, and it pairs each mutation with exactly one
// history entry inside one transaction.
type Service struct {
	repo      Repository
	history   *history.Service
	txManager tx.Manager
}

// NewService creates a new materials service.
func NewService(repo Repository, historySvc *history.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		history:   historySvc,
		txManager: txManager,
	}
}

// AdjustOptions carries the audit context for an adjustment.
type AdjustOptions struct {
	Action      history.Action
	Reason      string
	PerformedBy string
	Notes       string
}

func (o AdjustOptions) validate() error {
	switch o.Action {
	case history.ActionAdjustment, history.ActionCount, history.ActionReceive,
		history.ActionIssue, history.ActionTransfer:
		// quantity-affecting actions allowed through Adjust
	default:
		return apperror.NewValidation("invalid adjustment action").
			WithDetail("field", "action").
			WithDetail("value", string(o.Action))
	}

	if o.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}

	if o.PerformedBy == "" {
		return apperror.NewValidation("performer is required").
			WithDetail("field", "performedBy")
	}

	return nil
}

// Adjust sets a material's on-hand quantity to newQuantity and appends the
// matching history entry. Both writes happen in one transaction; the material
// update is version-checked, so a concurrent adjustment surfaces as a
// CONCURRENT_MODIFICATION conflict instead of a lost update.
//
// Zero-delta adjustments are recorded: callers wanting to avoid a zero-change
// audit entry must compare against current on-hand before calling.
func (s *Service) Adjust(ctx context.Context, materialID id.ID, newQuantity types.Quantity, opts AdjustOptions) (*Material, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var updated *Material
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, materialID)
		if err != nil {
			return err
		}

		updated, err = s.adjust(ctx, m, newQuantity, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "material adjusted",
		"material_id", materialID,
		"action", opts.Action,
		"on_hand", updated.OnHand,
	)
	return updated, nil
}

// adjust applies the quantity change to an already-loaded material.
// Must run inside a transaction.
func (s *Service) adjust(ctx context.Context, m *Material, newQuantity types.Quantity, opts AdjustOptions) (*Material, error) {
	before := m.OnHand
	m.OnHand = newQuantity

	now := time.Now().UTC()
	switch opts.Action {
	case history.ActionCount:
		m.LastCountedAt = &now
	case history.ActionAdjustment:
		m.LastAdjustedAt = &now
	}
	m.UpdatedBy = opts.PerformedBy
	m.Touch()

	entry := history.NewEntry(
		m.OrganizationID, m.ID, m.Name, m.SKU,
		opts.Action, before, newQuantity,
		opts.Reason, opts.PerformedBy,
	)
	entry.Notes = opts.Notes
	if snapshot, err := json.Marshal(m); err == nil {
		entry.Snapshot = snapshot
	}

	if err := entry.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update material: %w", err)
	}

	if err := s.history.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	return m, nil
}

// Receive increases on-hand by quantityReceived (action "receive").
// The quantity must be positive.
func (s *Service) Receive(ctx context.Context, materialID id.ID, quantityReceived types.Quantity, reason, performedBy, notes string) (*Material, error) {
	if !quantityReceived.IsPositive() {
		return nil, apperror.NewValidation("received quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", quantityReceived.String())
	}

	opts := AdjustOptions{
		Action:      history.ActionReceive,
		Reason:      reason,
		PerformedBy: performedBy,
		Notes:       notes,
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var updated *Material
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, materialID)
		if err != nil {
			return err
		}

		updated, err = s.adjust(ctx, m, m.OnHand+quantityReceived, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "material received",
		"material_id", materialID,
		"quantity", quantityReceived,
		"on_hand", updated.OnHand,
	)
	return updated, nil
}

// Issue decreases on-hand by quantityIssued (action "issue"), clamping at
// zero: issuing more than is on hand truncates to zero rather than erroring.
// Callers needing a hard floor must check availability first.
func (s *Service) Issue(ctx context.Context, materialID id.ID, quantityIssued types.Quantity, reason, performedBy, notes string) (*Material, error) {
	if !quantityIssued.IsPositive() {
		return nil, apperror.NewValidation("issued quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", quantityIssued.String())
	}

	opts := AdjustOptions{
		Action:      history.ActionIssue,
		Reason:      reason,
		PerformedBy: performedBy,
		Notes:       notes,
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var updated *Material
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, materialID)
		if err != nil {
			return err
		}

		newQuantity := m.OnHand - quantityIssued
		if newQuantity.IsNegative() {
			newQuantity = 0
		}

		updated, err = s.adjust(ctx, m, newQuantity, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "material issued",
		"material_id", materialID,
		"quantity", quantityIssued,
		"on_hand", updated.OnHand,
	)
	return updated, nil
}

// Create inserts a new material and logs a synthetic "create" entry with
// quantity_before=0, so a nonzero initial stock is accounted for in the trail.
// The performer is taken from the material's CreatedBy stamp.
func (s *Service) Create(ctx context.Context, m *Material) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}

	exists, err := s.repo.ExistsBySKU(ctx, m.SKU)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if exists {
		return apperror.NewDuplicate("material", "sku", m.SKU)
	}

	entry := history.NewEntry(
		m.OrganizationID, m.ID, m.Name, m.SKU,
		history.ActionCreate, 0, m.OnHand,
		"material created", m.CreatedBy,
	)
	if snapshot, err := json.Marshal(m); err == nil {
		entry.Snapshot = snapshot
	}
	if err := entry.Validate(ctx); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create material: %w", err)
		}
		return s.history.Append(ctx, entry)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "material created",
		"material_id", m.ID,
		"sku", m.SKU,
		"on_hand", m.OnHand,
	)
	return nil
}

// GetByID retrieves a material.
func (s *Service) GetByID(ctx context.Context, materialID id.ID) (*Material, error) {
	return s.repo.GetByID(ctx, materialID)
}

// GetBySKU retrieves a material by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*Material, error) {
	return s.repo.GetBySKU(ctx, sku)
}

// Update modifies a material's descriptive fields. On-hand quantity and the
// count/adjustment stamps are preserved from the stored row: quantity changes
// go through Adjust exclusively.
func (s *Service) Update(ctx context.Context, m *Material) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetByID(ctx, m.ID)
		if err != nil {
			return err
		}

		m.OnHand = stored.OnHand
		m.LastCountedAt = stored.LastCountedAt
		m.LastAdjustedAt = stored.LastAdjustedAt

		if err := m.Validate(ctx); err != nil {
			return err
		}

		if m.SKU != stored.SKU {
			exists, err := s.repo.ExistsBySKU(ctx, m.SKU)
			if err != nil {
				return fmt.Errorf("check sku: %w", err)
			}
			if exists {
				return apperror.NewDuplicate("material", "sku", m.SKU)
			}
		}

		m.Touch()
		return s.repo.Update(ctx, m)
	})
}

// Delete writes a terminal history entry driving the quantity to zero, then
// removes the material row. The entry's denormalized snapshot is what keeps
// the trail meaningful after the row is gone.
//
// A missing material surfaces as not-found; there is no degraded path that
// logs a deletion for a row that no longer exists.
func (s *Service) Delete(ctx context.Context, materialID id.ID, performedBy string) error {
	if performedBy == "" {
		return apperror.NewValidation("performer is required").
			WithDetail("field", "performedBy")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, materialID)
		if err != nil {
			return err
		}

		entry := history.NewEntry(
			m.OrganizationID, m.ID, m.Name, m.SKU,
			history.ActionDelete, m.OnHand, 0,
			"material deleted", performedBy,
		)
		if snapshot, err := json.Marshal(m); err == nil {
			entry.Snapshot = snapshot
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		return s.repo.Delete(ctx, materialID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "material deleted", "material_id", materialID)
	return nil
}

// List retrieves materials with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Material], error) {
	return s.repo.List(ctx, filter)
}

// ListLowStock returns active materials at or below their minimum level.
// A pure read view over the ledger; reflects it as of read time.
func (s *Service) ListLowStock(ctx context.Context, limit, offset int) (domain.ListResult[*Material], error) {
	status := StatusActive
	filter := ListFilter{ListFilter: domain.ListFilter{Limit: limit, Offset: offset, OrderBy: "name"}}
	filter.Status = &status
	filter.LowStockOnly = true
	return s.repo.List(ctx, filter)
}

// ConsistencyReport compares a material's on-hand value against the sum of
// its history deltas.
type ConsistencyReport struct {
	MaterialID id.ID          `json:"materialId"`
	OnHand     types.Quantity `json:"onHand"`
	HistorySum types.Quantity `json:"historySum"`
	Consistent bool           `json:"consistent"`
}

// CheckConsistency verifies the ledger/log invariant for one material:
// summing quantity_change across its history equals current on-hand.
func (s *Service) CheckConsistency(ctx context.Context, materialID id.ID) (*ConsistencyReport, error) {
	m, err := s.repo.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}

	sum, err := s.history.SumChanges(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("sum history: %w", err)
	}

	return &ConsistencyReport{
		MaterialID: materialID,
		OnHand:     m.OnHand,
		HistorySum: sum,
		Consistent: m.OnHand == sum,
	}, nil
}
