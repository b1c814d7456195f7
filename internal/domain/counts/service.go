package counts

import (
	"context"
	"fmt"
	"time"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/core/tx"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
	"plantstock/internal/domain/history"
	"plantstock/internal/domain/materials"
	"plantstock/pkg/logger"
)

// Service provides business operations for count sessions.
type Service struct {
	repo      Repository
	materials *materials.Service
	txManager tx.Manager
}

// NewService creates a new count session service.
func NewService(repo Repository, materialsSvc *materials.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		materials: materialsSvc,
		txManager: txManager,
	}
}

// CreateInput describes a new count session.
type CreateInput struct {
	Name        string
	FacilityID  string
	Department  string
	CreatedBy   string
	Notes       string
	MaterialIDs []id.ID
}

// Create builds a session in draft status, snapshotting expected quantities
// from the live ledger at this instant. The snapshot is never refreshed.
func (s *Service) Create(ctx context.Context, orgID string, input CreateInput) (*Session, error) {
	if len(input.MaterialIDs) == 0 {
		return nil, apperror.NewValidation("session must reference at least one material").
			WithDetail("field", "materialIds")
	}

	session := NewSession(orgID, input.Name)
	session.FacilityID = input.FacilityID
	session.Department = input.Department
	session.Notes = input.Notes
	session.CreatedBy = input.CreatedBy
	session.UpdatedBy = input.CreatedBy

	for _, materialID := range input.MaterialIDs {
		m, err := s.materials.GetByID(ctx, materialID)
		if err != nil {
			return nil, err
		}
		session.AddItem(m.ID, m.Name, m.SKU, m.OnHand)
	}

	if err := session.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if err := s.repo.SaveItems(ctx, session.ID, session.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "count session created",
		"session_id", session.ID,
		"items", session.TotalItems,
	)
	return session, nil
}

// GetByID retrieves a session with its items.
func (s *Service) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	session.Items = items

	return session, nil
}

// Start transitions a draft session to in_progress.
func (s *Service) Start(ctx context.Context, sessionID id.ID) (*Session, error) {
	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Start(); err != nil {
		return nil, err
	}
	session.Touch()

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	logger.Info(ctx, "count session started", "session_id", sessionID)
	return session, nil
}

// RecordCount records a physical count for one material in the session.
// Recording the final uncounted item completes the session automatically.
//
// With applyImmediately set and a nonzero variance, the counted quantity is
// pushed into the ledger (action "count") in the same transaction as the
// session update: the count record and the ledger mutation succeed or fail
// together.
func (s *Service) RecordCount(ctx context.Context, sessionID, materialID id.ID, countedQuantity types.Quantity, countedBy, notes string, applyImmediately bool) (*Session, error) {
	if countedBy == "" {
		return nil, apperror.NewValidation("counter is required").
			WithDetail("field", "countedBy")
	}

	// A physical count is zero or more; negative values are entry mistakes.
	if countedQuantity.IsNegative() {
		return nil, apperror.NewValidation("counted quantity cannot be negative").
			WithDetail("field", "countedQuantity").
			WithDetail("value", countedQuantity.String())
	}

	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.RecordCount(materialID, countedQuantity, countedBy, notes); err != nil {
		return nil, err
	}

	item := session.FindItem(materialID)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if applyImmediately && item.HasVariance() {
			if err := s.applyItem(ctx, session, item, countedBy); err != nil {
				return err
			}
		}

		session.Touch()
		if err := s.repo.Update(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return s.repo.SaveItems(ctx, session.ID, session.Items)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "count recorded",
		"session_id", sessionID,
		"material_id", materialID,
		"variance", item.Variance,
		"status", session.Status,
	)
	return session, nil
}

// ApplyToInventory reconciles every counted item with a nonzero variance into
// the ledger, adjusting on-hand to the recorded counted quantity. Items with
// zero variance are left untouched. Each adjustment produces one history entry
// with action "count".
//
// Re-applying a session overwrites whatever is live with the recorded counts
// again; the ledger may have moved since the counts were taken. That is a
// documented limitation of deferred reconciliation, not something this method
// guards against.
func (s *Service) ApplyToInventory(ctx context.Context, sessionID id.ID, appliedBy string) (*Session, error) {
	if appliedBy == "" {
		return nil, apperror.NewValidation("applier is required").
			WithDetail("field", "appliedBy")
	}

	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.CanApply(); err != nil {
		return nil, err
	}

	applied := 0
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range session.Items {
			item := &session.Items[i]
			if !item.HasVariance() {
				continue
			}
			if err := s.applyItem(ctx, session, item, appliedBy); err != nil {
				return err
			}
			applied++
		}

		session.Touch()
		if err := s.repo.Update(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return s.repo.SaveItems(ctx, session.ID, session.Items)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "count session applied",
		"session_id", sessionID,
		"adjusted_items", applied,
	)
	return session, nil
}

// applyItem pushes one item's counted quantity into the ledger through the
// adjustment primitive. Must run inside a transaction.
func (s *Service) applyItem(ctx context.Context, session *Session, item *Item, performedBy string) error {
	_, err := s.materials.Adjust(ctx, item.MaterialID, *item.CountedQuantity, materials.AdjustOptions{
		Action:      history.ActionCount,
		Reason:      fmt.Sprintf("Cycle count: %s", session.Name),
		PerformedBy: performedBy,
		Notes:       item.Notes,
	})
	if err != nil {
		return fmt.Errorf("apply count for material %s: %w", item.MaterialID, err)
	}

	now := time.Now().UTC()
	item.Applied = true
	item.AppliedAt = &now
	return nil
}

// Cancel transitions a draft or in-progress session to cancelled.
// No ledger side effects.
func (s *Service) Cancel(ctx context.Context, sessionID id.ID) (*Session, error) {
	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Cancel(); err != nil {
		return nil, err
	}
	session.Touch()

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	logger.Info(ctx, "count session cancelled", "session_id", sessionID)
	return session, nil
}

// List retrieves sessions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error) {
	return s.repo.List(ctx, filter)
}

// VarianceReport summarizes expected vs counted quantities for a session.
type VarianceReport struct {
	SessionID     id.ID          `json:"sessionId"`
	Status        SessionStatus  `json:"status"`
	Items         []VarianceItem `json:"items"`
	TotalSurplus  types.Quantity `json:"totalSurplus"`
	TotalShortage types.Quantity `json:"totalShortage"`
	VarianceCount int            `json:"varianceCount"`
}

// VarianceItem is one line of the variance report.
type VarianceItem struct {
	MaterialID       id.ID           `json:"materialId"`
	MaterialName     string          `json:"materialName"`
	SKU              string          `json:"sku"`
	ExpectedQuantity types.Quantity  `json:"expectedQuantity"`
	CountedQuantity  *types.Quantity `json:"countedQuantity,omitempty"`
	Variance         types.Quantity  `json:"variance"`
	Counted          bool            `json:"counted"`
	Applied          bool            `json:"applied"`
}

// GetVarianceReport builds the variance summary for a session.
func (s *Service) GetVarianceReport(ctx context.Context, sessionID id.ID) (*VarianceReport, error) {
	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := &VarianceReport{
		SessionID:     sessionID,
		Status:        session.Status,
		Items:         make([]VarianceItem, 0, len(session.Items)),
		VarianceCount: session.VarianceCount,
	}

	for i := range session.Items {
		item := &session.Items[i]
		report.Items = append(report.Items, VarianceItem{
			MaterialID:       item.MaterialID,
			MaterialName:     item.MaterialName,
			SKU:              item.SKU,
			ExpectedQuantity: item.ExpectedQuantity,
			CountedQuantity:  item.CountedQuantity,
			Variance:         item.Variance,
			Counted:          item.Counted,
			Applied:          item.Applied,
		})

		if item.Counted {
			if item.Variance.IsPositive() {
				report.TotalSurplus += item.Variance
			} else if item.Variance.IsNegative() {
				report.TotalShortage += item.Variance.Neg()
			}
		}
	}

	return report, nil
}
