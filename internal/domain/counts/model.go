// Package counts provides the count session reconciliation engine.
//
// A session freezes a snapshot of expected quantities at creation, collects
// physical counts per item, and computes variance against the frozen baseline.
// Reconciling counted quantities back into the ledger is a separate, explicit
// step that always goes through the material ledger's Adjust primitive: the
// session engine never writes on-hand directly.
package counts

import (
	"context"
	"time"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/entity"
	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
)

// SessionStatus represents the status of a count session.
type SessionStatus string

const (
	StatusDraft      SessionStatus = "draft"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// Session represents one physical-count exercise.
type Session struct {
	entity.Base

	OrganizationID string `db:"organization_id" json:"organizationId"`

	Name       string        `db:"name" json:"name"`
	FacilityID string        `db:"facility_id" json:"facilityId,omitempty"`
	Department string        `db:"department" json:"department,omitempty"`
	Status     SessionStatus `db:"status" json:"status"`
	Notes      string        `db:"notes" json:"notes,omitempty"`

	// Aggregates, always recomputed from item state.
	TotalItems    int `db:"total_items" json:"totalItems"`
	CountedItems  int `db:"counted_items" json:"countedItems"`
	VarianceCount int `db:"variance_count" json:"varianceCount"`

	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one material within a session. ExpectedQuantity is frozen at session
// creation; it is the baseline the count is measured against even if the live
// ledger value changes concurrently.
type Item struct {
	LineID     id.ID `db:"line_id" json:"lineId"`
	MaterialID id.ID `db:"material_id" json:"materialId"`

	// Material snapshot at session creation
	MaterialName string `db:"material_name" json:"materialName"`
	SKU          string `db:"sku" json:"sku"`

	ExpectedQuantity types.Quantity  `db:"expected_quantity" json:"expectedQuantity"`
	CountedQuantity  *types.Quantity `db:"counted_quantity" json:"countedQuantity,omitempty"`
	Variance         types.Quantity  `db:"variance" json:"variance"`

	Counted   bool       `db:"counted" json:"counted"`
	CountedAt *time.Time `db:"counted_at" json:"countedAt,omitempty"`
	CountedBy string     `db:"counted_by" json:"countedBy,omitempty"`
	Notes     string     `db:"notes" json:"notes,omitempty"`

	// Applied marks that this item's variance has been pushed into the ledger.
	// It does not guard against re-application: re-applying overwrites the live
	// value with the recorded count again.
	Applied   bool       `db:"applied" json:"applied"`
	AppliedAt *time.Time `db:"applied_at" json:"appliedAt,omitempty"`
}

// HasVariance reports whether the item was counted with a nonzero variance.
func (it *Item) HasVariance() bool {
	return it.Counted && !it.Variance.IsZero()
}

// NewSession creates a new session in draft status.
func NewSession(orgID, name string) *Session {
	return &Session{
		Base:           entity.NewBase(),
		OrganizationID: orgID,
		Name:           name,
		Status:         StatusDraft,
		Items:          make([]Item, 0),
	}
}

// AddItem snapshots a material into the session.
func (s *Session) AddItem(materialID id.ID, materialName, sku string, expected types.Quantity) {
	s.Items = append(s.Items, Item{
		LineID:           id.New(),
		MaterialID:       materialID,
		MaterialName:     materialName,
		SKU:              sku,
		ExpectedQuantity: expected,
	})
	s.recalculate()
}

// FindItem returns the item for a material, or nil if the material is not in
// the session's scope.
func (s *Session) FindItem(materialID id.ID) *Item {
	for i := range s.Items {
		if s.Items[i].MaterialID == materialID {
			return &s.Items[i]
		}
	}
	return nil
}

// RecordCount records a count for one material. Re-counting overwrites the
// prior count: last write wins, no intermediate counts are kept.
// Completes the session automatically when every item has been counted.
func (s *Session) RecordCount(materialID id.ID, counted types.Quantity, countedBy, notes string) error {
	if s.Status != StatusInProgress {
		return apperror.NewBusinessRule("INVALID_STATUS", "Counts can only be recorded on an in-progress session").
			WithDetail("status", string(s.Status))
	}

	item := s.FindItem(materialID)
	if item == nil {
		return apperror.NewNotFound("count item", materialID.String()).
			WithDetail("session_id", s.ID.String())
	}

	now := time.Now().UTC()
	qty := counted
	item.CountedQuantity = &qty
	item.Variance = counted - item.ExpectedQuantity
	item.Counted = true
	item.CountedAt = &now
	item.CountedBy = countedBy
	item.Notes = notes
	// A re-count resets any prior application of this item.
	item.Applied = false
	item.AppliedAt = nil

	s.recalculate()

	if s.CountedItems == s.TotalItems {
		s.Status = StatusCompleted
		s.CompletedAt = &now
	}

	return nil
}

// recalculate recomputes the aggregate counters from item state.
func (s *Session) recalculate() {
	s.TotalItems = len(s.Items)
	s.CountedItems = 0
	s.VarianceCount = 0

	for i := range s.Items {
		if s.Items[i].Counted {
			s.CountedItems++
			if !s.Items[i].Variance.IsZero() {
				s.VarianceCount++
			}
		}
	}
}

// Validate implements entity.Validatable.
func (s *Session) Validate(ctx context.Context) error {
	if s.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}

	if s.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if len(s.Items) == 0 {
		return apperror.NewValidation("session must contain at least one item").
			WithDetail("field", "items")
	}

	return nil
}

// Start transitions the session to in_progress.
func (s *Session) Start() error {
	if s.Status != StatusDraft {
		return apperror.NewBusinessRule("INVALID_STATUS", "Can only start from draft status").
			WithDetail("status", string(s.Status))
	}
	s.Status = StatusInProgress
	now := time.Now().UTC()
	s.StartedAt = &now
	return nil
}

// Cancel transitions the session to cancelled. Terminal: no further counts or
// reconciliation are permitted.
func (s *Session) Cancel() error {
	if s.Status != StatusDraft && s.Status != StatusInProgress {
		return apperror.NewBusinessRule("INVALID_STATUS", "Can only cancel a draft or in-progress session").
			WithDetail("status", string(s.Status))
	}
	s.Status = StatusCancelled
	return nil
}

// CanApply reports whether reconciliation into the ledger is permitted.
func (s *Session) CanApply() error {
	if s.Status != StatusInProgress && s.Status != StatusCompleted {
		return apperror.NewBusinessRule("INVALID_STATUS", "Can only apply counts from an in-progress or completed session").
			WithDetail("status", string(s.Status))
	}
	return nil
}
