// Package history provides the append-only quantity audit log.
//
// Every mutation of a material's on-hand quantity produces exactly one Entry.
// Entries are immutable facts: they are never updated or deleted, and the
// material name/SKU are denormalized into each entry so the audit trail stays
// meaningful after the material is renamed or removed.
package history

import (
	"context"
	"encoding/json"
	"time"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
)

// Action identifies what kind of operation produced an entry.
type Action string

const (
	ActionCreate     Action = "create"
	ActionAdjustment Action = "adjustment"
	ActionCount      Action = "count"
	ActionReceive    Action = "receive"
	ActionIssue      Action = "issue"
	ActionDelete     Action = "delete"
	ActionTransfer   Action = "transfer"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionAdjustment, ActionCount, ActionReceive,
		ActionIssue, ActionDelete, ActionTransfer:
		return true
	}
	return false
}

// Entry is one immutable audit record of a quantity change.
type Entry struct {
	ID             id.ID `db:"id" json:"id"`
	OrganizationID string `db:"organization_id" json:"organizationId"`

	// Material snapshot (survives rename and deletion of the material)
	MaterialID   id.ID  `db:"material_id" json:"materialId"`
	MaterialName string `db:"material_name" json:"materialName"`
	SKU          string `db:"sku" json:"sku"`

	Action         Action         `db:"action" json:"action"`
	QuantityBefore types.Quantity `db:"quantity_before" json:"quantityBefore"`
	QuantityAfter  types.Quantity `db:"quantity_after" json:"quantityAfter"`
	QuantityChange types.Quantity `db:"quantity_change" json:"quantityChange"`

	Reason      string `db:"reason" json:"reason"`
	PerformedBy string `db:"performed_by" json:"performedBy"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	// Snapshot holds the full material state at write time (stored compressed
	// past a size threshold, see the history repository).
	Snapshot json.RawMessage `db:"snapshot" json:"snapshot,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry creates an entry with QuantityChange derived from before/after.
// The change is always after - before; callers never supply it directly.
func NewEntry(orgID string, materialID id.ID, materialName, sku string, action Action, before, after types.Quantity, reason, performedBy string) *Entry {
	return &Entry{
		ID:             id.New(),
		OrganizationID: orgID,
		MaterialID:     materialID,
		MaterialName:   materialName,
		SKU:            sku,
		Action:         action,
		QuantityBefore: before,
		QuantityAfter:  after,
		QuantityChange: after - before,
		Reason:         reason,
		PerformedBy:    performedBy,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate implements entity.Validatable.
func (e *Entry) Validate(ctx context.Context) error {
	if e.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}

	if id.IsNil(e.MaterialID) {
		return apperror.NewValidation("material is required").
			WithDetail("field", "materialId")
	}

	if e.MaterialName == "" {
		return apperror.NewValidation("material name snapshot is required").
			WithDetail("field", "materialName")
	}

	if !e.Action.IsValid() {
		return apperror.NewValidation("invalid action").
			WithDetail("field", "action").
			WithDetail("value", string(e.Action))
	}

	if e.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}

	if e.PerformedBy == "" {
		return apperror.NewValidation("performer is required").
			WithDetail("field", "performedBy")
	}

	// The ledger/log consistency invariant hinges on this identity.
	if e.QuantityChange != e.QuantityAfter-e.QuantityBefore {
		return apperror.NewValidation("quantity change must equal after minus before").
			WithDetail("field", "quantityChange")
	}

	return nil
}
