// Package materials provides the material quantity ledger.
package materials

import (
	"context"
	"time"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/entity"
	"plantstock/internal/core/types"
)

// Status represents the lifecycle status of a material.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Material represents one trackable inventory item.
//
// OnHand is mutated exclusively through the ledger service's Adjust primitive;
// every change produces exactly one history entry with matching
// before/after/delta values.
type Material struct {
	entity.Base

	OrganizationID string `db:"organization_id" json:"organizationId"`

	Name string `db:"name" json:"name"`
	// SKU is unique within the organization.
	SKU  string `db:"sku" json:"sku"`
	Unit string `db:"unit" json:"unit,omitempty"`

	OnHand   types.Quantity `db:"on_hand" json:"onHand"`
	MinLevel types.Quantity `db:"min_level" json:"minLevel"`

	Department string `db:"department" json:"department,omitempty"`
	Location   string `db:"location" json:"location,omitempty"`
	FacilityID string `db:"facility_id" json:"facilityId,omitempty"`

	Status Status `db:"status" json:"status"`
	Notes  string `db:"notes" json:"notes,omitempty"`

	LastCountedAt  *time.Time `db:"last_counted_at" json:"lastCountedAt,omitempty"`
	LastAdjustedAt *time.Time `db:"last_adjusted_at" json:"lastAdjustedAt,omitempty"`
}

// NewMaterial creates a new active material.
func NewMaterial(orgID, name, sku string) *Material {
	return &Material{
		Base:           entity.NewBase(),
		OrganizationID: orgID,
		Name:           name,
		SKU:            sku,
		Status:         StatusActive,
	}
}

// Validate implements entity.Validatable.
func (m *Material) Validate(ctx context.Context) error {
	if m.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}

	if m.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if m.SKU == "" {
		return apperror.NewValidation("SKU is required").
			WithDetail("field", "sku")
	}

	if m.Status != StatusActive && m.Status != StatusInactive {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(m.Status))
	}

	if m.MinLevel.IsNegative() {
		return apperror.NewValidation("minimum level cannot be negative").
			WithDetail("field", "minLevel")
	}

	return nil
}

// IsLowStock reports whether the material is at or below its minimum level.
// Materials without a minimum level configured never count as low.
func (m *Material) IsLowStock() bool {
	return m.Status == StatusActive && m.MinLevel.IsPositive() && m.OnHand <= m.MinLevel
}

// IsActive reports whether the material is active.
func (m *Material) IsActive() bool {
	return m.Status == StatusActive
}
