package dto

import (
	"time"

	"plantstock/internal/core/types"
	"plantstock/internal/domain/materials"
)

// MaterialResponse is the API shape of a material.
type MaterialResponse struct {
	ID             string         `json:"id"`
	Version        int            `json:"version"`
	OrganizationID string         `json:"organizationId"`
	Name           string         `json:"name"`
	SKU            string         `json:"sku"`
	Unit           string         `json:"unit,omitempty"`
	OnHand         types.Quantity `json:"onHand"`
	MinLevel       types.Quantity `json:"minLevel"`
	Department     string         `json:"department,omitempty"`
	Location       string         `json:"location,omitempty"`
	FacilityID     string         `json:"facilityId,omitempty"`
	Status         string         `json:"status"`
	Notes          string         `json:"notes,omitempty"`
	LowStock       bool           `json:"lowStock"`
	LastCountedAt  *time.Time     `json:"lastCountedAt,omitempty"`
	LastAdjustedAt *time.Time     `json:"lastAdjustedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	CreatedBy      string         `json:"createdBy,omitempty"`
	UpdatedBy      string         `json:"updatedBy,omitempty"`
}

// FromMaterial creates MaterialResponse from the domain model.
func FromMaterial(m *materials.Material) *MaterialResponse {
	return &MaterialResponse{
		ID:             m.ID.String(),
		Version:        m.Version,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		SKU:            m.SKU,
		Unit:           m.Unit,
		OnHand:         m.OnHand,
		MinLevel:       m.MinLevel,
		Department:     m.Department,
		Location:       m.Location,
		FacilityID:     m.FacilityID,
		Status:         string(m.Status),
		Notes:          m.Notes,
		LowStock:       m.IsLowStock(),
		LastCountedAt:  m.LastCountedAt,
		LastAdjustedAt: m.LastAdjustedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CreatedBy:      m.CreatedBy,
		UpdatedBy:      m.UpdatedBy,
	}
}

// CreateMaterialRequest for creating materials.
type CreateMaterialRequest struct {
	Name       string          `json:"name" binding:"required"`
	SKU        string          `json:"sku" binding:"required"`
	Unit       string          `json:"unit"`
	OnHand     *types.Quantity `json:"onHand"`
	MinLevel   *types.Quantity `json:"minLevel"`
	Department string          `json:"department"`
	Location   string          `json:"location"`
	FacilityID string          `json:"facilityId"`
	Notes      string          `json:"notes"`
}

// ToEntity converts the request to a new material.
func (r *CreateMaterialRequest) ToEntity(orgID string) *materials.Material {
	m := materials.NewMaterial(orgID, r.Name, r.SKU)
	m.Unit = r.Unit
	m.Department = r.Department
	m.Location = r.Location
	m.FacilityID = r.FacilityID
	m.Notes = r.Notes
	if r.OnHand != nil {
		m.OnHand = *r.OnHand
	}
	if r.MinLevel != nil {
		m.MinLevel = *r.MinLevel
	}
	return m
}

// UpdateMaterialRequest for updating descriptive fields. On-hand quantity is
// not accepted here; quantity changes go through the adjustment endpoints.
type UpdateMaterialRequest struct {
	Name       *string         `json:"name"`
	SKU        *string         `json:"sku"`
	Unit       *string         `json:"unit"`
	MinLevel   *types.Quantity `json:"minLevel"`
	Department *string         `json:"department"`
	Location   *string         `json:"location"`
	FacilityID *string         `json:"facilityId"`
	Status     *string         `json:"status"`
	Notes      *string         `json:"notes"`
	Version    int             `json:"version" binding:"required,min=1"`
}

// ApplyTo applies present fields onto the material.
func (r *UpdateMaterialRequest) ApplyTo(m *materials.Material) {
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.SKU != nil {
		m.SKU = *r.SKU
	}
	if r.Unit != nil {
		m.Unit = *r.Unit
	}
	if r.MinLevel != nil {
		m.MinLevel = *r.MinLevel
	}
	if r.Department != nil {
		m.Department = *r.Department
	}
	if r.Location != nil {
		m.Location = *r.Location
	}
	if r.FacilityID != nil {
		m.FacilityID = *r.FacilityID
	}
	if r.Status != nil {
		m.Status = materials.Status(*r.Status)
	}
	if r.Notes != nil {
		m.Notes = *r.Notes
	}
	m.SetVersion(r.Version)
}

// AdjustRequest sets on-hand to an absolute quantity.
type AdjustRequest struct {
	Quantity types.Quantity `json:"quantity"`
	Reason   string         `json:"reason" binding:"required"`
	Notes    string         `json:"notes"`
}

// ReceiveRequest increases on-hand by a positive delta.
type ReceiveRequest struct {
	Quantity types.Quantity `json:"quantity"`
	Reason   string         `json:"reason" binding:"required"`
	Notes    string         `json:"notes"`
}

// IssueRequest decreases on-hand by a positive delta, clamped at zero.
type IssueRequest struct {
	Quantity types.Quantity `json:"quantity"`
	Reason   string         `json:"reason" binding:"required"`
	Notes    string         `json:"notes"`
}

// ConsistencyResponse reports the ledger/log comparison for one material.
type ConsistencyResponse struct {
	MaterialID string         `json:"materialId"`
	OnHand     types.Quantity `json:"onHand"`
	HistorySum types.Quantity `json:"historySum"`
	Consistent bool           `json:"consistent"`
}

// FromConsistency creates ConsistencyResponse from the service report.
func FromConsistency(r *materials.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		MaterialID: r.MaterialID.String(),
		OnHand:     r.OnHand,
		HistorySum: r.HistorySum,
		Consistent: r.Consistent,
	}
}
