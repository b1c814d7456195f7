package dto

import (
	"time"

	"plantstock/internal/core/types"
	"plantstock/internal/domain/counts"
)

// CountSessionResponse is the API shape of a count session.
type CountSessionResponse struct {
	ID             string              `json:"id"`
	Version        int                 `json:"version"`
	OrganizationID string              `json:"organizationId"`
	Name           string              `json:"name"`
	FacilityID     string              `json:"facilityId,omitempty"`
	Department     string              `json:"department,omitempty"`
	Status         string              `json:"status"`
	Notes          string              `json:"notes,omitempty"`
	TotalItems     int                 `json:"totalItems"`
	CountedItems   int                 `json:"countedItems"`
	VarianceCount  int                 `json:"varianceCount"`
	StartedAt      *time.Time          `json:"startedAt,omitempty"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
	Items          []CountItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	CreatedBy      string              `json:"createdBy,omitempty"`
}

// CountItemResponse is one session line.
type CountItemResponse struct {
	LineID           string          `json:"lineId"`
	MaterialID       string          `json:"materialId"`
	MaterialName     string          `json:"materialName"`
	SKU              string          `json:"sku"`
	ExpectedQuantity types.Quantity  `json:"expectedQuantity"`
	CountedQuantity  *types.Quantity `json:"countedQuantity,omitempty"`
	Variance         types.Quantity  `json:"variance"`
	Counted          bool            `json:"counted"`
	CountedAt        *time.Time      `json:"countedAt,omitempty"`
	CountedBy        string          `json:"countedBy,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Applied          bool            `json:"applied"`
	AppliedAt        *time.Time      `json:"appliedAt,omitempty"`
}

// FromCountSession creates CountSessionResponse from the domain model.
func FromCountSession(s *counts.Session) *CountSessionResponse {
	items := make([]CountItemResponse, 0, len(s.Items))
	for i := range s.Items {
		items = append(items, fromCountItem(&s.Items[i]))
	}

	return &CountSessionResponse{
		ID:             s.ID.String(),
		Version:        s.Version,
		OrganizationID: s.OrganizationID,
		Name:           s.Name,
		FacilityID:     s.FacilityID,
		Department:     s.Department,
		Status:         string(s.Status),
		Notes:          s.Notes,
		TotalItems:     s.TotalItems,
		CountedItems:   s.CountedItems,
		VarianceCount:  s.VarianceCount,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		Items:          items,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		CreatedBy:      s.CreatedBy,
	}
}

func fromCountItem(it *counts.Item) CountItemResponse {
	return CountItemResponse{
		LineID:           it.LineID.String(),
		MaterialID:       it.MaterialID.String(),
		MaterialName:     it.MaterialName,
		SKU:              it.SKU,
		ExpectedQuantity: it.ExpectedQuantity,
		CountedQuantity:  it.CountedQuantity,
		Variance:         it.Variance,
		Counted:          it.Counted,
		CountedAt:        it.CountedAt,
		CountedBy:        it.CountedBy,
		Notes:            it.Notes,
		Applied:          it.Applied,
		AppliedAt:        it.AppliedAt,
	}
}

// CreateCountSessionRequest for creating count sessions.
type CreateCountSessionRequest struct {
	Name        string   `json:"name" binding:"required"`
	FacilityID  string   `json:"facilityId"`
	Department  string   `json:"department"`
	Notes       string   `json:"notes"`
	MaterialIDs []string `json:"materialIds" binding:"required,min=1"`
}

// RecordCountRequest records one physical count.
type RecordCountRequest struct {
	MaterialID       string         `json:"materialId" binding:"required"`
	CountedQuantity  types.Quantity `json:"countedQuantity"`
	Notes            string         `json:"notes"`
	ApplyImmediately bool           `json:"applyImmediately"`
}

// VarianceReportResponse summarizes expected vs counted for a session.
type VarianceReportResponse struct {
	SessionID     string                 `json:"sessionId"`
	Status        string                 `json:"status"`
	Items         []VarianceItemResponse `json:"items"`
	TotalSurplus  types.Quantity         `json:"totalSurplus"`
	TotalShortage types.Quantity         `json:"totalShortage"`
	VarianceCount int                    `json:"varianceCount"`
}

// VarianceItemResponse is one line of the variance report.
type VarianceItemResponse struct {
	MaterialID       string          `json:"materialId"`
	MaterialName     string          `json:"materialName"`
	SKU              string          `json:"sku"`
	ExpectedQuantity types.Quantity  `json:"expectedQuantity"`
	CountedQuantity  *types.Quantity `json:"countedQuantity,omitempty"`
	Variance         types.Quantity  `json:"variance"`
	Counted          bool            `json:"counted"`
	Applied          bool            `json:"applied"`
}

// FromVarianceReport creates VarianceReportResponse from the service report.
func FromVarianceReport(r *counts.VarianceReport) *VarianceReportResponse {
	items := make([]VarianceItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, VarianceItemResponse{
			MaterialID:       it.MaterialID.String(),
			MaterialName:     it.MaterialName,
			SKU:              it.SKU,
			ExpectedQuantity: it.ExpectedQuantity,
			CountedQuantity:  it.CountedQuantity,
			Variance:         it.Variance,
			Counted:          it.Counted,
			Applied:          it.Applied,
		})
	}

	return &VarianceReportResponse{
		SessionID:     r.SessionID.String(),
		Status:        string(r.Status),
		Items:         items,
		TotalSurplus:  r.TotalSurplus,
		TotalShortage: r.TotalShortage,
		VarianceCount: r.VarianceCount,
	}
}
