package dto

import (
	"encoding/json"
	"time"

	"plantstock/internal/core/types"
	"plantstock/internal/domain/history"
)

// HistoryEntryResponse is the API shape of a history entry.
type HistoryEntryResponse struct {
	ID             string          `json:"id"`
	MaterialID     string          `json:"materialId"`
	MaterialName   string          `json:"materialName"`
	SKU            string          `json:"sku"`
	Action         string          `json:"action"`
	QuantityBefore types.Quantity  `json:"quantityBefore"`
	QuantityAfter  types.Quantity  `json:"quantityAfter"`
	QuantityChange types.Quantity  `json:"quantityChange"`
	Reason         string          `json:"reason"`
	PerformedBy    string          `json:"performedBy"`
	Notes          string          `json:"notes,omitempty"`
	Snapshot       json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// FromHistoryEntry creates HistoryEntryResponse from the domain model.
// The snapshot is included only when asked for: it is bulky and most list
// consumers only need the quantity columns.
func FromHistoryEntry(e *history.Entry, includeSnapshot bool) *HistoryEntryResponse {
	resp := &HistoryEntryResponse{
		ID:             e.ID.String(),
		MaterialID:     e.MaterialID.String(),
		MaterialName:   e.MaterialName,
		SKU:            e.SKU,
		Action:         string(e.Action),
		QuantityBefore: e.QuantityBefore,
		QuantityAfter:  e.QuantityAfter,
		QuantityChange: e.QuantityChange,
		Reason:         e.Reason,
		PerformedBy:    e.PerformedBy,
		Notes:          e.Notes,
		CreatedAt:      e.CreatedAt,
	}
	if includeSnapshot {
		resp.Snapshot = e.Snapshot
	}
	return resp
}
