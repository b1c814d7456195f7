package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/domain"
	"plantstock/internal/domain/history"
	"plantstock/internal/infrastructure/http/v1/dto"
)

// HistoryHandler handles HTTP requests for the audit log. Read-only: entries
// are produced by ledger operations, never through this API.
type HistoryHandler struct {
	*BaseHandler
	service *history.Service
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(base *BaseHandler, service *history.Service) *HistoryHandler {
	return &HistoryHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *HistoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := history.ListFilter{
		ListFilter: domain.ListFilter{
			Limit:  h.ParseIntQuery(c, "limit", 50),
			Offset: h.ParseIntQuery(c, "offset", 0),
		},
	}

	if materialID := c.Query("materialId"); materialID != "" {
		parsed, err := id.Parse(materialID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid materialId format"))
			return
		}
		filter.MaterialID = &parsed
	}

	if action := c.Query("action"); action != "" {
		a := history.Action(action)
		if !a.IsValid() {
			h.Error(c, apperror.NewValidation("invalid action").WithDetail("value", action))
			return
		}
		filter.Action = &a
	}

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	includeSnapshot := c.Query("includeSnapshot") == "true"
	items := make([]*dto.HistoryEntryResponse, len(result.Items))
	for i, e := range result.Items {
		items[i] = dto.FromHistoryEntry(e, includeSnapshot)
	}

	h.RespondList(c, items, result.TotalCount, filter.Limit, filter.Offset)
}

// ListForMaterial returns the audit trail of a single material, newest first.
func (h *HistoryHandler) ListForMaterial(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.ListForMaterial(ctx, materialID, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.HistoryEntryResponse, len(result.Items))
	for i, e := range result.Items {
		items[i] = dto.FromHistoryEntry(e, false)
	}

	h.RespondList(c, items, result.TotalCount, limit, offset)
}

func (h *HistoryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	entryID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	entry, err := h.service.GetByID(ctx, entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromHistoryEntry(entry, true))
}
