package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/domain"
	"plantstock/internal/domain/counts"
	"plantstock/internal/infrastructure/http/v1/dto"
)

// CountSessionHandler handles HTTP requests for count sessions.
type CountSessionHandler struct {
	*BaseHandler
	service *counts.Service
}

// NewCountSessionHandler creates a new count session handler.
func NewCountSessionHandler(base *BaseHandler, service *counts.Service) *CountSessionHandler {
	return &CountSessionHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *CountSessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := counts.ListFilter{
		ListFilter: domain.ListFilter{
			Search: c.Query("search"),
			Limit:  h.ParseIntQuery(c, "limit", 50),
			Offset: h.ParseIntQuery(c, "offset", 0),
		},
	}
	filter.FacilityID = c.Query("facilityId")
	filter.Department = c.Query("department")

	if status := c.Query("status"); status != "" {
		s := counts.SessionStatus(status)
		filter.Status = &s
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

	items := make([]*dto.CountSessionResponse, len(result.Items))
	for i, s := range result.Items {
		items[i] = dto.FromCountSession(s)
	}

	h.RespondList(c, items, result.TotalCount, filter.Limit, filter.Offset)
}

func (h *CountSessionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	session, err := h.service.GetByID(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCountSession(session))
}

func (h *CountSessionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateCountSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	materialIDs := make([]id.ID, 0, len(req.MaterialIDs))
	for _, raw := range req.MaterialIDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid material id format").WithDetail("value", raw))
			return
		}
		materialIDs = append(materialIDs, parsed)
	}

	session, err := h.service.Create(ctx, h.GetOrgID(c), counts.CreateInput{
		Name:        req.Name,
		FacilityID:  req.FacilityID,
		Department:  req.Department,
		CreatedBy:   h.GetActor(c),
		Notes:       req.Notes,
		MaterialIDs: materialIDs,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromCountSession(session))
}

// Start transitions a draft session to in_progress.
func (h *CountSessionHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	session, err := h.service.Start(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCountSession(session))
}

// RecordCount records a physical count for one material in the session.
func (h *CountSessionHandler) RecordCount(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.RecordCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	materialID, err := id.Parse(req.MaterialID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid material id format"))
		return
	}

	session, err := h.service.RecordCount(ctx, sessionID, materialID,
		req.CountedQuantity, h.GetActor(c), req.Notes, req.ApplyImmediately)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCountSession(session))
}

// Apply reconciles all counted variances into the ledger.
func (h *CountSessionHandler) Apply(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	session, err := h.service.ApplyToInventory(ctx, sessionID, h.GetActor(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCountSession(session))
}

// Cancel transitions a session to cancelled.
func (h *CountSessionHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	session, err := h.service.Cancel(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCountSession(session))
}

// VarianceReport returns the expected vs counted summary.
func (h *CountSessionHandler) VarianceReport(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.service.GetVarianceReport(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromVarianceReport(report))
}
