package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/domain"
	"plantstock/internal/domain/history"
	"plantstock/internal/domain/materials"
	"plantstock/internal/infrastructure/http/v1/dto"
)

// MaterialHandler handles HTTP requests for the material ledger.
type MaterialHandler struct {
	*BaseHandler
	service *materials.Service
}

// NewMaterialHandler creates a new material handler.
func NewMaterialHandler(base *BaseHandler, service *materials.Service) *MaterialHandler {
	return &MaterialHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *MaterialHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := materials.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "name")
	filter.SKU = c.Query("sku")
	filter.Department = c.Query("department")
	filter.Location = c.Query("location")
	filter.FacilityID = c.Query("facilityId")

	if status := c.Query("status"); status != "" {
		s := materials.Status(status)
		filter.Status = &s
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.respondList(c, result, filter.Limit, filter.Offset)
}

// ListLowStock returns active materials at or below their minimum level.
func (h *MaterialHandler) ListLowStock(c *gin.Context) {
	ctx := c.Request.Context()

	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.ListLowStock(ctx, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.respondList(c, result, limit, offset)
}

func (h *MaterialHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	m, err := h.service.GetByID(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

func (h *MaterialHandler) GetBySKU(c *gin.Context) {
	ctx := c.Request.Context()

	m, err := h.service.GetBySKU(ctx, c.Param("sku"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

func (h *MaterialHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m := req.ToEntity(h.GetOrgID(c))

	if actor := h.GetActor(c); actor != "" {
		m.CreatedBy = actor
		m.UpdatedBy = actor
	}

	if err := h.service.Create(ctx, m); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromMaterial(m))
}

func (h *MaterialHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.GetByID(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(m)

	if actor := h.GetActor(c); actor != "" {
		m.UpdatedBy = actor
	}

	if err := h.service.Update(ctx, m); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

func (h *MaterialHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, materialID, h.GetActor(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Adjust sets on-hand to an absolute quantity (action "adjustment").
func (h *MaterialHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.Adjust(ctx, materialID, req.Quantity, materials.AdjustOptions{
		Action:      history.ActionAdjustment,
		Reason:      req.Reason,
		PerformedBy: h.GetActor(c),
		Notes:       req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

// Receive increases on-hand by a positive delta (action "receive").
func (h *MaterialHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.Receive(ctx, materialID, req.Quantity, req.Reason, h.GetActor(c), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

// Issue decreases on-hand by a positive delta, clamped at zero (action "issue").
func (h *MaterialHandler) Issue(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.IssueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.Issue(ctx, materialID, req.Quantity, req.Reason, h.GetActor(c), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

// CheckConsistency compares on-hand against the sum of history deltas.
func (h *MaterialHandler) CheckConsistency(c *gin.Context) {
	ctx := c.Request.Context()

	materialID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.service.CheckConsistency(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromConsistency(report))
}

func (h *MaterialHandler) respondList(c *gin.Context, result domain.ListResult[*materials.Material], limit, offset int) {
	items := make([]*dto.MaterialResponse, len(result.Items))
	for i, m := range result.Items {
		items[i] = dto.FromMaterial(m)
	}
	h.RespondList(c, items, result.TotalCount, limit, offset)
}
