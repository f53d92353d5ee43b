package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/service"
)

type DrugHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewDrugHandler(catalogService *service.CatalogService, logger *zap.Logger) *DrugHandler {
	return &DrugHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

type drugListQuery struct {
	Term                 string          `form:"term"`
	Category             domain.Category `form:"category"`
	Form                 domain.Form     `form:"form"`
	PrescriptionRequired *bool           `form:"prescription_required"`
	MinStrength          *float64        `form:"min_strength"`
	MaxStrength          *float64        `form:"max_strength"`
	Page                 int             `form:"page"`
	PageSize             int             `form:"page_size"`
}

func (h *DrugHandler) ListDrugs(c *gin.Context) {
	var q drugListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	if q.Page < 0 || q.PageSize < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and page_size cannot be negative"})
		return
	}

	page, pageSize := domain.SearchRequest{Page: q.Page, PageSize: q.PageSize}.
		Pagination(domain.DefaultPageSize, domain.MaxPageSize)

	drugs, total, err := h.catalogService.Search(c.Request.Context(), domain.DrugFilter{
		Term:                 q.Term,
		Category:             q.Category,
		Form:                 q.Form,
		PrescriptionRequired: q.PrescriptionRequired,
		MinStrength:          q.MinStrength,
		MaxStrength:          q.MaxStrength,
	}, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err, "list drugs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drugs":       drugs,
		"total_count": total,
		"page":        page,
		"page_size":   pageSize,
	})
}

func (h *DrugHandler) GetDrug(c *gin.Context) {
	drugID := c.Param("id")

	drug, err := h.catalogService.GetByID(c.Request.Context(), drugID)
	if err != nil {
		respondError(c, h.logger, err, "get drug")
		return
	}
	// 비활성 약품은 공개 조회에서 숨김
	if !drug.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Drug not found"})
		return
	}

	c.JSON(http.StatusOK, drug)
}

func (h *DrugHandler) CreateDrug(c *gin.Context) {
	var req domain.DrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	drug, err := h.catalogService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "create drug")
		return
	}

	c.JSON(http.StatusCreated, drug)
}

func (h *DrugHandler) UpdateDrug(c *gin.Context) {
	var req domain.DrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	drug, err := h.catalogService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err, "update drug")
		return
	}

	c.JSON(http.StatusOK, drug)
}

func (h *DrugHandler) DeactivateDrug(c *gin.Context) {
	if err := h.catalogService.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "deactivate drug")
		return
	}

	c.Status(http.StatusNoContent)
}
