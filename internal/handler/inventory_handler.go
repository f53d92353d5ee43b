package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/service"
	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/middleware"
)

// InventoryHandler serves the signed-in pharmacist's own stock.
type InventoryHandler struct {
	inventoryService *service.InventoryService
	pharmacyService  *service.PharmacyService
	logger           *zap.Logger
}

func NewInventoryHandler(inventoryService *service.InventoryService, pharmacyService *service.PharmacyService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		pharmacyService:  pharmacyService,
		logger:           logger,
	}
}

// pharmacyID resolves the caller's pharmacy. It writes the response and
// returns false when there is none.
func (h *InventoryHandler) pharmacyID(c *gin.Context) (string, bool) {
	pharmacy, err := h.pharmacyService.GetByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err, "resolve pharmacy")
		return "", false
	}
	return pharmacy.PharmacyID, true
}

func (h *InventoryHandler) ListInventory(c *gin.Context) {
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	records, err := h.inventoryService.ListByPharmacy(c.Request.Context(), pharmacyID)
	if err != nil {
		respondError(c, h.logger, err, "list inventory")
		return
	}
	respondRecords(c, records)
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	records, err := h.inventoryService.ListLowStock(c.Request.Context(), pharmacyID)
	if err != nil {
		respondError(c, h.logger, err, "list low stock")
		return
	}
	respondRecords(c, records)
}

func respondRecords(c *gin.Context, records []domain.InventoryRecord) {
	if records == nil {
		records = []domain.InventoryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"inventory": records,
		"count":     len(records),
	})
}

func (h *InventoryHandler) CreateRecord(c *gin.Context) {
	var req domain.CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.UpsertNew(c.Request.Context(), pharmacyID, req.DrugID, req.InventoryAttributes)
	if err != nil {
		respondError(c, h.logger, err, "create inventory record")
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *InventoryHandler) AdjustQuantity(c *gin.Context) {
	var req domain.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.AdjustQuantity(c.Request.Context(), pharmacyID, c.Param("drugId"), req.Delta, req.Version)
	if err != nil {
		respondError(c, h.logger, err, "adjust quantity")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *InventoryHandler) Restock(c *gin.Context) {
	var req domain.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.AdjustWithRetry(c.Request.Context(), pharmacyID, c.Param("drugId"), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err, "restock")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *InventoryHandler) SetPricing(c *gin.Context) {
	var req domain.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.SetPricing(c.Request.Context(), pharmacyID, c.Param("drugId"), *req.Price, *req.DiscountPercent)
	if err != nil {
		respondError(c, h.logger, err, "set pricing")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *InventoryHandler) SetAvailability(c *gin.Context) {
	var req domain.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.SetAvailability(c.Request.Context(), pharmacyID, c.Param("drugId"), *req.IsAvailable)
	if err != nil {
		respondError(c, h.logger, err, "set availability")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *InventoryHandler) SetStockLevels(c *gin.Context) {
	var req domain.StockLevelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}
	pharmacyID, ok := h.pharmacyID(c)
	if !ok {
		return
	}

	record, err := h.inventoryService.SetStockLevels(c.Request.Context(), pharmacyID, c.Param("drugId"), *req.MinStockLevel, *req.MaxStockLevel)
	if err != nil {
		respondError(c, h.logger, err, "set stock levels")
		return
	}

	c.JSON(http.StatusOK, record)
}
