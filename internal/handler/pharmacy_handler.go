package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/service"
	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/middleware"
)

// PharmacyHandler serves pharmacist onboarding and the admin approval
// queue.
type PharmacyHandler struct {
	pharmacyService *service.PharmacyService
	logger          *zap.Logger
}

func NewPharmacyHandler(pharmacyService *service.PharmacyService, logger *zap.Logger) *PharmacyHandler {
	return &PharmacyHandler{
		pharmacyService: pharmacyService,
		logger:          logger,
	}
}

func (h *PharmacyHandler) GetProfile(c *gin.Context) {
	pharmacy, err := h.pharmacyService.GetByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err, "get pharmacy profile")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}

func (h *PharmacyHandler) CreateProfile(c *gin.Context) {
	var req domain.PharmacyProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	pharmacy, err := h.pharmacyService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.logger, err, "create pharmacy profile")
		return
	}

	c.JSON(http.StatusCreated, pharmacy)
}

func (h *PharmacyHandler) UpdateProfile(c *gin.Context) {
	var req domain.PharmacyProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	pharmacy, err := h.pharmacyService.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.logger, err, "update pharmacy profile")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}

type locationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *PharmacyHandler) SetLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	pharmacy, err := h.pharmacyService.SetLocation(c.Request.Context(), middleware.UserID(c),
		domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		respondError(c, h.logger, err, "set pharmacy location")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}

func (h *PharmacyHandler) AttachCertificate(c *gin.Context) {
	var req domain.CertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	pharmacy, err := h.pharmacyService.AttachCertificate(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.logger, err, "attach certificate")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}

// Submit covers both first submission and resubmission after rejection.
func (h *PharmacyHandler) Submit(c *gin.Context) {
	pharmacy, err := h.pharmacyService.Submit(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err, "submit pharmacy profile")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}

func (h *PharmacyHandler) ListPharmacies(c *gin.Context) {
	status := domain.ApprovalStatus(c.Query("status"))

	pharmacies, err := h.pharmacyService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, h.logger, err, "list pharmacies")
		return
	}
	if pharmacies == nil {
		pharmacies = []domain.Pharmacy{}
	}

	c.JSON(http.StatusOK, gin.H{
		"pharmacies": pharmacies,
		"count":      len(pharmacies),
	})
}

func (h *PharmacyHandler) Stats(c *gin.Context) {
	stats, err := h.pharmacyService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "get pharmacy stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *PharmacyHandler) Approve(c *gin.Context) {
	pharmacy, err := h.pharmacyService.Approve(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err, "approve pharmacy")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}

func (h *PharmacyHandler) Reject(c *gin.Context) {
	var req domain.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	pharmacy, err := h.pharmacyService.Reject(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Reason)
	if err != nil {
		respondError(c, h.logger, err, "reject pharmacy")
		return
	}

	c.JSON(http.StatusOK, pharmacy)
}
