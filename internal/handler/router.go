package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/middleware"
)

type Handlers struct {
	Search    *SearchHandler
	Drug      *DrugHandler
	Pharmacy  *PharmacyHandler
	Inventory *InventoryHandler
}

// NewRouter registers every route under /api/v1.
func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
		v1.GET("/search", h.Search.Search)
		v1.GET("/drugs", h.Drug.ListDrugs)
		v1.GET("/drugs/:id", h.Drug.GetDrug)

		auth := v1.Group("", middleware.Auth(jwtSecret))

		admin := auth.Group("", middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.POST("/drugs", h.Drug.CreateDrug)
			admin.PUT("/drugs/:id", h.Drug.UpdateDrug)
			admin.DELETE("/drugs/:id", h.Drug.DeactivateDrug)

			admin.GET("/admin/pharmacies", h.Pharmacy.ListPharmacies)
			admin.GET("/admin/stats", h.Pharmacy.Stats)
			admin.PUT("/admin/pharmacies/:id/approve", h.Pharmacy.Approve)
			admin.PUT("/admin/pharmacies/:id/reject", h.Pharmacy.Reject)
		}

		pharmacist := auth.Group("", middleware.RequireRole(middleware.RolePharmacist))
		{
			pharmacist.GET("/pharmacy/profile", h.Pharmacy.GetProfile)
			pharmacist.POST("/pharmacy/profile", h.Pharmacy.CreateProfile)
			pharmacist.PUT("/pharmacy/profile", h.Pharmacy.UpdateProfile)
			pharmacist.PUT("/pharmacy/location", h.Pharmacy.SetLocation)
			pharmacist.POST("/pharmacy/certificates", h.Pharmacy.AttachCertificate)
			pharmacist.POST("/pharmacy/submit", h.Pharmacy.Submit)

			pharmacist.GET("/inventory", h.Inventory.ListInventory)
			pharmacist.GET("/inventory/low-stock", h.Inventory.ListLowStock)
			pharmacist.POST("/inventory", h.Inventory.CreateRecord)
			pharmacist.POST("/inventory/:drugId/adjust", h.Inventory.AdjustQuantity)
			pharmacist.POST("/inventory/:drugId/restock", h.Inventory.Restock)
			pharmacist.PUT("/inventory/:drugId/pricing", h.Inventory.SetPricing)
			pharmacist.PUT("/inventory/:drugId/availability", h.Inventory.SetAvailability)
			pharmacist.PUT("/inventory/:drugId/levels", h.Inventory.SetStockLevels)
		}
	}

	return router
}
