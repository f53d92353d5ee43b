package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/service"
)

type SearchHandler struct {
	matchService *service.MatchService
	logger       *zap.Logger
}

func NewSearchHandler(matchService *service.MatchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		matchService: matchService,
		logger:       logger,
	}
}

// Search answers GET /search. No identity is required.
func (h *SearchHandler) Search(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		invalidRequest(c, h.logger, err)
		return
	}

	resp, err := h.matchService.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "search drugs")
		return
	}

	c.JSON(http.StatusOK, resp)
}
