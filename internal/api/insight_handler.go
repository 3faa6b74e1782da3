package api

import (
	"net/http"

	"domex/api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InsightHandler serves AI generated text about listed domains. Every route
// answers 503 when no provider key is configured.
type InsightHandler struct {
	insightService service.InsightService
	logger         *zap.Logger
}

func NewInsightHandler(insightService service.InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{insightService: insightService, logger: logger}
}

type BulkEnhanceRequest struct {
	DomainNames []string `json:"domainNames" binding:"required,min=1,dive,required"`
}

// Valuation godoc
// @Summary AI valuation of a domain
// @Tags Insights
// @Produce json
// @Param name path string true "Domain name"
// @Success 200 {object} service.Valuation
// @Failure 503 {object} gin.H "AI service not configured"
// @Router /domains/{name}/valuation [get]
func (h *InsightHandler) Valuation(c *gin.Context) {
	v, err := h.insightService.Valuation(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate domain valuation")
		return
	}
	c.JSON(http.StatusOK, v)
}

// Description godoc
// @Summary AI marketing description of a domain
// @Tags Insights
// @Produce json
// @Param name path string true "Domain name"
// @Param currentBid query string false "Current highest bid"
// @Success 200 {object} service.Description
// @Router /domains/{name}/description [get]
func (h *InsightHandler) Description(c *gin.Context) {
	d, err := h.insightService.Description(c.Request.Context(), c.Param("name"), c.Query("currentBid"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate domain description")
		return
	}
	c.JSON(http.StatusOK, d)
}

// MarketAnalysis godoc
// @Summary AI analysis of the current auction market
// @Tags Insights
// @Produce json
// @Success 200 {object} service.MarketAnalysis
// @Router /market-analysis [get]
func (h *InsightHandler) MarketAnalysis(c *gin.Context) {
	m, err := h.insightService.MarketAnalysis(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate market analysis")
		return
	}
	c.JSON(http.StatusOK, m)
}

// BulkEnhance godoc
// @Summary AI descriptions for several domains
// @Tags Insights
// @Accept json
// @Produce json
// @Param request body BulkEnhanceRequest true "Domain names"
// @Success 200 {object} gin.H "{results}"
// @Router /domains/bulk-enhance [post]
func (h *InsightHandler) BulkEnhance(c *gin.Context) {
	var req BulkEnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	results, err := h.insightService.BulkEnhance(c.Request.Context(), req.DomainNames)
	if err != nil {
		respondError(c, h.logger, err, "Failed to enhance domains")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
