package api

import (
	"net/http"

	"domex/api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DomainHandler struct {
	domainService service.DomainService
	logger        *zap.Logger
}

func NewDomainHandler(domainService service.DomainService, logger *zap.Logger) *DomainHandler {
	return &DomainHandler{domainService: domainService, logger: logger}
}

// ListDomains godoc
// @Summary List domains at auction
// @Tags Domains
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param skip query int false "Offset"
// @Success 200 {array} domain.DomainListing
// @Router /domains [get]
func (h *DomainHandler) ListDomains(c *gin.Context) {
	page := service.ParsePage(c.Query("limit"), c.Query("skip"))
	listings, err := h.domainService.ListDomains(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch domains")
		return
	}
	c.JSON(http.StatusOK, listings)
}

func Banner(c *gin.Context) {
	c.String(http.StatusOK, "Domex API is running. Try GET /domains")
}
