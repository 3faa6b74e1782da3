package api

import (
	"net/http"

	"domex/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	db Pinger,
	fileService service.FileService,
	domainService service.DomainService,
	insightService service.InsightService,
) {
	fileHandler := NewFileHandler(fileService, logger)
	domainHandler := NewDomainHandler(domainService, logger)
	insightHandler := NewInsightHandler(insightService, logger)

	router.Use(RequestID(), RequestLogger(logger), Metrics())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/health", Health(db, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/", Banner)

	// --- Domain listing and AI insights ---
	router.GET("/domains", domainHandler.ListDomains)
	router.POST("/domains/bulk-enhance", insightHandler.BulkEnhance)
	router.GET("/domains/:name/valuation", insightHandler.Valuation)
	router.GET("/domains/:name/description", insightHandler.Description)
	router.GET("/market-analysis", insightHandler.MarketAnalysis)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/domains", domainHandler.ListDomains)

		// --- File registry ---
		files := apiGroup.Group("/files")
		{
			files.POST("", fileHandler.CreateFile)
			files.POST("/upload-url", fileHandler.RequestUploadURL)
			files.GET("/stats", fileHandler.GetStats)
			files.GET("/:id", fileHandler.GetFile)
			files.PUT("/:id", fileHandler.UpdateFile)
			files.DELETE("/:id", fileHandler.DeleteFile)
		}

		apiGroup.GET("/owners/:ownerKey/files", fileHandler.ListOwnerFiles)
		// Older clients list by domain id.
		apiGroup.GET("/domains/:ownerKey/files", fileHandler.ListOwnerFiles)
	}
}
