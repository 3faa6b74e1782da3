package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"domex/api/internal/service"
	"domex/api/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	ContextRequestIDKey = "requestID"
	HeaderRequestID     = "X-Request-ID"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domex_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "domex_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RequestID reuses the caller's X-Request-ID or assigns a new UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one line per request, at warn for 4xx and error for 5xx.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(ContextRequestIDKey)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Metrics records request count and latency per matched route. Unmatched paths
// share one label so that scanners cannot blow up cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": message})
}

// statusForError maps service and upload errors to an HTTP status and a
// caller-facing message. fallback is used for anything unexpected.
func statusForError(err error, fallback string) (int, string) {
	var vErr *upload.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Reason
	case errors.Is(err, service.ErrValidationFailed):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrValidationFailed.Error()+": ")
	case errors.Is(err, service.ErrFileNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, service.ErrDuplicateFile):
		return http.StatusConflict, service.ErrDuplicateFile.Error()
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Metadata store unavailable"
	case errors.Is(err, service.ErrAIUnavailable):
		return http.StatusServiceUnavailable, "AI service not configured"
	}
	return http.StatusInternalServerError, fallback
}

// respondError aborts with the mapped status. Server-side failures are logged
// with the underlying error, which is never sent to the caller.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	code, msg := statusForError(err, fallback)
	_ = c.Error(err)
	if code >= http.StatusInternalServerError {
		logger.Error(fallback,
			zap.String("request_id", c.GetString(ContextRequestIDKey)),
			zap.Error(err))
	}
	abortWithError(c, code, msg)
}
