package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is read from requests and echoed on responses.
	CorrelationIDHeader = "X-Correlation-ID"

	correlationIDKey = "correlation_id"
	loggerKey        = "logger"
)

// CorrelationIDMiddleware reuses the caller's correlation ID or generates one,
// echoes it on the response and stores a request-scoped logger in the context.
func CorrelationIDMiddleware(baseLogger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(correlationIDKey, correlationID)
		c.Set(loggerKey, baseLogger.With(slog.String("correlation_id", correlationID)))
		c.Header(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or fallback when none is set.
func GetLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return fallback
}

// GetCorrelationID returns the correlation ID stored by CorrelationIDMiddleware.
func GetCorrelationID(c *gin.Context) string {
	if v, ok := c.Get(correlationIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// AccessLogMiddleware logs every request at debug level.
func AccessLogMiddleware(baseLogger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		GetLogger(c, baseLogger).Debug("request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// RecoveryMiddleware turns panics that escape a handler into a 500 response.
func RecoveryMiddleware(baseLogger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		GetLogger(c, baseLogger).Error("handler panicked",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "internal server error",
		})
	})
}
