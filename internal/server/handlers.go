package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wesleyorama2/throwbench/internal/cases"
)

// WithException handles GET /test/with.
// An intercepted validation failure is a client error: 400 with the message.
func (s *Server) WithException(c *gin.Context) {
	msg, err := cases.Abortive(s.validator, s.config.Email)
	if err != nil {
		GetLogger(c, s.logger).Error("abortive case failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "internal server error",
		})
		return
	}

	if msg == cases.PassedMarker {
		c.Status(http.StatusOK)
		return
	}
	c.String(http.StatusBadRequest, msg)
}

// WithoutException handles GET /test/without.
func (s *Server) WithoutException(c *gin.Context) {
	c.JSON(http.StatusOK, cases.NonAbortive(s.validator, s.config.Email))
}

// Health handles GET /healthz.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
