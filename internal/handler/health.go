package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const apiVersion = "1.0"

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  logrus.FieldLogger
}

func NewHealthHandler(db Pinger, timeout time.Duration, logger logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{db: db, timeout: timeout, logger: logger}
}

func (h *HealthHandler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.WithError(err).Error("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    StatusError,
				"message":   "Database unavailable",
				"timestamp": now,
				"version":   apiVersion,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    StatusSuccess,
		"message":   "API is healthy",
		"timestamp": now,
		"version":   apiVersion,
	})
}

// NotFound answers unmatched routes with the list of valid endpoints.
func NotFound(prefix string) gin.HandlerFunc {
	endpoints := []string{
		"POST " + prefix + "/auth/login",
		"POST " + prefix + "/auth/register",
		"POST " + prefix + "/auth/logout",
		"POST " + prefix + "/auth/refresh",
		"GET " + prefix + "/auth/me",
		"GET " + prefix + "/users",
		"POST " + prefix + "/users",
		"GET " + prefix + "/users/{id}",
		"PUT " + prefix + "/users/{id}",
		"DELETE " + prefix + "/users/{id}",
		"GET " + prefix + "/health",
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":              StatusError,
			"message":             "Route not found",
			"available_endpoints": endpoints,
		})
	}
}
