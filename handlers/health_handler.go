package handlers

import (
	"context"
	"net/http"

	"github.com/KidRide/kidride-backend/services"
	"github.com/KidRide/kidride-backend/types"
	"github.com/gin-gonic/gin"
)

type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
}

var _ HealthChecker = (*services.HealthService)(nil)

type HealthHandler struct {
	healthService HealthChecker
}

func NewHealthHandler(healthService HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// LivenessCheck reports that the process is up for the kubernetes liveness check.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// ReadinessCheck fails only when a dependency the ledger needs is down.
// Degraded (in-memory store or no Redis) still takes traffic.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	health := h.healthService.CheckHealth(c.Request.Context())

	if !health.Ready() {
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

// DetailedHealth provides detailed health information
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	health := h.healthService.CheckHealth(c.Request.Context())
	c.JSON(http.StatusOK, health)
}
