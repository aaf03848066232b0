package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// PingFunc checks one dependency.
type PingFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	database PingFunc
	cache    PingFunc
}

// NewHealthHandler builds checks over the database and the cache. The
// database is required for readiness; a cache outage only degrades it.
func NewHealthHandler(database, cache PingFunc) *HealthHandler {
	return &HealthHandler{database: database, cache: cache}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Liveness godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness godoc
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /healthz/ready [get]
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus, 2)
	status, httpStatus := "ok", http.StatusOK

	if err := h.database(ctx); err != nil {
		deps["database"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		status, httpStatus = "unavailable", http.StatusServiceUnavailable
	} else {
		deps["database"] = dependencyStatus{Status: "ok"}
	}

	if err := h.cache(ctx); err != nil {
		deps["redis"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		if httpStatus == http.StatusOK {
			status = "degraded"
		}
	} else {
		deps["redis"] = dependencyStatus{Status: "ok"}
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
