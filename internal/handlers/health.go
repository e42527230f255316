// Package handlers provides HTTP request handlers for the API endpoints.
// Handlers coordinate between the HTTP layer and the services, handling
// request parsing, validation, and response formatting.
//
// This package includes handlers for:
//   - Health checks and readiness probes
//   - Google OAuth sign-in, profile, and logout
//   - Category management
//   - Calendar and event retrieval
//   - Analytics and important events
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// HealthHandler handles health check endpoints for monitoring and
// orchestration. Provides both a simple liveness check and a readiness
// check that verifies connectivity to PostgreSQL and Redis.
type HealthHandler struct {
	postgres *database.PostgresDB
	redis    *database.RedisDB
}

// NewHealthHandler creates a new health handler with database dependencies.
func NewHealthHandler(postgres *database.PostgresDB, redis *database.RedisDB) *HealthHandler {
	return &HealthHandler{
		postgres: postgres,
		redis:    redis,
	}
}

// HealthResponse represents the health check response structure.
//
// JSON example:
//
//	{
//	  "status": "ok",
//	  "timestamp": "2026-01-20T14:30:00Z",
//	  "services": {
//	    "postgres": "healthy",
//	    "redis": "healthy"
//	  }
//	}
type HealthResponse struct {
	Status    string            `json:"status"`             // Overall status: "ok" or "degraded"
	Timestamp time.Time         `json:"timestamp"`          // Current server time
	Services  map[string]string `json:"services,omitempty"` // Individual service health (readiness only)
}

// Health returns a simple liveness check indicating the service is
// running. It never checks dependencies; use Ready for that.
//
// @Summary      Health check (liveness probe)
// @Description  Returns 200 OK if the service is running. Does not check dependencies.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Service is alive"
// @Router       /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
	utils.RespondWithJSON(w, r, http.StatusOK, response)
}

// Ready verifies the service can reach PostgreSQL and Redis. Returns
// 503 with per-service detail when any dependency is down, so
// orchestrators stop routing traffic until recovery.
//
// @Summary      Readiness check
// @Description  Verifies connectivity to PostgreSQL and Redis.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "All dependencies healthy"
// @Failure      503  {object}  HealthResponse  "One or more dependencies down"
// @Router       /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	healthy := true

	if err := h.postgres.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("PostgreSQL readiness check failed")
		services["postgres"] = "unhealthy"
		healthy = false
	} else {
		services["postgres"] = "healthy"
	}

	if err := h.redis.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Redis readiness check failed")
		services["redis"] = "unhealthy"
		healthy = false
	} else {
		services["redis"] = "healthy"
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Services:  services,
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, r, status, response)
}
