// Package health expone los endpoints de liveness y readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/eventgate/internal/cache"
	"github.com/dropDatabas3/eventgate/internal/http/helpers"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
)

const probeTimeout = 2 * time.Second

// Controller maneja los health checks.
type Controller struct {
	store docstore.Store
	cache cache.Client
}

// NewController crea el controller.
func NewController(store docstore.Store, c cache.Client) *Controller {
	return &Controller{store: store, cache: c}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live maneja GET /healthz: el proceso responde.
func (c *Controller) Live(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Ready maneja GET /readyz: el store responde. Un cache caído degrada
// (rate limiting fail-open, códigos sin cache) pero no saca al servicio
// de rotación.
func (c *Controller) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok", "cache": "ok"}
	status := http.StatusOK

	if err := c.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := c.cache.Ping(ctx); err != nil {
		logger.From(ctx).Warn("cache unavailable", logger.Err(err))
		checks["cache"] = "degraded"
	}

	resp := healthResponse{Status: "ok", Checks: checks}
	if status != http.StatusOK {
		resp.Status = "unavailable"
	}
	helpers.WriteJSON(w, status, resp)
}
