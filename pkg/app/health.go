package app

import (
	"context"
	"net/http"
	"time"

	httputil "travelcore/pkg/http"
	"travelcore/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const readyTimeout = 2 * time.Second

// Pinger checks every backing store the service was started with.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	stores Pinger
	log    *logger.Logger
}

type HealthResponse struct {
	Status string `json:"status"`
	Stores string `json:"stores,omitempty"`
}

func NewHealthHandler(stores Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		stores: stores,
		log:    log,
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if h.stores != nil {
		if err := h.stores.Ping(ctx); err != nil {
			h.log.Error("Store health check failed",
				"error", err,
				"path", r.URL.Path,
			)
			if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Stores: "error",
			}); writeErr != nil {
				h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
			}
			return
		}
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
		Stores: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}
