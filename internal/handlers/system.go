package handlers

import (
	"net/http"
	"time"

	"github.com/openmohaa/medal-forecast/internal/logic"
)

// Health check endpoint
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint. The service is ready once a source has been loaded;
// classifier readiness is reported but does not gate it.
// @Summary Readiness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.forecast.Status()
	ready := status.State == string(logic.StateReady) || status.State == string(logic.StateRunning)

	body := map[string]interface{}{
		"ready":    ready,
		"forecast": status,
	}
	if h.classifier != nil {
		body["classifier"] = h.classifier.Status()
	}
	if h.queue != nil {
		body["queueDepth"] = h.queue.QueueDepth()
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, code, body)
}
