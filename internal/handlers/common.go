package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openmohaa/medal-forecast/internal/logic"
)

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// errorStatus maps service errors to HTTP status codes
func errorStatus(err error) int {
	var fetchErr *logic.FetchError
	switch {
	case logic.IsLoadFailure(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.Is(err, logic.ErrNoFeatures), errors.Is(err, logic.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, logic.ErrNotReady), errors.Is(err, logic.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceError logs err and writes the mapped status
func (h *Handler) serviceError(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw(msg, "error", err, "status", status)
	} else {
		h.logger.Warnw(msg, "error", err, "status", status)
	}
	h.errorResponse(w, status, err.Error())
}
