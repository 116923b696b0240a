package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/openmohaa/medal-forecast/internal/logic"
	"github.com/openmohaa/medal-forecast/internal/models"
)

// Classify predicts the medal outcome of one athlete entry
// @Summary Classify Athlete Entry
// @Description Accepts JSON or form-encoded fields; numbers may be sent as strings
// @Tags Classification
// @Accept json
// @Produce json
// @Param body body models.ClassificationInput true "Athlete entry"
// @Success 200 {object} models.ClassificationResult
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 503 {object} map[string]string "Classifier not ready or failed"
// @Router /classify [post]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	if h.classifier == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, logic.ErrNotReady.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	defer r.Body.Close()

	input, err := decodeClassificationInput(r.Header.Get("Content-Type"), body)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateWith(h.validate, &input); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.classifier.Classify(r.Context(), input)
	if err != nil {
		if errors.Is(err, logic.ErrNotReady) {
			h.logger.Warnw("Classification requested before assets loaded")
		} else {
			h.logger.Errorw("Classification failed", "error", err)
		}
		h.errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, result)
}

// decodeClassificationInput accepts JSON or URL-encoded form bodies
func decodeClassificationInput(contentType string, body []byte) (models.ClassificationInput, error) {
	var input models.ClassificationInput
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return input, errors.New("invalid form body")
		}
		fields := make(map[string]string, len(values))
		for k := range values {
			fields[k] = values.Get(k)
		}
		body, _ = json.Marshal(fields)
	}

	if err := json.Unmarshal(body, &input); err != nil {
		return input, fmt.Errorf("invalid request body: %w", err)
	}
	return input, nil
}

// ReloadClassifier drops and reloads the classifier session and vocabulary
// @Summary Reload Classifier Assets
// @Tags Classification
// @Produce json
// @Success 200 {object} models.ClassifierStatus
// @Failure 503 {object} models.ClassifierStatus
// @Router /classify/reload [post]
func (h *Handler) ReloadClassifier(w http.ResponseWriter, r *http.Request) {
	if h.classifier == nil {
		h.errorResponse(w, http.StatusNotFound, "No classifier configured")
		return
	}

	if err := h.classifier.Reload(r.Context()); err != nil {
		h.logger.Warnw("Classifier reload incomplete", "error", err)
		h.jsonResponse(w, http.StatusServiceUnavailable, h.classifier.Status())
		return
	}
	h.jsonResponse(w, http.StatusOK, h.classifier.Status())
}
