package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/openmohaa/medal-forecast/internal/models"
)

// LoadSource starts a new load cycle from uploaded source text
// @Summary Load Historical Source
// @Description Accepts delimited medal history as the raw body or as a multipart "file" field
// @Tags Forecast
// @Accept plain
// @Accept mpfd
// @Produce json
// @Success 200 {object} models.LoadSourceResponse
// @Failure 413 {object} map[string]string "Body too large"
// @Failure 422 {object} map[string]string "Unparsable source"
// @Router /forecast/source [post]
func (h *Handler) LoadSource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSourceBytes)
	defer r.Body.Close()

	text, err := h.readSource(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.forecast.LoadText(r.Context(), text)
	if err != nil {
		h.serviceError(w, "Source load failed", err)
		return
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// readSource returns the uploaded text from a raw or multipart body
func (h *Handler) readSource(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := io.ReadAll(r.Body)
		return string(body), err
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", err
		}
		return "", errors.New("multipart upload requires a \"file\" field")
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	return string(body), err
}

// ReloadSource re-fetches the configured source URI
// @Summary Reload Configured Source
// @Tags Forecast
// @Produce json
// @Success 200 {object} models.LoadSourceResponse
// @Failure 404 {object} map[string]string "No source configured"
// @Failure 502 {object} map[string]string "Source unreachable"
// @Router /forecast/reload [post]
func (h *Handler) ReloadSource(w http.ResponseWriter, r *http.Request) {
	if h.forecastSource == "" || h.openSource == nil {
		h.errorResponse(w, http.StatusNotFound, "No forecast source configured")
		return
	}

	fetcher, err := h.openSource(h.forecastSource)
	if err != nil {
		h.logger.Errorw("Failed to open forecast source", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Invalid forecast source configuration")
		return
	}

	resp, err := h.forecast.Load(r.Context(), fetcher)
	if err != nil {
		h.serviceError(w, "Source reload failed", err)
		return
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// RunForecast produces a forecast from the current features
// @Summary Run Forecast
// @Description mode=baseline runs synchronously; mode=model queues an inference job and returns 202 unless wait=true
// @Tags Forecast
// @Produce json
// @Param mode query string false "baseline or model" default(baseline)
// @Param wait query bool false "Block until a model run completes"
// @Success 200 {object} models.ForecastRun
// @Success 202 {object} models.RunForecastResponse
// @Failure 409 {object} map[string]string "No source loaded"
// @Failure 503 {object} map[string]string "Queue full"
// @Router /forecast/run [post]
func (h *Handler) RunForecast(w http.ResponseWriter, r *http.Request) {
	mode := models.ForecastMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = models.ForecastModeBaseline
	}
	if !mode.Valid() {
		h.errorResponse(w, http.StatusBadRequest, "mode must be baseline or model")
		return
	}

	ctx := r.Context()
	if mode == models.ForecastModeBaseline {
		run, err := h.forecast.RunBaseline(ctx)
		if err != nil {
			h.serviceError(w, "Baseline forecast failed", err)
			return
		}
		h.jsonResponse(w, http.StatusOK, run)
		return
	}

	gen, outcome, err := h.forecast.RunModel(ctx)
	if err != nil {
		h.serviceError(w, "Model forecast rejected", err)
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		h.jsonResponse(w, http.StatusAccepted, models.RunForecastResponse{
			Status:     "queued",
			Mode:       mode,
			Generation: gen,
		})
		return
	}

	select {
	case res, ok := <-outcome:
		if !ok {
			h.errorResponse(w, http.StatusInternalServerError, "Forecast job ended without a result")
			return
		}
		if !res.Applied {
			h.errorResponse(w, http.StatusConflict, "Forecast superseded by a newer request")
			return
		}
		h.jsonResponse(w, http.StatusOK, res.Run)
	case <-ctx.Done():
		h.errorResponse(w, http.StatusServiceUnavailable, "Timed out waiting for forecast")
	}
}

// GetForecast returns the current forecast
// @Summary Current Forecast
// @Tags Forecast
// @Produce json
// @Success 200 {object} models.ForecastRun
// @Failure 404 {object} map[string]string "No forecast yet"
// @Router /forecast [get]
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	run := h.forecast.Current()
	if run == nil {
		h.errorResponse(w, http.StatusNotFound, "No forecast available")
		return
	}
	h.jsonResponse(w, http.StatusOK, run)
}

// GetFeatures returns the feature vectors of the current load cycle
// @Summary Feature Vectors
// @Tags Forecast
// @Produce json
// @Success 200 {array} models.FeatureVector
// @Router /forecast/features [get]
func (h *Handler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.forecast.Features())
}
