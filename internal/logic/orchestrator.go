package logic

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openmohaa/medal-forecast/internal/models"
)

// State is the orchestrator lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateRunning State = "running"
)

// Fetcher retrieves raw source text
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// TextFetcher serves in-memory source text
type TextFetcher string

func (t TextFetcher) Fetch(ctx context.Context) ([]byte, error) {
	return []byte(t), nil
}

// Executor runs jobs asynchronously. Submit must not block and must not run
// the job on the calling goroutine. The context passed to a job carries the
// executor's per-job deadline.
type Executor interface {
	Submit(job func(ctx context.Context)) bool
}

// Predictor scores feature vectors with an external model
type Predictor interface {
	Predict(ctx context.Context, features map[string]models.FeatureVector) ([]models.Forecast, error)
}

// RunOutcome is delivered once an async model run completes. Applied is false
// when a newer request superseded the run before it finished.
type RunOutcome struct {
	Run     *models.ForecastRun
	Applied bool
}

// ForecastService coordinates loading, feature extraction and forecasting
type ForecastService interface {
	Load(ctx context.Context, src Fetcher) (*models.LoadSourceResponse, error)
	LoadText(ctx context.Context, text string) (*models.LoadSourceResponse, error)
	RunBaseline(ctx context.Context) (*models.ForecastRun, error)
	RunModel(ctx context.Context) (uint64, <-chan RunOutcome, error)
	Current() *models.ForecastRun
	Features() []models.FeatureVector
	Status() models.ForecastStatus
}

// OrchestratorConfig holds the orchestrator's collaborators
type OrchestratorConfig struct {
	Window   int
	Model    Predictor
	Executor Executor
	// OnDegraded is called with the model error whenever a run falls back
	OnDegraded func(err error)
	Logger     *zap.Logger
}

type orchestrator struct {
	cfg    OrchestratorConfig
	logger *zap.SugaredLogger

	mu sync.Mutex
	// generation increases on every load and every forecast request; only
	// the result holding the latest generation is published.
	generation uint64
	loading    bool
	loadDone   chan struct{}
	loadErr    error
	histories  map[string]models.EntityHistory
	features   map[string]models.FeatureVector
	inflight   int
	current    *models.ForecastRun
}

// NewForecastService creates a forecast orchestrator in the Idle state
func NewForecastService(cfg OrchestratorConfig) ForecastService {
	if cfg.Window < 1 {
		cfg.Window = DefaultWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &orchestrator{cfg: cfg, logger: cfg.Logger.Sugar()}
}

// Load fetches, parses and aggregates a source, replacing the previous cycle.
// The current forecast is cleared when the load starts. If loads overlap only
// the most recent one is published.
func (o *orchestrator) Load(ctx context.Context, src Fetcher) (*models.LoadSourceResponse, error) {
	gen, done := o.beginLoad()
	defer close(done)

	histories, features, err := o.buildFeatures(ctx, src)

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation || !o.loading {
		sourceLoads.WithLabelValues("superseded").Inc()
		if err != nil {
			return nil, err
		}
		return nil, ErrSuperseded
	}
	o.loading = false

	if err != nil {
		o.loadErr = err
		sourceLoads.WithLabelValues("failed").Inc()
		o.logger.Warnw("Source load failed", "generation", gen, "error", err)
		return nil, err
	}

	o.histories = histories
	o.features = features
	sourceLoads.WithLabelValues("ok").Inc()
	loadedEntities.Set(float64(len(features)))

	resp := &models.LoadSourceResponse{
		Entities:   len(features),
		Records:    CountRecords(histories),
		Window:     o.cfg.Window,
		Generation: gen,
	}
	o.logger.Infow("Source loaded", "generation", gen, "entities", resp.Entities, "records", resp.Records)
	return resp, nil
}

// LoadText loads source text supplied directly by the caller
func (o *orchestrator) LoadText(ctx context.Context, text string) (*models.LoadSourceResponse, error) {
	return o.Load(ctx, TextFetcher(text))
}

func (o *orchestrator) beginLoad() (uint64, chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.generation++
	o.loading = true
	o.loadDone = make(chan struct{})
	o.loadErr = nil
	o.histories = nil
	o.features = nil
	o.current = nil
	return o.generation, o.loadDone
}

func (o *orchestrator) buildFeatures(ctx context.Context, src Fetcher) (map[string]models.EntityHistory, map[string]models.FeatureVector, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, &FetchError{Err: err}
	}

	table, err := ParseTable(string(data))
	if err != nil {
		return nil, nil, err
	}

	histories, err := Aggregate(table)
	if err != nil {
		return nil, nil, err
	}

	return histories, ExtractFeatures(histories, o.cfg.Window), nil
}

// reserve waits for any in-progress load, then claims a new generation for a
// forecast request. The returned features belong to that generation.
func (o *orchestrator) reserve(ctx context.Context) (uint64, map[string]models.FeatureVector, error) {
	o.mu.Lock()
	for o.loading {
		done := o.loadDone
		o.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
		o.mu.Lock()
	}
	defer o.mu.Unlock()

	if o.features == nil {
		if o.loadErr != nil {
			return 0, nil, fmt.Errorf("%w: last load failed: %v", ErrNoFeatures, o.loadErr)
		}
		return 0, nil, ErrNoFeatures
	}

	o.generation++
	o.inflight++
	return o.generation, o.features, nil
}

// publish stores run as the current forecast if no newer request exists
func (o *orchestrator) publish(run *models.ForecastRun) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight--
	if run.Generation != o.generation {
		return false
	}
	o.current = run
	return true
}

// RunBaseline computes the heuristic forecast synchronously
func (o *orchestrator) RunBaseline(ctx context.Context) (*models.ForecastRun, error) {
	gen, features, err := o.reserve(ctx)
	if err != nil {
		return nil, err
	}

	run := o.newRun(models.ForecastModeBaseline, gen, BaselinePredict(features))
	if o.publish(run) {
		forecastRuns.WithLabelValues(string(run.Mode), "ok").Inc()
	} else {
		forecastRuns.WithLabelValues(string(run.Mode), "superseded").Inc()
	}
	return run, nil
}

// RunModel queues a model forecast and returns its generation plus a channel
// that receives the outcome. Model failures fall back to the baseline and mark
// the run degraded.
func (o *orchestrator) RunModel(ctx context.Context) (uint64, <-chan RunOutcome, error) {
	gen, features, err := o.reserve(ctx)
	if err != nil {
		return 0, nil, err
	}

	out := make(chan RunOutcome, 1)
	job := func(jobCtx context.Context) {
		defer close(out)

		run := o.modelRun(jobCtx, gen, features)
		applied := o.publish(run)

		outcome := "ok"
		switch {
		case !applied:
			outcome = "superseded"
		case run.Degraded:
			outcome = "degraded"
		}
		forecastRuns.WithLabelValues(string(run.Mode), outcome).Inc()
		out <- RunOutcome{Run: run, Applied: applied}
	}

	if o.cfg.Executor == nil || !o.cfg.Executor.Submit(job) {
		o.release(gen)
		return 0, nil, ErrBusy
	}
	return gen, out, nil
}

// release undoes a reservation whose job never ran
func (o *orchestrator) release(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight--
	if o.generation == gen {
		o.generation--
	}
}

func (o *orchestrator) modelRun(ctx context.Context, gen uint64, features map[string]models.FeatureVector) *models.ForecastRun {
	var err error
	if o.cfg.Model == nil {
		err = &ModelLoadError{Err: fmt.Errorf("no forecast model configured")}
	} else {
		var forecasts []models.Forecast
		forecasts, err = o.cfg.Model.Predict(ctx, features)
		if err == nil {
			return o.newRun(models.ForecastModeModel, gen, forecasts)
		}
	}

	o.logger.Warnw("Model forecast failed, using baseline", "generation", gen, "error", err)
	if o.cfg.OnDegraded != nil {
		o.cfg.OnDegraded(err)
	}

	run := o.newRun(models.ForecastModeModel, gen, BaselinePredict(features))
	run.Degraded = true
	run.DegradedReason = err.Error()
	return run
}

func (o *orchestrator) newRun(mode models.ForecastMode, gen uint64, forecasts []models.Forecast) *models.ForecastRun {
	return &models.ForecastRun{
		ID:         uuid.NewString(),
		Mode:       mode,
		Generation: gen,
		Window:     o.cfg.Window,
		CreatedAt:  time.Now().UTC(),
		Forecasts:  forecasts,
	}
}

// Current returns the published forecast, nil if none
func (o *orchestrator) Current() *models.ForecastRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Features returns the current feature vectors sorted by entity
func (o *orchestrator) Features() []models.FeatureVector {
	o.mu.Lock()
	features := o.features
	o.mu.Unlock()

	list := make([]models.FeatureVector, 0, len(features))
	for _, fv := range features {
		list = append(list, fv)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Entity < list[j].Entity })
	return list
}

func (o *orchestrator) Status() models.ForecastStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := models.ForecastStatus{
		State:       string(o.stateLocked()),
		Generation:  o.generation,
		Entities:    len(o.features),
		HasForecast: o.current != nil,
	}
	if o.current != nil {
		status.Degraded = o.current.Degraded
	}
	if o.loadErr != nil {
		status.LoadError = o.loadErr.Error()
	}
	return status
}

func (o *orchestrator) stateLocked() State {
	switch {
	case o.loading || o.loadErr != nil:
		return StateLoading
	case o.features == nil:
		return StateIdle
	case o.inflight > 0:
		return StateRunning
	default:
		return StateReady
	}
}
