package handlers

import (
	"context"
	"sync"

	"github.com/openmohaa/medal-forecast/internal/logic"
	"github.com/openmohaa/medal-forecast/internal/models"
)

// MockForecastService
type MockForecastService struct {
	LoadFunc        func(ctx context.Context, src logic.Fetcher) (*models.LoadSourceResponse, error)
	RunBaselineFunc func(ctx context.Context) (*models.ForecastRun, error)
	RunModelFunc    func(ctx context.Context) (uint64, <-chan logic.RunOutcome, error)
	CurrentRun      *models.ForecastRun
	FeatureList     []models.FeatureVector
	StatusValue     models.ForecastStatus
}

func (m *MockForecastService) Load(ctx context.Context, src logic.Fetcher) (*models.LoadSourceResponse, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, src)
	}
	return &models.LoadSourceResponse{}, nil
}

func (m *MockForecastService) LoadText(ctx context.Context, text string) (*models.LoadSourceResponse, error) {
	return m.Load(ctx, logic.TextFetcher(text))
}

func (m *MockForecastService) RunBaseline(ctx context.Context) (*models.ForecastRun, error) {
	if m.RunBaselineFunc != nil {
		return m.RunBaselineFunc(ctx)
	}
	return &models.ForecastRun{Mode: models.ForecastModeBaseline}, nil
}

func (m *MockForecastService) RunModel(ctx context.Context) (uint64, <-chan logic.RunOutcome, error) {
	if m.RunModelFunc != nil {
		return m.RunModelFunc(ctx)
	}
	ch := make(chan logic.RunOutcome, 1)
	ch <- logic.RunOutcome{Run: &models.ForecastRun{Mode: models.ForecastModeModel}, Applied: true}
	close(ch)
	return 1, ch, nil
}

func (m *MockForecastService) Current() *models.ForecastRun { return m.CurrentRun }
func (m *MockForecastService) Features() []models.FeatureVector { return m.FeatureList }
func (m *MockForecastService) Status() models.ForecastStatus { return m.StatusValue }

// MockClassifier
type MockClassifier struct {
	mu           sync.Mutex
	ClassifyFunc func(ctx context.Context, in models.ClassificationInput) (*models.ClassificationResult, error)
	ReloadErr    error
	Reloads      int
	LastInput    models.ClassificationInput
	StatusValue  models.ClassifierStatus
}

func (m *MockClassifier) LoadAssets(ctx context.Context) error { return m.ReloadErr }

func (m *MockClassifier) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.Reloads++
	m.mu.Unlock()
	return m.ReloadErr
}

func (m *MockClassifier) Classify(ctx context.Context, in models.ClassificationInput) (*models.ClassificationResult, error) {
	m.mu.Lock()
	m.LastInput = in
	m.mu.Unlock()
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, in)
	}
	return &models.ClassificationResult{Label: "Gold"}, nil
}

func (m *MockClassifier) Status() models.ClassifierStatus { return m.StatusValue }

// goExecutor runs each job on its own goroutine
type goExecutor struct {
	wg sync.WaitGroup
}

func (e *goExecutor) Submit(job func(ctx context.Context)) bool {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		job(context.Background())
	}()
	return true
}

// staticOpener returns a fixed fetcher for every URI
func staticOpener(text string, err error) SourceOpener {
	return func(uri string) (logic.Fetcher, error) {
		if err != nil {
			return nil, err
		}
		return logic.TextFetcher(text), nil
	}
}
