package logic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openmohaa/medal-forecast/internal/inference"
	"github.com/openmohaa/medal-forecast/internal/models"
)

// StubSession implements inference.Session for testing
type StubSession struct {
	RunFunc func(ctx context.Context, inputs []inference.Tensor) ([]inference.Tensor, error)

	mu     sync.Mutex
	Inputs [][]inference.Tensor
}

func (s *StubSession) Run(ctx context.Context, inputs []inference.Tensor) ([]inference.Tensor, error) {
	s.mu.Lock()
	s.Inputs = append(s.Inputs, inputs)
	s.mu.Unlock()
	if s.RunFunc != nil {
		return s.RunFunc(ctx, inputs)
	}
	return nil, errors.New("no run func")
}

func (s *StubSession) Close() error { return nil }

// StubSource implements SessionSource for testing
type StubSource struct {
	Sess inference.Session
	Err  error
}

func (s *StubSource) Session(ctx context.Context) (inference.Session, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Sess, nil
}

func (s *StubSource) Name() string { return "stub" }

// GoExecutor runs every job on a fresh goroutine
type GoExecutor struct {
	wg sync.WaitGroup
}

func (e *GoExecutor) Submit(job func(ctx context.Context)) bool {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		job(context.Background())
	}()
	return true
}

func (e *GoExecutor) Wait() { e.wg.Wait() }

// DeadlineExecutor runs every job under a fixed timeout
type DeadlineExecutor struct {
	GoExecutor
	Timeout time.Duration
}

func (e *DeadlineExecutor) Submit(job func(ctx context.Context)) bool {
	return e.GoExecutor.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, e.Timeout)
		defer cancel()
		job(ctx)
	})
}

// RejectingExecutor refuses every job
type RejectingExecutor struct{}

func (RejectingExecutor) Submit(job func(ctx context.Context)) bool { return false }

// PredictorFunc adapts a function to Predictor
type PredictorFunc func(ctx context.Context, features map[string]models.FeatureVector) ([]models.Forecast, error)

func (f PredictorFunc) Predict(ctx context.Context, features map[string]models.FeatureVector) ([]models.Forecast, error) {
	return f(ctx, features)
}

// staticFetcher serves fixed bytes or an error
type staticFetcher struct {
	data []byte
	err  error
}

func (f staticFetcher) Fetch(ctx context.Context) ([]byte, error) {
	return f.data, f.err
}

// blockingFetcher holds Fetch until release is closed
type blockingFetcher struct {
	text    string
	started chan struct{}
	release chan struct{}
}

func newBlockingFetcher(text string) *blockingFetcher {
	return &blockingFetcher{text: text, started: make(chan struct{}), release: make(chan struct{})}
}

func (f *blockingFetcher) Fetch(ctx context.Context) ([]byte, error) {
	close(f.started)
	select {
	case <-f.release:
		return []byte(f.text), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
