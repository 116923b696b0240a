// Package worker implements the buffered worker pool that runs model forecasts
// off the request path:
// - Backpressure handling via load shedding
// - Per-job timeouts and panic isolation
// - Graceful shutdown that drains queued jobs
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metrics
var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medal_forecast_jobs_enqueued_total",
		Help: "Total number of jobs accepted by the worker pool",
	})

	jobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medal_forecast_jobs_processed_total",
		Help: "Total number of jobs completed by workers",
	})

	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medal_forecast_jobs_failed_total",
		Help: "Total number of jobs that panicked",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medal_forecast_worker_queue_depth",
		Help: "Current depth of the worker queue",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medal_forecast_job_duration_seconds",
		Help:    "Duration of worker pool jobs",
		Buckets: prometheus.DefBuckets,
	})

	jobsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medal_forecast_jobs_load_shed_total",
		Help: "Total number of jobs rejected because the queue was full",
	})
)

// Job represents a unit of work for the worker pool
type Job struct {
	ID        string
	Run       func(ctx context.Context)
	Timestamp time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount int
	QueueSize   int
	JobTimeout  time.Duration
	Logger      *zap.Logger
}

// Pool manages a pool of workers for async forecast jobs
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	reporter sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	// Start queue depth reporter
	p.reporter.Add(1)
	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"jobTimeout", p.config.JobTimeout,
	)
}

// Stop gracefully shuts down the worker pool. Queued jobs still run; their
// context is canceled once the queue is drained.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")

	close(p.jobQueue)
	p.wg.Wait()
	p.cancel()
	p.reporter.Wait()
	p.logger.Info("Worker pool stopped")
}

// Submit queues fn without blocking. It returns false when the queue is full
// or the pool is stopped.
func (p *Pool) Submit(fn func(ctx context.Context)) bool {
	return p.Enqueue(Job{ID: uuid.NewString(), Run: fn, Timestamp: time.Now()})
}

// Enqueue adds a job to the queue. Returns false immediately if the queue is full.
func (p *Pool) Enqueue(job Job) (ok bool) {
	if p.ctx == nil {
		p.logger.Warn("Worker pool not started, dropping job")
		return false
	}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue job (pool stopped)", "job", job.ID, "error", r)
			ok = false
		}
	}()

	select {
	case <-p.ctx.Done():
		p.logger.Warn("Worker pool context canceled, dropping job")
		jobsLoadShed.Inc()
		return false
	default:
	}

	select {
	case p.jobQueue <- job:
		jobsEnqueued.Inc()
		return true
	default:
		p.logger.Warnw("Worker queue full, shedding job", "job", job.ID, "queueSize", p.config.QueueSize)
		jobsLoadShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker runs jobs until the queue is closed
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugw("Worker started", "worker", id)

	for job := range p.jobQueue {
		start := time.Now()
		if err := p.runJob(job); err != nil {
			p.logger.Errorw("Job failed",
				"worker", id,
				"job", job.ID,
				"error", err,
			)
			jobsFailed.Inc()
		} else {
			p.logger.Debugw("Job processed", "worker", id, "job", job.ID, "queued", start.Sub(job.Timestamp), "duration", time.Since(start))
			jobsProcessed.Inc()
		}
		jobDuration.Observe(time.Since(start).Seconds())
	}
}

// runJob executes one job, converting a panic into an error
func (p *Pool) runJob(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx := p.ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	job.Run(ctx)
	return nil
}

func (p *Pool) reportQueueDepth() {
	defer p.reporter.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
