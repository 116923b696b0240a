package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEnqueueFull(t *testing.T) {
	// Create a pool manually so no workers consume the queue
	cfg := PoolConfig{
		QueueSize: 1,
		Logger:    zap.NewNop(),
	}

	pool := &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.ctx = ctx
	pool.cancel = cancel
	defer cancel()

	// Fill the queue
	if !pool.Submit(func(ctx context.Context) {}) {
		t.Fatal("Failed to enqueue first job")
	}

	// Try to enqueue second job, it should return false immediately
	start := time.Now()
	enqueued := pool.Submit(func(ctx context.Context) {})
	duration := time.Since(start)

	if enqueued {
		t.Error("Enqueue should have returned false when queue is full")
	}

	if duration > 10*time.Millisecond {
		t.Errorf("Enqueue took too long (%v), expected immediate return", duration)
	}

	if pool.QueueDepth() != 1 {
		t.Errorf("Expected queue depth 1, got %d", pool.QueueDepth())
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	pool := NewPool(PoolConfig{QueueSize: 4})
	if pool.Submit(func(ctx context.Context) {}) {
		t.Error("Submit should fail before Start")
	}
}

func TestStopDrainsQueue(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 8, Logger: zap.NewNop()})
	pool.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if !pool.Submit(func(ctx context.Context) {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}) {
			t.Fatalf("job %d rejected", i)
		}
	}

	pool.Stop()

	if got := ran.Load(); got != 5 {
		t.Errorf("Expected 5 jobs to run before Stop returned, got %d", got)
	}
	if pool.Submit(func(ctx context.Context) {}) {
		t.Error("Submit should fail after Stop")
	}
}

func TestJobPanicIsolated(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 4, Logger: zap.NewNop()})
	pool.Start(context.Background())

	done := make(chan struct{})
	pool.Submit(func(ctx context.Context) { panic("model runtime crashed") })
	pool.Submit(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	pool.Stop()
}

func TestJobTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 1, JobTimeout: 20 * time.Millisecond, Logger: zap.NewNop()})
	pool.Start(context.Background())
	defer pool.Stop()

	result := make(chan error, 1)
	pool.Submit(func(ctx context.Context) {
		<-ctx.Done()
		result <- ctx.Err()
	})

	select {
	case err := <-result:
		if err != context.DeadlineExceeded {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job context was never canceled")
	}
}
