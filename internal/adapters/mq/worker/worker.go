// Package worker defines the workers that drain the submission queue and
// run the analysis pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/grimpeur/internal/adapters/mq/queue"
	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/telemetry"
	"github.com/okian/grimpeur/pkg/logger"
	"github.com/okian/grimpeur/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Submission is what workers read off the queue.
type Submission = queue.Submission

// Analyzer runs the full pipeline for one ride.
type Analyzer interface {
	Build(ctx context.Context, rideID string, raw []telemetry.RawSample) (*analysis.Analysis, error)
}

// Sink receives completed analyses.
type Sink interface {
	Put(ctx context.Context, a *analysis.Analysis) error
}

// Source defines how workers receive submissions.
type Source interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker processes submissions until stopped.
type Worker struct {
	source   Source
	analyzer Analyzer
	sink     Sink
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(source Source, analyzer Analyzer, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		analyzer: analyzer,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	subs := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sub, ok := <-subs:
			if !ok {
				return
			}
			if err := w.process(ctx, sub); err != nil {
				w.logger.Error(ctx, "ride analysis failed",
					logger.String("rideID", sub.RideID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight submission.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process builds one analysis and stores it. A failed or cancelled build
// stores nothing: partial analyses never reach the cache.
func (w *Worker) process(ctx context.Context, sub Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	a, err := w.analyzer.Build(ctx, sub.RideID, sub.Samples)
	if err != nil {
		metrics.RecordRideFailed()
		metrics.RecordWorkerError()
		return fmt.Errorf("build ride %s: %w", sub.RideID, err)
	}

	if err := w.sink.Put(ctx, a); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("store ride %s: %w", sub.RideID, err)
	}

	metrics.RecordRideAnalyzed()
	w.logger.Debug(ctx, "ride analyzed",
		logger.String("rideID", sub.RideID),
		logger.Int("samples", a.Series().Len()),
		logger.Int("climbs", len(a.Climbs())),
	)
	return nil
}

// Pool runs a fixed set of workers against one queue.
type Pool struct {
	workers  []*Worker
	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, source Source, analyzer Analyzer, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*Worker, workerCount),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(source, analyzer, sink,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, waiting briefly for in-flight submissions.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}
