// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	submissionqueue "github.com/okian/grimpeur/internal/adapters/mq/queue"
	workerpool "github.com/okian/grimpeur/internal/adapters/mq/worker"
	repository "github.com/okian/grimpeur/internal/adapters/repository"
	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/dedupe"
	"github.com/okian/grimpeur/internal/domain/model"
	"github.com/okian/grimpeur/internal/domain/query"
	"github.com/okian/grimpeur/pkg/logger"
	"github.com/okian/grimpeur/pkg/metrics"
)

// Service implements the API dependencies for the ride analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   submissionqueue.Queue
	builder *analysis.Builder
	pool    *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	cacheSize   int
	analysisCfg analysis.Config

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithCacheSize caps the number of retained ride analyses.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cacheSize = size
		}
	}
}

// WithAnalysisConfig sets the analysis pipeline configuration.
func WithAnalysisConfig(cfg analysis.Config) Option {
	return func(s *Service) {
		s.analysisCfg = cfg
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10000,
		dedupeSize:  50000,
		cacheSize:   1024,
		analysisCfg: analysis.DefaultConfig(),
		stopCh:      make(chan struct{}),
		logger:      nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. The analysis
// configuration is validated here; an invalid configuration keeps the
// service down rather than analyzing rides with a broken pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ride analysis service...")

	builder, err := analysis.NewBuilder(s.analysisCfg)
	if err != nil {
		return err
	}
	s.builder = builder

	// Initialize components
	s.store = repository.NewLRUStore(ctx,
		repository.WithCapacity(s.cacheSize),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = submissionqueue.NewInMemoryQueue(
		submissionqueue.WithCapacity(s.queueSize),
	)

	// Create and start worker pool
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.builder, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ride analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("cacheSize", s.cacheSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping ride analysis service...")

	// Stop worker pool
	if s.pool != nil {
		s.pool.Stop()
	}

	// Close queue
	if q, ok := s.queue.(*submissionqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	// Signal cleanup loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "ride analysis service stopped")
}

// SeenAndRecord atomically checks if a ride id was seen and records it if not.
// Returns true if the ride was already seen, false if it was newly recorded.
// This is the ONLY method for deduplication - thread-safe and atomic.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordRideDuplicate()
	}
	return seen
}

// Unrecord removes a ride ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits a ride for asynchronous analysis. It returns false when
// the queue is full or closed; the caller decides how to surface that.
func (s *Service) Enqueue(ctx context.Context, sub model.Submission) bool {
	s.logger.Debug(ctx, "enqueueing ride submission",
		logger.String("rideID", sub.RideID),
		logger.Int("samples", len(sub.Samples)),
	)

	ok := s.queue.Enqueue(ctx, sub)
	if ok {
		metrics.RecordRideSubmitted()
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	return ok
}

// Analysis returns the completed analysis for a ride id.
func (s *Service) Analysis(ctx context.Context, rideID string) (*analysis.Analysis, error) {
	return s.store.Get(ctx, rideID)
}

// Query evaluates a structured query against a completed analysis.
func (s *Service) Query(ctx context.Context, rideID string, req query.Request) (query.Response, error) {
	a, err := s.store.Get(ctx, rideID)
	if err != nil {
		return query.Response{}, err
	}

	start := time.Now()
	resp, err := query.Evaluate(a, req)
	metrics.RecordQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordQueryError()
		return query.Response{}, err
	}
	metrics.RecordQueryEvaluated()
	return resp, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"cacheSize":   s.cacheSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		storedRides := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["storedRides"] = storedRides

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
