package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/chunk"
	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pool manages a pool of ingest worker goroutines
type Pool struct {
	size     int
	eventBus ports.EventBus
	blobs    ports.BlobStore
	index    ports.SearchIndex
	chunker  *chunk.FixedSizeChunker
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	health   *HealthMonitor

	jobs    chan domain.Event
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new ingest worker pool
func NewPool(
	size int,
	eventBus ports.EventBus,
	blobs ports.BlobStore,
	index ports.SearchIndex,
	chunker *chunk.FixedSizeChunker,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:     size,
		eventBus: eventBus,
		blobs:    blobs,
		index:    index,
		chunker:  chunker,
		metrics:  metrics,
		logger:   logger,
		jobs:     make(chan domain.Event, size*2),
		workers:  make([]*worker, size),
		ctx:      ctx,
		cancel:   cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start subscribes to the ingest topic and starts the workers
func (p *Pool) Start() error {
	p.logger.Info("starting ingest worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("ingest-worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	// One subscription feeds the shared job channel so each upload is
	// processed exactly once
	eventHandler := func(ctx context.Context, event domain.Event) error {
		if event.Type != domain.EventTypeDocumentUploaded {
			return nil
		}
		select {
		case p.jobs <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	}

	if err := p.eventBus.Subscribe(p.ctx, domain.TopicIngest, eventHandler); err != nil {
		return fmt.Errorf("failed to subscribe to ingest events: %w", err)
	}

	p.health.Start()

	p.logger.Info("ingest worker pool started", zap.Int("workers", p.size))
	return nil
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down ingest worker pool")

	p.health.Stop()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ingest worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Info("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.status = WorkerStatusStopped
			w.mu.Unlock()
			w.pool.logger.Info("worker stopped", zap.String("worker_id", w.id))
			return
		case event := <-w.pool.jobs:
			w.handleUpload(ctx, event)
		}
	}
}

// handleUpload downloads, chunks and indexes one uploaded document
func (w *worker) handleUpload(ctx context.Context, event domain.Event) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
	}()

	name := event.Document
	w.pool.logger.Info("indexing document",
		zap.String("worker_id", w.id),
		zap.String("document", name))

	sections, err := w.indexDocument(ctx, name, event)
	if err != nil {
		w.pool.logger.Error("document indexing failed",
			zap.String("worker_id", w.id),
			zap.String("document", name),
			zap.Error(err))
		w.pool.metrics.RecordDocumentIndexed("failed", 0)
		w.publishResult(ctx, name, domain.EventTypeDocumentFailed, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.pool.metrics.RecordDocumentIndexed("indexed", sections)
	if counter, ok := w.pool.index.(interface{ Count() int }); ok {
		w.pool.metrics.SetIndexedSections(counter.Count())
	}

	w.pool.logger.Info("document indexed",
		zap.String("worker_id", w.id),
		zap.String("document", name),
		zap.Int("sections", sections))

	w.publishResult(ctx, name, domain.EventTypeDocumentIndexed, map[string]interface{}{
		"sections": sections,
	})
}

// indexDocument splits the blob content into sections and adds them to
// the index. It returns the number of sections written.
func (w *worker) indexDocument(ctx context.Context, name string, event domain.Event) (int, error) {
	blob, err := w.pool.blobs.Download(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}

	pieces := w.pool.chunker.Split(string(blob.Data))
	if len(pieces) == 0 {
		return 0, fmt.Errorf("document has no indexable content")
	}

	category, _ := event.Data["category"].(string)

	base := strings.TrimSuffix(name, filepath.Ext(name))
	sections := make([]domain.Section, 0, len(pieces))
	for i, piece := range pieces {
		id := fmt.Sprintf("%s-%d", base, i)
		sections = append(sections, domain.Section{
			ID:         id,
			Content:    piece,
			Category:   category,
			SourcePage: id,
			SourceFile: name,
		})
	}

	if err := w.pool.index.Add(ctx, sections); err != nil {
		return 0, fmt.Errorf("index add failed: %w", err)
	}

	return len(sections), nil
}

// publishResult reports the ingest outcome on the event bus
func (w *worker) publishResult(ctx context.Context, name string, eventType domain.EventType, data map[string]interface{}) {
	event := domain.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Document:  name,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	if err := w.pool.eventBus.Publish(ctx, domain.TopicIngest, event); err != nil {
		w.pool.logger.Error("failed to publish event",
			zap.String("worker_id", w.id),
			zap.String("document", name),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
