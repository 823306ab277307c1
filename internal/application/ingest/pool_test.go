package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/chunk"
	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	blobmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/blob/memory"
	eventsmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/events/memory"
	indexmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/index/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopMetrics struct{}

func (nopMetrics) RecordQuestion(approach, status string, duration time.Duration) {}
func (nopMetrics) RecordChatTurn(approach, status string, duration time.Duration) {}
func (nopMetrics) RecordLLMCall(model string, inputTokens, outputTokens int, duration time.Duration) {
}
func (nopMetrics) RecordSearch(duration time.Duration, results int)  {}
func (nopMetrics) RecordDocumentIndexed(status string, sections int) {}
func (nopMetrics) SetIndexedSections(count int)                      {}
func (nopMetrics) RecordWorkerPoolStatus(idle, busy, stopped int)    {}

type testEnv struct {
	pool  *Pool
	bus   *eventsmemory.InMemoryEventBus
	blobs *blobmemory.Store
	index *indexmemory.Index
	done  chan domain.Event
}

func newTestEnv(t *testing.T, size int) *testEnv {
	t.Helper()

	bus := eventsmemory.NewInMemoryEventBus()
	blobs := blobmemory.NewStore()
	index := indexmemory.NewIndex()

	pool := NewPool(size, bus, blobs, index,
		chunk.NewFixedSizeChunker(1000, 100),
		nopMetrics{}, zap.NewNop(), time.Minute)

	// Collect ingest outcomes before the pool subscribes
	done := make(chan domain.Event, 10)
	err := bus.Subscribe(context.Background(), domain.TopicIngest, func(ctx context.Context, event domain.Event) error {
		if event.Type == domain.EventTypeDocumentIndexed || event.Type == domain.EventTypeDocumentFailed {
			done <- event
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pool.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	return &testEnv{pool: pool, bus: bus, blobs: blobs, index: index, done: done}
}

func (e *testEnv) awaitOutcome(t *testing.T) domain.Event {
	t.Helper()

	select {
	case event := <-e.done:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingest outcome")
		return domain.Event{}
	}
}

func uploadedEvent(document string, data map[string]interface{}) domain.Event {
	return domain.Event{
		ID:        uuid.NewString(),
		Type:      domain.EventTypeDocumentUploaded,
		Document:  document,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func TestPoolIndexesUploadedDocument(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{
		Name: "plan.txt",
		Data: []byte("dental cleanings are covered twice a year"),
	}))

	require.NoError(t, env.bus.Publish(ctx, domain.TopicIngest,
		uploadedEvent("plan.txt", map[string]interface{}{"category": "benefits"})))

	outcome := env.awaitOutcome(t)
	assert.Equal(t, domain.EventTypeDocumentIndexed, outcome.Type)
	assert.Equal(t, "plan.txt", outcome.Document)

	result, err := env.index.Search(ctx, "dental", ports.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "plan-0", result.Sections[0].ID)
	assert.Equal(t, "plan-0", result.Sections[0].SourcePage)
	assert.Equal(t, "plan.txt", result.Sections[0].SourceFile)
	assert.Equal(t, "benefits", result.Sections[0].Category)
}

func TestPoolSplitsLargeDocument(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	var content []byte
	for len(content) < 2500 {
		content = append(content, []byte("vacation days accrue monthly for all employees ")...)
	}
	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{
		Name: "handbook.txt",
		Data: content,
	}))

	require.NoError(t, env.bus.Publish(ctx, domain.TopicIngest,
		uploadedEvent("handbook.txt", nil)))

	outcome := env.awaitOutcome(t)
	assert.Equal(t, domain.EventTypeDocumentIndexed, outcome.Type)
	assert.GreaterOrEqual(t, env.index.Count(), 2)
}

func TestPoolReportsFailureForMissingBlob(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	require.NoError(t, env.bus.Publish(ctx, domain.TopicIngest,
		uploadedEvent("missing.txt", nil)))

	outcome := env.awaitOutcome(t)
	assert.Equal(t, domain.EventTypeDocumentFailed, outcome.Type)
	assert.Equal(t, "missing.txt", outcome.Document)
	assert.Contains(t, outcome.Data["error"], "download failed")
	assert.Equal(t, 0, env.index.Count())
}

func TestHealthMonitorStatus(t *testing.T) {
	env := newTestEnv(t, 3)

	status := env.pool.health.GetStatus()
	assert.Equal(t, 3, status.TotalWorkers)
	assert.Equal(t, 3, status.IdleWorkers)
	assert.True(t, status.Healthy)
	assert.True(t, env.pool.health.IsHealthy())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, env.pool.Shutdown(ctx))

	status = env.pool.health.GetStatus()
	assert.Equal(t, 3, status.StoppedWorkers)
	assert.False(t, status.Healthy)
}
