package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/approach"
	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	blobmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/blob/memory"
	eventsmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/events/memory"
	indexmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/index/memory"
	"github.com/gin-gonic/gin"
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

type fakeLLM struct {
	responses []string
}

func (f *fakeLLM) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return &domain.CompletionResponse{Content: content, Model: req.Model}, nil
}

type testEnv struct {
	server *Server
	index  *indexmemory.Index
	blobs  *blobmemory.Store
	bus    *eventsmemory.InMemoryEventBus
}

func newTestEnv(t *testing.T, llm *fakeLLM) *testEnv {
	t.Helper()

	index := indexmemory.NewIndex()
	blobs := blobmemory.NewStore()
	bus := eventsmemory.NewInMemoryEventBus()

	registry := approach.NewRegistry(index, llm, zap.NewNop(), approach.Options{
		Model:      "claude-3-5-sonnet-20241022",
		MaxTokens:  1024,
		DefaultTop: 3,
	})

	server := NewServer(&Config{
		Port:     0,
		Registry: registry,
		Index:    index,
		Blobs:    blobs,
		Bus:      bus,
		Metrics:  nopMetrics{},
		Logger:   zap.NewNop(),
	})

	return &testEnv{server: server, index: index, blobs: blobs, bus: bus}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func seedSections(t *testing.T, env *testEnv) {
	t.Helper()

	err := env.index.Add(context.Background(), []domain.Section{
		{ID: "plan-0", Content: "dental cleanings are covered twice a year", SourcePage: "plan-0", SourceFile: "plan.txt"},
		{ID: "plan-1", Content: "vision exams are covered once per year", SourcePage: "plan-1", SourceFile: "plan.txt"},
		{ID: "handbook-0", Content: "vacation days accrue monthly", SourcePage: "handbook-0", SourceFile: "handbook.txt"},
	})
	require.NoError(t, err)
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleAsk(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{responses: []string{"Cleanings are covered twice a year [plan-0]."}})
	seedSections(t, env)

	rec := env.postJSON(t, "/ask", gin.H{"question": "is dental covered", "approach": "rtr"})
	require.Equal(t, http.StatusOK, rec.Code)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Contains(t, answer.Answer, "plan-0")
	assert.NotEmpty(t, answer.DataPoints)
}

func TestHandleAskUnknownApproach(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	rec := env.postJSON(t, "/ask", gin.H{"question": "anything", "approach": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_APPROACH")
}

func TestHandleAskMissingQuestion(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	rec := env.postJSON(t, "/ask", gin.H{"approach": "rtr"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
}

func TestHandleChat(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{responses: []string{
		"dental coverage",
		"Cleanings are covered twice a year [plan-0].",
	}})
	seedSections(t, env)

	rec := env.postJSON(t, "/chat", gin.H{
		"history": []gin.H{{"user": "is dental covered"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Contains(t, answer.Answer, "plan-0")
}

func TestHandleContent(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	err := env.blobs.Upload(context.Background(), &domain.Blob{
		Name:        "plan-0.pdf",
		ContentType: "application/octet-stream",
		Data:        []byte("%PDF-1.4 fake"),
	})
	require.NoError(t, err)

	rec := env.get(t, "/content/plan-0.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())

	rec = env.get(t, "/content/missing.pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUploadDocumentPublishesEvent(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	var published []domain.Event
	err := env.bus.Subscribe(context.Background(), domain.TopicIngest, func(ctx context.Context, event domain.Event) error {
		published = append(published, event)
		return nil
	})
	require.NoError(t, err)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "plan.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("dental cleanings are covered twice a year"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	blob, err := env.blobs.Download(context.Background(), "plan.txt")
	require.NoError(t, err)
	assert.Equal(t, "dental cleanings are covered twice a year", string(blob.Data))

	require.Len(t, published, 1)
	assert.Equal(t, domain.EventTypeDocumentUploaded, published[0].Type)
	assert.Equal(t, "plan.txt", published[0].Document)
	assert.NotEmpty(t, published[0].ID)
}

func TestHandleGetDocumentsGroupsByBaseName(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	ctx := context.Background()

	earliest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earliest.Add(24 * time.Hour)

	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "plan-0.pdf", Data: []byte("a"), LastModified: later}))
	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "plan-1.pdf", Data: []byte("b"), LastModified: earliest}))
	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "handbook.pdf", Data: []byte("c"), LastModified: later}))

	rec := env.postJSON(t, "/get_documents", gin.H{})
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []domain.DocumentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)

	assert.Equal(t, "handbook.pdf", summaries[0].Name)
	assert.Equal(t, "plan", summaries[1].Name)
	assert.True(t, summaries[1].LastModified.Equal(earliest))
}

func TestHandleGetSearchEmptyQueryReturnsAll(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	seedSections(t, env)

	rec := env.postJSON(t, "/get_search", gin.H{"query": ""})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Sections []domain.Section `json:"sections"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Sections, 3)
}

func TestHandleDeleteAllDocuments(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	ctx := context.Background()
	seedSections(t, env)

	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "plan-0.pdf", Data: []byte("a")}))
	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "handbook-0.pdf", Data: []byte("b")}))

	rec := env.postJSON(t, "/delete_all_documents", gin.H{})
	require.Equal(t, http.StatusOK, rec.Code)

	infos, err := env.blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.Equal(t, 0, env.index.Count())
}

func TestHandleDeleteDocument(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	ctx := context.Background()
	seedSections(t, env)

	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "plan-0.pdf", Data: []byte("a")}))
	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "plan-1.pdf", Data: []byte("b")}))
	require.NoError(t, env.blobs.Upload(ctx, &domain.Blob{Name: "handbook-0.pdf", Data: []byte("c")}))

	rec := env.postJSON(t, "/delete_document", gin.H{"filename": "plan.txt"})
	require.Equal(t, http.StatusOK, rec.Code)

	// plan blobs and plan sections are gone, the handbook survives
	infos, err := env.blobs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "handbook-0.pdf", infos[0].Name)
	assert.Equal(t, 1, env.index.Count())
}

func TestHandleDeleteDocumentMissingFilename(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	rec := env.postJSON(t, "/delete_document", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfig(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	rec := env.get(t, "/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var flags struct {
		AskApproaches  []string `json:"askApproaches"`
		ChatApproaches []string `json:"chatApproaches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flags))
	assert.Equal(t, []string{"rda", "rrr", "rtr"}, flags.AskApproaches)
	assert.Equal(t, []string{"rrr"}, flags.ChatApproaches)
}

