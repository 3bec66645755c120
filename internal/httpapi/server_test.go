package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ocr-provenance/workers/internal/embed"
)

type stubPipeline struct {
	embedResult embed.EmbeddingResult
	queryResult embed.QueryEmbeddingResult
	lastChunks  []string
	lastQuery   string
}

func (s *stubPipeline) Generate(_ context.Context, chunks []string, _ int, _ string) embed.EmbeddingResult {
	s.lastChunks = chunks
	return s.embedResult
}

func (s *stubPipeline) GenerateQuery(_ context.Context, query string, _ string) embed.QueryEmbeddingResult {
	s.lastQuery = query
	return s.queryResult
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHandleEmbed(t *testing.T) {
	stub := &stubPipeline{
		embedResult: embed.EmbeddingResult{
			Success:    true,
			Embeddings: [][]float32{{0.1}},
			Count:      1,
			Device:     "cpu",
		},
	}
	router := NewServer(stub, zap.NewNop()).Router()

	rr := postJSON(t, router, "/v1/embed", EmbedRequest{Chunks: []string{"hello"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(stub.lastChunks) != 1 || stub.lastChunks[0] != "hello" {
		t.Fatalf("chunks not passed through: %v", stub.lastChunks)
	}

	var res embed.EmbeddingResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Success || res.Count != 1 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestHandleEmbedFailure(t *testing.T) {
	msg := "model load failed: /models"
	stub := &stubPipeline{
		embedResult: embed.EmbeddingResult{Success: false, Error: &msg},
	}
	router := NewServer(stub, zap.NewNop()).Router()

	rr := postJSON(t, router, "/v1/embed", EmbedRequest{Chunks: []string{"x"}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("failed pipeline run must map to 500, got %d", rr.Code)
	}
}

func TestHandleEmbedBadBody(t *testing.T) {
	router := NewServer(&stubPipeline{}, zap.NewNop()).Router()

	req := httptest.NewRequest(http.MethodPost, "/v1/embed", bytes.NewReader([]byte("{broken")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	stub := &stubPipeline{
		queryResult: embed.QueryEmbeddingResult{
			Success:   true,
			Embedding: []float32{0.5},
			Device:    "cpu",
		},
	}
	router := NewServer(stub, zap.NewNop()).Router()

	rr := postJSON(t, router, "/v1/query", QueryRequest{Query: "what is this"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if stub.lastQuery != "what is this" {
		t.Fatalf("query not passed through: %q", stub.lastQuery)
	}
}

func TestHandleQueryMissingQuery(t *testing.T) {
	router := NewServer(&stubPipeline{}, zap.NewNop()).Router()

	rr := postJSON(t, router, "/v1/query", QueryRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := NewServer(&stubPipeline{}, zap.NewNop()).Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestFailedEmbedLogsWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	msg := "model exploded"
	stub := &stubPipeline{
		embedResult: embed.EmbeddingResult{Success: false, Error: &msg},
	}
	router := NewServer(stub, zap.New(core)).Router()

	rr := postJSON(t, router, "/v1/embed", EmbedRequest{Chunks: []string{"a"}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	entries := logs.FilterMessage("Embedding request failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if _, ok := fields["request_id"]; !ok {
		t.Error("failure log must carry the request id")
	}
	if fields["error"] != msg {
		t.Errorf("failure log must carry the pipeline error, got %v", fields["error"])
	}
}
