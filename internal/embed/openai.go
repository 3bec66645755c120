package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
)

// OpenAIBackendConfig holds the settings of an OpenAI-compatible embedding
// server (e.g. a local text-embeddings-inference or llama.cpp instance).
type OpenAIBackendConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// openaiBackend delegates embedding to an OpenAI-compatible HTTP server that
// hosts the model on the resolved device. Dimensions are fixed by the model
// contract; the server's output width is validated per batch.
type openaiBackend struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

// OpenAILoader returns a Loader that connects to an OpenAI-compatible
// embedding server instead of running the model in-process.
func OpenAILoader(cfg OpenAIBackendConfig) Loader {
	return func(ctx context.Context, dir string, dev device.Resolved, logger *zap.Logger) (domain.Backend, error) {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		clientCfg.BaseURL = cfg.BaseURL

		model := cfg.Model
		if model == "" {
			model = domain.ModelName
		}

		b := &openaiBackend{
			client: openai.NewClientWithConfig(clientCfg),
			model:  openai.EmbeddingModel(model),
			logger: logger,
		}
		if _, err := b.client.ListModels(ctx); err != nil {
			return nil, fmt.Errorf("embedding server unreachable at %s: %w", cfg.BaseURL, err)
		}
		return b, nil
	}
}

func (b *openaiBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          texts,
		Model:          b.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index out of range: %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (b *openaiBackend) Dimensions() int { return domain.EmbeddingDim }

func (b *openaiBackend) Close() error { return nil }

// parseAPIError extracts a human-readable error from the API response.
// Out-of-memory responses from the server surface with their message intact
// so the batch-size backoff can classify them.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusInsufficientStorage {
			return fmt.Errorf("embedding server: %w", domain.ErrOutOfMemory)
		}
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}

// extractDetail pulls the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
