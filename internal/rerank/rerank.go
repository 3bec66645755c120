// Package rerank reorders retrieved passages by semantic relevance to a
// query, scored with the shared embedding model.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
	"github.com/ocr-provenance/workers/internal/embed"
)

// maxPassageChars bounds scoring cost on long passages.
const maxPassageChars = 500

// Passage is a candidate to rescore.
type Passage struct {
	Index         int     `json:"index"`
	Text          string  `json:"text"`
	OriginalScore float64 `json:"original_score"`
}

// Request is the reranking input document.
type Request struct {
	Query    string    `json:"query"`
	Passages []Passage `json:"passages"`
	Device   string    `json:"device,omitempty"`
}

// Scored is one reranked passage, carrying the retrieval score alongside
// the new relevance score.
type Scored struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
	OriginalScore  float64 `json:"original_score"`
}

// Reranker scores query/passage pairs through the embedding pipeline.
type Reranker struct {
	pipeline *embed.Pipeline
	logger   *zap.Logger
}

// New creates a reranker over the shared embedding pipeline.
func New(pipeline *embed.Pipeline, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{pipeline: pipeline, logger: logger}
}

// Rerank embeds the query and every passage, scores each pair by cosine
// similarity, and returns the passages sorted by relevance descending.
// Ties keep the stronger original score first. Empty input returns an
// empty, non-nil slice.
func (r *Reranker) Rerank(ctx context.Context, req *Request) ([]Scored, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: missing required field 'query'", domain.ErrInvalidInput)
	}
	if len(req.Passages) == 0 {
		return []Scored{}, nil
	}

	spec := device.ParseSpec(req.Device)
	queryVec, err := r.pipeline.EmbedQuery(ctx, req.Query, spec)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	texts := make([]string, len(req.Passages))
	for i, p := range req.Passages {
		texts[i] = truncate(p.Text, maxPassageChars)
	}

	res := r.pipeline.Generate(ctx, texts, 0, req.Device)
	if !res.Success {
		msg := "embedding failed"
		if res.Error != nil {
			msg = *res.Error
		}
		return nil, fmt.Errorf("embed passages: %s", msg)
	}

	scored := make([]Scored, len(req.Passages))
	for i, p := range req.Passages {
		scored[i] = Scored{
			Index:          p.Index,
			RelevanceScore: domain.Cosine(queryVec, res.Embeddings[i]),
			OriginalScore:  p.OriginalScore,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RelevanceScore != scored[j].RelevanceScore {
			return scored[i].RelevanceScore > scored[j].RelevanceScore
		}
		return scored[i].OriginalScore > scored[j].OriginalScore
	})

	r.logger.Info("Reranked passages",
		zap.Int("passages", len(scored)),
		zap.String("device", res.Device))
	return scored, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
