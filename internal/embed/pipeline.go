package embed

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
	"github.com/ocr-provenance/workers/internal/metrics"
)

var errEmptyModelOutput = errors.New("model returned no embeddings")

// VectorCache is the optional content-addressed embedding cache consumed by
// the pipeline. Keys are the fully prefixed input texts, so document and
// query embeddings of the same raw string never collide.
type VectorCache interface {
	Lookup(ctx context.Context, text string) ([]float32, bool)
	Store(ctx context.Context, text string, vec []float32)
}

// VRAMSampler reads current device memory usage in MiB. The boolean is
// false when no CUDA device is present.
type VRAMSampler func() (float64, bool)

// Pipeline is the top-level embedding orchestration: device resolution,
// OOM-safe batch embedding, timing/VRAM metrics, result packaging.
//
// The pipeline never raises outward: every failure is captured into the
// result record. This is the fail-soft boundary between the fail-fast
// lower layers and the worker's JSON contract.
type Pipeline struct {
	resolver  *device.Resolver
	cache     *ModelCache
	documents *BatchEmbedder
	logger    *zap.Logger

	vectors    VectorCache
	sampleVRAM VRAMSampler
}

// NewPipeline assembles the embedding pipeline over a model cache.
func NewPipeline(resolver *device.Resolver, cache *ModelCache, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver:  resolver,
		cache:     cache,
		documents: NewBatchEmbedder(cache, domain.PrefixDocument, logger),
		logger:    logger,
	}
}

// WithVectorCache attaches a content-addressed embedding cache.
func (p *Pipeline) WithVectorCache(vc VectorCache) *Pipeline {
	p.vectors = vc
	return p
}

// WithVRAMSampler attaches a device-memory sampler for VRAM accounting.
func (p *Pipeline) WithVRAMSampler(s VRAMSampler) *Pipeline {
	p.sampleVRAM = s
	return p
}

// Generate embeds document chunks and packages the full result record.
func (p *Pipeline) Generate(ctx context.Context, chunks []string, batchSize int, requested string) EmbeddingResult {
	start := time.Now()
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	spec := device.ParseSpec(requested)
	resolved := p.resolver.Resolve(spec)

	// Capture the VRAM baseline before any allocation (CUDA only).
	var baselineMiB float64
	sampling := false
	if resolved.IsCUDA() && p.sampleVRAM != nil {
		baselineMiB, sampling = p.sampleVRAM()
	}

	vectors, finalBatch, err := p.run(ctx, chunks, batchSize, spec)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		p.logger.Error("Embedding generation failed", zap.Error(err))
		metrics.EmbeddingRequestsTotal.WithLabelValues("document", string(resolved), "error").Inc()
		return EmbeddingResult{
			Success:      false,
			Embeddings:   [][]float32{},
			ElapsedMs:    round2(elapsedMs),
			Device:       string(resolved),
			BatchSize:    batchSize,
			Model:        domain.ModelName,
			ModelVersion: domain.ModelVersion,
			Error:        errString(err),
		}
	}

	var msPerChunk float64
	if len(chunks) > 0 {
		msPerChunk = elapsedMs / float64(len(chunks))
	}

	var vramGB float64
	if sampling {
		if afterMiB, ok := p.sampleVRAM(); ok && afterMiB > baselineMiB {
			vramGB = (afterMiB - baselineMiB) / 1024.0
		}
		metrics.VRAMUsedGB.Set(vramGB)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("document", string(resolved), "success").Inc()
	metrics.EmbeddingDuration.WithLabelValues("document", string(resolved)).Observe(elapsedMs / 1000)
	metrics.EmbeddingChunksTotal.WithLabelValues(string(resolved)).Add(float64(len(chunks)))

	return EmbeddingResult{
		Success:      true,
		Embeddings:   vectors,
		Count:        len(chunks),
		ElapsedMs:    round2(elapsedMs),
		MsPerChunk:   round4(msPerChunk),
		Device:       string(resolved),
		BatchSize:    finalBatch,
		Model:        domain.ModelName,
		ModelVersion: domain.ModelVersion,
		VRAMUsedGB:   round3(vramGB),
	}
}

// run embeds chunks through the vector cache and the OOM-safe batch path.
func (p *Pipeline) run(ctx context.Context, chunks []string, batchSize int, spec device.Spec) ([][]float32, int, error) {
	if len(chunks) == 0 {
		return [][]float32{}, batchSize, nil
	}
	if p.vectors == nil {
		return p.documents.Run(ctx, chunks, batchSize, spec)
	}

	vectors := make([][]float32, len(chunks))
	var missing []string
	var missingIdx []int
	for i, chunk := range chunks {
		if vec, ok := p.vectors.Lookup(ctx, domain.PrefixDocument+chunk); ok {
			vectors[i] = vec
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			continue
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		missing = append(missing, chunk)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, batchSize, nil
	}

	fresh, finalBatch, err := p.documents.Run(ctx, missing, batchSize, spec)
	if err != nil {
		return nil, finalBatch, err
	}
	for j, vec := range fresh {
		vectors[missingIdx[j]] = vec
		p.vectors.Store(ctx, domain.PrefixDocument+missing[j], vec)
	}
	return vectors, finalBatch, nil
}

// EmbedQuery embeds a single search query with the query task prefix.
// Queries are always single-item, so no batch backoff applies.
func (p *Pipeline) EmbedQuery(ctx context.Context, query string, spec device.Spec) ([]float32, error) {
	prefixed := domain.PrefixQuery + query

	if p.vectors != nil {
		if vec, ok := p.vectors.Lookup(ctx, prefixed); ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return vec, nil
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
	}

	handle, err := p.cache.Get(ctx, spec)
	if err != nil {
		return nil, err
	}
	vectors, err := handle.Backend.EmbedBatch(ctx, []string{prefixed})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errEmptyModelOutput
	}
	vec := domain.Normalize(vectors[0])
	if p.vectors != nil {
		p.vectors.Store(ctx, prefixed, vec)
	}
	return vec, nil
}

// GenerateQuery embeds a query and packages the fail-soft result record.
func (p *Pipeline) GenerateQuery(ctx context.Context, query string, requested string) QueryEmbeddingResult {
	start := time.Now()
	spec := device.ParseSpec(requested)
	resolved := p.resolver.Resolve(spec)

	vec, err := p.EmbedQuery(ctx, query, spec)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		p.logger.Error("Query embedding failed", zap.Error(err))
		metrics.EmbeddingRequestsTotal.WithLabelValues("query", string(resolved), "error").Inc()
		return QueryEmbeddingResult{
			Success:   false,
			Embedding: []float32{},
			ElapsedMs: round2(elapsedMs),
			Device:    string(resolved),
			Model:     domain.ModelName,
			Error:     errString(err),
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("query", string(resolved), "success").Inc()
	metrics.EmbeddingDuration.WithLabelValues("query", string(resolved)).Observe(elapsedMs / 1000)

	return QueryEmbeddingResult{
		Success:   true,
		Embedding: vec,
		ElapsedMs: round2(elapsedMs),
		Device:    string(resolved),
		Model:     domain.ModelName,
	}
}
