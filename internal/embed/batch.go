package embed

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
	"github.com/ocr-provenance/workers/internal/metrics"
)

// Batch configuration.
const (
	DefaultBatchSize = 512
	// MinBatchSize must stay 1: single-item batches are required for VLM
	// description embedding, and the minimum is attempted before failing.
	MinBatchSize = 1
)

// BatchEmbedder drives the cached model over prefixed batches of text with
// adaptive batch-size recovery on out-of-memory conditions.
type BatchEmbedder struct {
	cache  *ModelCache
	prefix string
	logger *zap.Logger
	// releaseMemory drops device caches between attempts. No-op off
	// accelerator devices. Swappable for tests.
	releaseMemory func(dev device.Resolved)
}

// NewBatchEmbedder creates a batch embedder that prepends prefix to every
// input before it reaches the model.
func NewBatchEmbedder(cache *ModelCache, prefix string, logger *zap.Logger) *BatchEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchEmbedder{
		cache:         cache,
		prefix:        prefix,
		logger:        logger,
		releaseMemory: defaultReleaseMemory,
	}
}

func defaultReleaseMemory(dev device.Resolved) {
	if dev.IsAccelerator() {
		runtime.GC()
	}
}

// Run embeds the entire input sequence, halving the batch size on every
// OOM-shaped failure until an attempt succeeds or the size would drop below
// MinBatchSize. Returns the normalized vectors and the batch size that
// finally succeeded. Failures that are not OOM-shaped propagate untouched.
//
// The batch size only affects throughput and memory footprint: the full
// input set is embedded regardless of how many halvings occur.
func (b *BatchEmbedder) Run(ctx context.Context, texts []string, initialBatchSize int, spec device.Spec) ([][]float32, int, error) {
	if len(texts) == 0 {
		return [][]float32{}, initialBatchSize, nil
	}

	handle, err := b.cache.Get(ctx, spec)
	if err != nil {
		return nil, initialBatchSize, err
	}

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = b.prefix + t
	}

	batchSize := initialBatchSize
	if batchSize < MinBatchSize {
		batchSize = MinBatchSize
	}

	for batchSize >= MinBatchSize {
		b.releaseMemory(handle.Device)

		vectors, err := b.attempt(ctx, handle, prefixed, batchSize)
		if err == nil {
			return vectors, batchSize, nil
		}
		if !domain.ClassifyOOM(err) {
			return nil, batchSize, err
		}

		b.releaseMemory(handle.Device)
		batchSize /= 2
		if batchSize >= MinBatchSize {
			metrics.EmbeddingBackoffsTotal.Inc()
			b.logger.Warn("OOM: reducing batch size",
				zap.Int("batch_size", batchSize),
				zap.String("device", string(handle.Device)))
		}
	}

	return nil, MinBatchSize, &domain.OutOfMemoryError{
		Chunks:       len(texts),
		Device:       string(handle.Device),
		InitialBatch: initialBatchSize,
		MinBatch:     MinBatchSize,
	}
}

// attempt embeds the whole input at one batch size, normalizing every vector.
func (b *BatchEmbedder) attempt(ctx context.Context, handle *Handle, prefixed []string, batchSize int) ([][]float32, error) {
	out := make([][]float32, 0, len(prefixed))
	for offset := 0; offset < len(prefixed); offset += batchSize {
		end := offset + batchSize
		if end > len(prefixed) {
			end = len(prefixed)
		}
		vectors, err := handle.Backend.EmbedBatch(ctx, prefixed[offset:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vectors {
			out = append(out, domain.Normalize(v))
		}
	}
	return out, nil
}
