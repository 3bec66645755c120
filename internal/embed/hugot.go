package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
)

// hugotBackend runs the ONNX model in-process through a hugot session.
// The Go session executes on CPU regardless of the resolved device; the
// device still drives cache identity and memory-release behavior upstream.
type hugotBackend struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	dims     int
}

// HugotLoader returns a Loader backed by an in-process hugot ONNX session.
func HugotLoader() Loader {
	return func(ctx context.Context, dir string, dev device.Resolved, logger *zap.Logger) (domain.Backend, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		session, err := hugot.NewGoSession()
		if err != nil {
			return nil, fmt.Errorf("create hugot session: %w", err)
		}

		cfg := hugot.FeatureExtractionConfig{
			ModelPath:    dir,
			Name:         domain.ModelName,
			OnnxFilename: "model.onnx",
		}
		pipe, err := hugot.NewPipeline(session, cfg)
		if err != nil {
			_ = session.Destroy()
			return nil, fmt.Errorf("create feature extraction pipeline: %w", err)
		}

		b := &hugotBackend{session: session, pipeline: pipe}

		// Probe the output width once so dimension validation happens at
		// load time, not on the first batch.
		out, err := pipe.RunPipeline([]string{domain.PrefixDocument + "dimension probe"})
		if err != nil {
			_ = session.Destroy()
			return nil, fmt.Errorf("model probe run: %w", err)
		}
		if len(out.Embeddings) == 0 {
			_ = session.Destroy()
			return nil, errEmptyModelOutput
		}
		b.dims = len(out.Embeddings[0])

		if dev.IsAccelerator() {
			logger.Warn("Go ONNX session runs on CPU; accelerator request affects scheduling only",
				zap.String("device", string(dev)))
		}
		return b, nil
	}
}

func (b *hugotBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out, err := b.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

func (b *hugotBackend) Dimensions() int { return b.dims }

func (b *hugotBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	err := b.session.Destroy()
	b.session = nil
	b.pipeline = nil
	if err != nil {
		return fmt.Errorf("destroy hugot session: %w", err)
	}
	return nil
}
