package embed

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
)

// Loader opens the model found in dir on the resolved device.
type Loader func(ctx context.Context, dir string, dev device.Resolved, logger *zap.Logger) (domain.Backend, error)

// Handle is a loaded model bound to the device it was loaded on.
type Handle struct {
	Backend domain.Backend
	Device  device.Resolved
}

// ModelCache owns the process-wide model handle. A handle is created lazily
// on first use, reused while the resolved device is unchanged, and replaced
// when a call resolves to a different device. Get is safe for concurrent
// callers: a reload is never observed mid-swap.
type ModelCache struct {
	mu       sync.Mutex
	resolver *device.Resolver
	loader   Loader
	dir      string
	logger   *zap.Logger

	handle *Handle
}

// NewModelCache creates an empty cache over the model directory dir.
func NewModelCache(resolver *device.Resolver, loader Loader, dir string, logger *zap.Logger) *ModelCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelCache{resolver: resolver, loader: loader, dir: dir, logger: logger}
}

// Get resolves the device request and returns the cached handle, loading or
// reloading the model as needed.
func (c *ModelCache) Get(ctx context.Context, spec device.Spec) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := c.resolver.Resolve(spec)
	if c.handle != nil && c.handle.Device == resolved {
		return c.handle, nil
	}

	if c.handle != nil {
		c.logger.Info("Device changed, discarding loaded model",
			zap.String("old", string(c.handle.Device)),
			zap.String("new", string(resolved)))
		if err := c.handle.Backend.Close(); err != nil {
			c.logger.Warn("Failed to close previous model", zap.Error(err))
		}
		c.handle = nil
	}

	if err := CheckArtifacts(c.dir); err != nil {
		return nil, err
	}

	c.logger.Info("Loading embedding model",
		zap.String("model", domain.ModelName),
		zap.String("path", c.dir),
		zap.String("device", string(resolved)))

	backend, err := c.loader(ctx, c.dir, resolved, c.logger)
	if err != nil {
		return nil, domain.NewModelLoadError(c.dir, err)
	}

	if dim := backend.Dimensions(); dim != domain.EmbeddingDim {
		_ = backend.Close()
		return nil, domain.NewModelLoadError(c.dir,
			fmt.Errorf("wrong embedding dimension: %d, expected %d", dim, domain.EmbeddingDim))
	}

	c.logger.Info("Model loaded",
		zap.String("model", domain.ModelName),
		zap.Int("dim", domain.EmbeddingDim),
		zap.String("device", string(resolved)))

	c.handle = &Handle{Backend: backend, Device: resolved}
	return c.handle, nil
}

// Loaded reports whether a model is currently held, without loading one.
func (c *ModelCache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Close releases the held model, if any.
func (c *ModelCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return nil
	}
	err := c.handle.Backend.Close()
	c.handle = nil
	if err != nil {
		return fmt.Errorf("close model backend: %w", err)
	}
	return nil
}
