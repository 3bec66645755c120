package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/db/redis"
	"github.com/ocr-provenance/workers/internal/domain"
	"github.com/ocr-provenance/workers/internal/embcache"
	"github.com/ocr-provenance/workers/internal/embed"
)

// cacheReadyTimeout bounds the wait for the vector cache store at startup.
const cacheReadyTimeout = 5 * time.Second

// newPipeline assembles the embedding pipeline from the runtime config.
// modelPath, when non-empty, overrides both the configured path and the
// EMBEDDING_MODEL_PATH discovery. The returned cleanup releases the model
// and the cache connection.
func (rt *runtime) newPipeline(modelPath string) (*embed.Pipeline, func(), error) {
	dir := modelPath
	if dir == "" {
		dir = rt.cfg.Model.Path
	}
	if dir == "" {
		dir = embed.ResolveModelPath()
	}

	var loader embed.Loader
	if rt.cfg.Model.Backend == "server" {
		loader = embed.OpenAILoader(embed.OpenAIBackendConfig{
			BaseURL: rt.cfg.Model.ServerURL,
			APIKey:  rt.cfg.Model.ServerAPIKey,
			Model:   domain.ModelName,
		})
	} else {
		loader = embed.HugotLoader()
	}

	cache := embed.NewModelCache(rt.resolver, loader, dir, rt.logger)
	pipeline := embed.NewPipeline(rt.resolver, cache, rt.logger)
	pipeline.WithVRAMSampler(func() (float64, bool) {
		info, ok := rt.prober.Reprobe()
		return info.UsedMemoryMiB, ok
	})

	cleanup := func() {
		if err := cache.Close(); err != nil {
			rt.logger.Warn("Failed to close model", zap.Error(err))
		}
	}

	if rt.cfg.Cache.Enabled {
		store, err := redis.NewStore(redis.Config{
			Addrs:    rt.cfg.Cache.Addrs,
			Username: rt.cfg.Cache.Username,
			Password: rt.cfg.Cache.Password,
			DB:       rt.cfg.Cache.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		// Fail before the first model load rather than on the first lookup.
		if err := store.WaitForReady(context.Background(), cacheReadyTimeout); err != nil {
			store.Close()
			cleanup()
			return nil, nil, err
		}
		ttl := time.Duration(rt.cfg.Cache.TTLHours) * time.Hour
		pipeline.WithVectorCache(embcache.New(store, ttl, rt.logger))
		modelCleanup := cleanup
		cleanup = func() {
			modelCleanup()
			store.Close()
		}
	}

	return pipeline, cleanup, nil
}
