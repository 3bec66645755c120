package extract

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
)

// extractPDF writes every embedded PDF image to a staging directory, then
// probes, filters and moves the survivors into the output directory.
func (e *Extractor) extractPDF(opts Options) ([]ImageInfo, error) {
	staging, err := os.MkdirTemp("", "provworker_pdf_")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := api.ExtractImagesFile(opts.Input, staging, nil, nil); err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		return nil, fmt.Errorf("read staging directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	source := filepath.Base(opts.Input)
	images := make([]ImageInfo, 0, len(names))
	for _, name := range names {
		if opts.MaxImages > 0 && len(images) >= opts.MaxImages {
			break
		}
		staged := filepath.Join(staging, name)

		cfg, format, err := probeFile(staged)
		if err != nil {
			e.logger.Warn("Skipping undecodable image", zap.String("file", name), zap.Error(err))
			continue
		}
		if !keep(cfg, opts.MinSize) {
			e.logger.Debug("Skipping undersized image",
				zap.String("file", name),
				zap.Int("width", cfg.Width),
				zap.Int("height", cfg.Height))
			continue
		}

		dst := filepath.Join(opts.Output, name)
		if err := moveFile(staged, dst); err != nil {
			return nil, fmt.Errorf("move image %s: %w", name, err)
		}
		info, err := os.Stat(dst)
		if err != nil {
			return nil, fmt.Errorf("stat image %s: %w", name, err)
		}

		images = append(images, ImageInfo{
			Source: source,
			Index:  len(images),
			Format: format,
			Width:  cfg.Width,
			Height: cfg.Height,
			Path:   dst,
			Size:   info.Size(),
		})
	}
	return images, nil
}

func probeFile(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()
	return image.DecodeConfig(f)
}

// moveFile renames across the same filesystem and falls back to copy when
// staging and output live on different mounts.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
