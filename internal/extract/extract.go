// Package extract pulls embedded images out of PDF and DOCX documents for
// downstream vision analysis.
package extract

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/domain"

	// Dimension probing must understand every format office documents
	// commonly embed.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options controls one extraction run.
type Options struct {
	Input     string
	Output    string
	MinSize   int // skip images whose smaller side is below this, 0 = keep all
	MaxImages int // stop after this many images, 0 = unlimited
}

// ImageInfo describes one extracted image.
type ImageInfo struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// Result is the extraction output document.
type Result struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Images  []ImageInfo `json:"images"`
}

// Extractor pulls images from documents into an output directory.
type Extractor struct {
	logger *zap.Logger
}

// New creates an extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Run extracts images from the input document, dispatching on extension.
func (e *Extractor) Run(opts Options) (*Result, error) {
	if opts.Input == "" || opts.Output == "" {
		return nil, fmt.Errorf("%w: input and output are required", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(opts.Input); err != nil {
		return nil, fmt.Errorf("%w: input file not found: %s", domain.ErrInvalidInput, opts.Input)
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var (
		images []ImageInfo
		err    error
	)
	switch strings.ToLower(filepath.Ext(opts.Input)) {
	case ".pdf":
		images, err = e.extractPDF(opts)
	case ".docx":
		images, err = e.extractDOCX(opts)
	default:
		return nil, fmt.Errorf("%w: unsupported document type: %s", domain.ErrInvalidInput, filepath.Ext(opts.Input))
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("Image extraction complete",
		zap.String("input", opts.Input),
		zap.Int("images", len(images)))

	return &Result{Success: true, Count: len(images), Images: images}, nil
}

// keep applies the size filter.
func keep(cfg image.Config, minSize int) bool {
	if minSize <= 0 {
		return true
	}
	smaller := cfg.Width
	if cfg.Height < smaller {
		smaller = cfg.Height
	}
	return smaller >= minSize
}
