package optimize

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/ocr-provenance/workers/internal/domain"
)

// ResizeResult is the wire record of a resize invocation.
type ResizeResult struct {
	Success        bool    `json:"success"`
	Skipped        bool    `json:"skipped,omitempty"`
	SkipReason     string  `json:"skip_reason,omitempty"`
	Resized        bool    `json:"resized"`
	OriginalWidth  int     `json:"original_width"`
	OriginalHeight int     `json:"original_height"`
	OutputWidth    int     `json:"output_width,omitempty"`
	OutputHeight   int     `json:"output_height,omitempty"`
	ScaleFactor    float64 `json:"scale_factor,omitempty"`
	Output         string  `json:"output_path,omitempty"`
}

// Resize bounds the longer image side to maxDim for vision-model token
// budgets, preserving aspect ratio. Images already within bounds are copied
// to output unchanged; images below MinDimension are skipped entirely.
// maxDim <= 0 falls back to MaxDimension.
func (o *Optimizer) Resize(input, output string, maxDim int) (*ResizeResult, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required: %w", domain.ErrInvalidInput)
	}
	if output == "" {
		return nil, fmt.Errorf("output path is required: %w", domain.ErrInvalidInput)
	}
	if maxDim <= 0 {
		maxDim = MaxDimension
	}

	img, err := decodeFile(input)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if max(width, height) < MinDimension {
		return &ResizeResult{
			Success:        true,
			Skipped:        true,
			SkipReason:     fmt.Sprintf("Image too small: %dx%d", width, height),
			OriginalWidth:  width,
			OriginalHeight: height,
		}, nil
	}

	if max(width, height) <= maxDim {
		if input != output {
			if err := encodeFile(output, img); err != nil {
				return nil, err
			}
		}
		return &ResizeResult{
			Success:        true,
			Resized:        false,
			OriginalWidth:  width,
			OriginalHeight: height,
			OutputWidth:    width,
			OutputHeight:   height,
			Output:         output,
		}, nil
	}

	scale := float64(maxDim) / float64(max(width, height))
	outW := int(float64(width) * scale)
	outH := int(float64(height) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	if err := encodeFile(output, dst); err != nil {
		return nil, err
	}

	o.logger.Info("Image resized",
		zap.String("input", input),
		zap.Int("width", outW),
		zap.Int("height", outH),
		zap.Float64("scale", scale))

	return &ResizeResult{
		Success:        true,
		Resized:        true,
		OriginalWidth:  width,
		OriginalHeight: height,
		OutputWidth:    outW,
		OutputHeight:   outH,
		ScaleFactor:    round4(scale),
		Output:         output,
	}, nil
}

// encodeFile writes img in the format named by the output extension.
// JPEG keeps quality 95; everything else becomes PNG.
func encodeFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output image: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("encode output image %s: %w", path, err)
	}
	return nil
}
