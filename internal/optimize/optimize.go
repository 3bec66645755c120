// Package optimize implements the image optimization worker: VLM-oriented
// resizing plus relevance analysis that keeps logos, icons and decorative
// graphics out of the vision pipeline.
package optimize

import (
	"fmt"
	"image"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Category classifies an image for relevance filtering. Photos, charts and
// documents are worth vision-model tokens; logos, icons and decorative
// elements are not.
type Category string

const (
	CategoryPhoto      Category = "photo"
	CategoryChart      Category = "chart"
	CategoryDocument   Category = "document"
	CategoryLogo       Category = "logo"
	CategoryIcon       Category = "icon"
	CategoryDecorative Category = "decorative"
	CategoryUnknown    Category = "unknown"
)

const (
	// MinDimension is the side length below which an image is never sent
	// to the vision model.
	MinDimension = 50
	// MinRelevance is the overall score below which an image is skipped.
	MinRelevance = 0.35
	// MaxDimension bounds the longer side after resizing.
	MaxDimension = 2048

	logoColorThreshold = 48
	extremeAspectRatio = 3.5
	colorSamplePixels  = 10000
	maxCountedColors   = 65536
)

// Analysis is the wire record of a relevance analysis.
type Analysis struct {
	Success        bool     `json:"success"`
	Path           string   `json:"path"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	AspectRatio    float64  `json:"aspect_ratio"`
	UniqueColors   int      `json:"unique_colors"`
	ColorDiversity float64  `json:"color_diversity_score"`
	SizeScore      float64  `json:"size_score"`
	AspectScore    float64  `json:"aspect_score"`
	Relevance      float64  `json:"overall_relevance"`
	Category       Category `json:"predicted_category"`
	ShouldVLM      bool     `json:"should_vlm"`
	SkipReason     string   `json:"skip_reason,omitempty"`
}

// Optimizer answers resize and relevance queries over image files.
type Optimizer struct {
	logger *zap.Logger
}

// New creates an optimizer.
func New(logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{logger: logger}
}

// Analyze scores an image's relevance for vision-model processing. The
// score combines size, aspect ratio, color diversity and the predicted
// category; the record carries a skip reason whenever should_vlm is false.
func (o *Optimizer) Analyze(path string) (*Analysis, error) {
	if path == "" {
		return nil, fmt.Errorf("image path is required: %w", domain.ErrInvalidInput)
	}
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	aspectRatio := 999.0
	if min(width, height) > 0 {
		aspectRatio = float64(max(width, height)) / float64(min(width, height))
	}

	uniqueColors, diversity := colorDiversity(img)
	sizeScore := scoreSize(width, height)
	aspectScore := scoreAspect(width, height)
	category := predictCategory(width, height, uniqueColors, diversity)

	relevance := 0.30*sizeScore + 0.20*aspectScore + 0.30*diversity + 0.20*categoryBonus(category)

	a := &Analysis{
		Success:        true,
		Path:           path,
		Width:          width,
		Height:         height,
		AspectRatio:    round2(aspectRatio),
		UniqueColors:   uniqueColors,
		ColorDiversity: round3(diversity),
		SizeScore:      round3(sizeScore),
		AspectScore:    round3(aspectScore),
		Relevance:      round3(relevance),
		Category:       category,
		ShouldVLM:      true,
	}

	switch {
	case max(width, height) < MinDimension:
		a.ShouldVLM = false
		a.SkipReason = fmt.Sprintf("Too small: %dx%d < %dpx", width, height, MinDimension)
	case category == CategoryIcon || category == CategoryDecorative:
		a.ShouldVLM = false
		a.SkipReason = fmt.Sprintf("Predicted category: %s", category)
	case category == CategoryLogo && relevance < 0.4:
		a.ShouldVLM = false
		a.SkipReason = fmt.Sprintf("Likely logo with low relevance: %.2f", relevance)
	case relevance < MinRelevance:
		a.ShouldVLM = false
		a.SkipReason = fmt.Sprintf("Low relevance score: %.2f < %.2f", relevance, MinRelevance)
	}

	o.logger.Debug("Image analyzed",
		zap.String("path", path),
		zap.String("category", string(category)),
		zap.Float64("relevance", a.Relevance),
		zap.Bool("should_vlm", a.ShouldVLM))
	return a, nil
}

// colorDiversity counts distinct colors over a bounded pixel sample and
// normalizes the count to [0, 1] on a log scale (256+ colors saturate at 1).
func colorDiversity(img image.Image) (int, float64) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return 0, 0
	}

	// Sample a grid of at most colorSamplePixels pixels.
	sw, sh := width, height
	if total := width * height; total > colorSamplePixels {
		scale := math.Sqrt(float64(colorSamplePixels) / float64(total))
		sw = max(1, int(float64(width)*scale))
		sh = max(1, int(float64(height)*scale))
	}

	seen := make(map[uint32]struct{}, 1024)
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			r, g, bl, _ := img.At(b.Min.X+x*width/sw, b.Min.Y+y*height/sh).RGBA()
			key := (r>>8)<<16 | (g>>8)<<8 | bl>>8
			seen[key] = struct{}{}
			if len(seen) >= maxCountedColors {
				return maxCountedColors, 1.0
			}
		}
	}

	n := len(seen)
	switch {
	case n <= 1:
		return n, 0.0
	case n >= 256:
		return n, 1.0
	default:
		return n, math.Log2(float64(n)) / 8.0
	}
}

// scoreAspect penalizes extreme width/height ratios: banners and sidebars
// score low, common document and photo ratios score 1.
func scoreAspect(width, height int) float64 {
	if width == 0 || height == 0 {
		return 0
	}
	ratio := float64(max(width, height)) / float64(min(width, height))
	switch {
	case ratio <= 2.0:
		return 1.0
	case ratio <= extremeAspectRatio:
		return 1.0 - 0.5*(ratio-2.0)/(extremeAspectRatio-2.0)
	default:
		return math.Max(0.1, 0.5-0.1*(ratio-extremeAspectRatio))
	}
}

// scoreSize maps pixel count to relevance: tiny images are icons, large
// ones carry content.
func scoreSize(width, height int) float64 {
	pixels := width * height
	switch {
	case pixels < 50*50:
		return 0.0
	case pixels < 100*100:
		return 0.2
	case pixels < 200*200:
		return 0.4
	case pixels < 400*400:
		return 0.7
	default:
		return 1.0
	}
}

func predictCategory(width, height, uniqueColors int, diversity float64) Category {
	maxDim := max(width, height)
	minDim := min(width, height)
	pixels := width * height
	ratio := 999.0
	if minDim > 0 {
		ratio = float64(maxDim) / float64(minDim)
	}

	switch {
	case maxDim < 64:
		return CategoryIcon
	case uniqueColors < 8 && maxDim < 200:
		return CategoryIcon
	case uniqueColors < logoColorThreshold && maxDim < 400:
		return CategoryLogo
	case ratio > 6:
		return CategoryDecorative
	case diversity > 0.7 && pixels > 200*200:
		return CategoryPhoto
	case uniqueColors >= logoColorThreshold && uniqueColors < 256:
		if ratio < 2 {
			return CategoryChart
		}
		return CategoryDocument
	case uniqueColors >= 256:
		return CategoryPhoto
	default:
		return CategoryUnknown
	}
}

func categoryBonus(c Category) float64 {
	switch c {
	case CategoryPhoto, CategoryChart:
		return 1.0
	case CategoryDocument:
		return 0.9
	case CategoryLogo:
		return 0.2
	case CategoryIcon, CategoryDecorative:
		return 0.1
	default:
		return 0.5
	}
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
