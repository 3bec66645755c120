package optimize

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ocr-provenance/workers/internal/domain"
)

func writePNG(t *testing.T, path string, w, h int, colorAt func(x, y int) color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, colorAt(x, y))
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func solid(c color.NRGBA) func(x, y int) color.NRGBA {
	return func(int, int) color.NRGBA { return c }
}

func gradient(w, h int) func(x, y int) color.NRGBA {
	return func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 255 / (w - 1)), G: uint8(y * 255 / (h - 1)), B: 128, A: 255}
	}
}

func TestAnalyze_TinyImageSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.png")
	writePNG(t, path, 10, 10, solid(color.NRGBA{R: 200, A: 255}))

	a, err := New(nil).Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.ShouldVLM {
		t.Error("10x10 image must not be sent to the vision model")
	}
	if a.SkipReason != "Too small: 10x10 < 50px" {
		t.Errorf("unexpected skip reason: %q", a.SkipReason)
	}
	if a.Category != CategoryIcon {
		t.Errorf("expected icon, got %s", a.Category)
	}
}

func TestAnalyze_GradientIsPhoto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, path, 512, 512, gradient(512, 512))

	a, err := New(nil).Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Category != CategoryPhoto {
		t.Errorf("expected photo, got %s", a.Category)
	}
	if !a.ShouldVLM {
		t.Errorf("diverse large image must pass: %+v", a)
	}
	if a.UniqueColors < 256 {
		t.Errorf("gradient should sample at least 256 colors, got %d", a.UniqueColors)
	}
	if a.ColorDiversity != 1.0 || a.SizeScore != 1.0 {
		t.Errorf("expected saturated diversity and size scores: %+v", a)
	}
}

func TestAnalyze_BannerIsDecorative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banner.png")
	writePNG(t, path, 700, 60, solid(color.NRGBA{B: 120, A: 255}))

	a, err := New(nil).Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Category != CategoryDecorative {
		t.Errorf("expected decorative, got %s", a.Category)
	}
	if a.ShouldVLM {
		t.Error("decorative banner must be skipped")
	}
	if a.SkipReason != "Predicted category: decorative" {
		t.Errorf("unexpected skip reason: %q", a.SkipReason)
	}
}

func TestAnalyze_LowColorMediumImageIsLogo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	writePNG(t, path, 300, 300, func(x, _ int) color.NRGBA {
		if x < 150 {
			return color.NRGBA{R: 255, A: 255}
		}
		return color.NRGBA{B: 255, A: 255}
	})

	a, err := New(nil).Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Category != CategoryLogo {
		t.Errorf("expected logo, got %s", a.Category)
	}
	if a.UniqueColors != 2 {
		t.Errorf("expected 2 sampled colors, got %d", a.UniqueColors)
	}
	// 0.3*0.7 + 0.2*1.0 + 0.3*0.125 + 0.2*0.2
	if a.Relevance < 0.48 || a.Relevance > 0.49 {
		t.Errorf("unexpected relevance: %v", a.Relevance)
	}
	if !a.ShouldVLM {
		t.Error("logo above the relevance floor is still eligible")
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	if _, err := New(nil).Analyze(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResize_DownscalesLargeImage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, 600, 300, gradient(600, 300))

	res, err := New(nil).Resize(in, out, 300)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if !res.Resized || res.OutputWidth != 300 || res.OutputHeight != 150 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.ScaleFactor != 0.5 {
		t.Errorf("expected scale 0.5, got %v", res.ScaleFactor)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 150 {
		t.Errorf("output is %dx%d, want 300x150", cfg.Width, cfg.Height)
	}
}

func TestResize_WithinBoundsCopied(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, 100, 80, solid(color.NRGBA{G: 90, A: 255}))

	res, err := New(nil).Resize(in, out, 2048)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if res.Resized || res.Skipped {
		t.Fatalf("expected plain copy: %+v", res)
	}
	if res.OutputWidth != 100 || res.OutputHeight != 80 {
		t.Errorf("dimensions must be preserved: %+v", res)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file must exist: %v", err)
	}
}

func TestResize_TinyImageSkipped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, 20, 20, solid(color.NRGBA{R: 10, A: 255}))

	res, err := New(nil).Resize(in, out, 2048)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if !res.Skipped {
		t.Fatalf("expected skip: %+v", res)
	}
	if res.SkipReason != "Image too small: 20x20" {
		t.Errorf("unexpected skip reason: %q", res.SkipReason)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("skipped resize must not write an output file")
	}
}

func TestResize_Validation(t *testing.T) {
	o := New(nil)
	if _, err := o.Resize("", "out.png", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty input: got %v", err)
	}
	if _, err := o.Resize("in.png", "", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty output: got %v", err)
	}
}
