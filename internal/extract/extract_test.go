package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/domain"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// docxFixture writes a minimal DOCX-shaped archive with the given media
// entries.
func docxFixture(t *testing.T, media map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	zw := zip.NewWriter(f)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte("<w:document/>")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	for name, data := range media {
		w, err := zw.Create("word/media/" + name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	return path
}

func TestExtractDOCX(t *testing.T) {
	input := docxFixture(t, map[string][]byte{
		"image1.png": pngBytes(t, 200, 100),
		"image2.png": pngBytes(t, 20, 20),
		"vector.emf": []byte("not an image"),
	})
	out := t.TempDir()

	res, err := New(zap.NewNop()).Run(Options{Input: input, Output: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || res.Count != 2 {
		t.Fatalf("expected 2 images, got %+v", res)
	}
	for i, img := range res.Images {
		if img.Index != i {
			t.Fatalf("indices must be sequential, got %+v", res.Images)
		}
		if img.Format != "png" {
			t.Fatalf("expected png, got %q", img.Format)
		}
		if img.Source != "doc.docx" {
			t.Fatalf("unexpected source: %q", img.Source)
		}
		info, err := os.Stat(img.Path)
		if err != nil {
			t.Fatalf("extracted file missing: %v", err)
		}
		if info.Size() != img.Size {
			t.Fatalf("size mismatch: reported %d, on disk %d", img.Size, info.Size())
		}
	}
	if res.Images[0].Width != 200 || res.Images[0].Height != 100 {
		t.Fatalf("wrong dimensions: %+v", res.Images[0])
	}
}

func TestExtractDOCXMinSize(t *testing.T) {
	input := docxFixture(t, map[string][]byte{
		"big.png":   pngBytes(t, 200, 100),
		"small.png": pngBytes(t, 20, 20),
	})

	res, err := New(zap.NewNop()).Run(Options{Input: input, Output: t.TempDir(), MinSize: 50})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected the small image filtered, got %+v", res)
	}
	if res.Images[0].Width != 200 {
		t.Fatalf("wrong survivor: %+v", res.Images[0])
	}
}

func TestExtractDOCXMaxImages(t *testing.T) {
	input := docxFixture(t, map[string][]byte{
		"a.png": pngBytes(t, 100, 100),
		"b.png": pngBytes(t, 100, 100),
		"c.png": pngBytes(t, 100, 100),
	})

	res, err := New(zap.NewNop()).Run(Options{Input: input, Output: t.TempDir(), MaxImages: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("expected the limit applied, got %d", res.Count)
	}
}

func TestExtractDOCXNoMedia(t *testing.T) {
	input := docxFixture(t, nil)

	res, err := New(zap.NewNop()).Run(Options{Input: input, Output: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Count != 0 || len(res.Images) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestExtractValidation(t *testing.T) {
	e := New(zap.NewNop())

	if _, err := e.Run(Options{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing paths, got %v", err)
	}
	if _, err := e.Run(Options{Input: "absent.docx", Output: t.TempDir()}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing file, got %v", err)
	}

	txt := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := e.Run(Options{Input: txt, Output: t.TempDir()}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unsupported type, got %v", err)
	}
}
