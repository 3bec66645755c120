package formfill

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/domain"
)

func TestNormalizeFlatFieldMap(t *testing.T) {
	data := []byte(`{"name": "Ada", "subscribed": true, "age": 37}`)

	out, names, err := normalizeFormData(data)
	if err != nil {
		t.Fatalf("normalizeFormData: %v", err)
	}
	if len(names) != 3 || names[0] != "age" || names[1] != "name" || names[2] != "subscribed" {
		t.Fatalf("expected sorted names, got %v", names)
	}

	var native nativeForm
	if err := json.Unmarshal(out, &native); err != nil {
		t.Fatalf("output not valid native schema: %v", err)
	}
	if len(native.Forms) != 1 {
		t.Fatalf("expected one form entry, got %d", len(native.Forms))
	}
	entry := native.Forms[0]
	if len(entry.TextField) != 2 {
		t.Fatalf("expected 2 text fields, got %+v", entry.TextField)
	}
	if entry.TextField[0].Name != "age" || entry.TextField[0].Value != "37" {
		t.Fatalf("numeric value must stringify, got %+v", entry.TextField[0])
	}
	if len(entry.CheckBox) != 1 || entry.CheckBox[0].Name != "subscribed" || !entry.CheckBox[0].Value {
		t.Fatalf("boolean must map to a checkbox, got %+v", entry.CheckBox)
	}
}

func TestNormalizeNativePassthrough(t *testing.T) {
	data := []byte(`{"forms": [{"textfield": [{"name": "city", "value": "Oslo"}]}]}`)

	out, names, err := normalizeFormData(data)
	if err != nil {
		t.Fatalf("normalizeFormData: %v", err)
	}
	if out != nil {
		t.Fatal("native documents must pass through without rewriting")
	}
	if len(names) != 1 || names[0] != "city" {
		t.Fatalf("expected the native field names, got %v", names)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cases := map[string][]byte{
		"not json":   []byte("not json"),
		"json array": []byte(`[1, 2]`),
		"empty map":  []byte(`{}`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := normalizeFormData(data); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestFillValidation(t *testing.T) {
	f := New(zap.NewNop())

	if _, err := f.Fill("", "", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing paths, got %v", err)
	}
	if _, err := f.Fill("absent.pdf", "data.json", "out.pdf"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing input, got %v", err)
	}
	if _, err := f.List(""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing input, got %v", err)
	}
	if _, err := f.List("absent.pdf"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing file, got %v", err)
	}
}
