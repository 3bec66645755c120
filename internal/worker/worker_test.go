package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ocr-provenance/workers/internal/domain"
)

func TestReadJSON(t *testing.T) {
	var v struct {
		Query string `json:"query"`
	}
	if err := ReadJSON(strings.NewReader(`{"query": "q"}`), &v); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if v.Query != "q" {
		t.Fatalf("unexpected value: %+v", v)
	}
}

func TestReadJSON_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"whitespace": "  \n\t",
		"malformed":  `{"query":`,
		"trailing":   `{"a":1} {"b":2}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var v map[string]any
			if err := ReadJSON(strings.NewReader(input), &v); err == nil {
				t.Fatalf("expected error for %q", input)
			}
		})
	}
}

func TestEmitAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	if err := Emit(&buf, map[string]bool{"success": true}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("output must end with newline: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("exactly one document expected: %q", out)
	}
}

func TestFailEnvelope(t *testing.T) {
	cases := []struct {
		err      error
		wantType string
	}{
		{fmt.Errorf("%w: missing field", domain.ErrInvalidInput), "ValueError"},
		{&domain.OutOfMemoryError{Chunks: 10, Device: "cuda:0", InitialBatch: 4, MinBatch: 1}, "OutOfMemoryError"},
		{domain.NewModelLoadError("/models/x", errors.New("missing files")), "ModelLoadError"},
		{fmt.Errorf("verify: %w", domain.ErrGPUNotAvailable), "GPUNotAvailable"},
		{errors.New("something else"), "RuntimeError"},
	}
	for _, tc := range cases {
		t.Run(tc.wantType, func(t *testing.T) {
			var buf bytes.Buffer
			Fail(&buf, tc.err)

			var env ErrorEnvelope
			if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
				t.Fatalf("envelope not valid JSON: %v", err)
			}
			if env.Success {
				t.Fatal("envelope must report failure")
			}
			if env.ErrorType != tc.wantType {
				t.Fatalf("expected error_type %q, got %q", tc.wantType, env.ErrorType)
			}
			if env.Error == "" {
				t.Fatal("error message must not be empty")
			}
		})
	}
}

func TestReadJSON_DecodeErrorType(t *testing.T) {
	var v map[string]any
	err := ReadJSON(strings.NewReader("{broken"), &v)
	var buf bytes.Buffer
	Fail(&buf, err)

	var env ErrorEnvelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("envelope not valid JSON: %v", err)
	}
	if env.ErrorType != "JSONDecodeError" {
		t.Fatalf("expected JSONDecodeError, got %q", env.ErrorType)
	}
}
