// Package worker implements the process-boundary protocol every subcommand
// shares: JSON request on stdin or flags, exactly one JSON document on
// stdout, logs to stderr, exit 0 on success and 1 with an error envelope on
// failure.
package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ocr-provenance/workers/internal/domain"
)

// ErrorEnvelope is the failure document consumers pattern-match on.
type ErrorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// ReadJSON decodes the single JSON request document from r. Empty input
// and trailing garbage are both invalid.
func ReadJSON(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty input on stdin", domain.ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON input: %v", errJSONDecode, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON document", errJSONDecode)
	}
	return nil
}

// Emit writes the result document followed by a newline.
func Emit(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// Fail writes the error envelope for err. The caller exits 1 afterwards.
func Fail(w io.Writer, err error) {
	_ = Emit(w, ErrorEnvelope{
		Success:   false,
		Error:     err.Error(),
		ErrorType: errorType(err),
	})
}

var errJSONDecode = errors.New("json decode")

// errorType names the failure class in terms downstream consumers already
// match on.
func errorType(err error) string {
	switch {
	case errors.Is(err, errJSONDecode):
		return "JSONDecodeError"
	case errors.Is(err, domain.ErrInvalidInput):
		return "ValueError"
	case errors.Is(err, domain.ErrOutOfMemory):
		return "OutOfMemoryError"
	case errors.Is(err, domain.ErrModelLoad):
		return "ModelLoadError"
	case errors.Is(err, domain.ErrGPUNotAvailable):
		return "GPUNotAvailable"
	default:
		return "RuntimeError"
	}
}
