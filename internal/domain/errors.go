package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGPUNotAvailable signals that the requested accelerator class does not
	// exist on this machine. Non-fatal during device resolution (triggers
	// fallback), fatal when surfaced from an operation with no fallback.
	ErrGPUNotAvailable = errors.New("gpu not available")
	// ErrOutOfMemory is the sentinel wrapped by OutOfMemoryError.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrModelLoad is the sentinel wrapped by ModelLoadError.
	ErrModelLoad = errors.New("model load failed")
	// ErrInvalidInput signals a malformed worker payload.
	ErrInvalidInput = errors.New("invalid input")
)

// OutOfMemoryError reports device-memory exhaustion. It is transient while
// the batch embedder still has room to shrink the batch size, and becomes
// terminal once the minimum batch size has been attempted.
type OutOfMemoryError struct {
	Chunks       int
	Device       string
	InitialBatch int
	MinBatch     int
	Cause        error
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("%s: %d chunks on %s, tried batch sizes %d down to %d",
		ErrOutOfMemory.Error(), e.Chunks, e.Device, e.InitialBatch, e.MinBatch)
}

func (e *OutOfMemoryError) Unwrap() error { return ErrOutOfMemory }

// ModelLoadError reports a fatal, non-retryable model load failure and
// carries the attempted model path as context.
type ModelLoadError struct {
	Path  string
	Cause error
}

func (e *ModelLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrModelLoad.Error(), e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrModelLoad.Error(), e.Path)
}

func (e *ModelLoadError) Unwrap() error { return ErrModelLoad }

// NewModelLoadError creates a model load error with path context.
func NewModelLoadError(path string, cause error) error {
	return &ModelLoadError{Path: path, Cause: cause}
}

// oomMarkers are allocator-failure shapes seen in backend error strings.
// Foreign backends (ONNX runtime, HTTP inference servers) do not share our
// error types, so the message is the only signal they give us.
var oomMarkers = []string{
	"out of memory",
	"allocation failed",
	"cannot allocate",
}

// ClassifyOOM reports whether err is an out-of-memory condition. Structured
// errors are authoritative; message matching applies only to foreign errors.
func ClassifyOOM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOutOfMemory) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range oomMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
