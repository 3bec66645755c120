// Package device resolves a requested compute-device specifier to a
// concrete, available device: CUDA > MPS > CPU.
package device

import (
	"strings"

	"go.uber.org/zap"
)

// Kind is the closed set of device classes a caller can request.
type Kind int

const (
	// Auto probes for the best available device.
	Auto Kind = iota
	// CUDA is an NVIDIA accelerator, optionally with an explicit index.
	CUDA
	// MPS is the Apple Silicon unified-memory accelerator.
	MPS
	// CPU is the host processor.
	CPU
	// Other is any unrecognized specifier, passed through verbatim as an
	// escape hatch for forward-compatible device backends.
	Other
)

// Spec is a parsed device request.
type Spec struct {
	Kind Kind
	// Raw is the original specifier, preserved for verbatim pass-through
	// (explicit CUDA indices, unrecognized backends).
	Raw string
}

// DefaultSpec is the request used when the caller does not name a device.
const DefaultSpec = "auto"

// ParseSpec maps a requested device string onto the closed Kind enumeration.
func ParseSpec(requested string) Spec {
	switch {
	case requested == "" || requested == "auto":
		return Spec{Kind: Auto, Raw: "auto"}
	case strings.HasPrefix(requested, "cuda"):
		return Spec{Kind: CUDA, Raw: requested}
	case requested == "mps":
		return Spec{Kind: MPS, Raw: "mps"}
	case requested == "cpu":
		return Spec{Kind: CPU, Raw: "cpu"}
	default:
		return Spec{Kind: Other, Raw: requested}
	}
}

// Resolved is the concrete device string chosen by resolution,
// e.g. "cuda:0", "mps", "cpu".
type Resolved string

// IsCUDA reports whether the resolved device is a CUDA device.
func (r Resolved) IsCUDA() bool { return strings.HasPrefix(string(r), "cuda") }

// IsAccelerator reports whether the resolved device is a GPU-class device.
func (r Resolved) IsAccelerator() bool { return r.IsCUDA() || r == "mps" }

// Resolver maps device requests onto available hardware. It never fails:
// absent hardware degrades to the next tier.
type Resolver struct {
	prober Prober
	logger *zap.Logger
}

// NewResolver creates a resolver over the given hardware prober.
func NewResolver(prober Prober, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{prober: prober, logger: logger}
}

// Resolve picks the concrete device for a request.
//
// Auto probes in strict priority order CUDA > MPS > CPU. An explicit CUDA
// request is honored verbatim when CUDA is present (preserving the index)
// and silently falls back to the auto path otherwise; likewise MPS. CPU and
// unrecognized specifiers pass through unresolved.
func (r *Resolver) Resolve(spec Spec) Resolved {
	switch spec.Kind {
	case Auto:
		return r.resolveAuto()
	case CUDA:
		if r.prober.CUDAAvailable() {
			return Resolved(spec.Raw)
		}
		r.logger.Warn("Requested CUDA device unavailable, falling back to auto-detect",
			zap.String("requested", spec.Raw))
		return r.resolveAuto()
	case MPS:
		if r.prober.MPSAvailable() {
			return Resolved("mps")
		}
		r.logger.Warn("Requested mps but MPS unavailable, falling back to auto-detect")
		return r.resolveAuto()
	default:
		// CPU and forward-compatible backends: verbatim, unresolved.
		return Resolved(spec.Raw)
	}
}

// ResolveString parses and resolves in one step.
func (r *Resolver) ResolveString(requested string) Resolved {
	return r.Resolve(ParseSpec(requested))
}

func (r *Resolver) resolveAuto() Resolved {
	if r.prober.CUDAAvailable() {
		r.logger.Info("Auto-detected device", zap.String("device", "cuda:0"))
		return Resolved("cuda:0")
	}
	if r.prober.MPSAvailable() {
		r.logger.Info("Auto-detected device", zap.String("device", "mps"))
		return Resolved("mps")
	}
	r.logger.Warn("Auto-detected device: cpu (no GPU available)")
	return Resolved("cpu")
}
