// Package gpu implements the read-only/maintenance diagnostics worker:
// accelerator verification, VRAM reporting and cache clearing.
package gpu

import (
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
)

// MinRecommendedVRAMGB is the VRAM floor below which verification logs a
// warning. It is advisory only; nothing is enforced.
const MinRecommendedVRAMGB = 8.0

// Info describes the CUDA accelerator, or its absence.
type Info struct {
	Available         bool    `json:"available"`
	Name              string  `json:"name"`
	VRAMGB            float64 `json:"vram_gb"`
	VRAMUsedGB        float64 `json:"vram_used_gb"`
	VRAMFreeGB        float64 `json:"vram_free_gb"`
	CUDAVersion       string  `json:"cuda_version"`
	ComputeCapability string  `json:"compute_capability"`
	DriverVersion     string  `json:"driver_version"`
}

// VRAMUsage holds current device memory statistics.
type VRAMUsage struct {
	AllocatedGB float64 `json:"allocated_gb"`
	ReservedGB  float64 `json:"reserved_gb"`
	FreeGB      float64 `json:"free_gb"`
	TotalGB     float64 `json:"total_gb"`
}

// Diagnostics answers GPU maintenance queries over a hardware prober.
type Diagnostics struct {
	prober device.Prober
	logger *zap.Logger
}

// New creates a diagnostics facade.
func New(prober device.Prober, logger *zap.Logger) *Diagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diagnostics{prober: prober, logger: logger}
}

// Verify reports CUDA accelerator presence and metadata. A machine without
// CUDA yields available=false rather than an error, so callers can branch.
func (d *Diagnostics) Verify() Info {
	info, ok := d.prober.CUDAInfo()
	if !ok {
		best := device.NewResolver(d.prober, d.logger).ResolveString(device.DefaultSpec)
		d.logger.Warn("CUDA is not available",
			zap.String("best_device", string(best)))
		return Info{
			Available:   false,
			Name:        fmt.Sprintf("No CUDA GPU (best device: %s)", best),
			CUDAVersion: "N/A", ComputeCapability: "N/A", DriverVersion: "N/A",
		}
	}

	total := mibToGB(info.TotalMemoryMiB)
	used := mibToGB(info.UsedMemoryMiB)
	if total < MinRecommendedVRAMGB {
		d.logger.Warn("GPU VRAM below recommended minimum, performance may be degraded",
			zap.Float64("vram_gb", total),
			zap.Float64("recommended_gb", MinRecommendedVRAMGB))
	}

	out := Info{
		Available:         true,
		Name:              info.Name,
		VRAMGB:            round2(total),
		VRAMUsedGB:        round2(used),
		VRAMFreeGB:        round2(total - used),
		CUDAVersion:       info.CUDAVersion,
		ComputeCapability: info.ComputeCapability,
		DriverVersion:     info.DriverVersion,
	}
	d.logger.Info("GPU verified",
		zap.String("name", out.Name),
		zap.Float64("vram_gb", out.VRAMGB),
		zap.String("cuda_version", out.CUDAVersion),
		zap.String("compute_capability", out.ComputeCapability))
	return out
}

// VRAM returns current device memory statistics. Unlike Verify it has no
// fallback: without CUDA there is nothing to measure.
func (d *Diagnostics) VRAM() (VRAMUsage, error) {
	info, ok := d.prober.CUDAInfo()
	if !ok {
		return VRAMUsage{}, fmt.Errorf("vram usage query: %w", domain.ErrGPUNotAvailable)
	}
	total := mibToGB(info.TotalMemoryMiB)
	reserved := mibToGB(info.ReservedMemoryMiB)
	return VRAMUsage{
		AllocatedGB: round3(mibToGB(info.UsedMemoryMiB)),
		ReservedGB:  round3(reserved),
		FreeGB:      round3(total - reserved),
		TotalGB:     round2(total),
	}, nil
}

// ClearMemory releases process-side device caches. Invoking it without CUDA
// is a caller programming error, not an expected runtime state, so it fails
// fast instead of degrading.
func (d *Diagnostics) ClearMemory() error {
	if _, ok := d.prober.CUDAInfo(); !ok {
		return fmt.Errorf("cannot clear GPU memory: %w", domain.ErrGPUNotAvailable)
	}
	// Release whatever the inference runtime pinned through Go allocations.
	runtime.GC()
	d.logger.Info("GPU memory cleared")
	return nil
}

func mibToGB(mib float64) float64 { return mib / 1024.0 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
