package device

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// CUDAInfo is the device metadata reported by the CUDA driver.
type CUDAInfo struct {
	Name              string
	TotalMemoryMiB    float64
	UsedMemoryMiB     float64
	ReservedMemoryMiB float64
	DriverVersion     string
	ComputeCapability string
	CUDAVersion       string
}

// Prober answers hardware-availability questions for the resolver and the
// diagnostics worker. Implementations must be cheap to call repeatedly.
type Prober interface {
	CUDAAvailable() bool
	MPSAvailable() bool
	// CUDAInfo returns metadata for CUDA device 0. The boolean is false
	// when no CUDA device is present.
	CUDAInfo() (CUDAInfo, bool)
}

// SystemProber probes real hardware. CUDA facts come from nvidia-smi (the
// only driver interface guaranteed alongside the CUDA userspace stack);
// MPS presence follows from the platform, as the unified-memory accelerator
// ships with every Apple Silicon machine.
type SystemProber struct {
	mu     sync.Mutex
	probed bool
	info   CUDAInfo
	hasGPU bool
}

// NewSystemProber creates a prober over the local machine.
func NewSystemProber() *SystemProber {
	return &SystemProber{}
}

// CUDAAvailable reports whether a CUDA device is present.
func (p *SystemProber) CUDAAvailable() bool {
	_, ok := p.CUDAInfo()
	return ok
}

// MPSAvailable reports whether the Apple Silicon accelerator is present.
func (p *SystemProber) MPSAvailable() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}

// CUDAInfo queries nvidia-smi once and caches the answer for the life of
// the process. Workers are one invocation end-to-end, so staleness of the
// memory counters only matters to the diagnostics path, which re-probes.
func (p *SystemProber) CUDAInfo() (CUDAInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.probed {
		p.info, p.hasGPU = querySMI()
		p.probed = true
	}
	return p.info, p.hasGPU
}

// Reprobe discards the cached answer and queries the driver again.
func (p *SystemProber) Reprobe() (CUDAInfo, bool) {
	p.mu.Lock()
	p.probed = false
	p.mu.Unlock()
	return p.CUDAInfo()
}

func querySMI() (CUDAInfo, bool) {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu=name,memory.total,memory.used,memory.reserved,driver_version,compute_cap",
		"--format=csv,noheader,nounits", "--id=0").Output()
	if err != nil {
		return CUDAInfo{}, false
	}
	fields := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(fields) < 6 {
		return CUDAInfo{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	info := CUDAInfo{
		Name:              fields[0],
		TotalMemoryMiB:    parseMiB(fields[1]),
		UsedMemoryMiB:     parseMiB(fields[2]),
		ReservedMemoryMiB: parseMiB(fields[3]),
		DriverVersion:     fields[4],
		ComputeCapability: fields[5],
		CUDAVersion:       queryCUDAVersion(),
	}
	return info, true
}

func parseMiB(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// queryCUDAVersion parses "CUDA Version : 12.4" from nvidia-smi --version.
func queryCUDAVersion() string {
	out, err := exec.Command("nvidia-smi", "--version").Output()
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "CUDA Version") {
			continue
		}
		if _, v, ok := strings.Cut(line, ":"); ok {
			return strings.TrimSpace(v)
		}
	}
	return "unknown"
}
