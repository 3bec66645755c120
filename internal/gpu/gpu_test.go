package gpu

import (
	"errors"
	"testing"

	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/domain"
)

type fakeProber struct {
	cuda bool
	mps  bool
	info device.CUDAInfo
}

func (f *fakeProber) CUDAAvailable() bool { return f.cuda }
func (f *fakeProber) MPSAvailable() bool  { return f.mps }
func (f *fakeProber) CUDAInfo() (device.CUDAInfo, bool) {
	return f.info, f.cuda
}

func TestVerify_NoCUDAIsGraceful(t *testing.T) {
	d := New(&fakeProber{cuda: false, mps: true}, nil)
	info := d.Verify()
	if info.Available {
		t.Fatal("expected available=false without CUDA")
	}
	if info.Name != "No CUDA GPU (best device: mps)" {
		t.Fatalf("unexpected name: %q", info.Name)
	}
	if info.CUDAVersion != "N/A" || info.DriverVersion != "N/A" {
		t.Fatalf("expected N/A metadata, got %+v", info)
	}
}

func TestVerify_WithCUDA(t *testing.T) {
	d := New(&fakeProber{cuda: true, info: device.CUDAInfo{
		Name:              "NVIDIA RTX 4090",
		TotalMemoryMiB:    24576,
		UsedMemoryMiB:     2048,
		DriverVersion:     "550.54",
		ComputeCapability: "8.9",
		CUDAVersion:       "12.4",
	}}, nil)
	info := d.Verify()
	if !info.Available {
		t.Fatal("expected available=true")
	}
	if info.VRAMGB != 24.0 {
		t.Fatalf("total vram = %v, want 24.0", info.VRAMGB)
	}
	if info.VRAMUsedGB != 2.0 || info.VRAMFreeGB != 22.0 {
		t.Fatalf("used/free = %v/%v, want 2/22", info.VRAMUsedGB, info.VRAMFreeGB)
	}
	if info.ComputeCapability != "8.9" {
		t.Fatalf("compute capability = %q", info.ComputeCapability)
	}
}

func TestVRAM_FailsFastWithoutCUDA(t *testing.T) {
	d := New(&fakeProber{}, nil)
	_, err := d.VRAM()
	if !errors.Is(err, domain.ErrGPUNotAvailable) {
		t.Fatalf("expected ErrGPUNotAvailable, got %v", err)
	}
}

func TestVRAM_Stats(t *testing.T) {
	d := New(&fakeProber{cuda: true, info: device.CUDAInfo{
		TotalMemoryMiB:    16384,
		UsedMemoryMiB:     1024,
		ReservedMemoryMiB: 2048,
	}}, nil)
	usage, err := d.VRAM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.AllocatedGB != 1.0 || usage.ReservedGB != 2.0 {
		t.Fatalf("allocated/reserved = %v/%v", usage.AllocatedGB, usage.ReservedGB)
	}
	if usage.FreeGB != 14.0 || usage.TotalGB != 16.0 {
		t.Fatalf("free/total = %v/%v", usage.FreeGB, usage.TotalGB)
	}
}

func TestClearMemory_FailsFastWithoutCUDA(t *testing.T) {
	d := New(&fakeProber{}, nil)
	if err := d.ClearMemory(); !errors.Is(err, domain.ErrGPUNotAvailable) {
		t.Fatalf("expected ErrGPUNotAvailable, got %v", err)
	}
}

func TestClearMemory_WithCUDA(t *testing.T) {
	d := New(&fakeProber{cuda: true}, nil)
	if err := d.ClearMemory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
