package device

import "testing"

type fakeProber struct {
	cuda bool
	mps  bool
	info CUDAInfo
}

func (f *fakeProber) CUDAAvailable() bool { return f.cuda }
func (f *fakeProber) MPSAvailable() bool  { return f.mps }
func (f *fakeProber) CUDAInfo() (CUDAInfo, bool) {
	return f.info, f.cuda
}

func TestResolve_AutoPriority(t *testing.T) {
	tests := []struct {
		name string
		cuda bool
		mps  bool
		want Resolved
	}{
		{"cuda wins over mps", true, true, "cuda:0"},
		{"mps when no cuda", false, true, "mps"},
		{"cpu when nothing", false, false, "cpu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeProber{cuda: tt.cuda, mps: tt.mps}, nil)
			if got := r.ResolveString("auto"); got != tt.want {
				t.Fatalf("resolve auto = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_CUDAVerbatim(t *testing.T) {
	r := NewResolver(&fakeProber{cuda: true}, nil)
	if got := r.ResolveString("cuda:1"); got != "cuda:1" {
		t.Fatalf("explicit cuda index not preserved: got %q", got)
	}
	if got := r.ResolveString("cuda"); got != "cuda" {
		t.Fatalf("bare cuda request not preserved: got %q", got)
	}
}

func TestResolve_FallbackChain(t *testing.T) {
	// CUDA requested, unavailable; MPS present.
	r := NewResolver(&fakeProber{cuda: false, mps: true}, nil)
	if got := r.ResolveString("cuda:0"); got != "mps" {
		t.Fatalf("cuda->mps fallback: got %q", got)
	}

	// Neither available.
	r = NewResolver(&fakeProber{}, nil)
	if got := r.ResolveString("cuda:0"); got != "cpu" {
		t.Fatalf("cuda->cpu fallback: got %q", got)
	}
	if got := r.ResolveString("mps"); got != "cpu" {
		t.Fatalf("mps->cpu fallback: got %q", got)
	}
}

func TestResolve_PassThrough(t *testing.T) {
	// Unrecognized specifiers pass through regardless of hardware state.
	for _, prober := range []*fakeProber{{cuda: true, mps: true}, {}} {
		r := NewResolver(prober, nil)
		if got := r.ResolveString("xpu:0"); got != "xpu:0" {
			t.Fatalf("pass-through broke: got %q", got)
		}
		if got := r.ResolveString("cpu"); got != "cpu" {
			t.Fatalf("explicit cpu not preserved: got %q", got)
		}
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		raw  string
	}{
		{"", Auto, "auto"},
		{"auto", Auto, "auto"},
		{"cuda", CUDA, "cuda"},
		{"cuda:3", CUDA, "cuda:3"},
		{"mps", MPS, "mps"},
		{"cpu", CPU, "cpu"},
		{"xpu:0", Other, "xpu:0"},
	}
	for _, tt := range tests {
		spec := ParseSpec(tt.in)
		if spec.Kind != tt.kind || spec.Raw != tt.raw {
			t.Errorf("ParseSpec(%q) = {%v %q}, want {%v %q}", tt.in, spec.Kind, spec.Raw, tt.kind, tt.raw)
		}
	}
}

func TestResolved_Predicates(t *testing.T) {
	if !Resolved("cuda:0").IsCUDA() || !Resolved("cuda:0").IsAccelerator() {
		t.Error("cuda:0 should be CUDA accelerator")
	}
	if Resolved("mps").IsCUDA() || !Resolved("mps").IsAccelerator() {
		t.Error("mps should be non-CUDA accelerator")
	}
	if Resolved("cpu").IsAccelerator() {
		t.Error("cpu is not an accelerator")
	}
}
