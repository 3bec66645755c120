package config

import (
	"os"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Model.Backend != "local" {
		t.Errorf("expected local backend, got %q", cfg.Model.Backend)
	}
	if cfg.Embedding.BatchSize != 512 {
		t.Errorf("expected batch size 512, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Embedding.Device != "auto" {
		t.Errorf("expected auto device, got %q", cfg.Embedding.Device)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("expected 24h cache TTL, got %d", cfg.Cache.TTLHours)
	}
	if cfg.HTTP.Port != 8091 {
		t.Errorf("expected default port, got %d", cfg.HTTP.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_InvalidBackend(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	cfg.Model.Backend = "remote"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	expected := `model.backend must be "local" or "server", got "remote"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ServerBackendNeedsURL(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	cfg.Model.Backend = "server"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for server backend without URL")
	}

	cfg.Model.ServerURL = "http://localhost:8080/v1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CacheNeedsAddrs(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	cfg.Cache.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled cache without addrs")
	}

	cfg.Cache.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("PROVWORKER_TEST_DEVICE", "cuda:1")
	defer os.Unsetenv("PROVWORKER_TEST_DEVICE")

	in := []byte("device: ${PROVWORKER_TEST_DEVICE}\nbatch: ${PROVWORKER_TEST_UNSET:-256}\n")
	got := string(expandEnvVars(in))
	want := "device: cuda:1\nbatch: 256\n"
	if got != want {
		t.Errorf("expansion mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("nonexistent-env")
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if cfg.Embedding.BatchSize != 512 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
