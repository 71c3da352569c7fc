package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/lang-runtime/engine"
)

func TestConfig_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	data := []byte("sharing: shared\nverify: true\nlog_level: silent\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Verify {
		t.Fatal("verify not parsed")
	}
	mode, err := cfg.Mode()
	if err != nil || mode != engine.ModeShared {
		t.Fatalf("Mode = %v, %v", mode, err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	mode, err := cfg.Mode()
	if err != nil || mode != engine.ModeGuarded {
		t.Fatalf("Mode = %v, %v; want guarded", mode, err)
	}
	if _, err := cfg.Logger(); err != nil {
		t.Fatalf("Logger failed: %v", err)
	}
}

func TestConfig_Invalid(t *testing.T) {
	if _, err := (&Config{Sharing: "sometimes"}).Mode(); err == nil {
		t.Fatal("unknown sharing mode must fail")
	}
	if _, err := (&Config{LogLevel: "loud"}).Logger(); err == nil {
		t.Fatal("unknown log level must fail")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file must fail")
	}
}

func TestConfig_Options(t *testing.T) {
	opts, err := (&Config{Sharing: "bound", Verify: true}).Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	// 3 = mode + logger + verification
	if len(opts) != 3 {
		t.Fatalf("len(opts) = %d; want 3", len(opts))
	}
}
