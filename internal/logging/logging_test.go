package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectModeLocalByDefault(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI_V4", "")
	os.Unsetenv("ECS_CONTAINER_METADATA_URI_V4")
	if got := DetectMode(false); got != ModeLocal {
		t.Fatalf("mode = %v, want local", got)
	}
}

func TestDetectModeManagedOnContainerMarker(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI_V4", "http://169.254.170.2/v4/meta")
	if got := DetectMode(false); got != ModeManaged {
		t.Fatalf("mode = %v, want managed", got)
	}
}

func TestDetectModeDebugOverridesMarker(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI_V4", "http://169.254.170.2/v4/meta")
	if got := DetectMode(true); got != ModeLocal {
		t.Fatalf("mode = %v, want local when debug is set", got)
	}
}

func TestNewLocalLoggerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	log, flush, err := New(Config{
		Mode:    ModeLocal,
		Dir:     dir,
		Service: "plutus-voice-agent",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Infow("hello", "k", "v")
	log.Errorw("bad thing", "k", "v")
	flush()

	combined, err := os.ReadFile(filepath.Join(dir, "plutus-api.combined.log"))
	if err != nil {
		t.Fatalf("combined log missing: %v", err)
	}
	if len(combined) == 0 {
		t.Fatal("combined log empty")
	}
	errors, err := os.ReadFile(filepath.Join(dir, "plutus-api.error.log"))
	if err != nil {
		t.Fatalf("error log missing: %v", err)
	}
	if len(errors) == 0 {
		t.Fatal("error log empty")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Config{Mode: ModeManaged, Level: "chatty"}); err == nil {
		t.Fatal("expected level parse error")
	}
}

func TestNewManagedLoggerBuilds(t *testing.T) {
	log, flush, err := New(Config{Mode: ModeManaged, Service: "plutus-voice-agent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer flush()
	// Must tolerate awkward metadata without panicking.
	log.Infow("odd metadata", "nil", nil, "nested", map[string]any{"a": []any{1, nil}})
}
