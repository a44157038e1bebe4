package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsClamped(t *testing.T) {
	cfg := Default()
	if cfg.Socket.RecvMaxSizeBytes != DefaultRecvMaxSizeBytes {
		t.Fatalf("RecvMaxSizeBytes = %d, want default %d", cfg.Socket.RecvMaxSizeBytes, DefaultRecvMaxSizeBytes)
	}
	if cfg.Log.Dir != DefaultLogDir {
		t.Fatalf("Log.Dir = %q, want %q", cfg.Log.Dir, DefaultLogDir)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load of a missing file = %+v, want Default() = %+v", cfg, Default())
	}
}

func TestLoadClampsOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sp.yaml")
	yamlDoc := []byte("socket:\n  recv_max_size_bytes: 99999999999\n  reconnect_interval_millis: -5\n")
	if err := os.WriteFile(path, yamlDoc, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket.RecvMaxSizeBytes != DefaultRecvMaxSizeBytes {
		t.Fatalf("RecvMaxSizeBytes = %d, want it clamped back to default %d", cfg.Socket.RecvMaxSizeBytes, DefaultRecvMaxSizeBytes)
	}
	if cfg.Socket.ReconnectMillis != DefaultReconnectInterval.Milliseconds() {
		t.Fatalf("ReconnectMillis = %d, want default %d", cfg.Socket.ReconnectMillis, DefaultReconnectInterval.Milliseconds())
	}
}

func TestLoadAcceptsValidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sp.yaml")
	yamlDoc := []byte("socket:\n  reconnect_interval_millis: 250\n  survey_deadline_millis: 1500\nlog:\n  dir: /tmp/sp-logs\n  level: debug\n")
	if err := os.WriteFile(path, yamlDoc, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket.ReconnectInterval() != 250*time.Millisecond {
		t.Fatalf("ReconnectInterval() = %v, want 250ms", cfg.Socket.ReconnectInterval())
	}
	if cfg.Socket.SurveyDeadline() != 1500*time.Millisecond {
		t.Fatalf("SurveyDeadline() = %v, want 1500ms", cfg.Socket.SurveyDeadline())
	}
	if cfg.Log.Dir != "/tmp/sp-logs" || cfg.Log.Level != "debug" {
		t.Fatalf("Log = %+v, want dir=/tmp/sp-logs level=debug", cfg.Log)
	}
}

func TestLoadedNeverReturnsZeroValue(t *testing.T) {
	// Loaded() falls back to Default() when Load hasn't populated the
	// package-level cache yet, so it should never hand back a zero T
	// regardless of what earlier tests in this process have done.
	got := Loaded()
	if got.Log.Level == "" {
		t.Fatal("Loaded() returned a zero-value config")
	}
}
