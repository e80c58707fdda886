package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lazymc.yml")
	yaml := `
public:
  address: "0.0.0.0:25577"
server:
  address: "127.0.0.1:25566"
  command: "java -jar custom.jar"
time:
  sleep_after: 120
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Public.Address != "0.0.0.0:25577" {
		t.Errorf("Public.Address = %q, want overlay value", cfg.Public.Address)
	}
	if cfg.Time.SleepAfterSecs != 120 {
		t.Errorf("Time.SleepAfterSecs = %d, want 120", cfg.Time.SleepAfterSecs)
	}
	// Untouched sections should keep their defaults.
	if cfg.Join.Hold.TimeoutSecs != Default().Join.Hold.TimeoutSecs {
		t.Errorf("Join.Hold.TimeoutSecs = %d, want default %d", cfg.Join.Hold.TimeoutSecs, Default().Join.Hold.TimeoutSecs)
	}
	if cfg.Messages.MotdSleeping != Default().Messages.MotdSleeping {
		t.Error("Messages.MotdSleeping should keep its default when not overridden")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Error("expected an error loading a missing config file")
	}
}

func TestDefaultJoinMethodsIncludeHoldAndKick(t *testing.T) {
	cfg := Default()
	if len(cfg.Join.Methods) != 2 || cfg.Join.Methods[0] != "hold" || cfg.Join.Methods[1] != "kick" {
		t.Errorf("default join methods = %v, want [hold kick]", cfg.Join.Methods)
	}
}
