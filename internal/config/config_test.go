package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default")
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("DB_PATH", "env.db")

	cfg, err := Load([]string{"-port", "5000"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want flag value 5000 over env 4000", cfg.Port)
	}
	if cfg.DBPath != "env.db" {
		t.Errorf("DBPath = %q, want env value", cfg.DBPath)
	}
}

func TestLoad_IgnoresMalformedPortEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want default 3000", cfg.Port)
	}
}
