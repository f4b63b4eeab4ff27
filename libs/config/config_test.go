package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type nested struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

type testConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	Debug    bool   `yaml:"debug"`
	Redis    nested `yaml:"redis"`
	Explicit string `yaml:"explicit" env:"CUSTOM_KEY"`
	Skipped  string `env:"-"`
}

func TestLoadAppliesYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "name: from-yaml\nport: 9000\nredis:\n  addr: yaml:6379\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("DEBUG", "true")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("REDIS_TIMEOUT", "45s")
	t.Setenv("CUSTOM_KEY", "explicit-value")

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Name != "from-yaml" {
		t.Errorf("name = %q, want yaml value", cfg.Name)
	}
	if cfg.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("debug must be set from env")
	}
	if cfg.Redis.Addr != "env:6379" {
		t.Errorf("redis addr = %q, want nested env override", cfg.Redis.Addr)
	}
	if cfg.Redis.Timeout != 45*time.Second {
		t.Errorf("redis timeout = %v, want 45s", cfg.Redis.Timeout)
	}
	if cfg.Explicit != "explicit-value" {
		t.Errorf("explicit = %q, want value from CUSTOM_KEY", cfg.Explicit)
	}
}

func TestLoadRejectsNonPointer(t *testing.T) {
	if err := Load(testConfig{}); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
	if err := Load(nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}

func TestLoadReportsBadEnvValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	var cfg testConfig
	if err := Load(&cfg); err == nil {
		t.Fatal("expected parse error for bad int")
	}
}
