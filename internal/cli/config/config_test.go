package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/livepatch/internal/enc/matcher"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Matcher.CacheSize != matcher.DefaultCacheSize {
		t.Errorf("expected default cache size %d, got %d", matcher.DefaultCacheSize, cfg.Matcher.CacheSize)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected default log level 'warn', got %s", cfg.Log.Level)
	}
	if !cfg.Output.Color {
		t.Error("expected color output by default")
	}
	if cfg.Output.Format != FormatTable {
		t.Errorf("expected default format %q, got %s", FormatTable, cfg.Output.Format)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	configContent := `
matcher:
  cache_size: 64
log:
  level: debug
  encoding: json
output:
  color: false
  format: json
`
	os.WriteFile("livepatch.yml", []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Matcher.CacheSize != 64 {
		t.Errorf("expected cache size 64, got %d", cfg.Matcher.CacheSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Encoding != "json" {
		t.Errorf("expected debug/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Encoding)
	}
	if cfg.Output.Color {
		t.Error("expected color to be disabled")
	}
	if cfg.Output.Format != FormatJSON {
		t.Errorf("expected format json, got %s", cfg.Output.Format)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	os.WriteFile(path, []byte("matcher:\n  cache_size: 8\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Matcher.CacheSize != 8 {
		t.Errorf("expected cache size 8, got %d", cfg.Matcher.CacheSize)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("livepatch.yml", []byte("matcher:\n  cache_size: 64\n"), 0644)
	t.Setenv("LIVEPATCH_MATCHER_CACHE_SIZE", "128")
	t.Setenv("LIVEPATCH_OUTPUT_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Matcher.CacheSize != 128 {
		t.Errorf("expected environment cache size 128, got %d", cfg.Matcher.CacheSize)
	}
	if cfg.Output.Format != FormatJSON {
		t.Errorf("expected environment format json, got %s", cfg.Output.Format)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Matcher: MatcherConfig{CacheSize: 1},
		Log:     LogConfig{Level: "info", Encoding: "console"},
		Output:  OutputConfig{Format: FormatTable},
	}
	if err := validateConfig(&valid); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cache size", func(c *Config) { c.Matcher.CacheSize = 0 }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown encoding", func(c *Config) { c.Log.Encoding = "xml" }},
		{"unknown format", func(c *Config) { c.Output.Format = "yaml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := validateConfig(&cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "livepatch.yaml"), []byte(""), 0644)

	subDir := filepath.Join(tmpDir, "scenarios", "nested")
	os.MkdirAll(subDir, 0755)

	found, err := FindConfigFile(subDir)
	if err != nil {
		t.Fatalf("expected to find config file, got error: %v", err)
	}

	resolvedFound, _ := filepath.EvalSymlinks(found)
	resolvedWant, _ := filepath.EvalSymlinks(filepath.Join(tmpDir, "livepatch.yaml"))
	if resolvedFound != resolvedWant {
		t.Errorf("expected %s, got %s", resolvedWant, resolvedFound)
	}

	if _, err := FindConfigFile(t.TempDir()); err == nil {
		t.Error("expected error when no config file exists")
	}
}

func TestNewLogger(t *testing.T) {
	lc := LogConfig{Level: "debug", Encoding: "json"}
	logger, err := lc.NewLogger()
	if err != nil {
		t.Fatalf("expected logger, got %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}

	bad := LogConfig{Level: "loud", Encoding: "console"}
	if _, err := bad.NewLogger(); err == nil {
		t.Error("expected error for unknown level")
	}
}
