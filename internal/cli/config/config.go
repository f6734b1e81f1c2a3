package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/livepatch/internal/enc/matcher"
)

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. LIVEPATCH_MATCHER_CACHE_SIZE.
const EnvPrefix = "LIVEPATCH"

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config represents the livepatch configuration
type Config struct {
	Matcher MatcherConfig `mapstructure:"matcher"`
	Log     LogConfig     `mapstructure:"log"`
	Output  OutputConfig  `mapstructure:"output"`
}

// MatcherConfig configures the symbol matchers of each generation
type MatcherConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// LogConfig configures the session logger
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// OutputConfig configures command output
type OutputConfig struct {
	Color  bool   `mapstructure:"color"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration. An explicit path must exist; otherwise
// livepatch.yml or livepatch.yaml is read from the current directory when
// present. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("matcher.cache_size", matcher.DefaultCacheSize)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("output.color", true)
	v.SetDefault("output.format", FormatTable)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("livepatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile looks for livepatch.yml or livepatch.yaml in dir and its
// parents.
func FindConfigFile(dir string) (string, error) {
	for {
		for _, name := range []string{"livepatch.yml", "livepatch.yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no livepatch.yml found")
		}
		dir = parent
	}
}

// NewLogger builds the logger described by the log section. Logs go to
// stderr so command output stays machine readable.
func (c *LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.Encoding
	zc.DisableStacktrace = true
	if c.Encoding == "json" {
		zc.EncoderConfig = zap.NewProductionEncoderConfig()
	}
	return zc.Build()
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Matcher.CacheSize <= 0 {
		return fmt.Errorf("matcher.cache_size must be positive, got: %d", cfg.Matcher.CacheSize)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("log.encoding must be 'console' or 'json', got: %s", cfg.Log.Encoding)
	}
	switch cfg.Output.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("output.format must be '%s' or '%s', got: %s", FormatTable, FormatJSON, cfg.Output.Format)
	}
	return nil
}
