package env

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/epochly/go-kvcache/cache"
	"github.com/epochly/go-kvcache/logger"
	cstr "github.com/epochly/go-kvcache/string"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// BoolFlagOrEnv returns true when the flag was set on the command line, otherwise
// when envName holds a truthy value, otherwise defaultValue.
func BoolFlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue bool) bool {
	if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool(flagName)
		return v
	}
	if val, ok := os.LookupEnv(envName); ok {
		return cache.IsTruthy(val)
	}
	return defaultValue
}

// DurationFlagOrEnv resolves a duration like FlagOrEnv. Values accept day and
// week units, e.g. "1d12h".
func DurationFlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue time.Duration) (time.Duration, error) {
	val := FlagOrEnv(cmd, flagName, envName, "")
	if val == "" {
		return defaultValue, nil
	}
	d, err := ParseDuration(val)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration for --%s", flagName)
	}
	return d, nil
}

// ParseDuration parses durations such as "90s", "15m" or "1d".
func ParseDuration(val string) (time.Duration, error) {
	return str2duration.ParseDuration(val)
}

func LogLevel(cmd *cobra.Command) logger.LogLevel {
	level, _ := logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.EnvLogLevel, "info"))
	return level
}

// NewLogger returns a console logger by first checking the cobra.Command log-level flag, then use the
// KVCACHE_LOG_LEVEL environment value and falling back to the info logger level. With --log-format=json
// a JSON logger is returned instead.
func NewLogger(cmd *cobra.Command) logger.SinkLogger {
	log.SetFlags(0)
	level := LogLevel(cmd)
	if format, _ := cmd.Flags().GetString("log-format"); format == "json" {
		return logger.NewJSONLogger(level)
	}
	return logger.NewConsoleLogger(level)
}

// OpenLogFile appends entries at level and above from log to the file at
// path, creating it if needed. Close the returned file when done.
func OpenLogFile(log logger.SinkLogger, path string, level logger.LogLevel) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log file %s", path)
	}
	log.SetSink(f, level)
	return f, nil
}

// LoadDotEnv loads the given .env files (".env" when none are given) into the
// process environment. Variables already set are left untouched and missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "loading %s", p)
		}
	}
	return nil
}

// RateLimitFile configures the rate limiter.
type RateLimitFile struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// File is the YAML configuration read by LoadFile.
type File struct {
	Listen    string        `yaml:"listen"`
	LogLevel  string        `yaml:"log_level"`
	MaxSize   int           `yaml:"max_size"`
	Cache     cache.Config  `yaml:"cache"`
	RateLimit RateLimitFile `yaml:"rate_limit"`
}

// LoadFile reads a YAML configuration file. ${NAME} references are resolved
// from the environment before parsing.
func LoadFile(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	text, err := cstr.Interpolate(string(buf), os.LookupEnv)
	if err != nil {
		return nil, errors.Wrapf(err, "interpolating %s", path)
	}
	var f File
	if err := yaml.Unmarshal([]byte(text), &f); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if f.RateLimit.Window != "" {
		if _, err := ParseDuration(f.RateLimit.Window); err != nil {
			return nil, fmt.Errorf("%s: invalid rate_limit.window %q: %w", path, f.RateLimit.Window, err)
		}
	}
	return &f, nil
}

// CacheConfig assembles the remote settings with flags taking precedence over
// the environment, and the environment over base.
func CacheConfig(cmd *cobra.Command, base cache.Config) cache.Config {
	cfg := cache.ConfigFromEnv()
	if cfg.URL == "" {
		cfg.URL = base.URL
	}
	if cfg.Token == "" {
		cfg.Token = base.Token
	}
	cfg.Disabled = cfg.Disabled || base.Disabled
	if v, _ := cmd.Flags().GetString("remote-url"); v != "" {
		cfg.URL = v
	}
	if v, _ := cmd.Flags().GetString("remote-token"); v != "" {
		cfg.Token = cstr.NewMaskedString(v)
	}
	if f := cmd.Flags().Lookup("remote-disabled"); f != nil && f.Changed {
		cfg.Disabled, _ = cmd.Flags().GetBool("remote-disabled")
	}
	return cfg
}
