package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/fpsmon/internal/capture"
	"github.com/loykin/fpsmon/internal/logger"
)

// EnvPrefix prefixes environment overrides: capture.binary is read from
// FPSMON_CAPTURE_BINARY.
const EnvPrefix = "FPSMON"

// Config represents the top-level TOML structure.
type Config struct {
	Capture CaptureConfig `toml:"capture" mapstructure:"capture"`
	Monitor MonitorConfig `toml:"monitor" mapstructure:"monitor"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
}

type CaptureConfig struct {
	Binary      string        `toml:"binary" mapstructure:"binary"`
	DevPath     string        `toml:"dev_path" mapstructure:"dev_path"`
	ResourceDir string        `toml:"resource_dir" mapstructure:"resource_dir"`
	Log         RotatingFiles `toml:"log" mapstructure:"log"`
}

type MonitorConfig struct {
	FlushInterval time.Duration `toml:"flush_interval" mapstructure:"flush_interval"`
	StatusFrames  int           `toml:"status_frames" mapstructure:"status_frames"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type LogConfig struct {
	Level  string        `toml:"level" mapstructure:"level"`
	Format string        `toml:"format" mapstructure:"format"`
	File   RotatingFiles `toml:"file" mapstructure:"file"`
}

// RotatingFiles holds lumberjack destinations and rotation limits.
type RotatingFiles struct {
	Path       string `toml:"path" mapstructure:"path"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	Stderr     string `toml:"stderr" mapstructure:"stderr"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

func (r RotatingFiles) fileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       r.Path,
		Dir:        r.Dir,
		StderrPath: r.Stderr,
		MaxSizeMB:  r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAgeDays: r.MaxAgeDays,
		Compress:   r.Compress,
	}
}

var defaults = map[string]any{
	"capture.binary":         capture.DefaultBinary,
	"capture.dev_path":       capture.DefaultDevPath,
	"capture.resource_dir":   "",
	"capture.log.dir":        "",
	"capture.log.stderr":     "",
	"monitor.flush_interval": "1s",
	"monitor.status_frames":  60,
	"server.listen":          ":8080",
	"server.base_path":       "/api",
	"metrics.enabled":        true,
	"metrics.listen":         ":9090",
	"log.level":              "info",
	"log.format":             logger.FormatText,
	"log.file.path":          "",
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration with environment overrides
// applied.
func Default() Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults always decode; a malformed env override falls back
		return Config{
			Capture: CaptureConfig{Binary: capture.DefaultBinary, DevPath: capture.DefaultDevPath},
			Monitor: MonitorConfig{FlushInterval: time.Second, StatusFrames: 60},
			Server:  ServerConfig{Listen: ":8080", BasePath: "/api"},
			Metrics: MetricsConfig{Enabled: true, Listen: ":9090"},
			Log:     LogConfig{Level: "info", Format: logger.FormatText},
		}
	}
	return cfg
}

// Load reads a TOML file over the defaults. An empty path yields defaults
// plus environment overrides. The result is validated.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the monitor cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Monitor.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("monitor.flush_interval must be positive, got %s", c.Monitor.FlushInterval))
	}
	if c.Monitor.StatusFrames <= 0 {
		errs = append(errs, fmt.Errorf("monitor.status_frames must be positive, got %d", c.Monitor.StatusFrames))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logger.FormatText, logger.FormatJSON, logger.FormatColor:
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json, color", c.Log.Format))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the [log] section.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format, File: c.Log.File.fileConfig()}
}

// CaptureLog converts the [capture.log] section.
func (c Config) CaptureLog() logger.FileConfig { return c.Capture.Log.fileConfig() }

// Locator builds the capture binary locator.
func (c Config) Locator() capture.Locator {
	return capture.NewLocator(c.Capture.Binary, c.Capture.DevPath, c.Capture.ResourceDir)
}
