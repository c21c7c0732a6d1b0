// Package config loads server configuration from a TOML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/warp/attendance-engine/policy"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig     `toml:"server"`
	Store    StoreConfig      `toml:"store"`
	Holidays HolidayConfig    `toml:"holidays"`
	Policy   policy.Constants `toml:"policy"`
	Metrics  MetricsConfig    `toml:"metrics"`
	Calendar CalendarConfig   `toml:"calendar"`
}

type ServerConfig struct {
	Port            string   `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type StoreConfig struct {
	Driver string `toml:"driver"` // sqlite3 or postgres
	DSN    string `toml:"dsn"`
}

// HolidayConfig names the holiday document. Source is a file path, an
// http(s) URL, or "db" to read the holiday table.
type HolidayConfig struct {
	Source        string   `toml:"source"`
	Timeout       Duration `toml:"timeout"`
	RetryInterval Duration `toml:"retry_interval"` // 0 disables retries
}

type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Namespace string `toml:"namespace"`
}

type CalendarConfig struct {
	Timezone string `toml:"timezone"` // IANA name, "" = local
}

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// WithTimeout bounds ctx by d. A non-positive d leaves ctx without a deadline.
func (d Duration) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Duration <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Duration)
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     Duration{10 * time.Second},
			WriteTimeout:    Duration{10 * time.Second},
			ShutdownTimeout: Duration{5 * time.Second},
			AllowedOrigins:  []string{"*"},
		},
		Store: StoreConfig{
			Driver: "sqlite3",
			DSN:    "./data/attendance.db",
		},
		Holidays: HolidayConfig{
			Source:        "./data/holidays.json",
			Timeout:       Duration{5 * time.Second},
			RetryInterval: Duration{5 * time.Minute},
		},
		Policy: policy.Default(),
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "attendance",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	cfg.Policy = cfg.Policy.WithDefaults()
	return cfg, nil
}

// Location resolves the calendar timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Calendar.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Calendar.Timezone, err)
	}
	return loc, nil
}
