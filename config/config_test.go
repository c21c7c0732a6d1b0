package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/policy"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[server]
port = "9090"
read_timeout = "2s"

[store]
driver = "postgres"
dsn = "postgres://localhost/attendance?sslmode=disable"

[holidays]
source = "https://example.test/holidays.json"

[policy]
max_warnings = 5

[calendar]
timezone = "UTC"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout.Duration, "unset keys keep defaults")
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "https://example.test/holidays.json", cfg.Holidays.Source)
	assert.Equal(t, 5, cfg.Policy.MaxWarnings)
	assert.Equal(t, 3, cfg.Policy.OccurrencesPerWarning)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_InvalidPolicyFallsBack(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "[policy]\noccurrences_per_warning = -1\n"))
	require.NoError(t, err)
	assert.Equal(t, policy.Default(), cfg.Policy)
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := config.Load(writeFile(t, "[server\nport ="))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "[server]\nread_timeout = \"soon\"\n"))
	assert.Error(t, err)
}

func TestLocation_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Calendar.Timezone = "Mars/Olympus"
	_, err := cfg.Location()
	assert.Error(t, err)
}

func TestDuration_WithTimeout(t *testing.T) {
	// GIVEN: A zero timeout
	// WHEN: Bounding a context with it
	// THEN: The context has no deadline and is not already done
	ctx, cancel := config.Duration{}.WithTimeout(context.Background())
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.NoError(t, ctx.Err())

	ctx, cancel = config.Duration{Duration: -time.Second}.WithTimeout(context.Background())
	defer cancel()
	assert.NoError(t, ctx.Err())

	ctx, cancel = config.Duration{Duration: time.Minute}.WithTimeout(context.Background())
	defer cancel()
	_, hasDeadline = ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestLoad_ZeroHolidayTimeout(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "[holidays]\ntimeout = \"0s\"\n"))
	require.NoError(t, err)

	ctx, cancel := cfg.Holidays.Timeout.WithTimeout(context.Background())
	defer cancel()
	assert.NoError(t, ctx.Err(), "a 0s timeout must not expire immediately")
}
