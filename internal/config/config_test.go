package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.EditWindow)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.Interval)
	assert.Equal(t, 50.0, cfg.Alerts.LowYieldThresholdKg)
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Empty(t, cfg.Gemini.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "8080")
	t.Setenv("EDIT_WINDOW", "30m")
	t.Setenv("LOW_YIELD_THRESHOLD_KG", "75.5")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PG_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.EditWindow)
	assert.Equal(t, 75.5, cfg.Alerts.LowYieldThresholdKg)
	assert.Equal(t, "key", cfg.Gemini.APIKey)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "UTC"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
