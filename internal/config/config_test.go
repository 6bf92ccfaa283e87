package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/distroflow/internal/engine"
)

func TestBuildDefaults(t *testing.T) {
	cfg := build(viper.New())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 90, cfg.App.DefaultLookbackDays)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, engine.DefaultParams(), cfg.Engine)
	require.NoError(t, cfg.Engine.Validate())
}

func TestBuildEngineOverrides(t *testing.T) {
	t.Setenv("ENGINE_OVERSTOCK_WEEKS", "16")
	t.Setenv("ENGINE_MODE", "weeks")
	t.Setenv("ENGINE_DAMPING", "0.85")
	t.Setenv("ENGINE_MIN_REP_VISITS", "3")
	t.Setenv("ENGINE_MAX_HORIZON", "52")

	cfg := build(viper.New())

	assert.Equal(t, 16.0, cfg.Engine.OverstockWeeks)
	assert.Equal(t, engine.ModeWeeks, cfg.Engine.Mode)
	assert.Equal(t, 0.85, cfg.Engine.Damping)
	assert.Equal(t, 3, cfg.Engine.MinRepVisits)
	assert.Equal(t, 52, cfg.Engine.MaxHorizon)
	assert.Equal(t, 4.0, cfg.Engine.UnderstockWeeks)
}

func TestBuildStorageAndCache(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("STORAGE_ENDPOINT", "minio:9000")
	t.Setenv("STORAGE_USE_SSL", "false")

	cfg := build(viper.New())

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Cache.RedisURL)
	assert.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, "distroflow-snapshots", cfg.Storage.Bucket)
}
