// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	assert.NoError(t, err)

	assert.True(t, cfg.Database.AutoSeed)
	assert.Equal(t, "silent", cfg.Database.LogLevel)
}

func TestAutoSeedDisabledByEnv(t *testing.T) {
	t.Setenv("DB_AUTO_SEED", "false")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.False(t, cfg.Database.AutoSeed)
}

func TestGetEnvAsBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("DB_AUTO_SEED", "maybe")

	assert.True(t, getEnvAsBool("DB_AUTO_SEED", true))
	assert.False(t, getEnvAsBool("DB_AUTO_SEED", false))
}
