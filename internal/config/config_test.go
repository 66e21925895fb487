package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.JWTExpirationHours)
	assert.Equal(t, "gemini-2.0-flash-001", cfg.GeminiModel)
	assert.False(t, cfg.AllowRegistration)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", " Postgres ")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/dokan")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOW_REGISTRATION", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://u:p@localhost:5432/dokan", cfg.DBDSN)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.AllowRegistration)
	assert.True(t, cfg.IsProduction())
}

func TestOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: "http://a.test, ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}
