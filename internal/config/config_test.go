package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3800", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "k", JWTTTL: time.Hour, BcryptCost: 10, Port: 80, StoreTimeout: time.Second, SnowflakeNode: 1}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"ttl":       func(c *Config) { c.JWTTTL = 0 },
		"cost low":  func(c *Config) { c.BcryptCost = 3 },
		"cost high": func(c *Config) { c.BcryptCost = 32 },
		"port":      func(c *Config) { c.Port = 70000 },
		"timeout":   func(c *Config) { c.StoreTimeout = 0 },
		"node":      func(c *Config) { c.SnowflakeNode = 1024 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
