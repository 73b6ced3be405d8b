package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
global:
  serverConnector:
    addresses: ["127.0.0.1:8081"]
    connectTimeout: 250ms
healthCheck:
  send: cafe
  receive: cafe
breaker:
  continuousErrorThreshold: 3
  enableFoo: true
`

func TestSectionNavigation(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	global := cfg.Section("global").Section("serverConnector")
	assert.Equal(t, 250*time.Millisecond, global.GetDurationOrDefault("connectTimeout", 0))
	assert.Equal(t, []string{"127.0.0.1:8081"}, global.GetStringSliceOrDefault("addresses", nil))
}

func TestGetIntOrDefault(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	breaker := cfg.Section("breaker")
	assert.Equal(t, 3, breaker.GetIntOrDefault("continuousErrorThreshold", -1))
	assert.Equal(t, 99, breaker.GetIntOrDefault("missing", 99))
}

func TestGetBoolOrDefault(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	breaker := cfg.Section("breaker")
	assert.True(t, breaker.GetBoolOrDefault("enableFoo", false))
	assert.False(t, breaker.GetBoolOrDefault("missing", false))
}

func TestSectionMissingReturnsEmpty(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	missing := cfg.Section("doesNotExist")
	assert.Equal(t, "fallback", missing.GetStringOrDefault("x", "fallback"))
}

func TestNilConfigBehavesAsEmpty(t *testing.T) {
	var cfg *Config
	assert.Equal(t, "fallback", cfg.GetStringOrDefault("x", "fallback"))
	assert.False(t, cfg.Has("x"))
	assert.Equal(t, Empty(), cfg.Section("y"))
}
