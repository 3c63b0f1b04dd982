package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ALLOWED_ORIGINS", "EVICT_AFTER", "SEND_BUFFER", "RATE_LIMIT", "RATE_BURST", "LOG_LEVEL", "LOG_FORMAT", "GIN_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Parse([]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://poker.example.com,")
	t.Setenv("EVICT_AFTER", "90s")
	t.Setenv("SEND_BUFFER", "8")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse([]string{})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://poker.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.EvictAfter)
	assert.Equal(t, 8, cfg.SendBuffer)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParse_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EVICT_AFTER", "90s")

	cfg, err := Parse([]string{"-p", "8081", "-evict-after", "2m", "-origins", "http://a"})
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.EvictAfter)
	assert.Equal(t, []string{"http://a"}, cfg.AllowedOrigins)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad port env", map[string]string{"PORT": "eighty"}, nil},
		{"port out of range", nil, []string{"-p", "70000"}},
		{"bad duration env", map[string]string{"EVICT_AFTER": "soon"}, nil},
		{"negative eviction", nil, []string{"-evict-after", "-1m"}},
		{"bad log format", nil, []string{"-log-format", "xml"}},
		{"unknown flag", nil, []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse(tt.args)
			assert.Error(t, err)
		})
	}
}
