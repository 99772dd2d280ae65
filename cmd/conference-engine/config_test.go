// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/conference-engine/internal/lookup"
	"github.com/pdiddy/conference-engine/pkg/types"
)

func newTestViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	configureEnv(v)
	if yamlConfig != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yamlConfig)))
	}
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, lookup.DefaultBaseURL, cfg.Lookup.BaseURL)
	assert.Equal(t, lookup.DefaultTimeout, cfg.Lookup.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Lookup.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Lookup.MaxDelay)
	assert.Equal(t, 3, cfg.Lookup.MaxRetries)
	assert.Equal(t, lookup.DefaultCandidateLimit, cfg.Lookup.CandidateLimit)
	assert.Equal(t, "conference-engine/"+version, cfg.Lookup.UserAgent)
	assert.Equal(t, types.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	v := newTestViper(t, `
lookup:
  base_url: http://localhost:9999/graph/v1
  timeout: 3s
  base_delay: 500ms
  max_retries: 5
  requests_per_second: 10
store:
  driver: pgx
  dsn: postgres://conf@localhost/conf
server:
  addr: 127.0.0.1:9090
log:
  level: debug
  format: json
`)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/graph/v1", cfg.Lookup.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Lookup.BaseDelay)
	assert.Equal(t, 5, cfg.Lookup.MaxRetries)
	assert.InDelta(t, 10.0, cfg.Lookup.RequestsPerSecond, 0.001)
	assert.Equal(t, types.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://conf@localhost/conf", cfg.Store.DSN)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFERENCE_ENGINE_LOOKUP_API_KEY", "env-key")
	t.Setenv("CONFERENCE_ENGINE_LOOKUP_TIMEOUT", "7s")
	t.Setenv("CONFERENCE_ENGINE_STORE_DSN", "/tmp/env.db")

	cfg, err := loadConfig(newTestViper(t, "lookup:\n  timeout: 3s\n"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Lookup.APIKey)
	assert.Equal(t, 7*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, "/tmp/env.db", cfg.Store.DSN)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{"unknown driver", "store:\n  driver: mysql\n", "store.driver"},
		{"zero timeout", "lookup:\n  timeout: 0s\n", "lookup.timeout"},
		{"negative retries", "lookup:\n  max_retries: -1\n", "lookup.max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(newTestViper(t, tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
