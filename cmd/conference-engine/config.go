// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/conference-engine/internal/lookup"
	"github.com/pdiddy/conference-engine/pkg/types"
)

const defaultDriver = types.DriverSQLite

// setDefaults registers every configuration key so that environment
// variables are seen by Unmarshal even when no config file sets them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("lookup.base_url", lookup.DefaultBaseURL)
	v.SetDefault("lookup.api_key", "")
	v.SetDefault("lookup.timeout", lookup.DefaultTimeout)
	v.SetDefault("lookup.user_agent", "conference-engine/"+version)
	v.SetDefault("lookup.base_delay", 2*time.Second)
	v.SetDefault("lookup.max_delay", 30*time.Second)
	v.SetDefault("lookup.max_retries", 3)
	v.SetDefault("lookup.candidate_limit", lookup.DefaultCandidateLimit)
	v.SetDefault("lookup.requests_per_second", 1.0)

	v.SetDefault("store.driver", string(defaultDriver))
	v.SetDefault("store.dsn", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// configureEnv maps CONFERENCE_ENGINE_LOOKUP_API_KEY style variables onto
// dotted keys.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("CONFERENCE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig decodes v into a Config and checks the values no component
// can default on its own.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	switch cfg.Store.Driver {
	case types.DriverSQLite, types.DriverPostgres:
	default:
		return types.Config{}, fmt.Errorf("config: store.driver must be %s or %s, got %q",
			types.DriverSQLite, types.DriverPostgres, cfg.Store.Driver)
	}
	if cfg.Lookup.Timeout <= 0 {
		return types.Config{}, fmt.Errorf("config: lookup.timeout must be positive, got %s", cfg.Lookup.Timeout)
	}
	if cfg.Lookup.MaxRetries < 0 {
		return types.Config{}, fmt.Errorf("config: lookup.max_retries must not be negative, got %d", cfg.Lookup.MaxRetries)
	}
	return cfg, nil
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
