// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the conference-engine CLI.
// It serves the submission API and exposes the review operations as
// subcommands for administrators working from a shell.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/conference-engine/internal/logging"
	"github.com/pdiddy/conference-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the conference-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "conference-engine",
	Short: "Conference submission enrichment and approval pipeline",
	Long: `conference-engine accepts conference submissions, enriches every author
with reputation metrics from Semantic Scholar, classifies the conference by
research field, and holds the result for administrator review.

Approving a submission merges it into the permanent conference, paper, and
author records. Run "serve" for the HTTP API, or use the review subcommands
directly against the database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./conference-engine.yaml or ~/.config/conference-engine/config.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "auto", "log format: text, json, auto")
	pf.String("db-driver", string(defaultDriver), "database driver: sqlite3 or pgx")
	pf.String("db-dsn", "", "sqlite file path or postgres connection string")

	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.format", pf.Lookup("log-format"))
	mustBind("store.driver", pf.Lookup("db-driver"))
	mustBind("store.dsn", pf.Lookup("db-dsn"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("conference-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "conference-engine"))
		}
	}

	setDefaults(viper.GetViper())
	configureEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
