package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/opportunity-miner/internal/config"
	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/logging"
)

// configFlags are the persistent flags shared by every subcommand
type configFlags struct {
	configPath string
	dbURL      string
	logLevel   string
	verbose    bool
}

var globalFlags configFlags

// resolveConfig builds the effective configuration. Precedence, highest first:
// explicitly set flags, the config file, environment variables, built-in defaults.
func resolveConfig(flags configFlags, changed func(name string) bool, getenv func(string) string) (*config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides, only for flags that were explicitly set
	if changed("db-url") {
		cfg.DatabaseURL = config.ExpandPath(flags.dbURL)
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("verbose") {
		cfg.Verbose = flags.verbose
	}

	// Step 3: Environment, then defaults for anything still unset
	cfg.ApplyEnv(getenv)
	merged := cfg.MergeWithDefaults(config.Defaults())

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// loadCommandConfig resolves the config for a running command.
func loadCommandConfig(changed func(name string) bool) (*config.Config, error) {
	return resolveConfig(globalFlags, changed, os.Getenv)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// openStore connects to the configured database, creating the schema when missing.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	if err := cfg.ValidateForStore(); err != nil {
		return nil, err
	}
	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// parseKeywords accepts repeated flags, comma separated values and trailing arguments,
// trimming blanks and dropping case-insensitive duplicates.
func parseKeywords(values ...[]string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, group := range values {
		for _, v := range group {
			for _, part := range strings.Split(v, ",") {
				kw := strings.TrimSpace(part)
				if kw == "" || seen[strings.ToLower(kw)] {
					continue
				}
				seen[strings.ToLower(kw)] = true
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}
