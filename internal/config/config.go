// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Default values applied by MergeWithDefaults.
const (
	DefaultModel             = "gemini-2.0-flash"
	DefaultRedditBaseURL     = "https://oauth.reddit.com"
	DefaultRedditAuthURL     = "https://www.reddit.com/api/v1/access_token"
	DefaultHistoricalURL     = "https://api.pushshift.io/reddit/search/submission"
	DefaultRequestsPerMinute = 60
	DefaultPageSize          = 100
	DefaultHistoricalLimit   = 100
	DefaultCommentLimit      = 20
	DefaultMinComments       = 5
	DefaultBatchDelay        = 2 * time.Second
	DefaultCooldown          = time.Minute
	DefaultDatabaseURL       = "opportunities.db"
	DefaultLogLevel          = "info"
)

// Config represents the CLI configuration that can be loaded from a JSON or TOML file.
// All fields are optional in the file; missing values use defaults, CLI flags or environment variables.
type Config struct {
	// Credentials
	GeminiAPIKey       string `json:"gemini_api_key,omitempty" toml:"gemini_api_key"`
	RedditClientID     string `json:"reddit_client_id,omitempty" toml:"reddit_client_id"`
	RedditClientSecret string `json:"reddit_client_secret,omitempty" toml:"reddit_client_secret"`
	RedditUserAgent    string `json:"reddit_user_agent,omitempty" toml:"reddit_user_agent"`

	// Endpoints
	Model             string `json:"model,omitempty" toml:"model"`
	RedditBaseURL     string `json:"reddit_base_url,omitempty" toml:"reddit_base_url" validate:"omitempty,url"`
	RedditAuthURL     string `json:"reddit_auth_url,omitempty" toml:"reddit_auth_url" validate:"omitempty,url"`
	HistoricalURL     string `json:"historical_url,omitempty" toml:"historical_url" validate:"omitempty,url"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty" toml:"requests_per_minute" validate:"gte=0"`
	DatabaseURL       string `json:"database_url,omitempty" toml:"database_url"` // postgres:// URL or SQLite file path

	// Batch tuning
	PageSize        int      `json:"page_size,omitempty" toml:"page_size" validate:"gte=0,lte=100"`
	HistoricalLimit int      `json:"historical_limit,omitempty" toml:"historical_limit" validate:"gte=0,lte=1000"`
	CommentLimit    int      `json:"comment_limit,omitempty" toml:"comment_limit" validate:"gte=0"`
	MinComments     int      `json:"min_comments,omitempty" toml:"min_comments" validate:"gte=0"`
	BatchDelay      Duration `json:"batch_delay,omitempty" toml:"batch_delay" validate:"gte=0"`
	Cooldown        Duration `json:"cooldown,omitempty" toml:"cooldown" validate:"gte=0"`
	Retry           Retry    `json:"retry,omitempty" toml:"retry"`

	// Behavior
	LogLevel string `json:"log_level,omitempty" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Verbose  bool   `json:"verbose,omitempty" toml:"verbose"`
}

// Retry configures the bounded exponential backoff applied to data source fetches.
type Retry struct {
	MaxAttempts  int      `json:"max_attempts,omitempty" toml:"max_attempts" validate:"gte=0"`
	InitialDelay Duration `json:"initial_delay,omitempty" toml:"initial_delay" validate:"gte=0"`
	MaxDelay     Duration `json:"max_delay,omitempty" toml:"max_delay" validate:"gte=0"`
	Multiplier   float64  `json:"multiplier,omitempty" toml:"multiplier" validate:"gte=0"`
	Jitter       *bool    `json:"jitter,omitempty" toml:"jitter"` // nil means default (on)
}

// JitterEnabled reports whether jitter is on, treating unset as on.
func (r Retry) JitterEnabled() bool {
	return r.Jitter == nil || *r.Jitter
}

// Duration is a time.Duration that reads and writes as a Go duration string ("2s", "1m").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Defaults returns the built-in defaults.
func Defaults() Config {
	jitter := true
	return Config{
		Model:             DefaultModel,
		RedditBaseURL:     DefaultRedditBaseURL,
		RedditAuthURL:     DefaultRedditAuthURL,
		HistoricalURL:     DefaultHistoricalURL,
		RequestsPerMinute: DefaultRequestsPerMinute,
		DatabaseURL:       DefaultDatabaseURL,
		PageSize:          DefaultPageSize,
		HistoricalLimit:   DefaultHistoricalLimit,
		CommentLimit:      DefaultCommentLimit,
		MinComments:       DefaultMinComments,
		BatchDelay:        Duration(DefaultBatchDelay),
		Cooldown:          Duration(DefaultCooldown),
		Retry: Retry{
			MaxAttempts:  4,
			InitialDelay: Duration(2 * time.Second),
			MaxDelay:     Duration(30 * time.Second),
			Multiplier:   2,
			Jitter:       &jitter,
		},
		LogLevel: DefaultLogLevel,
	}
}

// LoadConfig loads configuration from a JSON or TOML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	path = ExpandPath(path)

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.DatabaseURL = ExpandPath(cfg.DatabaseURL)
	return &cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required credentials; see ValidateForRun and ValidateForStore.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Retry.MaxDelay > 0 && c.Retry.InitialDelay > c.Retry.MaxDelay {
		return fmt.Errorf("config error: 'retry.initial_delay' must not exceed 'retry.max_delay'")
	}
	return nil
}

// ValidateForRun checks everything a mining run needs, including all credentials.
func (c *Config) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.RedditClientID == "" {
		missing = append(missing, "REDDIT_CLIENT_ID")
	}
	if c.RedditClientSecret == "" {
		missing = append(missing, "REDDIT_CLIENT_SECRET")
	}
	if c.RedditUserAgent == "" {
		missing = append(missing, "REDDIT_USER_AGENT")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config error: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateForStore checks what commands that only touch the store need.
func (c *Config) ValidateForStore() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: missing required settings: DATABASE_URL")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.RedditClientID == "" {
		result.RedditClientID = defaults.RedditClientID
	}
	if result.RedditClientSecret == "" {
		result.RedditClientSecret = defaults.RedditClientSecret
	}
	if result.RedditUserAgent == "" {
		result.RedditUserAgent = defaults.RedditUserAgent
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.RedditBaseURL == "" {
		result.RedditBaseURL = defaults.RedditBaseURL
	}
	if result.RedditAuthURL == "" {
		result.RedditAuthURL = defaults.RedditAuthURL
	}
	if result.HistoricalURL == "" {
		result.HistoricalURL = defaults.HistoricalURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Int fields: use default if zero
	if result.RequestsPerMinute == 0 {
		result.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if result.PageSize == 0 {
		result.PageSize = defaults.PageSize
	}
	if result.HistoricalLimit == 0 {
		result.HistoricalLimit = defaults.HistoricalLimit
	}
	if result.CommentLimit == 0 {
		result.CommentLimit = defaults.CommentLimit
	}
	if result.MinComments == 0 {
		result.MinComments = defaults.MinComments
	}

	// Durations
	if result.BatchDelay == 0 {
		result.BatchDelay = defaults.BatchDelay
	}
	if result.Cooldown == 0 {
		result.Cooldown = defaults.Cooldown
	}

	// Retry
	if result.Retry.MaxAttempts == 0 {
		result.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if result.Retry.InitialDelay == 0 {
		result.Retry.InitialDelay = defaults.Retry.InitialDelay
	}
	if result.Retry.MaxDelay == 0 {
		result.Retry.MaxDelay = defaults.Retry.MaxDelay
	}
	if result.Retry.Multiplier == 0 {
		result.Retry.Multiplier = defaults.Retry.Multiplier
	}
	if result.Retry.Jitter == nil {
		result.Retry.Jitter = defaults.Retry.Jitter
	}

	// Verbose: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv fills empty credential fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = getenv("GEMINI_API_KEY")
	}
	if c.RedditClientID == "" {
		c.RedditClientID = getenv("REDDIT_CLIENT_ID")
	}
	if c.RedditClientSecret == "" {
		c.RedditClientSecret = getenv("REDDIT_CLIENT_SECRET")
	}
	if c.RedditUserAgent == "" {
		c.RedditUserAgent = getenv("REDDIT_USER_AGENT")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
}
