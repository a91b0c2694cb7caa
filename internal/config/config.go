// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, the primary source in
//     deployment; the bot is configured almost entirely through env)
//  2. Config file (./config.yaml or ~/.policynav/config.yaml)
//  3. Default values
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
//
// Security: secrets (platform API key, Discord token) are masked in
// MarshalJSON and String.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxTurns is the FIFO bound on recorded turns per session.
	DefaultMaxTurns = 10

	// DefaultMaxHistoryChars caps the rendered transcript injected into
	// an agent run.
	DefaultMaxHistoryChars = 2000

	// DefaultTopK is the number of index chunks retrieved per question.
	DefaultTopK = 5

	// DefaultSourceRecencyMinutes bounds which ingested sources are
	// considered "recent" for context biasing.
	DefaultSourceRecencyMinutes = 60

	// DefaultPlatformBaseURL is the hosted agent platform endpoint.
	DefaultPlatformBaseURL = "https://platform-api.aixplain.com"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (tokens, API keys), update MarshalJSON.
type Config struct {
	// Platform connection
	PlatformAPIKey  string `mapstructure:"platform_api_key" json:"platform_api_key"` // SENSITIVE: masked in MarshalJSON
	PlatformBaseURL string `mapstructure:"platform_base_url" json:"platform_base_url"`
	PlatformTimeout int    `mapstructure:"platform_timeout_seconds" json:"platform_timeout_seconds"`

	// Managed index and agent identifiers on the platform
	IndexID     string `mapstructure:"index_id" json:"index_id"`
	AgentID     string `mapstructure:"agent_id" json:"agent_id"` // empty = create a new agent at startup
	AgentName   string `mapstructure:"agent_name" json:"agent_name"`
	ModelID     string `mapstructure:"model_id" json:"model_id"`
	DeployAgent bool   `mapstructure:"deploy_agent" json:"deploy_agent"`

	// Tool configuration (see tools.go for type definitions)
	Tools ToolsConfig `mapstructure:"tools" json:"tools"`

	// Discord configuration
	DiscordToken  string `mapstructure:"discord_token" json:"discord_token"` // SENSITIVE: masked in MarshalJSON
	GuildID       string `mapstructure:"guild_id" json:"guild_id"`           // empty = register commands globally
	CommandPrefix string `mapstructure:"command_prefix" json:"command_prefix"`

	// Ingestion configuration
	DataDir             string        `mapstructure:"data_dir" json:"data_dir"`
	SeedURL             string        `mapstructure:"seed_url" json:"seed_url"`
	KaggleDatasetID     string        `mapstructure:"kaggle_dataset_id" json:"kaggle_dataset_id"`
	WebBackfill         bool          `mapstructure:"web_backfill" json:"web_backfill"`
	AllowGeneralAnswers bool          `mapstructure:"allow_general_answers" json:"allow_general_answers"`
	WatchDataDir        bool          `mapstructure:"watch_data_dir" json:"watch_data_dir"`
	Scraper             ScraperConfig `mapstructure:"scraper" json:"scraper"`

	// Conversation memory configuration
	MaxTurns             int `mapstructure:"max_turns" json:"max_turns"`
	MaxHistoryChars      int `mapstructure:"max_history_chars" json:"max_history_chars"`
	TopK                 int `mapstructure:"top_k" json:"top_k"`
	SourceRecencyMinutes int `mapstructure:"source_recency_minutes" json:"source_recency_minutes"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// ScraperConfig bounds the optional seed-URL backfill crawl.
type ScraperConfig struct {
	MaxPages    int `mapstructure:"max_pages" json:"max_pages"`
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	DelayMS     int `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMS   int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// Delay returns the per-domain crawl delay as a Duration.
func (s ScraperConfig) Delay() time.Duration {
	return time.Duration(s.DelayMS) * time.Millisecond
}

// Timeout returns the per-request crawl timeout as a Duration.
func (s ScraperConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".policynav"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error; env + defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using environment and defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("platform_base_url", DefaultPlatformBaseURL)
	v.SetDefault("platform_timeout_seconds", 120)

	v.SetDefault("agent_name", "Policy Navigator v4")
	v.SetDefault("deploy_agent", true)

	// Tool defaults match the platform's published model IDs for
	// web search, page scraping and SQL lookup.
	v.SetDefault("tools.search.id", DefaultSearchToolID)
	v.SetDefault("tools.scraper.id", DefaultScraperToolID)
	v.SetDefault("tools.postgres.id", DefaultPostgresToolID)

	v.SetDefault("command_prefix", "!")

	v.SetDefault("data_dir", "data")
	v.SetDefault("web_backfill", false)
	v.SetDefault("allow_general_answers", true)
	v.SetDefault("watch_data_dir", false)
	v.SetDefault("scraper.max_pages", 3)
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 1000)
	v.SetDefault("scraper.timeout_ms", 30000)

	v.SetDefault("max_turns", DefaultMaxTurns)
	v.SetDefault("max_history_chars", DefaultMaxHistoryChars)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("source_recency_minutes", DefaultSourceRecencyMinutes)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly. The names match
// the deployment environment the bot has always been configured with.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't
	// fail). A panic here is a bug in this file, not a runtime error.
	mustBind := func(key string, envVars ...string) {
		args := append([]string{key}, envVars...)
		if err := v.BindEnv(args...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	mustBind("platform_api_key", "TEAM_API_KEY", "PLATFORM_API_KEY")
	mustBind("platform_base_url", "PLATFORM_BASE_URL")
	mustBind("index_id", "INDEX_ID")
	mustBind("agent_id", "AGENT_ID")
	mustBind("agent_name", "AGENT_NAME")
	mustBind("model_id", "LLM_ID")
	mustBind("deploy_agent", "DEPLOY_AGENT")

	mustBind("tools.search.id", "SEARCH_TOOL_ID")
	mustBind("tools.search.params", "SEARCH_TOOL_PARAMS")
	mustBind("tools.scraper.id", "SCRAPER_TOOL_ID")
	mustBind("tools.scraper.params", "WEBREADER_TOOL_PARAMS")
	mustBind("tools.postgres.id", "POSTGRES_TOOL_ID")
	mustBind("tools.postgres.params", "POSTGRES_TOOL_PARAMS")

	mustBind("discord_token", "DISCORD_TOKEN")
	mustBind("guild_id", "GUILD_ID")

	mustBind("data_dir", "DATA_DIR")
	mustBind("seed_url", "SEED_URL")
	mustBind("kaggle_dataset_id", "KAGGLE_DATASET_ID")
	mustBind("web_backfill", "WEB_BACKFILL")
	mustBind("allow_general_answers", "ALLOW_GENERAL_ANSWERS")
	mustBind("watch_data_dir", "WATCH_DATA_DIR")

	mustBind("log_level", "LOG_LEVEL")
	mustBind("log_json", "LOG_JSON")
}

// PlatformHTTPTimeout returns the platform client timeout as a Duration.
func (c *Config) PlatformHTTPTimeout() time.Duration {
	return time.Duration(c.PlatformTimeout) * time.Second
}

// SourceRecencyWindow returns the recency window for session sources.
func (c *Config) SourceRecencyWindow() time.Duration {
	return time.Duration(c.SourceRecencyMinutes) * time.Minute
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked to prevent substring matching; longer secrets keep
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PlatformAPIKey = maskSecret(a.PlatformAPIKey)
	a.DiscordToken = maskSecret(a.DiscordToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
