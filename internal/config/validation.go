package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Sentinel errors for configuration validation.
// Check with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the platform API key is missing.
	ErrMissingAPIKey = errors.New("missing platform API key")

	// ErrMissingDiscordToken indicates the Discord bot token is missing.
	ErrMissingDiscordToken = errors.New("missing Discord token")

	// ErrMissingIndexID indicates the platform index id is missing.
	ErrMissingIndexID = errors.New("missing index id")

	// ErrMissingModelID indicates the platform model id is missing.
	ErrMissingModelID = errors.New("missing model id")

	// ErrInvalidBaseURL indicates the platform base URL is malformed.
	ErrInvalidBaseURL = errors.New("invalid platform base URL")

	// ErrInvalidToolID indicates a tool identifier is empty.
	ErrInvalidToolID = errors.New("invalid tool id")

	// ErrInvalidToolParams indicates tool params are not valid JSON.
	ErrInvalidToolParams = errors.New("invalid tool params")

	// ErrInvalidSeedURL indicates the seed URL is malformed.
	ErrInvalidSeedURL = errors.New("invalid seed URL")

	// ErrInvalidMaxTurns indicates the turn bound is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top k")

	// ErrInvalidTimeout indicates the platform timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid platform timeout")

	// ErrInvalidRecency indicates the source recency window is invalid.
	ErrInvalidRecency = errors.New("invalid source recency window")
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
// Configuration errors are fatal at startup; nothing here is recoverable.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.PlatformAPIKey == "" {
		return fmt.Errorf("%w: set TEAM_API_KEY in the environment", ErrMissingAPIKey)
	}
	if c.DiscordToken == "" {
		return fmt.Errorf("%w: set DISCORD_TOKEN in the environment", ErrMissingDiscordToken)
	}
	if c.IndexID == "" {
		return fmt.Errorf("%w: set INDEX_ID in the environment", ErrMissingIndexID)
	}
	if c.ModelID == "" {
		return fmt.Errorf("%w: set LLM_ID in the environment", ErrMissingModelID)
	}

	if err := validateHTTPURL(c.PlatformBaseURL); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.PlatformBaseURL)
	}
	if c.SeedURL != "" {
		if err := validateHTTPURL(c.SeedURL); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSeedURL, c.SeedURL)
		}
	}

	if err := c.Tools.Validate(); err != nil {
		return err
	}

	if c.MaxTurns < 1 || c.MaxTurns > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.TopK)
	}
	if c.PlatformTimeout < 1 || c.PlatformTimeout > 600 {
		return fmt.Errorf("%w: must be between 1 and 600 seconds, got %d", ErrInvalidTimeout, c.PlatformTimeout)
	}
	if c.SourceRecencyMinutes < 1 {
		return fmt.Errorf("%w: must be at least 1 minute, got %d", ErrInvalidRecency, c.SourceRecencyMinutes)
	}

	return nil
}

// validateHTTPURL checks that s parses as an absolute http(s) URL.
func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
