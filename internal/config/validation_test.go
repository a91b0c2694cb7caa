package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		PlatformAPIKey:       "test-api-key-1234567890",
		PlatformBaseURL:      "https://platform-api.example.com",
		PlatformTimeout:      120,
		IndexID:              "683fd1e8cee3bec0fdfe0001",
		ModelID:              "6646261c6eb563165658bbb1",
		AgentName:            "Policy Navigator v4",
		DiscordToken:         "discord-token-1234567890",
		Tools: ToolsConfig{
			Search:   ToolConfig{ID: DefaultSearchToolID},
			Scraper:  ToolConfig{ID: DefaultScraperToolID},
			Postgres: ToolConfig{ID: DefaultPostgresToolID},
		},
		MaxTurns:             10,
		MaxHistoryChars:      2000,
		TopK:                 5,
		SourceRecencyMinutes: 60,
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_NilConfig(t *testing.T) {
	var c *Config
	assert.ErrorIs(t, c.Validate(), ErrConfigNil)
}

func TestValidate_Required(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.PlatformAPIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "missing discord token",
			mutate:  func(c *Config) { c.DiscordToken = "" },
			wantErr: ErrMissingDiscordToken,
		},
		{
			name:    "missing index id",
			mutate:  func(c *Config) { c.IndexID = "" },
			wantErr: ErrMissingIndexID,
		},
		{
			name:    "missing model id",
			mutate:  func(c *Config) { c.ModelID = "" },
			wantErr: ErrMissingModelID,
		},
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.PlatformBaseURL = "ftp://example.com" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "bad seed url",
			mutate:  func(c *Config) { c.SeedURL = "not a url" },
			wantErr: ErrInvalidSeedURL,
		},
		{
			name:    "empty tool id",
			mutate:  func(c *Config) { c.Tools.Search.ID = "" },
			wantErr: ErrInvalidToolID,
		},
		{
			name:    "malformed tool params",
			mutate:  func(c *Config) { c.Tools.Search.Params = "{not json" },
			wantErr: ErrInvalidToolParams,
		},
		{
			name:    "max turns too small",
			mutate:  func(c *Config) { c.MaxTurns = 0 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "top k too large",
			mutate:  func(c *Config) { c.TopK = 100 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "timeout out of range",
			mutate:  func(c *Config) { c.PlatformTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "recency window zero",
			mutate:  func(c *Config) { c.SourceRecencyMinutes = 0 },
			wantErr: ErrInvalidRecency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestValidate_SeedURLOptional(t *testing.T) {
	cfg := validConfig()
	cfg.SeedURL = ""
	assert.NoError(t, cfg.Validate())

	cfg.SeedURL = "https://www.federalregister.gov/documents"
	assert.NoError(t, cfg.Validate())
}
