package config

import (
	"encoding/json"
	"fmt"
)

// Default platform model IDs for the three recognized agent tools. These
// are the platform's published identifiers and can be overridden per
// deployment via SEARCH_TOOL_ID / SCRAPER_TOOL_ID / POSTGRES_TOOL_ID.
const (
	DefaultSearchToolID   = "6736411cf127849667606689"
	DefaultScraperToolID  = "66f423426eb563fa213a3531"
	DefaultPostgresToolID = "684ae26dcee3bec0fdfe26d6"
)

// ToolsConfig enumerates the recognized tool identifiers and their roles.
// The set is fixed: web search, page scraping and SQL lookup. The agent
// package attaches whichever of these resolve on the platform.
type ToolsConfig struct {
	Search   ToolConfig `mapstructure:"search" json:"search"`
	Scraper  ToolConfig `mapstructure:"scraper" json:"scraper"`
	Postgres ToolConfig `mapstructure:"postgres" json:"postgres"`
}

// ToolConfig holds one platform tool identifier plus optional call
// parameters supplied as a JSON object string (e.g. `{"numResults":7}`).
type ToolConfig struct {
	ID     string `mapstructure:"id" json:"id"`
	Params string `mapstructure:"params" json:"params"`
}

// ParamsMap decodes the Params JSON into a map, merged over fallback.
// Invalid or empty JSON yields a copy of fallback, matching the lenient
// behavior the bot has always had for malformed tool params.
func (t ToolConfig) ParamsMap(fallback map[string]any) map[string]any {
	out := make(map[string]any, len(fallback))
	for k, v := range fallback {
		out[k] = v
	}
	if t.Params == "" {
		return out
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(t.Params), &parsed); err != nil {
		return out
	}
	for k, v := range parsed {
		out[k] = v
	}
	return out
}

// Validate checks that every configured tool has an identifier.
func (tc ToolsConfig) Validate() error {
	for name, tool := range map[string]ToolConfig{
		"search":   tc.Search,
		"scraper":  tc.Scraper,
		"postgres": tc.Postgres,
	} {
		if tool.ID == "" {
			return fmt.Errorf("%w: %s tool id is empty", ErrInvalidToolID, name)
		}
		if tool.Params != "" && !json.Valid([]byte(tool.Params)) {
			// Malformed params fall back to defaults at call time, but
			// warn early via validation so typos are caught at startup.
			return fmt.Errorf("%w: %s tool params is not valid JSON", ErrInvalidToolParams, name)
		}
	}
	return nil
}
