// Package agent assembles the hosted agent definition and adapts user
// questions into platform agent runs.
//
// The platform owns the agent loop (tool selection, retrieval-augmented
// synthesis); this package only ensures the agent exists, builds the
// context block from local session state plus index search results, and
// formats the platform's response for display. On platform failure the
// error is surfaced as-is; no answer is ever synthesized locally.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/policynav/policynav/internal/config"
	"github.com/policynav/policynav/internal/log"
	"github.com/policynav/policynav/internal/platform"
	"github.com/policynav/policynav/internal/session"
)

// noContextMessage is returned when general answers are disabled and
// nothing relevant was retrieved. This is a policy gate, not a fallback
// answer: the platform is simply not asked.
const noContextMessage = "I don't have any indexed documents relevant to that question. " +
	"Add a source with /add and ask again."

// PlatformClient is the slice of the platform API the navigator consumes.
type PlatformClient interface {
	GetModel(ctx context.Context, id string) (*platform.Model, error)
	GetAgent(ctx context.Context, id string) (*platform.Agent, error)
	CreateAgent(ctx context.Context, def platform.AgentDefinition) (*platform.Agent, error)
	DeployAgent(ctx context.Context, id string) error
	RunAgent(ctx context.Context, req platform.RunRequest) (*platform.RunResponse, error)
	Search(ctx context.Context, indexID, query string, topK int) ([]platform.SearchResult, error)
}

// Config contains all required parameters for the Navigator.
type Config struct {
	Client   PlatformClient
	Sessions *session.Store
	Logger   log.Logger

	// Platform identifiers
	AgentID string // empty = create a new agent during Ensure
	IndexID string
	ModelID string

	// Definition parameters
	AgentName string
	Tools     config.ToolsConfig
	Deploy    bool

	// Context assembly
	TopK                int
	MaxHistoryChars     int
	SourceWindow        time.Duration
	AllowGeneralAnswers bool
}

// validate checks required parameters.
func (cfg Config) validate() error {
	if cfg.Client == nil {
		return errors.New("platform client is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.IndexID == "" {
		return errors.New("index id is required")
	}
	if cfg.ModelID == "" {
		return errors.New("model id is required")
	}
	return nil
}

// Navigator answers questions through the hosted agent.
//
// Configuration is captured immutably at construction; the only mutable
// state is the resolved agent id, set once by Ensure.
type Navigator struct {
	client   PlatformClient
	sessions *session.Store
	logger   log.Logger

	indexID string
	modelID string
	name    string
	tools   config.ToolsConfig
	deploy  bool

	topK            int
	maxHistoryChars int
	sourceWindow    time.Duration
	allowGeneral    bool

	mu      sync.Mutex
	agentID string
}

// New creates a Navigator. Call Ensure before Answer.
func New(cfg Config) (*Navigator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	return &Navigator{
		client:          cfg.Client,
		sessions:        cfg.Sessions,
		logger:          cfg.Logger,
		indexID:         cfg.IndexID,
		modelID:         cfg.ModelID,
		name:            cfg.AgentName,
		tools:           cfg.Tools,
		deploy:          cfg.Deploy,
		agentID:         cfg.AgentID,
		topK:            topK,
		maxHistoryChars: cfg.MaxHistoryChars,
		sourceWindow:    cfg.SourceWindow,
		allowGeneral:    cfg.AllowGeneralAnswers,
	}, nil
}

// resolveTools checks each configured tool against the platform and
// returns specs for those that exist. A tool that fails to resolve is
// logged and skipped, so one stale tool id degrades the agent instead of
// blocking its creation.
func (n *Navigator) resolveTools(ctx context.Context) []platform.ToolSpec {
	candidates := []struct {
		name     string
		tool     config.ToolConfig
		desc     string
		defaults map[string]any
	}{
		{"search", n.tools.Search, searchToolDescription, map[string]any{"numResults": 7}},
		{"scraper", n.tools.Scraper, scraperToolDescription, map[string]any{"max_pages": 1}},
		{"postgres", n.tools.Postgres, postgresToolDescription, nil},
	}

	specs := make([]platform.ToolSpec, 0, len(candidates))
	for _, c := range candidates {
		if _, err := n.client.GetModel(ctx, c.tool.ID); err != nil {
			n.logger.Warn("could not attach tool, skipping", "tool", c.name, "id", c.tool.ID, "error", err)
			continue
		}
		specs = append(specs, platform.ToolSpec{
			ModelID:     c.tool.ID,
			Description: c.desc,
			Params:      c.tool.ParamsMap(c.defaults),
		})
		n.logger.Info("attached tool", "tool", c.name, "id", c.tool.ID)
	}
	return specs
}

// definition builds the immutable agent blueprint around the resolved
// tools.
func (n *Navigator) definition(tools []platform.ToolSpec) platform.AgentDefinition {
	return platform.AgentDefinition{
		Name:         n.name,
		Description:  Description,
		Instructions: instructions,
		ModelID:      n.modelID,
		Tools:        tools,
	}
}

// Ensure resolves the agent: load by id when configured, otherwise create
// from the definition and, when the deploy flag is set, deploy it.
// Deploy failure is logged and tolerated; the agent still runs undeployed.
func (n *Navigator) Ensure(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.agentID != "" {
		agent, err := n.client.GetAgent(ctx, n.agentID)
		if err != nil {
			return fmt.Errorf("loading agent %s: %w", n.agentID, err)
		}
		n.logger.Info("loaded existing agent", "id", agent.ID, "name", agent.Name, "status", agent.Status)
		return nil
	}

	tools := n.resolveTools(ctx)
	n.logger.Info("creating agent", "name", n.name, "tools", len(tools))
	agent, err := n.client.CreateAgent(ctx, n.definition(tools))
	if err != nil {
		return fmt.Errorf("creating agent %q: %w", n.name, err)
	}
	n.agentID = agent.ID
	n.logger.Info("agent created", "id", agent.ID, "name", agent.Name)

	if n.deploy {
		if err := n.client.DeployAgent(ctx, agent.ID); err != nil {
			n.logger.Warn("agent deploy failed, continuing undeployed", "id", agent.ID, "error", err)
		} else {
			n.logger.Info("agent deployed, save this id in the environment", "id", agent.ID)
		}
	}
	return nil
}

// AgentID returns the resolved agent id ("" before Ensure creates one).
func (n *Navigator) AgentID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.agentID
}

// detailSuffix is appended to the platform query when the user asked for
// a detailed answer.
const detailSuffix = "\n\nProvide a detailed answer with relevant excerpts and citations."

// Answer runs one question through the hosted agent and records the turn.
// The detail flag requests a longer answer with excerpts.
//
// Index retrieval is best effort: a search failure degrades to an empty
// context and the question still reaches the agent. A run failure is
// returned as-is with session state unchanged. Exactly one turn is
// appended per successful answer, zero per failed one.
func (n *Navigator) Answer(ctx context.Context, sessionID, query string, detail bool) (*Reply, error) {
	agentID := n.AgentID()
	if agentID == "" {
		return nil, errors.New("agent not initialized: call Ensure first")
	}

	results, err := n.client.Search(ctx, n.indexID, query, n.topK)
	if err != nil {
		n.logger.Warn("index retrieval failed, continuing without context", "error", err)
		results = nil
	}

	contextBlock, hasContext, sources := n.buildContext(sessionID, results)

	if !hasContext && !n.allowGeneral {
		reply := &Reply{Answer: noContextMessage}
		n.sessions.Record(sessionID, query, reply.Answer)
		return reply, nil
	}

	platformQuery := query
	if detail {
		platformQuery += detailSuffix
	}
	resp, err := n.client.RunAgent(ctx, platform.RunRequest{
		AgentID:   agentID,
		Query:     platformQuery,
		Context:   contextBlock,
		SessionID: n.sessions.ConversationID(sessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("agent run failed: %w", err)
	}
	if resp.SessionID != "" {
		n.sessions.SetConversationID(sessionID, resp.SessionID)
	}

	reply := parseReply(resp, sources)
	n.sessions.Record(sessionID, query, reply.Answer)
	n.logger.Info("answered",
		"session", sessionID,
		"sources", len(reply.Sources),
		"answer_chars", len(reply.Answer),
	)
	return reply, nil
}

// buildContext assembles the context block the agent reads: conversation
// history, recently ingested source labels, and retrieved chunks joined by
// separators. hasContext reports whether any retrieval hit or recent
// source contributed; conversation history alone does not count. The
// returned labels feed the reply footer, retrieval results first.
func (n *Navigator) buildContext(sessionID string, results []platform.SearchResult) (block string, hasContext bool, sources []string) {
	var sections []string
	seen := make(map[string]bool)

	addSource := func(label string) {
		if label != "" && !seen[label] {
			seen[label] = true
			sources = append(sources, label)
		}
	}

	if history := n.sessions.History(sessionID, n.maxHistoryChars); history != "" {
		sections = append(sections, "Conversation so far:\n"+history)
	}

	recent := n.sessions.RecentSources(sessionID, n.sourceWindow)
	if len(recent) > 0 {
		labels := make([]string, 0, len(recent))
		for _, src := range recent {
			labels = append(labels, "- "+src.Label)
		}
		sections = append(sections, "Recently added sources:\n"+strings.Join(labels, "\n"))
	}

	var chunks []string
	for _, r := range results {
		if r.Text != "" {
			chunks = append(chunks, r.Text)
		}
		addSource(r.Source)
	}
	if len(chunks) > 0 {
		sections = append(sections, "Retrieved context:\n"+strings.Join(chunks, "\n\n---\n\n"))
	}
	for _, src := range recent {
		addSource(src.Label)
	}

	hasContext = len(chunks) > 0 || len(recent) > 0
	return strings.Join(sections, "\n\n"), hasContext, sources
}
