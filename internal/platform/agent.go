package platform

import (
	"context"
	"fmt"
	"net/url"
)

// ToolSpec attaches one platform-hosted tool (a model id) to an agent.
type ToolSpec struct {
	ModelID     string         `json:"model_id"`
	Description string         `json:"description"`
	Params      map[string]any `json:"params,omitempty"`
}

// AgentDefinition is the immutable agent blueprint sent at creation time.
// The platform owns the agent loop; the definition only names the model,
// the attached tools and the instructions.
type AgentDefinition struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Instructions string     `json:"instructions"`
	ModelID      string     `json:"llm_id"`
	Tools        []ToolSpec `json:"tools"`
}

// Agent is the platform's view of an agent.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// RunRequest is one agent invocation. SessionID threads the platform-side
// conversation identifier between calls; empty starts a new conversation.
type RunRequest struct {
	AgentID   string `json:"-"`
	Query     string `json:"query"`
	Context   string `json:"context,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Model is the platform's view of a hosted model, which is also how tool
// backends are represented.
type Model struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// GetModel resolves one hosted model (tool backend) by id.
func (c *Client) GetModel(ctx context.Context, id string) (*Model, error) {
	if id == "" {
		return nil, fmt.Errorf("model id is required")
	}
	var model Model
	if err := c.get(ctx, "/sdk/models/"+url.PathEscape(id), &model); err != nil {
		return nil, fmt.Errorf("get model %s: %w", id, err)
	}
	return &model, nil
}

// GetAgent loads an existing agent by id.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	var agent Agent
	if err := c.get(ctx, "/sdk/agents/"+url.PathEscape(id), &agent); err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return &agent, nil
}

// CreateAgent registers a new agent from the definition.
func (c *Client) CreateAgent(ctx context.Context, def AgentDefinition) (*Agent, error) {
	var agent Agent
	if err := c.post(ctx, "/sdk/agents", def, &agent); err != nil {
		return nil, fmt.Errorf("create agent %q: %w", def.Name, err)
	}
	return &agent, nil
}

// DeployAgent promotes the agent to its deployed (onboarded) state.
func (c *Client) DeployAgent(ctx context.Context, id string) error {
	if err := c.post(ctx, "/sdk/agents/"+url.PathEscape(id)+"/deploy", nil, nil); err != nil {
		return fmt.Errorf("deploy agent %s: %w", id, err)
	}
	return nil
}

// RunAgent issues one agent run and normalizes the response envelope.
// The platform owns tool selection and answer composition; a failure here
// is surfaced as-is and never answered locally.
func (c *Client) RunAgent(ctx context.Context, req RunRequest) (*RunResponse, error) {
	if req.AgentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	var raw runEnvelope
	if err := c.post(ctx, "/sdk/agents/"+url.PathEscape(req.AgentID)+"/run", req, &raw); err != nil {
		return nil, fmt.Errorf("run agent %s: %w", req.AgentID, err)
	}
	return raw.normalize(), nil
}
