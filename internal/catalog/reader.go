package catalog

import (
	"context"

	"agent-service/internal/model"
	"agent-service/internal/repository"
)

// AgentView is the structured agent shape served to the dashboard. It is the
// inverse of the repository's write mapping: flat rows with JSON-encoded
// columns come back as typed fields, with nil collections normalized to
// empty so clients never see null arrays.
type AgentView struct {
	AgentID         string            `json:"agent_id"`
	Name            string            `json:"name"`
	Language        string            `json:"language"`
	Tone            string            `json:"tone"`
	Status          model.AgentStatus `json:"status"`
	PersonaPrompt   string            `json:"persona_prompt"`
	TaskPrompt      string            `json:"task_prompt"`
	GreetingMessage string            `json:"greeting_message"`
	TriggerCode     string            `json:"trigger_code"`
	AllowedActions  []string          `json:"allowed_actions"`
	DocumentRefs    []string          `json:"document_refs"`
	SourceURLs      []string          `json:"source_urls"`
	ActivationQR    string            `json:"activation_qr,omitempty"`
	ModelConfig     model.RouteConfig `json:"model_config"`
}

// Reader reconstructs agent configuration objects from stored rows
type Reader struct {
	repo *repository.AgentRepository
}

// NewReader creates a catalog reader over the given repository
func NewReader(repo *repository.AgentRepository) *Reader {
	return &Reader{repo: repo}
}

// ListForOwner returns the catalog views of every agent the owner can see
func (r *Reader) ListForOwner(ctx context.Context, ownerID uint) ([]AgentView, error) {
	agents, err := r.repo.ListAgentsForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]AgentView, 0, len(agents))
	for i := range agents {
		views = append(views, ToView(&agents[i]))
	}
	return views, nil
}

// Get returns the catalog view of one agent by its business id
func (r *Reader) Get(ctx context.Context, agentID string) (*AgentView, error) {
	agent, err := r.repo.GetAgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	view := ToView(agent)
	return &view, nil
}

// ToView maps a stored agent row to its catalog shape
func ToView(agent *model.Agent) AgentView {
	return AgentView{
		AgentID:         agent.AgentID,
		Name:            agent.Name,
		Language:        agent.Language,
		Tone:            agent.Tone,
		Status:          agent.Status,
		PersonaPrompt:   agent.PersonaPrompt,
		TaskPrompt:      agent.TaskPrompt,
		GreetingMessage: agent.GreetingMessage,
		TriggerCode:     agent.TriggerCode,
		AllowedActions:  emptyIfNil(agent.AllowedActions),
		DocumentRefs:    emptyIfNil(agent.DocumentRefs),
		SourceURLs:      emptyIfNil(agent.SourceURLs),
		ActivationQR:    agent.ActivationQR,
		ModelConfig:     agent.ModelConfig,
	}
}

func emptyIfNil(list model.StringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}
