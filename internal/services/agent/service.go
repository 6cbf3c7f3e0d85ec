package agent

import (
	"context"
	"strings"
	"time"

	"github.com/truckwell/dispatch-voice-service/internal/adapters/retell"
	"github.com/truckwell/dispatch-voice-service/internal/cache"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/prompts"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// AgentProvisioner creates agents on the voice-provider side.
type AgentProvisioner interface {
	CreateAgent(ctx context.Context, name, systemPrompt, voiceID string) (*retell.ProvisionedAgent, error)
}

// Completer generates the derived system prompt from a scenario description.
type Completer interface {
	Complete(ctx context.Context, systemInstructions, userContent string, wantJSON bool) (string, error)
}

// Service manages check-in agents: persistence, provisioning with the voice
// provider, and usage statistics.
type Service struct {
	agents        *repository.AgentRepository
	conversations *repository.ConversationRepository
	cache         *cache.AgentCache
	provisioner   AgentProvisioner
	llm           Completer
}

// NewService creates an agent service.
func NewService(repos repository.RepositoryManager, agentCache *cache.AgentCache, provisioner AgentProvisioner, llm Completer) *Service {
	return &Service{
		agents:        repos.Agent(),
		conversations: repos.Conversation(),
		cache:         agentCache,
		provisioner:   provisioner,
		llm:           llm,
	}
}

// Create persists a new agent with its authoring prompt.
func (s *Service) Create(ctx context.Context, name, scenarioPrompts, additionalDetails string) (*domain.Agent, error) {
	agent := &domain.Agent{
		Name:              name,
		Prompts:           scenarioPrompts,
		AdditionalDetails: additionalDetails,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	logger.Base().Info("Agent created", zap.String("agent_id", agent.ID), zap.String("name", name))
	return agent, nil
}

// Get retrieves an agent by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Agent, error) {
	return s.agents.GetByID(ctx, id)
}

// Summary is the list view of an agent with its usage statistics.
type Summary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUsedAt        *time.Time `json:"last_used_at"`
	Provisioned       bool       `json:"provisioned"`
	ConversationCount int64      `json:"conversation_count"`
}

// List returns all agents with per-agent conversation counts.
func (s *Service) List(ctx context.Context) ([]*Summary, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*Summary, 0, len(agents))
	for _, a := range agents {
		count, err := s.conversations.CountByAgentID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &Summary{
			ID:                a.ID,
			Name:              a.Name,
			CreatedAt:         a.CreatedAt,
			LastUsedAt:        a.LastUsedAt,
			Provisioned:       a.IsProvisioned(),
			ConversationCount: count,
		})
	}
	return summaries, nil
}

// UpdateRequest carries the mutable agent fields; nil fields are untouched.
type UpdateRequest struct {
	Name              *string `json:"name,omitempty"`
	Prompts           *string `json:"prompts,omitempty"`
	AdditionalDetails *string `json:"additional_details,omitempty"`
}

// Update applies the provided fields and evicts the agent from the cache.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*domain.Agent, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Prompts != nil {
		updates["prompts"] = *req.Prompts
	}
	if req.AdditionalDetails != nil {
		updates["additional_details"] = *req.AdditionalDetails
	}
	if len(updates) == 0 {
		return nil, domain.ErrInvalidState
	}

	agent, err := s.agents.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return agent, nil
}

// Delete removes an agent and evicts it from the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.agents.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// Provision derives the system prompt from the agent's scenario description,
// creates the agent with the voice provider, and persists the provider
// identifiers. The agent can take calls only after this succeeds.
func (s *Service) Provision(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := s.llm.Complete(ctx,
		prompts.GenerationSystemPrompt,
		prompts.GenerationUserPrompt(agent.Prompts, agent.AdditionalDetails),
		false)
	if err != nil {
		return nil, domain.NewExternalServiceError("openai", err)
	}
	systemPrompt = strings.TrimSpace(systemPrompt)

	provisioned, err := s.provisioner.CreateAgent(ctx, agent.Name, systemPrompt, "")
	if err != nil {
		return nil, domain.NewExternalServiceError("retell", err)
	}

	updated, err := s.agents.Update(ctx, id, map[string]interface{}{
		"system_prompt":   systemPrompt,
		"retell_agent_id": provisioned.AgentID,
		"retell_llm_id":   provisioned.LLMID,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)

	logger.Base().Info("Agent provisioned",
		zap.String("agent_id", id),
		zap.String("retell_agent_id", provisioned.AgentID))
	return updated, nil
}
