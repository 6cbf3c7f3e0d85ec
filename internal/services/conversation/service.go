package conversation

import (
	"context"
	"time"

	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// Service is the single source of truth for conversation lifecycle state.
type Service struct {
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
	agents        *repository.AgentRepository
	drivers       *repository.DriverRepository
}

// NewService creates a conversation service.
func NewService(repos repository.RepositoryManager) *Service {
	return &Service{
		conversations: repos.Conversation(),
		messages:      repos.Message(),
		agents:        repos.Agent(),
		drivers:       repos.Driver(),
	}
}

// Create starts a new conversation record in PENDING status.
func (s *Service) Create(ctx context.Context, agentID, driverID, loadNumber string) (*domain.Conversation, error) {
	logger.Base().Info("Creating conversation",
		zap.String("agent_id", agentID),
		zap.String("driver_id", driverID),
		zap.String("load_number", loadNumber))
	return s.conversations.Create(ctx, agentID, driverID, loadNumber)
}

// Get retrieves a conversation by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.conversations.GetByID(ctx, id)
}

// ListItem is a conversation joined with the referenced agent and driver names.
type ListItem struct {
	*domain.Conversation
	AgentName  string `json:"agent_name"`
	DriverName string `json:"driver_name"`
}

// List returns all conversations with their agent and driver names resolved.
func (s *Service) List(ctx context.Context) ([]*ListItem, error) {
	conversations, err := s.conversations.List(ctx)
	if err != nil {
		return nil, err
	}

	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, err
	}
	drivers, err := s.drivers.List(ctx)
	if err != nil {
		return nil, err
	}

	agentNames := make(map[string]string, len(agents))
	for _, a := range agents {
		agentNames[a.ID] = a.Name
	}
	driverNames := make(map[string]string, len(drivers))
	for _, d := range drivers {
		driverNames[d.ID] = d.Name
	}

	items := make([]*ListItem, 0, len(conversations))
	for _, c := range conversations {
		items = append(items, &ListItem{
			Conversation: c,
			AgentName:    agentNames[c.AgentID],
			DriverName:   driverNames[c.DriverID],
		})
	}
	return items, nil
}

// SetStatus transitions a conversation to a new status. The repository sets
// completed_at exactly when the status is terminal.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.ConversationStatus) error {
	logger.Base().Info("Conversation status transition",
		zap.String("conversation_id", id),
		zap.String("status", string(status)))
	return s.conversations.SetStatus(ctx, id, status)
}

// AppendMessage appends a transcript message to a conversation.
func (s *Service) AppendMessage(ctx context.Context, conversationID string, role domain.MessageRole, content string) (*domain.Message, error) {
	return s.messages.Create(ctx, conversationID, role, content)
}

// ListMessages returns a conversation's messages ordered by creation time.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.messages.GetByConversationID(ctx, conversationID)
}

// StatusView is the lightweight polling view of a conversation.
type StatusView struct {
	ID          string                    `json:"id"`
	Status      domain.ConversationStatus `json:"status"`
	CompletedAt *time.Time                `json:"completed_at"`
}

// Status returns the polling view of a conversation's lifecycle state.
func (s *Service) Status(ctx context.Context, id string) (*StatusView, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusView{ID: conv.ID, Status: conv.Status, CompletedAt: conv.CompletedAt}, nil
}
