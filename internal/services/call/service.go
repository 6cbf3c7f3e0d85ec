package call

import (
	"context"
	"fmt"
	"time"

	"github.com/truckwell/dispatch-voice-service/internal/adapters/retell"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultEndCallGracePeriod is how long the manual terminator waits for a
// genuine call_ended webhook before running the enrichment itself.
const DefaultEndCallGracePeriod = 5 * time.Second

// CallProvider creates call sessions with the voice provider.
type CallProvider interface {
	CreateWebCall(ctx context.Context, agentID string, metadata, dynamicVariables map[string]string) (*retell.WebCall, error)
}

// Enricher runs the end-of-call transition for a provider call id. Satisfied
// by the webhook service so the manual path and the webhook path converge.
type Enricher interface {
	ProcessCallEnded(ctx context.Context, callID string) error
}

// Service starts provider calls for conversations and provides the manual
// end-of-call path used when webhooks are delayed or lost.
type Service struct {
	conversations *repository.ConversationRepository
	agents        *repository.AgentRepository
	drivers       *repository.DriverRepository
	provider      CallProvider
	enricher      Enricher
	gracePeriod   time.Duration
}

// NewService creates a call service.
func NewService(repos repository.RepositoryManager, provider CallProvider, enricher Enricher, gracePeriod time.Duration) *Service {
	if gracePeriod <= 0 {
		gracePeriod = DefaultEndCallGracePeriod
	}
	return &Service{
		conversations: repos.Conversation(),
		agents:        repos.Agent(),
		drivers:       repos.Driver(),
		provider:      provider,
		enricher:      enricher,
		gracePeriod:   gracePeriod,
	}
}

// Initiate creates a provider call session for a conversation and persists
// the returned call handle. The driver name and load number travel both as
// dynamic variables (prompt personalization) and as opaque metadata (later
// correlation). Provider failures are not retried; they surface as
// ExternalServiceError.
func (s *Service) Initiate(ctx context.Context, conversationID, driverName, loadNumber, providerAgentID string) (*retell.WebCall, error) {
	if providerAgentID == "" {
		return nil, fmt.Errorf("%w: agent not yet provisioned with the call provider", domain.ErrInvalidState)
	}

	vars := map[string]string{
		"driver_name": driverName,
		"load_number": loadNumber,
	}
	metadata := map[string]string{
		"conversation_id": conversationID,
		"driver_name":     driverName,
		"load_number":     loadNumber,
	}

	webCall, err := s.provider.CreateWebCall(ctx, providerAgentID, metadata, vars)
	if err != nil {
		return nil, domain.NewExternalServiceError("retell", err)
	}

	if err := s.conversations.SetCallHandle(ctx, conversationID, webCall.CallID, webCall.AccessToken); err != nil {
		return nil, err
	}

	logger.Base().Info("Call initiated",
		zap.String("conversation_id", conversationID),
		zap.String("call_id", webCall.CallID))
	return webCall, nil
}

// StartCheckInRequest carries the parameters for starting a check-in call.
// Either DriverID or both DriverName and DriverPhone must be provided.
type StartCheckInRequest struct {
	AgentID     string `json:"agent_id"`
	DriverID    string `json:"driver_id,omitempty"`
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`
	LoadNumber  string `json:"load_number"`
}

// StartCheckIn resolves the agent and driver, creates the conversation and
// initiates the provider call. The conversation is created in PENDING before
// the provisioning precondition is checked, so an InvalidState failure leaves
// exactly that record behind and nothing else.
func (s *Service) StartCheckIn(ctx context.Context, req StartCheckInRequest) (*domain.Conversation, error) {
	agent, err := s.agents.GetByID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	var driver *domain.Driver
	if req.DriverID != "" {
		driver, err = s.drivers.GetByID(ctx, req.DriverID)
		if err != nil {
			return nil, err
		}
	} else {
		if req.DriverName == "" || req.DriverPhone == "" {
			return nil, fmt.Errorf("%w: either driver_id or both driver_name and driver_phone must be provided", domain.ErrInvalidState)
		}
		driver = &domain.Driver{Name: req.DriverName, PhoneNumber: req.DriverPhone}
		if err := s.drivers.Create(ctx, driver); err != nil {
			return nil, err
		}
	}

	conv, err := s.conversations.Create(ctx, agent.ID, driver.ID, req.LoadNumber)
	if err != nil {
		return nil, err
	}

	if _, err := s.Initiate(ctx, conv.ID, driver.Name, req.LoadNumber, agent.RetellAgentID); err != nil {
		return nil, err
	}

	if err := s.agents.TouchLastUsed(ctx, agent.ID); err != nil {
		logger.Base().Warn("Failed to touch agent last_used_at",
			zap.String("agent_id", agent.ID), zap.Error(err))
	}
	if err := s.conversations.SetStatus(ctx, conv.ID, domain.ConversationStatusInProgress); err != nil {
		logger.Base().Warn("Failed to mark conversation in progress",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	return s.conversations.GetByID(ctx, conv.ID)
}

// EndCall is the operator-triggered end-of-call path. A conversation without
// a call handle goes straight to COMPLETED. One with a handle gets a fixed
// grace period for the real webhook to arrive, then the same end-of-call
// enrichment runs here; if the enrichment fails the conversation still
// degrades to a bare COMPLETED. Once invoked the conversation always reaches
// a terminal status, and no failure escapes past the initial lookup.
func (s *Service) EndCall(ctx context.Context, conversationID string) error {
	// The terminal-status guarantee must survive the operator's client
	// disconnecting mid-wait, so everything runs detached from the request
	// context.
	ctx = context.WithoutCancel(ctx)

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if conv.RetellCallID == "" {
		logger.Base().Info("Ending conversation without provider call",
			zap.String("conversation_id", conversationID))
		if err := s.conversations.SetStatus(ctx, conversationID, domain.ConversationStatusCompleted); err != nil {
			logger.Base().Error("Failed to complete conversation on manual end",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
		return nil
	}

	logger.Base().Info("Manual end requested, waiting for webhook grace period",
		zap.String("conversation_id", conversationID),
		zap.String("call_id", conv.RetellCallID),
		zap.Duration("grace_period", s.gracePeriod))

	time.Sleep(s.gracePeriod)

	if err := s.enricher.ProcessCallEnded(ctx, conv.RetellCallID); err != nil {
		logger.Base().Error("End-of-call enrichment failed, degrading to bare completion",
			zap.String("conversation_id", conversationID), zap.Error(err))
		if err := s.conversations.SetStatus(ctx, conversationID, domain.ConversationStatusCompleted); err != nil {
			logger.Base().Error("Failed to complete conversation after degraded manual end",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
	return nil
}
