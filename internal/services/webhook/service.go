package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/truckwell/dispatch-voice-service/internal/adapters/retell"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
	"github.com/truckwell/dispatch-voice-service/internal/services/postprocess"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// Event is the provider's webhook envelope. Deliveries are at-least-once and
// unordered; event-specific fields beyond these are ignored.
type Event struct {
	Event        string          `json:"event"`
	CallID       string          `json:"call_id"`
	CallAnalysis json.RawMessage `json:"call_analysis,omitempty"`
}

// CallFetcher fetches the full call record from the voice provider.
type CallFetcher interface {
	GetCall(ctx context.Context, callID string) (*retell.CallDetails, error)
}

// AgentLookup resolves the agent referenced by a conversation.
type AgentLookup interface {
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
}

// Extractor produces structured data from a completed transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript, scenarioDescription string) domain.JSONB
}

// Service reconciles provider call state with local conversation state. It
// must stay correct under duplicated and arbitrarily interleaved deliveries
// of call_started, call_ended and call_analyzed for the same call id.
type Service struct {
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
	agents        AgentLookup
	calls         CallFetcher
	extractor     Extractor
}

// NewService creates a webhook processing service.
func NewService(repos repository.RepositoryManager, agents AgentLookup, calls CallFetcher, extractor Extractor) *Service {
	return &Service{
		conversations: repos.Conversation(),
		messages:      repos.Message(),
		agents:        agents,
		calls:         calls,
		extractor:     extractor,
	}
}

// Process dispatches a webhook event by type. Unrecognized event types are
// logged and ignored; the provider adds new types over time.
func (s *Service) Process(ctx context.Context, event Event) error {
	switch event.Event {
	case "call_started":
		return s.handleCallStarted(ctx, event)
	case "call_ended":
		return s.ProcessCallEnded(ctx, event.CallID)
	case "call_analyzed":
		return s.handleCallAnalyzed(ctx, event)
	default:
		logger.Base().Debug("Ignoring unhandled webhook event",
			zap.String("event", event.Event),
			zap.String("call_id", event.CallID))
		return nil
	}
}

// handleCallStarted moves the matching conversation to IN_PROGRESS.
// Re-applying the transition is a no-op, and an unknown call id means the
// conversation has no handle yet or the handle is stale.
func (s *Service) handleCallStarted(ctx context.Context, event Event) error {
	conv, err := s.conversations.GetByCallID(ctx, event.CallID)
	if err != nil {
		return err
	}
	if conv == nil {
		logger.Base().Debug("call_started for unknown call id", zap.String("call_id", event.CallID))
		return nil
	}
	if conv.Status.IsTerminal() {
		// Deliveries are unordered; a late call_started must not reopen a
		// finished conversation.
		logger.Base().Debug("call_started after terminal status, ignoring",
			zap.String("call_id", event.CallID),
			zap.String("status", string(conv.Status)))
		return nil
	}

	logger.Base().Info("Call started",
		zap.String("call_id", event.CallID),
		zap.String("conversation_id", conv.ID))
	return s.conversations.SetStatus(ctx, conv.ID, domain.ConversationStatusInProgress)
}

// ProcessCallEnded runs the full end-of-call transition for a call id. The
// manual terminator reuses it when the provider's webhook does not arrive.
//
// Every sub-step after the provider fetch is best-effort: a failure is logged
// and the remaining steps still run, so a partially enriched conversation
// still reaches COMPLETED. Only a failed fetch aborts the handler.
func (s *Service) ProcessCallEnded(ctx context.Context, callID string) error {
	conv, err := s.conversations.GetByCallID(ctx, callID)
	if err != nil {
		return err
	}
	if conv == nil {
		logger.Base().Debug("call_ended for unknown call id", zap.String("call_id", callID))
		return nil
	}

	details, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		return fmt.Errorf("failed to fetch call details for %s: %w", callID, err)
	}

	analysis := normalizeAnalysis(details.CallAnalysis)

	if err := s.conversations.SetCallDetails(ctx, conv.ID, repository.CallDetailsUpdate{
		Transcript:          details.Transcript,
		RecordingURL:        details.RecordingURL,
		DurationMs:          details.DurationMs,
		DisconnectionReason: details.DisconnectionReason,
		CallAnalysis:        analysis,
	}); err != nil {
		logger.Base().Error("Failed to persist call details",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	s.replayTranscript(ctx, conv.ID, details.TranscriptObject)

	var scenario string
	agent, err := s.agents.GetAgent(ctx, conv.AgentID)
	if err != nil {
		logger.Base().Error("Failed to look up agent for extraction",
			zap.String("agent_id", conv.AgentID), zap.Error(err))
	} else {
		scenario = agent.Prompts
	}

	structured := s.extractor.Extract(ctx, details.Transcript, scenario)
	if postprocess.IsErrorMarker(structured) {
		logger.Base().Warn("Extraction produced no structured data, completing without it",
			zap.String("conversation_id", conv.ID))
	} else if err := s.conversations.SetStructuredData(ctx, conv.ID, structured); err != nil {
		logger.Base().Error("Failed to persist structured data",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	if err := s.conversations.SetStatus(ctx, conv.ID, domain.ConversationStatusCompleted); err != nil {
		logger.Base().Error("Failed to complete conversation",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	logger.Base().Info("Call ended",
		zap.String("call_id", callID),
		zap.String("conversation_id", conv.ID),
		zap.Int("transcript_turns", len(details.TranscriptObject)))
	return nil
}

// replayTranscript appends one message per transcript turn, in order.
// Provider speaker labels map to roles by exact match on "agent"; everything
// else is the human side. Empty turns are dropped and a failed append skips
// only that turn.
func (s *Service) replayTranscript(ctx context.Context, conversationID string, turns []retell.TranscriptTurn) {
	for i, turn := range turns {
		if turn.Content == "" {
			continue
		}
		role := domain.MessageRoleHuman
		if turn.Role == "agent" {
			role = domain.MessageRoleAgent
		}
		if _, err := s.messages.Create(ctx, conversationID, role, turn.Content); err != nil {
			logger.Base().Error("Failed to append transcript turn",
				zap.String("conversation_id", conversationID),
				zap.Int("turn", i), zap.Error(err))
		}
	}
}

// handleCallAnalyzed persists the analysis payload carried by the event for
// the matching conversation. No status change.
func (s *Service) handleCallAnalyzed(ctx context.Context, event Event) error {
	analysis := normalizeAnalysis(event.CallAnalysis)
	if analysis == nil {
		return nil
	}
	logger.Base().Info("Call analyzed", zap.String("call_id", event.CallID))
	return s.conversations.SetCallAnalysis(ctx, event.CallID, analysis)
}

// normalizeAnalysis coerces the provider's call-analysis payload into a plain
// map. Payloads that are absent or not an object normalize to nil.
func normalizeAnalysis(raw json.RawMessage) domain.JSONB {
	if len(raw) == 0 {
		return nil
	}
	var analysis domain.JSONB
	if err := json.Unmarshal(raw, &analysis); err != nil {
		logger.Base().Warn("Discarding unparseable call analysis payload", zap.Error(err))
		return nil
	}
	return analysis
}
