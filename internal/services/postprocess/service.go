package postprocess

import (
	"context"
	"encoding/json"

	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/prompts"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// Completer is the reasoning-provider call this service depends on.
type Completer interface {
	Complete(ctx context.Context, systemInstructions, userContent string, wantJSON bool) (string, error)
}

// Service extracts scenario-relevant structured data from completed call
// transcripts.
type Service struct {
	llm Completer
}

// NewService creates a post-processing service.
func NewService(llm Completer) *Service {
	return &Service{llm: llm}
}

// Extract asks the reasoning provider for structured data about the call.
// It never fails: provider or parse errors come back as an error-marker map
// so that call completion is not blocked by extraction problems. Callers
// check IsErrorMarker before persisting the result as structured data.
func (s *Service) Extract(ctx context.Context, transcript, scenarioDescription string) domain.JSONB {
	logger.Base().Info("Extracting structured data from transcript",
		zap.Int("transcript_len", len(transcript)))

	raw, err := s.llm.Complete(ctx,
		prompts.ExtractionSystemPrompt,
		prompts.ExtractionUserPrompt(scenarioDescription, transcript),
		true)
	if err != nil {
		logger.Base().Error("Structured data extraction call failed", zap.Error(err))
		return domain.JSONB{
			"error":   "Failed to extract structured data",
			"details": err.Error(),
		}
	}

	var result domain.JSONB
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logger.Base().Error("Structured data response was not valid JSON", zap.Error(err))
		return domain.JSONB{
			"error":        "Failed to parse structured data",
			"raw_response": raw,
		}
	}

	logger.Base().Info("Structured data extracted", zap.Int("fields", len(result)))
	return result
}

// IsErrorMarker reports whether an extraction result is one of the error
// markers rather than real structured data.
func IsErrorMarker(data domain.JSONB) bool {
	if data == nil {
		return true
	}
	_, ok := data["error"]
	return ok
}
