package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"gorm.io/gorm"
)

// ConversationRepository handles database operations for conversations
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation in PENDING status.
func (r *ConversationRepository) Create(ctx context.Context, agentID, driverID, loadNumber string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conversation := &domain.Conversation{
		ID:         uuid.New().String(),
		AgentID:    agentID,
		DriverID:   driverID,
		LoadNumber: loadNumber,
		Status:     domain.ConversationStatusPending,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// GetByID retrieves a conversation by its ID.
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conversation domain.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conversation, nil
}

// GetByCallID retrieves the conversation holding the given provider call
// handle. Returns nil without error when no conversation matches; webhook
// events for unknown call ids are a no-op.
func (r *ConversationRepository) GetByCallID(ctx context.Context, callID string) (*domain.Conversation, error) {
	var conversation domain.Conversation
	if err := r.db.WithContext(ctx).Where("retell_call_id = ?", callID).First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation by call id: %w", err)
	}
	return &conversation, nil
}

// List returns all conversations, newest first.
func (r *ConversationRepository) List(ctx context.Context) ([]*domain.Conversation, error) {
	var conversations []*domain.Conversation
	if err := r.db.WithContext(ctx).Order("started_at DESC").Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// SetStatus updates a conversation's status. completed_at is set as a side
// effect exactly when the new status is terminal, and left untouched otherwise.
func (r *ConversationRepository) SetStatus(ctx context.Context, id string, status domain.ConversationStatus) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if status.IsTerminal() {
		updates["completed_at"] = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	return nil
}

// SetCallHandle persists the provider call id and access token after a call
// has been created with the voice provider.
func (r *ConversationRepository) SetCallHandle(ctx context.Context, id, callID, accessToken string) error {
	updates := map[string]interface{}{
		"retell_call_id":      callID,
		"retell_access_token": accessToken,
		"updated_at":          time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to persist call handle: %w", err)
	}
	return nil
}

// CallDetailsUpdate carries the post-call fields persisted after call_ended.
type CallDetailsUpdate struct {
	Transcript          string
	RecordingURL        string
	DurationMs          *int64
	DisconnectionReason string
	CallAnalysis        domain.JSONB
}

// SetCallDetails persists post-call artifacts onto a conversation.
func (r *ConversationRepository) SetCallDetails(ctx context.Context, id string, details CallDetailsUpdate) error {
	updates := map[string]interface{}{
		"transcript":           details.Transcript,
		"recording_url":        details.RecordingURL,
		"duration_ms":          details.DurationMs,
		"disconnection_reason": details.DisconnectionReason,
		"call_analysis":        details.CallAnalysis,
		"updated_at":           time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to persist call details: %w", err)
	}
	return nil
}

// SetCallAnalysis persists the call-analysis payload for the conversation
// holding the given call id, without any status change.
func (r *ConversationRepository) SetCallAnalysis(ctx context.Context, callID string, analysis domain.JSONB) error {
	updates := map[string]interface{}{
		"call_analysis": analysis,
		"updated_at":    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("retell_call_id = ?", callID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to persist call analysis: %w", err)
	}
	return nil
}

// SetStructuredData persists extracted structured data onto a conversation.
func (r *ConversationRepository) SetStructuredData(ctx context.Context, id string, data domain.JSONB) error {
	updates := map[string]interface{}{
		"structured_data": data,
		"updated_at":      time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to persist structured data: %w", err)
	}
	return nil
}

// CountByAgentID counts conversations referencing an agent.
func (r *ConversationRepository) CountByAgentID(ctx context.Context, agentID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Conversation{}).Where("agent_id = ?", agentID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

// MessageRepository handles database operations for transcript messages
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a transcript message to a conversation.
func (r *MessageRepository) Create(ctx context.Context, conversationID string, role domain.MessageRole, content string) (*domain.Message, error) {
	message := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return message, nil
}

// GetByConversationID retrieves all messages for a conversation ordered by
// creation time.
func (r *MessageRepository) GetByConversationID(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	var messages []*domain.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}
