package domain

import (
	"time"
)

// ConversationStatus represents the lifecycle state of a check-in conversation
type ConversationStatus string

const (
	ConversationStatusPending    ConversationStatus = "pending"
	ConversationStatusInProgress ConversationStatus = "in_progress"
	ConversationStatusCompleted  ConversationStatus = "completed"
	ConversationStatusFailed     ConversationStatus = "failed"
)

// IsTerminal reports whether the status ends the conversation lifecycle.
// completed_at is set exactly when a conversation enters a terminal status.
func (s ConversationStatus) IsTerminal() bool {
	return s == ConversationStatusCompleted || s == ConversationStatusFailed
}

// Conversation represents one driver check-in call coordinated through the
// voice provider. RetellCallID is set once when the call is initiated and is
// never reassigned; a conversation maps to at most one provider call.
type Conversation struct {
	ID                  string             `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	AgentID             string             `json:"agent_id" gorm:"column:agent_id;type:uuid;index"`
	DriverID            string             `json:"driver_id" gorm:"column:driver_id;type:uuid;index"`
	LoadNumber          string             `json:"load_number" gorm:"column:load_number"`
	Status              ConversationStatus `json:"status" gorm:"column:status"`
	StartedAt           time.Time          `json:"started_at" gorm:"column:started_at"`
	CompletedAt         *time.Time         `json:"completed_at" gorm:"column:completed_at"`
	RetellCallID        string             `json:"retell_call_id" gorm:"column:retell_call_id;index"`
	RetellAccessToken   string             `json:"retell_access_token" gorm:"column:retell_access_token"`
	Transcript          string             `json:"transcript" gorm:"column:transcript;type:text"`
	RecordingURL        string             `json:"recording_url" gorm:"column:recording_url"`
	DurationMs          *int64             `json:"duration_ms" gorm:"column:duration_ms"`
	DisconnectionReason string             `json:"disconnection_reason" gorm:"column:disconnection_reason"`
	CallAnalysis        JSONB              `json:"call_analysis" gorm:"column:call_analysis;type:jsonb"`
	StructuredData      JSONB              `json:"structured_data" gorm:"column:structured_data;type:jsonb"`
	CreatedAt           time.Time          `json:"created_at" gorm:"column:created_at"`
	UpdatedAt           time.Time          `json:"updated_at" gorm:"column:updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// MessageRole identifies the speaker of a transcript turn
type MessageRole string

const (
	MessageRoleAgent MessageRole = "agent"
	MessageRoleHuman MessageRole = "human"
)

// Message represents one turn of a conversation transcript. Messages are
// append-only and ordered by creation time within a conversation.
type Message struct {
	ID             string      `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	ConversationID string      `json:"conversation_id" gorm:"column:conversation_id;type:uuid;index"`
	Role           MessageRole `json:"role" gorm:"column:role"`
	Content        string      `json:"content" gorm:"column:content;type:text"`
	CreatedAt      time.Time   `json:"created_at" gorm:"column:created_at"`
}

func (Message) TableName() string {
	return "messages"
}
