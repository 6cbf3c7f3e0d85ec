package repository

import (
	"context"

	"gorm.io/gorm"
)

// RepositoryManager combines all repositories behind one dependency that gets
// injected into services at construction time.
type RepositoryManager interface {
	Conversation() *ConversationRepository
	Message() *MessageRepository
	Agent() *AgentRepository
	Driver() *DriverRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db               *gorm.DB
	conversationRepo *ConversationRepository
	messageRepo      *MessageRepository
	agentRepo        *AgentRepository
	driverRepo       *DriverRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:               db,
		conversationRepo: NewConversationRepository(db),
		messageRepo:      NewMessageRepository(db),
		agentRepo:        NewAgentRepository(db),
		driverRepo:       NewDriverRepository(db),
	}
}

// Conversation returns the conversation repository
func (m *GormRepositoryManager) Conversation() *ConversationRepository {
	return m.conversationRepo
}

// Message returns the message repository
func (m *GormRepositoryManager) Message() *MessageRepository {
	return m.messageRepo
}

// Agent returns the agent repository
func (m *GormRepositoryManager) Agent() *AgentRepository {
	return m.agentRepo
}

// Driver returns the driver repository
func (m *GormRepositoryManager) Driver() *DriverRepository {
	return m.driverRepo
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
