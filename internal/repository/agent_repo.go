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

// AgentRepository handles database operations for agents
type AgentRepository struct {
	db *gorm.DB
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Create inserts a new agent.
func (r *AgentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by its ID.
func (r *AgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

// List returns all agents, newest first.
func (r *AgentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// Update applies non-nil fields to an agent and returns the updated record.
func (r *AgentRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*domain.Agent, error) {
	result := r.db.WithContext(ctx).Model(&domain.Agent{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update agent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an agent.
func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Agent{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete agent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TouchLastUsed records that the agent was used for a call just now.
func (r *AgentRepository) TouchLastUsed(ctx context.Context, id string) error {
	updates := map[string]interface{}{"last_used_at": time.Now().UTC()}
	if err := r.db.WithContext(ctx).Model(&domain.Agent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update agent last_used_at: %w", err)
	}
	return nil
}

// DriverRepository handles database operations for drivers
type DriverRepository struct {
	db *gorm.DB
}

// NewDriverRepository creates a new driver repository
func NewDriverRepository(db *gorm.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Create inserts a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(driver).Error; err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

// GetByID retrieves a driver by its ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	var driver domain.Driver
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &driver, nil
}

// List returns all drivers, newest first.
func (r *DriverRepository) List(ctx context.Context) ([]*domain.Driver, error) {
	var drivers []*domain.Driver
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&drivers).Error; err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	return drivers, nil
}

// Update applies fields to a driver and returns the updated record.
func (r *DriverRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*domain.Driver, error) {
	result := r.db.WithContext(ctx).Model(&domain.Driver{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update driver: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a driver.
func (r *DriverRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Driver{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete driver: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
