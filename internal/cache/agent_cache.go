package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	keyPrefix  = "dispatch_voice_agent"
	defaultTTL = 5 * time.Minute
)

// AgentStore is the backing lookup the cache reads through to.
type AgentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// AgentCache is a read-through cache in front of agent lookups. Webhook
// processing reads the agent on every call_ended, so lookups are served from
// an in-process map, then redis when configured, then the store. Writers must
// call Invalidate after any agent mutation.
type AgentCache struct {
	store  AgentStore
	client *redis.Client // nil when redis is not configured
	ttl    time.Duration

	agents map[string]*domain.Agent
	mutex  sync.RWMutex
}

// NewAgentCache creates an agent cache. client may be nil, in which case only
// the in-process tier is used.
func NewAgentCache(store AgentStore, client *redis.Client) *AgentCache {
	return &AgentCache{
		store:  store,
		client: client,
		ttl:    defaultTTL,
		agents: make(map[string]*domain.Agent),
	}
}

// NewRedisClient connects to redis and verifies the connection. Returns nil
// when addr is empty; the cache then runs without the redis tier.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Base().Warn("Redis unavailable, agent cache runs in-process only", zap.Error(err))
		return nil
	}
	return client
}

func cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}

// GetAgent returns the agent with the given id, reading through the cache
// tiers. Callers receive a private copy.
func (c *AgentCache) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	c.mutex.RLock()
	cached, ok := c.agents[id]
	c.mutex.RUnlock()
	if ok {
		return copyAgent(cached)
	}

	if c.client != nil {
		raw, err := c.client.Get(ctx, cacheKey(id)).Result()
		if err == nil {
			var agent domain.Agent
			if jsonErr := json.Unmarshal([]byte(raw), &agent); jsonErr == nil {
				c.storeLocal(&agent)
				return copyAgent(&agent)
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Base().Warn("Redis read failed for agent cache", zap.String("agent_id", id), zap.Error(err))
		}
	}

	agent, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.storeLocal(agent)
	if c.client != nil {
		if raw, jsonErr := json.Marshal(agent); jsonErr == nil {
			if setErr := c.client.Set(ctx, cacheKey(id), raw, c.ttl).Err(); setErr != nil {
				logger.Base().Warn("Redis write failed for agent cache", zap.String("agent_id", id), zap.Error(setErr))
			}
		}
	}
	return copyAgent(agent)
}

// Invalidate evicts an agent from all cache tiers.
func (c *AgentCache) Invalidate(ctx context.Context, id string) {
	c.mutex.Lock()
	delete(c.agents, id)
	c.mutex.Unlock()

	if c.client != nil {
		if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
			logger.Base().Warn("Redis delete failed for agent cache", zap.String("agent_id", id), zap.Error(err))
		}
	}
}

func (c *AgentCache) storeLocal(agent *domain.Agent) {
	copied, err := copyAgent(agent)
	if err != nil {
		return
	}
	c.mutex.Lock()
	c.agents[agent.ID] = copied
	c.mutex.Unlock()
}

func copyAgent(agent *domain.Agent) (*domain.Agent, error) {
	var out domain.Agent
	if err := copier.Copy(&out, agent); err != nil {
		return nil, fmt.Errorf("failed to copy agent: %w", err)
	}
	return &out, nil
}
