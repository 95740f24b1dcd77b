// Package agent assigns travel agents to new requests in strict rotation.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

const defaultDirectoryTTL = time.Minute

// RoundRobinAssigner implements port.AgentAssigner over a persisted rotation
// counter. The active agent list is cached and refreshed at most once per TTL.
type RoundRobinAssigner struct {
	repo   port.AgentRepository
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	group singleflight.Group

	cacheMu  sync.RWMutex
	cached   []*entity.Agent
	loadedAt time.Time
}

// Option configures a RoundRobinAssigner
type Option func(*RoundRobinAssigner)

// WithDirectoryTTL sets how long the active agent list is cached
func WithDirectoryTTL(ttl time.Duration) Option {
	return func(a *RoundRobinAssigner) {
		a.ttl = ttl
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(a *RoundRobinAssigner) {
		a.now = now
	}
}

// NewRoundRobinAssigner creates an assigner backed by repo
func NewRoundRobinAssigner(repo port.AgentRepository, logger *zap.Logger, opts ...Option) *RoundRobinAssigner {
	a := &RoundRobinAssigner{
		repo:   repo,
		logger: logger,
		ttl:    defaultDirectoryTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Seed upserts the configured agents and drops the cached directory
func (a *RoundRobinAssigner) Seed(ctx context.Context, agents []entity.Agent) error {
	for i := range agents {
		if err := a.repo.Upsert(ctx, &agents[i]); err != nil {
			return fmt.Errorf("failed to seed agent %s: %w", agents[i].ID, err)
		}
	}
	a.Invalidate()
	a.logger.Info("Agents seeded", zap.Int("count", len(agents)))
	return nil
}

// Invalidate forces the next Assign to reload the agent directory
func (a *RoundRobinAssigner) Invalidate() {
	a.cacheMu.Lock()
	a.cached = nil
	a.loadedAt = time.Time{}
	a.cacheMu.Unlock()
}

// Assign picks the next active agent in rotation
func (a *RoundRobinAssigner) Assign(ctx context.Context) (*entity.Agent, error) {
	agents, err := a.activeAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, errs.NotFoundf("no active agents available")
	}

	a.mu.Lock()
	position, err := a.repo.NextRotation(ctx)
	a.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to advance agent rotation: %w", err)
	}

	picked := *agents[position%int64(len(agents))]
	at := a.now()
	if err := a.repo.MarkAssigned(ctx, picked.ID, at); err != nil {
		a.logger.Error("Failed to record agent assignment", zap.String("agent_id", picked.ID), zap.Error(err))
	} else {
		picked.LastAssignedAt = &at
	}

	a.logger.Info("Agent assigned",
		zap.String("agent_id", picked.ID),
		zap.Int64("position", position))
	return &picked, nil
}

func (a *RoundRobinAssigner) activeAgents(ctx context.Context) ([]*entity.Agent, error) {
	a.cacheMu.RLock()
	if a.cached != nil && a.now().Sub(a.loadedAt) < a.ttl {
		agents := a.cached
		a.cacheMu.RUnlock()
		return agents, nil
	}
	a.cacheMu.RUnlock()

	v, err, _ := a.group.Do("active", func() (interface{}, error) {
		agents, err := a.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		if agents == nil {
			agents = []*entity.Agent{}
		}
		a.cacheMu.Lock()
		a.cached = agents
		a.loadedAt = a.now()
		a.cacheMu.Unlock()
		return agents, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load agents: %w", err)
	}
	return v.([]*entity.Agent), nil
}

var _ port.AgentAssigner = (*RoundRobinAssigner)(nil)
