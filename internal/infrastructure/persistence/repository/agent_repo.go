package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AgentRepository implements port.AgentRepository
type AgentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *sql.DB, logger *zap.Logger) port.AgentRepository {
	return &AgentRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts an agent or refreshes its directory fields. The assignment
// history is kept.
func (r *AgentRepository) Upsert(ctx context.Context, agent *entity.Agent) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO agents (id, name, email, lark_open_id, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			lark_open_id = excluded.lark_open_id,
			active = excluded.active`,
		agent.ID, agent.Name, agent.Email, agent.LarkOpenID, agent.Active,
	)
	if err != nil {
		r.logger.Error("Failed to upsert agent", zap.String("id", agent.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert agent: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by id
func (r *AgentRepository) GetByID(ctx context.Context, id string) (*entity.Agent, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, email, lark_open_id, active, last_assigned_at
		FROM agents WHERE id = ?`, id)

	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get agent by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return agent, nil
}

// ListActive returns active agents ordered by id
func (r *AgentRepository) ListActive(ctx context.Context) ([]*entity.Agent, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, email, lark_open_id, active, last_assigned_at
		FROM agents WHERE active = 1 ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list agents", zap.Error(err))
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*entity.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// NextRotation increments the rotation counter and returns its previous value
func (r *AgentRepository) NextRotation(ctx context.Context) (int64, error) {
	var position int64
	err := inTx(ctx, r.db, func(ctx context.Context, exec sqlite.Executor) error {
		if err := exec.QueryRowContext(ctx,
			`SELECT position FROM agent_rotation WHERE id = 1`).Scan(&position); err != nil {
			return fmt.Errorf("failed to read rotation: %w", err)
		}
		if _, err := exec.ExecContext(ctx,
			`UPDATE agent_rotation SET position = position + 1 WHERE id = 1`); err != nil {
			return fmt.Errorf("failed to advance rotation: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to advance agent rotation", zap.Error(err))
		return 0, err
	}
	return position, nil
}

// MarkAssigned records when an agent last received a request
func (r *AgentRepository) MarkAssigned(ctx context.Context, id string, at time.Time) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE agents SET last_assigned_at = ? WHERE id = ?`, at, id)
	if err != nil {
		r.logger.Error("Failed to mark agent assigned", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark agent assigned: %w", err)
	}
	return nil
}

func scanAgent(row rowScanner) (*entity.Agent, error) {
	var a entity.Agent
	var lastAssigned sql.NullTime
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.LarkOpenID, &a.Active, &lastAssigned); err != nil {
		return nil, err
	}
	a.LastAssignedAt = timePtr(lastAssigned)
	return &a, nil
}
