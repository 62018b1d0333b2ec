// Package postgresql provides PostgreSQL persistence for flows, nodes and
// transitions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	flowRepo       *FlowRepository
	nodeRepo       *NodeRepository
	transitionRepo *TransitionRepository
}

// NewPersistence connects, runs migrations and returns the store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	postgres := &Persistence{
		db:     database,
		logger: logger,
	}
	postgres.flowRepo = &FlowRepository{db: database}
	postgres.nodeRepo = &NodeRepository{db: database}
	postgres.transitionRepo = &TransitionRepository{db: database}

	return postgres, nil
}

// FlowRepository returns the flow repository implementation.
func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

// NodeRepository returns the node repository implementation.
func (p *Persistence) NodeRepository() persistence.NodeRepository {
	return p.nodeRepo
}

// TransitionRepository returns the transition repository implementation.
func (p *Persistence) TransitionRepository() persistence.TransitionRepository {
	return p.transitionRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// bumpFlowVersion increments the structural version inside the given
// transaction. Returns ErrFlowNotFound for unknown or deleted flows.
func bumpFlowVersion(ctx context.Context, tx *sql.Tx, flowID string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE flows SET version = version + 1, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		flowID)
	if err != nil {
		return fmt.Errorf("failed to bump flow version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check flow version update: %w", err)
	}

	if rows == 0 {
		return persistence.ErrFlowNotFound
	}

	return nil
}
