// Package history persists completed simulations to Postgres for later
// follow-up by the sales team. The conversation itself never depends on it.
package history

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vmartins/esterbot/bot/flow"
)

// Store writes simulation records through sqlx.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const insertSimulation = `
INSERT INTO simulations (sender, name, credit_limit, installments, withdrawal, per_installment)
VALUES (:sender, :name, :credit_limit, :installments, :withdrawal, :per_installment)`

// RecordSimulation inserts one completed simulation.
func (s *Store) RecordSimulation(ctx context.Context, sim flow.Simulation) error {
	_, err := s.db.NamedExecContext(ctx, insertSimulation, map[string]interface{}{
		"sender":          sim.Sender,
		"name":            sim.Name,
		"credit_limit":    sim.Limit,
		"installments":    sim.Installments,
		"withdrawal":      sim.Withdrawal,
		"per_installment": sim.PerInstallment,
	})
	if err != nil {
		return fmt.Errorf("history: insert simulation: %w", err)
	}
	return nil
}
