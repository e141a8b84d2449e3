package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
)

type agentRepository struct {
	db *sqlx.DB
}

func NewAgentRepository(db *sqlx.DB) AgentRepository {
	return &agentRepository{db: db}
}

const agentColumns = `
	id, name, branch_id, branch_name, phone, active, loan_target,
	disbursement_target, defaulting_target, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES (:id, :name, :branch_id, :branch_name, :phone, :active, :loan_target,
			:disbursement_target, :defaulting_target, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, agent)
	return err
}

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`

	var agent domain.Agent
	if err := r.db.GetContext(ctx, &agent, query, id); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	query := `
		UPDATE agents SET
			name = :name, branch_id = :branch_id, branch_name = :branch_name,
			phone = :phone, active = :active, loan_target = :loan_target,
			disbursement_target = :disbursement_target,
			defaulting_target = :defaulting_target, updated_at = :updated_at
		WHERE id = :id
	`

	agent.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, query, agent)
	return err
}

func (r *agentRepository) List(ctx context.Context, includeInactive bool) ([]*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	var agents []*domain.Agent
	if err := r.db.SelectContext(ctx, &agents, query); err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE branch_id = $1 AND active ORDER BY name`

	var agents []*domain.Agent
	if err := r.db.SelectContext(ctx, &agents, query, branchID); err != nil {
		return nil, err
	}
	return agents, nil
}

// ReplaceMonthlyRecords rewrites the agent's overdue and recovery entries for
// one month. Delete-then-insert inside a single transaction, so a failure
// for one agent never leaves that month half-written and never touches any
// other agent's rows.
func (r *agentRepository) ReplaceMonthlyRecords(ctx context.Context, agentID uuid.UUID, year, month int, overdue, recovery decimal.Decimal) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM agent_monthly_records WHERE agent_id = $1 AND year = $2 AND month = $3`,
		agentID, year, month,
	)
	if err != nil {
		return err
	}

	insert := `
		INSERT INTO agent_monthly_records (id, agent_id, year, month, kind, value)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err = tx.ExecContext(ctx, insert, uuid.New(), agentID, year, month, domain.RecordKindOverdue, overdue); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, insert, uuid.New(), agentID, year, month, domain.RecordKindRecovery, recovery); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *agentRepository) GetMonthlyRecords(ctx context.Context, agentID uuid.UUID) ([]domain.MonthlyRecord, error) {
	query := `
		SELECT id, agent_id, year, month, kind, value
		FROM agent_monthly_records
		WHERE agent_id = $1
		ORDER BY year, month, kind
	`

	var records []domain.MonthlyRecord
	if err := r.db.SelectContext(ctx, &records, query, agentID); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *agentRepository) GetRemittance(ctx context.Context, agentID uuid.UUID, date time.Time) (*domain.Remittance, error) {
	query := `
		SELECT id, agent_id, date, amount_expected, amount_remitted, status, created_at, updated_at
		FROM remittances
		WHERE agent_id = $1 AND date = $2
	`

	var rem domain.Remittance
	err := r.db.GetContext(ctx, &rem, query, agentID, calendar.Normalize(date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func (r *agentRepository) UpsertRemittance(ctx context.Context, rem *domain.Remittance) error {
	query := `
		INSERT INTO remittances (id, agent_id, date, amount_expected, amount_remitted, status, created_at, updated_at)
		VALUES (:id, :agent_id, :date, :amount_expected, :amount_remitted, :status, :created_at, :updated_at)
		ON CONFLICT (agent_id, date) DO UPDATE SET
			amount_expected = EXCLUDED.amount_expected,
			amount_remitted = EXCLUDED.amount_remitted,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	rem.Date = calendar.Normalize(rem.Date)
	rem.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, query, rem)
	return err
}
