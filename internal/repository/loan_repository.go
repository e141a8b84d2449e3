package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/collectiva/loan-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, loan_id, agent_id, agent_name, branch_name, client_name, loan_type,
	status, requested_amount, approved_amount, interest, amount_to_be_paid,
	installment_amount, amount_paid, amount_disbursed, application_fee,
	installment_count, disbursed_at, document_path, client_verified,
	guarantor_verified, workplace_verified, residence_verified,
	created_at, updated_at`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :loan_id, :agent_id, :agent_name, :branch_name, :client_name,
			:loan_type, :status, :requested_amount, :approved_amount, :interest,
			:amount_to_be_paid, :installment_amount, :amount_paid, :amount_disbursed,
			:application_fee, :installment_count, :disbursed_at, :document_path,
			:client_verified, :guarantor_verified, :workplace_verified,
			:residence_verified, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, loan)
	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) GetAggregate(ctx context.Context, loanID string) (*LoanAggregate, error) {
	loan, err := r.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	schedule, err := r.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}

	ledger, err := r.getLedger(ctx, r.db, loanID)
	if err != nil {
		return nil, err
	}

	return &LoanAggregate{Loan: loan, Schedule: schedule, Ledger: ledger}, nil
}

// Mutate locks the loan row, loads the aggregate, applies fn, and writes the
// resulting state back inside the same transaction. Schedule and ledger rows
// are replaced wholesale; fn may have regrown, trimmed, or sanitized them.
func (r *loanRepository) Mutate(ctx context.Context, loanID string, fn MutateFunc) (*LoanAggregate, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var loan domain.Loan
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, err
	}

	schedule, err := r.getSchedule(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	ledger, err := r.getLedger(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	agg := &LoanAggregate{Loan: &loan, Schedule: schedule, Ledger: ledger}
	if err = fn(agg); err != nil {
		return nil, err
	}

	agg.Loan.UpdatedAt = time.Now().UTC()
	if err = r.updateLoan(ctx, tx, agg.Loan); err != nil {
		return nil, err
	}
	if err = r.replaceSchedule(ctx, tx, loanID, agg.Schedule); err != nil {
		return nil, err
	}
	if err = r.replaceLedger(ctx, tx, loanID, agg.Ledger); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *loanRepository) updateLoan(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	query := `
		UPDATE loans SET
			agent_id = :agent_id, agent_name = :agent_name, branch_name = :branch_name,
			status = :status, approved_amount = :approved_amount, interest = :interest,
			amount_to_be_paid = :amount_to_be_paid, installment_amount = :installment_amount,
			amount_paid = :amount_paid, amount_disbursed = :amount_disbursed,
			installment_count = :installment_count, disbursed_at = :disbursed_at,
			document_path = :document_path, client_verified = :client_verified,
			guarantor_verified = :guarantor_verified, workplace_verified = :workplace_verified,
			residence_verified = :residence_verified, updated_at = :updated_at
		WHERE loan_id = :loan_id
	`

	_, err := tx.NamedExecContext(ctx, query, loan)
	return err
}

func (r *loanRepository) replaceSchedule(ctx context.Context, tx *sqlx.Tx, loanID string, schedule []*domain.Installment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE loan_id = $1`, loanID); err != nil {
		return err
	}

	query := `
		INSERT INTO installments (id, loan_id, seq, due_date, status, amount_paid, holiday_reason, created_at)
		VALUES (:id, :loan_id, :seq, :due_date, :status, :amount_paid, :holiday_reason, :created_at)
	`

	for _, entry := range schedule {
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *loanRepository) replaceLedger(ctx context.Context, tx *sqlx.Tx, loanID string, ledger []domain.Payment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE loan_id = $1`, loanID); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (payment_id, loan_id, amount, paid_at, created_at)
		VALUES (:payment_id, :loan_id, :amount, :paid_at, :created_at)
	`

	for _, p := range ledger {
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *loanRepository) GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	return r.getSchedule(ctx, r.db, loanID)
}

func (r *loanRepository) getSchedule(ctx context.Context, q sqlx.QueryerContext, loanID string) ([]*domain.Installment, error) {
	query := `
		SELECT id, loan_id, seq, due_date, status, amount_paid, holiday_reason, created_at
		FROM installments
		WHERE loan_id = $1
		ORDER BY due_date
	`

	var schedule []*domain.Installment
	if err := sqlx.SelectContext(ctx, q, &schedule, query, loanID); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *loanRepository) getLedger(ctx context.Context, q sqlx.QueryerContext, loanID string) ([]domain.Payment, error) {
	query := `
		SELECT payment_id, loan_id, amount, paid_at, created_at
		FROM payments
		WHERE loan_id = $1
		ORDER BY paid_at, payment_id
	`

	var ledger []domain.Payment
	if err := sqlx.SelectContext(ctx, q, &ledger, query, loanID); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (r *loanRepository) ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE agent_id = $1 AND status = $2 ORDER BY created_at`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, agentID, domain.LoanStatusActive); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) TransferAgent(ctx context.Context, fromAgentID, toAgentID uuid.UUID, agentName, branchName string) (int64, error) {
	query := `
		UPDATE loans
		SET agent_id = $2, agent_name = $3, branch_name = $4, updated_at = $5
		WHERE agent_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, fromAgentID, toAgentID, agentName, branchName, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
