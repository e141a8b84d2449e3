package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/domain"
)

// LoanAggregate is a loan together with its repayment schedule and payment
// ledger, loaded and persisted as one unit.
type LoanAggregate struct {
	Loan     *domain.Loan
	Schedule []*domain.Installment
	Ledger   []domain.Payment
}

// MutateFunc edits a locked loan aggregate in place. Whatever state it
// leaves behind is what gets persisted.
type MutateFunc func(agg *LoanAggregate) error

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its human-readable loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GetAggregate loads a loan with its schedule and ledger, without locking
	GetAggregate(ctx context.Context, loanID string) (*LoanAggregate, error)

	// Mutate runs fn against the loan aggregate inside one transaction that
	// holds a row lock on the loan, then persists the loan, schedule and
	// ledger fn left behind. Two concurrent payment submissions therefore
	// never allocate against a stale schedule snapshot.
	Mutate(ctx context.Context, loanID string, fn MutateFunc) (*LoanAggregate, error)

	// ListActiveByAgent retrieves all active loans owned by an agent
	ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]*domain.Loan, error)

	// GetSchedule retrieves the repayment schedule ordered by due date
	GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error)

	// TransferAgent reassigns every loan owned by one agent to another,
	// updating the denormalized agent name and branch fields
	TransferAgent(ctx context.Context, fromAgentID, toAgentID uuid.UUID, agentName, branchName string) (int64, error)
}

// AgentRepository defines the interface for agent data operations
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
	Update(ctx context.Context, agent *domain.Agent) error

	// List returns agents, optionally including inactive ones
	List(ctx context.Context, includeInactive bool) ([]*domain.Agent, error)

	// ListByBranch returns the active agents of a branch
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*domain.Agent, error)

	// ReplaceMonthlyRecords deletes then inserts the agent's overdue and
	// recovery entries for the given year and month, in one transaction
	ReplaceMonthlyRecords(ctx context.Context, agentID uuid.UUID, year, month int, overdue, recovery decimal.Decimal) error

	// GetMonthlyRecords returns the agent's delinquency time series
	GetMonthlyRecords(ctx context.Context, agentID uuid.UUID) ([]domain.MonthlyRecord, error)

	// GetRemittance returns the agent's remittance entry for a date, if any
	GetRemittance(ctx context.Context, agentID uuid.UUID, date time.Time) (*domain.Remittance, error)

	// UpsertRemittance creates or updates the single remittance entry for
	// the agent and date
	UpsertRemittance(ctx context.Context, rem *domain.Remittance) error
}

// HolidayRepository defines the interface for holiday data operations
type HolidayRepository interface {
	Create(ctx context.Context, holiday *domain.Holiday) error

	// List returns every stored holiday. The set is small; the calendar
	// service does the matching.
	List(ctx context.Context) ([]domain.Holiday, error)
}

// BranchRepository defines the interface for branch data operations
type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error)
	Update(ctx context.Context, branch *domain.Branch) error
}
