package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/collectiva/loan-engine/internal/domain"
	"github.com/collectiva/loan-engine/internal/repository"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetAggregate(ctx context.Context, loanID string) (*repository.LoanAggregate, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.LoanAggregate), args.Error(1)
}

// Mutate runs fn against the aggregate the expectation was armed with, the
// way the real repository runs it against the locked row.
func (m *MockLoanRepository) Mutate(ctx context.Context, loanID string, fn repository.MutateFunc) (*repository.LoanAggregate, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	agg := args.Get(0).(*repository.LoanAggregate)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if err := fn(agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (m *MockLoanRepository) ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]*domain.Loan, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockLoanRepository) TransferAgent(ctx context.Context, fromAgentID, toAgentID uuid.UUID, agentName, branchName string) (int64, error) {
	args := m.Called(ctx, fromAgentID, toAgentID, agentName, branchName)
	return args.Get(0).(int64), args.Error(1)
}

type MockAgentRepository struct {
	mock.Mock
}

func (m *MockAgentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agent), args.Error(1)
}

func (m *MockAgentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) List(ctx context.Context, includeInactive bool) ([]*domain.Agent, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Agent), args.Error(1)
}

func (m *MockAgentRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*domain.Agent, error) {
	args := m.Called(ctx, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Agent), args.Error(1)
}

func (m *MockAgentRepository) ReplaceMonthlyRecords(ctx context.Context, agentID uuid.UUID, year, month int, overdue, recovery decimal.Decimal) error {
	args := m.Called(ctx, agentID, year, month, overdue, recovery)
	return args.Error(0)
}

func (m *MockAgentRepository) GetMonthlyRecords(ctx context.Context, agentID uuid.UUID) ([]domain.MonthlyRecord, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyRecord), args.Error(1)
}

func (m *MockAgentRepository) GetRemittance(ctx context.Context, agentID uuid.UUID, date time.Time) (*domain.Remittance, error) {
	args := m.Called(ctx, agentID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Remittance), args.Error(1)
}

func (m *MockAgentRepository) UpsertRemittance(ctx context.Context, rem *domain.Remittance) error {
	args := m.Called(ctx, rem)
	return args.Error(0)
}

type MockHolidayRepository struct {
	mock.Mock
}

func (m *MockHolidayRepository) Create(ctx context.Context, holiday *domain.Holiday) error {
	args := m.Called(ctx, holiday)
	return args.Error(0)
}

func (m *MockHolidayRepository) List(ctx context.Context) ([]domain.Holiday, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Holiday), args.Error(1)
}

type MockBranchRepository struct {
	mock.Mock
}

func (m *MockBranchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	args := m.Called(ctx, branch)
	return args.Error(0)
}

func (m *MockBranchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Branch), args.Error(1)
}

func (m *MockBranchRepository) Update(ctx context.Context, branch *domain.Branch) error {
	args := m.Called(ctx, branch)
	return args.Error(0)
}
