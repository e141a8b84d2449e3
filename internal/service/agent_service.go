package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
	"github.com/collectiva/loan-engine/internal/repository"
	apperrors "github.com/collectiva/loan-engine/pkg/errors"
)

// AgentService handles agent identity, performance targets, branch target
// distribution and the remittance ledger.
type AgentService struct {
	AgentRepo   repository.AgentRepository
	BranchRepo  repository.BranchRepository
	LoanRepo    repository.LoanRepository
	HolidayRepo repository.HolidayRepository
}

func NewAgentService(
	agentRepo repository.AgentRepository,
	branchRepo repository.BranchRepository,
	loanRepo repository.LoanRepository,
	holidayRepo repository.HolidayRepository,
) *AgentService {
	return &AgentService{
		AgentRepo:   agentRepo,
		BranchRepo:  branchRepo,
		LoanRepo:    loanRepo,
		HolidayRepo: holidayRepo,
	}
}

func (s *AgentService) CreateAgent(ctx context.Context, req *domain.CreateAgentRequest) (*domain.Agent, error) {
	branch, err := s.BranchRepo.GetByID(ctx, req.BranchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapValidation("branch does not exist")
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:                 uuid.New(),
		Name:               req.Name,
		BranchID:           branch.ID,
		BranchName:         branch.Name,
		Phone:              req.Phone,
		Active:             true,
		DisbursementTarget: decimal.Zero,
		DefaultingTarget:   decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.AgentRepo.Create(ctx, agent); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return agent, nil
}

func (s *AgentService) SetTargets(ctx context.Context, agentID uuid.UUID, req *domain.SetTargetsRequest) (*domain.Agent, error) {
	agent, err := s.getAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	agent.LoanTarget = req.LoanTarget
	agent.DisbursementTarget = req.DisbursementTarget.Round(2)
	agent.DefaultingTarget = req.DefaultingTarget.Round(2)

	if err := s.AgentRepo.Update(ctx, agent); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return agent, nil
}

func (s *AgentService) SetActive(ctx context.Context, agentID uuid.UUID, active bool) (*domain.Agent, error) {
	agent, err := s.getAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	agent.Active = active
	if err := s.AgentRepo.Update(ctx, agent); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return agent, nil
}

// TransferLoans bulk-moves every loan from one agent to another, refreshing
// the denormalized agent name and branch on each loan.
func (s *AgentService) TransferLoans(ctx context.Context, fromAgentID, toAgentID uuid.UUID) (int64, error) {
	to, err := s.getAgent(ctx, toAgentID)
	if err != nil {
		return 0, err
	}
	if !to.Active {
		return 0, apperrors.WrapValidation("target agent is inactive")
	}

	moved, err := s.LoanRepo.TransferAgent(ctx, fromAgentID, toAgentID, to.Name, to.BranchName)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}
	return moved, nil
}

// DistributeBranchTargets spreads a branch's loan and disbursement targets
// evenly across its active agents, with the integer remainder of the loan
// target going to the first agents in name order.
func (s *AgentService) DistributeBranchTargets(ctx context.Context, branchID uuid.UUID, req *domain.SetBranchTargetsRequest) (*domain.Branch, error) {
	branch, err := s.BranchRepo.GetByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapValidation("branch does not exist")
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	branch.LoanTarget = req.LoanTarget
	branch.DisbursementTarget = req.DisbursementTarget.Round(2)
	if err := s.BranchRepo.Update(ctx, branch); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	agents, err := s.AgentRepo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if len(agents) == 0 {
		return branch, nil
	}

	n := len(agents)
	perLoan := branch.LoanTarget / n
	remainder := branch.LoanTarget % n
	perDisbursement := branch.DisbursementTarget.Div(decimal.NewFromInt(int64(n))).Round(2)

	for i, agent := range agents {
		agent.LoanTarget = perLoan
		if i < remainder {
			agent.LoanTarget++
		}
		agent.DisbursementTarget = perDisbursement
		if err := s.AgentRepo.Update(ctx, agent); err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
	}
	return branch, nil
}

// FileRemittance closes the agent's books for a business day: it records
// cash handed in against cash expected (that day's ledger entries across the
// agent's active loans) and blocks further payments dated that day.
func (s *AgentService) FileRemittance(ctx context.Context, agentID uuid.UUID, req *domain.FileRemittanceRequest) (*domain.Remittance, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, apperrors.WrapValidation("remittance date must be YYYY-MM-DD")
	}

	holidays, err := s.HolidayRepo.List(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !calendar.New(holidays).IsBusinessDay(date) {
		return nil, apperrors.WrapNonBusinessDay(req.Date)
	}

	if _, err := s.getAgent(ctx, agentID); err != nil {
		return nil, err
	}

	existing, err := s.AgentRepo.GetRemittance(ctx, agentID, date)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, apperrors.WrapRemittanceAlreadyFiled(agentID.String(), req.Date)
	}

	expected, err := s.expectedCollection(ctx, agentID, date)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rem := &domain.Remittance{
		ID:             uuid.New(),
		AgentID:        agentID,
		Date:           date,
		AmountExpected: expected,
		AmountRemitted: req.AmountRemitted.Round(2),
		Status:         domain.RemittanceStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.AgentRepo.UpsertRemittance(ctx, rem); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return rem, nil
}

// expectedCollection sums ledger entries dated on the given day across the
// agent's active loans.
func (s *AgentService) expectedCollection(ctx context.Context, agentID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	loans, err := s.LoanRepo.ListActiveByAgent(ctx, agentID)
	if err != nil {
		return decimal.Zero, apperrors.WrapDatabaseError(err)
	}

	total := decimal.Zero
	for _, loan := range loans {
		agg, err := s.LoanRepo.GetAggregate(ctx, loan.LoanID)
		if err != nil {
			return decimal.Zero, apperrors.WrapDatabaseError(err)
		}
		for _, p := range agg.Ledger {
			if calendar.Normalize(p.PaidAt).Equal(date) {
				total = total.Add(p.Amount)
			}
		}
	}
	return total.Round(2), nil
}

// ReconcileRemittance records the admin's verdict on a filed remittance.
func (s *AgentService) ReconcileRemittance(ctx context.Context, agentID uuid.UUID, req *domain.ReconcileRemittanceRequest) (*domain.Remittance, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, apperrors.WrapValidation("remittance date must be YYYY-MM-DD")
	}

	rem, err := s.AgentRepo.GetRemittance(ctx, agentID, date)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if rem == nil {
		return nil, apperrors.WrapValidation("no remittance filed for this date")
	}

	rem.Status = req.Status
	if err := s.AgentRepo.UpsertRemittance(ctx, rem); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return rem, nil
}

// GetDelinquencyHistory returns the agent's monthly overdue and recovery
// time series as written by the aggregation job.
func (s *AgentService) GetDelinquencyHistory(ctx context.Context, agentID uuid.UUID) ([]domain.MonthlyRecord, error) {
	if _, err := s.getAgent(ctx, agentID); err != nil {
		return nil, err
	}

	records, err := s.AgentRepo.GetMonthlyRecords(ctx, agentID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return records, nil
}

func (s *AgentService) getAgent(ctx context.Context, agentID uuid.UUID) (*domain.Agent, error) {
	agent, err := s.AgentRepo.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapAgentNotFound(agentID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return agent, nil
}
