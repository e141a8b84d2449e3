package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/allocation"
	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/config"
	"github.com/collectiva/loan-engine/internal/delinquency"
	"github.com/collectiva/loan-engine/internal/domain"
	"github.com/collectiva/loan-engine/internal/rate"
	"github.com/collectiva/loan-engine/internal/repository"
	"github.com/collectiva/loan-engine/internal/schedule"
	apperrors "github.com/collectiva/loan-engine/pkg/errors"
)

var epsilon = decimal.RequireFromString("0.01")

const exposureCacheTTL = 10 * time.Minute

// LoanService is the loan lifecycle controller. Every state transition and
// every piece of payment math routes through here and the shared calendar,
// generator, allocator and classifier, never through handler-local logic.
type LoanService struct {
	LoanRepo    repository.LoanRepository
	AgentRepo   repository.AgentRepository
	HolidayRepo repository.HolidayRepository
	rates       rate.Provider
	redis       *redis.Client
	config      *config.Config
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	agentRepo repository.AgentRepository,
	holidayRepo repository.HolidayRepository,
	rates rate.Provider,
	redisClient *redis.Client,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		LoanRepo:    loanRepo,
		AgentRepo:   agentRepo,
		HolidayRepo: holidayRepo,
		rates:       rates,
		redis:       redisClient,
		config:      cfg,
	}
}

// calendar builds a Calendar from the current holiday store. Built per
// operation so a freshly registered holiday takes effect immediately.
func (s *LoanService) calendar(ctx context.Context) (*calendar.Calendar, error) {
	holidays, err := s.HolidayRepo.List(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return calendar.New(holidays), nil
}

func (s *LoanService) installmentCount(loanType string) int {
	if loanType == domain.LoanTypeWeekly {
		return s.config.Business.WeeklyInstallmentCount
	}
	return s.config.Business.DailyInstallmentCount
}

// SubmitLoan registers a new application for an agent. Agents whose
// aggregate outstanding already exceeds their defaulting target may not
// originate new loans.
func (s *LoanService) SubmitLoan(ctx context.Context, agentID uuid.UUID, req *domain.SubmitLoanRequest) (*domain.Loan, error) {
	if req.RequestedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapValidation("requested amount must be positive")
	}

	agent, err := s.AgentRepo.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapAgentNotFound(agentID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !agent.Active {
		return nil, apperrors.WrapValidation("agent is inactive")
	}

	if agent.DefaultingTarget.GreaterThan(decimal.Zero) {
		exposure, err := s.agentExposure(ctx, agentID, time.Now())
		if err != nil {
			return nil, err
		}
		if exposure.GreaterThan(agent.DefaultingTarget) {
			return nil, apperrors.WrapDefaultingLimitExceeded(agentID.String(), agent.DefaultingTarget, exposure)
		}
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:               uuid.New(),
		LoanID:           newLoanID(now),
		AgentID:          agent.ID,
		AgentName:        agent.Name,
		BranchName:       agent.BranchName,
		ClientName:       req.ClientName,
		LoanType:         req.LoanType,
		Status:           domain.LoanStatusWaitingForApproval,
		RequestedAmount:  req.RequestedAmount.Round(2),
		ApplicationFee:   s.config.GetApplicationFee(),
		InstallmentCount: s.installmentCount(req.LoanType),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loan, nil
}

func newLoanID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("LN-%s-%s", now.Format("20060102"), suffix)
}

// SetVerification records the outcome of the four verification calls.
func (s *LoanService) SetVerification(ctx context.Context, loanID string, client, guarantor, workplace, residence bool) (*domain.Loan, error) {
	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		if agg.Loan.Status != domain.LoanStatusWaitingForApproval {
			return apperrors.WrapStateConflict(loanID, agg.Loan.Status, domain.LoanStatusWaitingForApproval)
		}
		agg.Loan.ClientVerified = client
		agg.Loan.GuarantorVerified = guarantor
		agg.Loan.WorkplaceVerified = workplace
		agg.Loan.ResidenceVerified = residence
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Loan, nil
}

// ApproveLoan moves a verified application to approved and fixes the money
// fields: interest from the rate provider, total to be paid, and the
// per-installment amount.
func (s *LoanService) ApproveLoan(ctx context.Context, loanID string, req *domain.ApproveLoanRequest) (*domain.Loan, error) {
	if req.ApprovedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapValidation("approved amount must be positive")
	}

	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		loan := agg.Loan
		if loan.Status != domain.LoanStatusWaitingForApproval {
			return apperrors.WrapStateConflict(loanID, loan.Status, domain.LoanStatusWaitingForApproval)
		}
		if !loan.Verified() {
			return apperrors.WrapValidation("all four verification calls must be completed")
		}

		interestRate := s.rates.CurrentRate(ctx)
		loan.ApprovedAmount = req.ApprovedAmount.Round(2)
		loan.Interest = loan.ApprovedAmount.Mul(interestRate).Round(2)
		loan.AmountToBePaid = loan.ApprovedAmount.Add(loan.Interest).Round(2)
		loan.InstallmentAmount = loan.AmountToBePaid.
			Div(decimal.NewFromInt(int64(loan.InstallmentCount))).Round(2)
		loan.Status = domain.LoanStatusApproved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Loan, nil
}

// DisburseLoan activates an approved loan: records the disbursed amount,
// generates a fresh repayment schedule starting today, and zeroes the paid
// total.
func (s *LoanService) DisburseLoan(ctx context.Context, loanID string) (*repository.LoanAggregate, error) {
	cal, err := s.calendar(ctx)
	if err != nil {
		return nil, err
	}
	gen := schedule.NewGenerator(cal)

	return s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		loan := agg.Loan
		if loan.Status != domain.LoanStatusApproved {
			return apperrors.WrapStateConflict(loanID, loan.Status, domain.LoanStatusApproved)
		}
		if loan.ApprovedAmount.LessThanOrEqual(decimal.Zero) {
			return apperrors.WrapValidation("loan has no approved amount")
		}

		now := time.Now().UTC()
		fresh, err := gen.Generate(loanID, now, loan.LoanType, loan.InstallmentCount)
		if err != nil {
			return err
		}

		loan.AmountDisbursed = loan.ApprovedAmount
		loan.DisbursedAt = &now
		loan.AmountPaid = decimal.Zero
		loan.Status = domain.LoanStatusActive
		agg.Schedule = fresh
		agg.Ledger = nil
		return nil
	})
}

// RejectLoan is terminal and only reachable before approval.
func (s *LoanService) RejectLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		switch agg.Loan.Status {
		case domain.LoanStatusWaitingForApproval, domain.LoanStatusEdited:
			agg.Loan.Status = domain.LoanStatusRejected
			return nil
		default:
			return apperrors.WrapStateConflict(loanID, agg.Loan.Status, "waiting_for_approval or edited")
		}
	})
	if err != nil {
		return nil, err
	}
	return agg.Loan, nil
}

// RequestEdit sends an application back to the agent for corrections.
func (s *LoanService) RequestEdit(ctx context.Context, loanID string) (*domain.Loan, error) {
	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		if agg.Loan.Status != domain.LoanStatusWaitingForApproval {
			return apperrors.WrapStateConflict(loanID, agg.Loan.Status, domain.LoanStatusWaitingForApproval)
		}
		agg.Loan.Status = domain.LoanStatusEdited
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Loan, nil
}

// ResubmitLoan returns a corrected application to the approval queue with a
// clean ledger and schedule.
func (s *LoanService) ResubmitLoan(ctx context.Context, loanID string, req *domain.SubmitLoanRequest) (*domain.Loan, error) {
	if req.RequestedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapValidation("requested amount must be positive")
	}

	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		if agg.Loan.Status != domain.LoanStatusEdited {
			return apperrors.WrapStateConflict(loanID, agg.Loan.Status, domain.LoanStatusEdited)
		}
		agg.Loan.ClientName = req.ClientName
		agg.Loan.LoanType = req.LoanType
		agg.Loan.RequestedAmount = req.RequestedAmount.Round(2)
		agg.Loan.InstallmentCount = s.installmentCount(req.LoanType)
		agg.Loan.Status = domain.LoanStatusWaitingForApproval
		agg.Schedule = nil
		agg.Ledger = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Loan, nil
}

// RecordPayment appends a payment to the loan's ledger and reallocates the
// whole ledger against the schedule. Payments are rejected on non-business
// days, after the agent has filed that day's remittance, and when they would
// push recognized payment past the amount to be paid. Resubmitting an
// already-recognized payment id returns the loan unchanged.
func (s *LoanService) RecordPayment(ctx context.Context, loanID string, req *domain.RecordPaymentRequest) (*repository.LoanAggregate, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapValidation("payment amount must be positive")
	}

	paidAt, err := parseDate(req.Date)
	if err != nil {
		return nil, apperrors.WrapValidation("payment date must be YYYY-MM-DD")
	}

	cal, err := s.calendar(ctx)
	if err != nil {
		return nil, err
	}
	if !cal.IsBusinessDay(paidAt) {
		return nil, apperrors.WrapNonBusinessDay(req.Date)
	}

	alloc := allocation.NewAllocator(cal)

	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		loan := agg.Loan

		incoming := domain.Payment{
			PaymentID: req.PaymentID,
			LoanID:    loanID,
			Amount:    req.Amount.Round(2),
			PaidAt:    paidAt,
			CreatedAt: time.Now().UTC(),
		}

		// A resubmission of an already-recognized payment is a no-op, not an
		// overpayment or a state conflict. Checked before everything else so
		// a retry of the final installment stays idempotent even after the
		// loan has flipped to fully paid.
		sanitized := allocation.Sanitize(agg.Ledger)
		incomingID := allocation.EffectivePaymentID(incoming)
		recognized := decimal.Zero
		for _, p := range sanitized {
			if p.PaymentID == incomingID {
				return nil
			}
			recognized = recognized.Add(p.Amount)
		}

		if loan.Status != domain.LoanStatusActive {
			return apperrors.WrapStateConflict(loanID, loan.Status, domain.LoanStatusActive)
		}

		rem, err := s.AgentRepo.GetRemittance(ctx, loan.AgentID, paidAt)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		if rem != nil {
			return apperrors.WrapRemittanceAlreadyFiled(loan.AgentID.String(), req.Date)
		}

		// Reject overpayment before allocation so excess is never silently
		// absorbed by the schedule capacity cap.
		remaining := loan.AmountToBePaid.Sub(recognized)
		if req.Amount.GreaterThan(remaining.Add(epsilon)) {
			return apperrors.WrapPaymentExceedsBalance(loanID, remaining.Round(2))
		}

		agg.Ledger = append(agg.Ledger, incoming)

		return s.reconcile(agg, alloc)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateExposure(ctx, agg.Loan.AgentID)
	return agg, nil
}

// SyncRepaymentSchedule recomputes a loan's schedule and paid total from
// scratch as a pure function of the ledger, disbursement date and loan type.
// Safe to call repeatedly; the only side effect is the single atomic write.
func (s *LoanService) SyncRepaymentSchedule(ctx context.Context, loanID string) (*repository.LoanAggregate, error) {
	cal, err := s.calendar(ctx)
	if err != nil {
		return nil, err
	}
	gen := schedule.NewGenerator(cal)
	alloc := allocation.NewAllocator(cal)

	return s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		loan := agg.Loan
		if loan.Status != domain.LoanStatusActive && loan.Status != domain.LoanStatusFullyPaid {
			return apperrors.WrapStateConflict(loanID, loan.Status, domain.LoanStatusActive)
		}
		if loan.DisbursedAt == nil {
			return apperrors.WrapInvalidScheduleState(loanID)
		}

		fresh, err := gen.Generate(loanID, *loan.DisbursedAt, loan.LoanType, loan.InstallmentCount)
		if err != nil {
			return err
		}
		agg.Schedule = gen.Resync(agg.Schedule, fresh)

		return s.reconcile(agg, alloc)
	})
}

// reconcile reallocates the loan's ledger against its schedule and settles
// the derived fields, flipping the loan to fully paid once the recognized
// total reaches the amount to be paid.
func (s *LoanService) reconcile(agg *repository.LoanAggregate, alloc *allocation.Allocator) error {
	agg.Ledger = allocation.Sanitize(agg.Ledger)

	updated, paid, err := alloc.Allocate(agg.Loan.LoanID, agg.Schedule, agg.Ledger, agg.Loan.InstallmentAmount)
	if err != nil {
		return err
	}

	agg.Schedule = updated
	agg.Loan.AmountPaid = paid

	if agg.Loan.AmountToBePaid.Sub(paid).LessThanOrEqual(epsilon) {
		agg.Loan.Status = domain.LoanStatusFullyPaid
	} else if agg.Loan.Status == domain.LoanStatusFullyPaid {
		agg.Loan.Status = domain.LoanStatusActive
	}
	return nil
}

// GetLoan loads a loan with its schedule and sanitized ledger.
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*repository.LoanAggregate, error) {
	agg, err := s.LoanRepo.GetAggregate(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	agg.Ledger = allocation.Sanitize(agg.Ledger)
	return agg, nil
}

// AttachDocument stores the uploaded document reference on the loan.
func (s *LoanService) AttachDocument(ctx context.Context, loanID, ref string) (*domain.Loan, error) {
	agg, err := s.mutate(ctx, loanID, func(agg *repository.LoanAggregate) error {
		agg.Loan.DocumentPath = ref
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Loan, nil
}

// GetOutstanding sums expected repayment and outstanding due across an
// agent's active loans as of a date.
func (s *LoanService) GetOutstanding(ctx context.Context, agentID uuid.UUID, asOf time.Time) (*domain.OutstandingResponse, error) {
	cal, err := s.calendar(ctx)
	if err != nil {
		return nil, err
	}
	classifier := delinquency.NewClassifier(cal)

	loans, err := s.LoanRepo.ListActiveByAgent(ctx, agentID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	expected, outstanding := decimal.Zero, decimal.Zero
	for _, loan := range loans {
		sched, err := s.LoanRepo.GetSchedule(ctx, loan.LoanID)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
		res := classifier.Classify(loan, sched, asOf)
		expected = expected.Add(res.ExpectedRepayment)
		outstanding = outstanding.Add(res.OutstandingDue)
	}

	return &domain.OutstandingResponse{
		AgentID:           agentID,
		AsOf:              calendar.RollBackWeekend(asOf),
		ExpectedRepayment: expected.Round(2),
		OutstandingDue:    outstanding.Round(2),
		Loans:             len(loans),
	}, nil
}

// agentExposure is GetOutstanding's total with a short redis cache in front,
// used for admission control on loan submission.
func (s *LoanService) agentExposure(ctx context.Context, agentID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	key := exposureKey(agentID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			if v, err := decimal.NewFromString(cached); err == nil {
				return v, nil
			}
		}
	}

	resp, err := s.GetOutstanding(ctx, agentID, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, resp.OutstandingDue.String(), exposureCacheTTL).Err(); err != nil {
			slog.Warn("caching agent exposure failed", "agent_id", agentID, "error", err)
		}
	}
	return resp.OutstandingDue, nil
}

func (s *LoanService) invalidateExposure(ctx context.Context, agentID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, exposureKey(agentID)).Err(); err != nil {
		slog.Warn("invalidating agent exposure cache failed", "agent_id", agentID, "error", err)
	}
}

func exposureKey(agentID uuid.UUID) string {
	return "agent_exposure:" + agentID.String()
}

// mutate wraps LoanRepo.Mutate with not-found translation.
func (s *LoanService) mutate(ctx context.Context, loanID string, fn repository.MutateFunc) (*repository.LoanAggregate, error) {
	agg, err := s.LoanRepo.Mutate(ctx, loanID, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID)
		}
		var be *apperrors.BusinessError
		if errors.As(err, &be) {
			return nil, be
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return agg, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return calendar.Normalize(t), nil
}
