package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/delinquency"
	"github.com/collectiva/loan-engine/internal/repository"
	apperrors "github.com/collectiva/loan-engine/pkg/errors"
)

// AggregationService recomputes each agent's monthly overdue and recovery
// totals from their active loans. One agent failing never aborts the run;
// errors are collected into the summary and the next scheduled run retries
// naturally.
type AggregationService struct {
	LoanRepo    repository.LoanRepository
	AgentRepo   repository.AgentRepository
	HolidayRepo repository.HolidayRepository
}

func NewAggregationService(
	loanRepo repository.LoanRepository,
	agentRepo repository.AgentRepository,
	holidayRepo repository.HolidayRepository,
) *AggregationService {
	return &AggregationService{
		LoanRepo:    loanRepo,
		AgentRepo:   agentRepo,
		HolidayRepo: holidayRepo,
	}
}

type AggregationSummary struct {
	AsOf      time.Time         `json:"as_of"`
	StartedAt time.Time         `json:"started_at"`
	Agents    int               `json:"agents"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Run classifies every active loan of every agent as of the given date and
// replaces each agent's {year, month} overdue/recovery entries with the
// fresh totals. The replacement is transactional per agent.
func (s *AggregationService) Run(ctx context.Context, asOf time.Time, includeInactive bool) (*AggregationSummary, error) {
	summary := &AggregationSummary{
		AsOf:      calendar.RollBackWeekend(asOf),
		StartedAt: time.Now().UTC(),
		Errors:    make(map[string]string),
	}

	holidays, err := s.HolidayRepo.List(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	classifier := delinquency.NewClassifier(calendar.New(holidays))

	agents, err := s.AgentRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	summary.Agents = len(agents)

	// The record month follows the raw run date; the weekend rollback applies
	// to classification only, so a Saturday-the-1st run still writes into the
	// new month.
	runDate := calendar.Normalize(asOf)
	year, month := runDate.Year(), int(runDate.Month())

	for _, agent := range agents {
		if err := s.aggregateAgent(ctx, classifier, agent.ID, asOf, year, month); err != nil {
			summary.Failed++
			summary.Errors[agent.ID.String()] = err.Error()
			slog.Error("agent aggregation failed", "agent_id", agent.ID, "error", err)
		}
	}

	slog.Info("delinquency aggregation finished",
		"agents", summary.Agents,
		"failed", summary.Failed,
		"as_of", summary.AsOf,
	)
	return summary, nil
}

func (s *AggregationService) aggregateAgent(ctx context.Context, classifier *delinquency.Classifier, agentID uuid.UUID, asOf time.Time, year, month int) error {
	loans, err := s.LoanRepo.ListActiveByAgent(ctx, agentID)
	if err != nil {
		return err
	}

	overdue, recovery := decimal.Zero, decimal.Zero
	for _, loan := range loans {
		sched, err := s.LoanRepo.GetSchedule(ctx, loan.LoanID)
		if err != nil {
			return err
		}

		res := classifier.Classify(loan, sched, asOf)
		switch res.Bucket {
		case delinquency.BucketOverdue:
			overdue = overdue.Add(res.OutstandingDue)
		case delinquency.BucketRecovery:
			recovery = recovery.Add(res.OutstandingDue)
		}
	}

	return s.AgentRepo.ReplaceMonthlyRecords(ctx, agentID, year, month, overdue.Round(2), recovery.Round(2))
}
