// Package delinquency computes how far behind a loan is against its
// repayment schedule and which severity bucket it belongs to.
package delinquency

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
)

const (
	BucketCurrent  = "current"
	BucketOverdue  = "overdue"  // 30-59 business days past due
	BucketRecovery = "recovery" // 60+ business days past due
)

const (
	overdueThresholdDays  = 30
	recoveryThresholdDays = 60
)

type Result struct {
	ExpectedRepayment decimal.Decimal `json:"expected_repayment"`
	OutstandingDue    decimal.Decimal `json:"outstanding_due"`
	Bucket            string          `json:"bucket"`
}

type Classifier struct {
	cal *calendar.Calendar
}

func NewClassifier(cal *calendar.Calendar) *Classifier {
	return &Classifier{cal: cal}
}

// Classify determines what the loan should have repaid by asOf, how much of
// that is still outstanding, and the severity bucket. A weekend asOf rolls
// back to the preceding Friday.
//
// Once more schedule entries have come due than the loan's nominal
// installment count, the loan has run past its term and the full amount is
// simply due.
func (c *Classifier) Classify(loan *domain.Loan, schedule []*domain.Installment, asOf time.Time) Result {
	asOf = calendar.RollBackWeekend(asOf)

	dueCount := 0
	for _, e := range schedule {
		if !calendar.Normalize(e.DueDate).After(asOf) {
			dueCount++
		}
	}

	var expected decimal.Decimal
	if dueCount > loan.InstallmentCount {
		expected = loan.AmountToBePaid
	} else if loan.DisbursedAt != nil {
		elapsed := c.cal.CountBusinessDays(calendar.Normalize(*loan.DisbursedAt).AddDate(0, 0, 1), asOf)
		counted := dueCount - 1
		if elapsed < counted {
			counted = elapsed
		}
		if counted < 0 {
			counted = 0
		}
		expected = loan.InstallmentAmount.Mul(decimal.NewFromInt(int64(counted))).Round(2)
	}

	outstanding := expected.Sub(loan.AmountPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return Result{
		ExpectedRepayment: expected,
		OutstandingDue:    outstanding.Round(2),
		Bucket:            c.bucket(schedule, asOf),
	}
}

// bucket keys severity off the earliest still-outstanding entry's age, not
// today's date, so a loan lands in exactly one bucket.
func (c *Classifier) bucket(schedule []*domain.Installment, asOf time.Time) string {
	earliest := earliestUnresolved(schedule, asOf)
	if earliest == nil {
		return BucketCurrent
	}

	pastDue := c.cal.CountBusinessDays(calendar.Normalize(earliest.DueDate).AddDate(0, 0, 1), asOf)
	switch {
	case pastDue >= recoveryThresholdDays:
		return BucketRecovery
	case pastDue >= overdueThresholdDays:
		return BucketOverdue
	default:
		return BucketCurrent
	}
}

func earliestUnresolved(schedule []*domain.Installment, asOf time.Time) *domain.Installment {
	var earliest *domain.Installment
	for _, e := range schedule {
		switch e.Status {
		case domain.InstallmentStatusPending,
			domain.InstallmentStatusPartial,
			domain.InstallmentStatusApproved:
		default:
			continue
		}
		if calendar.Normalize(e.DueDate).After(asOf) {
			continue
		}
		if earliest == nil || e.DueDate.Before(earliest.DueDate) {
			earliest = e
		}
	}
	return earliest
}
