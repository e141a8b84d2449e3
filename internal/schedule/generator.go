// Package schedule turns a disbursement date into the ordered list of
// expected installment due dates for a loan.
package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
	apperrors "github.com/collectiva/loan-engine/pkg/errors"
)

type Generator struct {
	cal *calendar.Calendar
}

func NewGenerator(cal *calendar.Calendar) *Generator {
	return &Generator{cal: cal}
}

// Generate produces the repayment schedule for a loan disbursed on startDate.
//
// Daily loans walk forward one calendar day at a time from startDate,
// collecting business days until count entries exist. Weekly loans produce
// count entries exactly 7 calendar days apart with no skipping. In both
// cases the first entry is immediately due (status approved) and the rest
// start pending; a holiday-overlap pass then force-sets any entry landing on
// a registered holiday.
func (g *Generator) Generate(loanID string, startDate time.Time, loanType string, count int) ([]*domain.Installment, error) {
	if count <= 0 {
		return nil, apperrors.WrapValidation("installment count must be positive")
	}

	start := calendar.Normalize(startDate)
	entries := make([]*domain.Installment, 0, count)

	switch loanType {
	case domain.LoanTypeDaily:
		for d := start; len(entries) < count; d = d.AddDate(0, 0, 1) {
			if !g.cal.IsBusinessDay(d) {
				continue
			}
			entries = append(entries, g.newEntry(loanID, len(entries), d))
		}
	case domain.LoanTypeWeekly:
		for i := 0; i < count; i++ {
			entries = append(entries, g.newEntry(loanID, i, start.AddDate(0, 0, 7*i)))
		}
	default:
		return nil, apperrors.WrapValidation("loan type must be daily or weekly")
	}

	g.ApplyHolidayOverrides(entries)
	return entries, nil
}

func (g *Generator) newEntry(loanID string, seq int, due time.Time) *domain.Installment {
	status := domain.InstallmentStatusPending
	if seq == 0 {
		status = domain.InstallmentStatusApproved
	}
	return &domain.Installment{
		ID:         uuid.New(),
		LoanID:     loanID,
		Seq:        seq,
		DueDate:    due,
		Status:     status,
		AmountPaid: decimal.Zero,
		CreatedAt:  time.Now().UTC(),
	}
}

// ApplyHolidayOverrides force-sets every entry whose due date matches a
// registered holiday to status holiday with zero capacity, carrying the
// holiday's reason. Weekly schedules can land on holidays since their dates
// are fixed strides.
func (g *Generator) ApplyHolidayOverrides(entries []*domain.Installment) {
	for _, e := range entries {
		if h, ok := g.cal.HolidayOn(e.DueDate); ok {
			e.Status = domain.InstallmentStatusHoliday
			e.AmountPaid = decimal.Zero
			e.HolidayReason = h.Reason
		}
	}
}

// Resync regenerates a schedule while preserving statuses an admin or agent
// set explicitly. Fresh entries are matched to existing ones by due date;
// statuses other than the generated defaults (pending/approved) carry over.
// Amounts are not carried — the allocator recomputes them from the ledger.
func (g *Generator) Resync(existing, fresh []*domain.Installment) []*domain.Installment {
	byDate := make(map[string]*domain.Installment, len(existing))
	for _, e := range existing {
		byDate[calendar.Normalize(e.DueDate).Format("2006-01-02")] = e
	}

	for _, f := range fresh {
		old, ok := byDate[calendar.Normalize(f.DueDate).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch old.Status {
		case domain.InstallmentStatusPending, domain.InstallmentStatusApproved:
			// generated defaults, keep the fresh value
		default:
			f.Status = old.Status
			f.HolidayReason = old.HolidayReason
		}
	}

	g.ApplyHolidayOverrides(fresh)
	return fresh
}
