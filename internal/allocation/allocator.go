// Package allocation distributes payment-ledger entries across a repayment
// schedule. This is the reconciliation core: every request path and the
// aggregation job must route payment math through here rather than
// reimplementing it inline.
package allocation

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
	apperrors "github.com/collectiva/loan-engine/pkg/errors"
)

// Epsilon below which a currency amount counts as zero.
var epsilon = decimal.RequireFromString("0.01")

type Allocator struct {
	cal *calendar.Calendar
}

func NewAllocator(cal *calendar.Calendar) *Allocator {
	return &Allocator{cal: cal}
}

// Sanitize repairs a payment ledger before allocation: drops entries with
// non-positive amounts or zero dates, normalizes dates to UTC midnight,
// assigns a content-derived id to entries missing one, deduplicates by id,
// and sorts by date ascending with ties broken by id.
//
// Ids for entries that arrived without one are derived from (date, amount)
// so repeated submissions of the same anonymous payment collapse to a single
// entry and re-sanitizing already-sanitized output is a no-op.
func Sanitize(ledger []domain.Payment) []domain.Payment {
	cleaned := make([]domain.Payment, 0, len(ledger))
	for _, p := range ledger {
		if p.Amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if p.PaidAt.IsZero() {
			continue
		}
		p.PaidAt = calendar.Normalize(p.PaidAt)
		if p.PaymentID == "" {
			p.PaymentID = derivedPaymentID(p)
		}
		cleaned = append(cleaned, p)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		if !cleaned[i].PaidAt.Equal(cleaned[j].PaidAt) {
			return cleaned[i].PaidAt.Before(cleaned[j].PaidAt)
		}
		return cleaned[i].PaymentID < cleaned[j].PaymentID
	})

	seen := make(map[string]bool, len(cleaned))
	out := cleaned[:0]
	for _, p := range cleaned {
		if seen[p.PaymentID] {
			continue
		}
		seen[p.PaymentID] = true
		out = append(out, p)
	}
	return out
}

func derivedPaymentID(p domain.Payment) string {
	sig := fmt.Sprintf("%s|%s", p.PaidAt.Format("2006-01-02"), p.Amount.StringFixed(2))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sig)).String()
}

// EffectivePaymentID returns the id Sanitize would assign the payment:
// the caller-supplied id when present, the deterministic derived id otherwise.
func EffectivePaymentID(p domain.Payment) string {
	if p.PaymentID != "" {
		return p.PaymentID
	}
	p.PaidAt = calendar.Normalize(p.PaidAt)
	return derivedPaymentID(p)
}

// Allocate distributes the sanitized ledger across the schedule in date
// order, rolling overflow forward onto subsequent business days, then
// finalizes each entry's status and returns the recognized total.
//
// The schedule may grow: a payment dated past the generated horizon creates
// entries on following business days until it is absorbed. Holiday entries
// keep zero capacity and are skipped without consuming the payment.
func (a *Allocator) Allocate(loanID string, entries []*domain.Installment, ledger []domain.Payment, perInstallment decimal.Decimal) ([]*domain.Installment, decimal.Decimal, error) {
	if perInstallment.LessThanOrEqual(decimal.Zero) {
		return nil, decimal.Zero, apperrors.WrapInvalidScheduleState(loanID)
	}

	ledger = Sanitize(ledger)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DueDate.Before(entries[j].DueDate)
	})

	wasSubmitted := make(map[uuid.UUID]bool)
	for _, e := range entries {
		if e.Status == domain.InstallmentStatusSubmitted {
			wasSubmitted[e.ID] = true
		}
		e.AmountPaid = decimal.Zero
	}

	for _, p := range ledger {
		remaining := p.Amount
		cursor := calendar.Normalize(p.PaidAt)
		if !a.cal.IsBusinessDay(cursor) {
			cursor = a.cal.NextBusinessDay(cursor)
		}

		for remaining.GreaterThan(epsilon) {
			entry := firstEntryAt(entries, cursor)
			if entry == nil {
				entry = a.extend(&entries, loanID, cursor)
			}

			if entry.Status == domain.InstallmentStatusHoliday {
				cursor = a.cal.NextBusinessDay(entry.DueDate)
				continue
			}

			capacity := perInstallment.Sub(entry.AmountPaid)
			if capacity.LessThanOrEqual(decimal.Zero) {
				cursor = a.cal.NextBusinessDay(entry.DueDate)
				continue
			}

			applied := decimal.Min(remaining, capacity)
			entry.AmountPaid = entry.AmountPaid.Add(applied).Round(2)
			remaining = remaining.Sub(applied).Round(2)
			if remaining.GreaterThan(epsilon) {
				cursor = a.cal.NextBusinessDay(entry.DueDate)
			}
		}
	}

	total := decimal.Zero
	for i, e := range entries {
		if e.Status == domain.InstallmentStatusHoliday {
			continue
		}
		e.Status = finalStatus(i, e, perInstallment, wasSubmitted[e.ID])
		total = total.Add(e.AmountPaid)
	}

	return entries, total.Round(2), nil
}

// firstEntryAt returns the earliest entry due on or after the cursor date.
func firstEntryAt(entries []*domain.Installment, cursor time.Time) *domain.Installment {
	for _, e := range entries {
		if !e.DueDate.Before(cursor) {
			return e
		}
	}
	return nil
}

// extend appends a fresh pending entry past the generated horizon. The
// cursor is already a business day by the time we get here.
func (a *Allocator) extend(entries *[]*domain.Installment, loanID string, cursor time.Time) *domain.Installment {
	seq := 0
	if n := len(*entries); n > 0 {
		seq = (*entries)[n-1].Seq + 1
	}
	entry := &domain.Installment{
		ID:         uuid.New(),
		LoanID:     loanID,
		Seq:        seq,
		DueDate:    cursor,
		Status:     domain.InstallmentStatusPending,
		AmountPaid: decimal.Zero,
		CreatedAt:  time.Now().UTC(),
	}
	*entries = append(*entries, entry)
	return entry
}

func finalStatus(idx int, e *domain.Installment, perInstallment decimal.Decimal, submitted bool) string {
	switch {
	case e.AmountPaid.Sub(perInstallment).Abs().LessThanOrEqual(epsilon):
		return domain.InstallmentStatusPaid
	case e.AmountPaid.GreaterThan(epsilon):
		return domain.InstallmentStatusPartial
	case submitted:
		return domain.InstallmentStatusSubmitted
	case idx == 0:
		return domain.InstallmentStatusApproved
	default:
		return domain.InstallmentStatusPending
	}
}
