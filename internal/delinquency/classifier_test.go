package delinquency

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
	"github.com/collectiva/loan-engine/internal/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testLoan is a daily loan of 22 x 100 disbursed Tuesday 2024-01-02.
func testLoan() (*domain.Loan, []*domain.Installment) {
	disbursed := date(2024, 1, 2)
	loan := &domain.Loan{
		LoanID:            "LN-1",
		Status:            domain.LoanStatusActive,
		AmountToBePaid:    dec("2200"),
		InstallmentAmount: dec("100"),
		AmountPaid:        decimal.Zero,
		InstallmentCount:  22,
		DisbursedAt:       &disbursed,
	}
	entries, err := schedule.NewGenerator(calendar.New(nil)).Generate("LN-1", disbursed, domain.LoanTypeDaily, 22)
	if err != nil {
		panic(err)
	}
	return loan, entries
}

func TestClassifyExpectedRepayment(t *testing.T) {
	c := NewClassifier(calendar.New(nil))

	loan, entries := testLoan()
	loan.AmountPaid = dec("250")

	// 6 business days elapsed since disbursement (Jan 3-5, 8-10).
	got := c.Classify(loan, entries, date(2024, 1, 10))

	assert.True(t, got.ExpectedRepayment.Equal(dec("600")), "expected 600, got %s", got.ExpectedRepayment)
	assert.True(t, got.OutstandingDue.Equal(dec("350")))
	assert.Equal(t, BucketCurrent, got.Bucket)
}

func TestClassifyWeekendAsOfRollsBack(t *testing.T) {
	c := NewClassifier(calendar.New(nil))
	loan, entries := testLoan()

	friday := c.Classify(loan, entries, date(2024, 1, 5))
	saturday := c.Classify(loan, entries, date(2024, 1, 6))
	sunday := c.Classify(loan, entries, date(2024, 1, 7))

	assert.Equal(t, friday, saturday)
	assert.Equal(t, friday, sunday)
}

func TestClassifyOverpaidClampsToZero(t *testing.T) {
	c := NewClassifier(calendar.New(nil))
	loan, entries := testLoan()
	loan.AmountPaid = dec("900")
	for _, e := range entries[:9] {
		e.Status = domain.InstallmentStatusPaid
		e.AmountPaid = dec("100")
	}

	got := c.Classify(loan, entries, date(2024, 1, 10))
	assert.True(t, got.OutstandingDue.IsZero())
	assert.Equal(t, BucketCurrent, got.Bucket)
}

func TestClassifyNotYetDisbursed(t *testing.T) {
	c := NewClassifier(calendar.New(nil))
	loan, entries := testLoan()
	loan.DisbursedAt = nil

	got := c.Classify(loan, entries, date(2024, 1, 10))
	assert.True(t, got.ExpectedRepayment.IsZero())
	assert.True(t, got.OutstandingDue.IsZero())
}

func TestClassifyBuckets(t *testing.T) {
	// The earliest unpaid entry is due 2024-01-02; business days past due
	// are counted from the following day.
	tests := []struct {
		name   string
		asOf   time.Time
		bucket string
	}{
		{"29 days past due", date(2024, 2, 12), BucketCurrent},
		{"30 days past due", date(2024, 2, 13), BucketOverdue},
		{"59 days past due", date(2024, 3, 25), BucketOverdue},
		{"60 days past due", date(2024, 3, 26), BucketRecovery},
	}

	c := NewClassifier(calendar.New(nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan, entries := testLoan()
			got := c.Classify(loan, entries, tt.asOf)
			assert.Equal(t, tt.bucket, got.Bucket)
		})
	}
}

func TestClassifyBucketKeyedOnEarliestPartial(t *testing.T) {
	c := NewClassifier(calendar.New(nil))
	loan, entries := testLoan()
	loan.AmountPaid = dec("150")
	entries[0].Status = domain.InstallmentStatusPaid
	entries[0].AmountPaid = dec("100")
	entries[1].Status = domain.InstallmentStatusPartial
	entries[1].AmountPaid = dec("50")

	// Jan 3 entry is the earliest unresolved one; 30 business days after
	// Jan 3 is Feb 14.
	got := c.Classify(loan, entries, date(2024, 2, 13))
	assert.Equal(t, BucketCurrent, got.Bucket)

	got = c.Classify(loan, entries, date(2024, 2, 14))
	assert.Equal(t, BucketOverdue, got.Bucket)
}

func TestClassifyPastTermOwesFullAmount(t *testing.T) {
	c := NewClassifier(calendar.New(nil))
	loan, entries := testLoan()
	loan.AmountPaid = dec("2000")

	// The allocator grew the schedule one entry past the nominal count, so
	// more entries have come due than the loan's term allows for.
	entries = append(entries, &domain.Installment{
		ID:      uuid.New(),
		LoanID:  loan.LoanID,
		Seq:     22,
		DueDate: date(2024, 2, 1),
		Status:  domain.InstallmentStatusPartial,
	})

	got := c.Classify(loan, entries, date(2024, 4, 15))
	assert.True(t, got.ExpectedRepayment.Equal(dec("2200")), "past-term loans owe the full amount")
	assert.True(t, got.OutstandingDue.Equal(dec("200")))
	assert.Equal(t, BucketRecovery, got.Bucket)
}

func TestClassifyFullyPaidIsCurrent(t *testing.T) {
	c := NewClassifier(calendar.New(nil))
	loan, entries := testLoan()
	loan.AmountPaid = dec("2200")
	for _, e := range entries {
		e.Status = domain.InstallmentStatusPaid
		e.AmountPaid = dec("100")
	}

	got := c.Classify(loan, entries, date(2024, 6, 3))
	assert.True(t, got.OutstandingDue.IsZero())
	assert.Equal(t, BucketCurrent, got.Bucket)
}

func TestEarliestUnresolvedIgnoresFutureEntries(t *testing.T) {
	_, entries := testLoan()

	got := earliestUnresolved(entries, date(2024, 1, 4))
	require.NotNil(t, got)
	assert.True(t, got.DueDate.Equal(date(2024, 1, 2)))

	got = earliestUnresolved(entries, date(2023, 12, 29))
	assert.Nil(t, got)
}
