package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateDaily(t *testing.T) {
	gen := NewGenerator(calendar.New(nil))

	// 2024-01-02 is a Tuesday; 22 business days end on 2024-01-31.
	entries, err := gen.Generate("LN-1", date(2024, 1, 2), domain.LoanTypeDaily, 22)
	require.NoError(t, err)
	require.Len(t, entries, 22)

	assert.Equal(t, date(2024, 1, 2), entries[0].DueDate)
	assert.Equal(t, domain.InstallmentStatusApproved, entries[0].Status)
	assert.Equal(t, date(2024, 1, 31), entries[21].DueDate)

	for i, e := range entries {
		wd := e.DueDate.Weekday()
		assert.NotEqual(t, time.Saturday, wd, "entry %d falls on saturday", i)
		assert.NotEqual(t, time.Sunday, wd, "entry %d falls on sunday", i)
		if i > 0 {
			assert.Equal(t, domain.InstallmentStatusPending, e.Status)
			assert.True(t, e.DueDate.After(entries[i-1].DueDate))
		}
		assert.Equal(t, i, e.Seq)
	}
}

func TestGenerateDailySkipsHolidays(t *testing.T) {
	gen := NewGenerator(calendar.New([]domain.Holiday{
		{Date: date(2024, 1, 3), Reason: "Founders Day"},
	}))

	entries, err := gen.Generate("LN-1", date(2024, 1, 2), domain.LoanTypeDaily, 22)
	require.NoError(t, err)
	require.Len(t, entries, 22)

	for _, e := range entries {
		assert.False(t, e.DueDate.Equal(date(2024, 1, 3)), "schedule must skip the holiday")
	}
	// One extra day shifts the tail to Feb 1.
	assert.Equal(t, date(2024, 2, 1), entries[21].DueDate)
}

func TestGenerateWeekly(t *testing.T) {
	gen := NewGenerator(calendar.New(nil))

	entries, err := gen.Generate("LN-2", date(2024, 1, 6), domain.LoanTypeWeekly, 5)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// Weekly entries stride 7 calendar days with no business-day skipping,
	// so a Saturday start stays on Saturdays.
	for i, e := range entries {
		assert.Equal(t, date(2024, 1, 6).AddDate(0, 0, 7*i), e.DueDate)
	}
	assert.Equal(t, domain.InstallmentStatusApproved, entries[0].Status)
}

func TestGenerateWeeklyHolidayOverride(t *testing.T) {
	gen := NewGenerator(calendar.New([]domain.Holiday{
		{Date: date(2024, 1, 15), Reason: "Harvest Festival"},
	}))

	entries, err := gen.Generate("LN-3", date(2024, 1, 1), domain.LoanTypeWeekly, 5)
	require.NoError(t, err)

	// Third entry lands on 2024-01-15.
	assert.Equal(t, domain.InstallmentStatusHoliday, entries[2].Status)
	assert.Equal(t, "Harvest Festival", entries[2].HolidayReason)
	assert.True(t, entries[2].AmountPaid.IsZero())
}

func TestGenerateInvalidArgs(t *testing.T) {
	gen := NewGenerator(calendar.New(nil))

	_, err := gen.Generate("LN-4", date(2024, 1, 2), domain.LoanTypeDaily, 0)
	assert.Error(t, err)

	_, err = gen.Generate("LN-4", date(2024, 1, 2), "monthly", 10)
	assert.Error(t, err)
}

func TestResyncPreservesExplicitStatuses(t *testing.T) {
	cal := calendar.New(nil)
	gen := NewGenerator(cal)

	existing, err := gen.Generate("LN-5", date(2024, 1, 2), domain.LoanTypeDaily, 5)
	require.NoError(t, err)
	existing[2].Status = domain.InstallmentStatusSubmitted
	existing[3].Status = domain.InstallmentStatusPaid

	fresh, err := gen.Generate("LN-5", date(2024, 1, 2), domain.LoanTypeDaily, 5)
	require.NoError(t, err)

	synced := gen.Resync(existing, fresh)
	assert.Equal(t, domain.InstallmentStatusApproved, synced[0].Status)
	assert.Equal(t, domain.InstallmentStatusPending, synced[1].Status)
	assert.Equal(t, domain.InstallmentStatusSubmitted, synced[2].Status)
	assert.Equal(t, domain.InstallmentStatusPaid, synced[3].Status)
}
