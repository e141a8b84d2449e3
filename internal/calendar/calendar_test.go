package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/collectiva/loan-engine/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	// 23:30 in UTC+3 is 20:30 UTC the same day
	loc := time.FixedZone("EAT", 3*60*60)
	in := time.Date(2024, 3, 15, 23, 30, 0, 0, loc)

	got := Normalize(in)
	assert.Equal(t, date(2024, 3, 15), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestIsBusinessDay(t *testing.T) {
	holidays := []domain.Holiday{
		{Date: date(2024, 1, 1), Recurring: true, Reason: "New Year"},
		{Date: date(2024, 4, 10), Recurring: false, Reason: "Census Day"},
	}
	cal := New(holidays)

	tests := []struct {
		name     string
		day      time.Time
		expected bool
	}{
		{"regular weekday", date(2024, 1, 2), true},
		{"saturday", date(2024, 1, 6), false},
		{"sunday", date(2024, 1, 7), false},
		{"recurring holiday same year", date(2024, 1, 1), false},
		{"recurring holiday other year", date(2026, 1, 1), false},
		{"exact holiday", date(2024, 4, 10), false},
		{"exact holiday other year", date(2025, 4, 10), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cal.IsBusinessDay(tt.day))
		})
	}
}

func TestNextBusinessDay(t *testing.T) {
	cal := New([]domain.Holiday{
		{Date: date(2024, 1, 8), Recurring: false, Reason: "Bridge Day"},
	})

	tests := []struct {
		name     string
		from     time.Time
		expected time.Time
	}{
		{"midweek", date(2024, 1, 2), date(2024, 1, 3)},
		{"friday skips weekend", date(2024, 1, 12), date(2024, 1, 15)},
		{"friday before holiday monday", date(2024, 1, 5), date(2024, 1, 9)},
		{"saturday", date(2024, 1, 13), date(2024, 1, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cal.NextBusinessDay(tt.from))
		})
	}
}

func TestCountBusinessDays(t *testing.T) {
	cal := New([]domain.Holiday{
		{Date: date(2024, 1, 10), Recurring: false, Reason: "Holiday"},
	})

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected int
	}{
		{"single business day", date(2024, 1, 2), date(2024, 1, 2), 1},
		{"full week minus holiday", date(2024, 1, 8), date(2024, 1, 12), 4},
		{"spanning weekend", date(2024, 1, 5), date(2024, 1, 8), 2},
		{"weekend only", date(2024, 1, 6), date(2024, 1, 7), 0},
		{"end before start", date(2024, 1, 12), date(2024, 1, 8), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cal.CountBusinessDays(tt.start, tt.end))
		})
	}
}

func TestRollBackWeekend(t *testing.T) {
	assert.Equal(t, date(2024, 1, 5), RollBackWeekend(date(2024, 1, 6)), "saturday rolls to friday")
	assert.Equal(t, date(2024, 1, 5), RollBackWeekend(date(2024, 1, 7)), "sunday rolls to friday")
	assert.Equal(t, date(2024, 1, 3), RollBackWeekend(date(2024, 1, 3)), "weekday unchanged")
}
