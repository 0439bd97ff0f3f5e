package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthStart(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "mid month",
			input:    time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC),
			expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "already first of month",
			input:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "last day of year",
			input:    time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			expected: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MonthStart(tt.input))
		})
	}
}

func TestAddMonths(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), AddMonths(jan, 1))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), AddMonths(jan, 12))
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), AddMonths(jan, -1))

	// Day-31 inputs must not spill into the following month
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), AddMonths(jan31, 1))
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name     string
		a, b     time.Time
		expected int
	}{
		{
			name:     "same month",
			a:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "one year",
			a:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 12,
		},
		{
			name:     "across year boundary",
			a:        time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			expected: 3,
		},
		{
			name:     "negative when reversed",
			a:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: -5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MonthsBetween(tt.a, tt.b))
		})
	}
}

func TestParseDate(t *testing.T) {
	iso, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), iso)

	euro, err := ParseDate("15/06/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), euro)

	_, err = ParseDate("June 15, 2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestNeverDate(t *testing.T) {
	// Entities dated at the sentinel must stay outside any realistic horizon
	horizon := AddMonths(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 40*12)
	assert.True(t, NeverDate.After(horizon))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 6059.88, Round2(6059.88123))
	assert.Equal(t, 0.1, Round2(0.1001))
	assert.Equal(t, -2.35, Round2(-2.351))
}
