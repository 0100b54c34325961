package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2024-01-31", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2024-1-5", false},
		{"2024/01/05", false},
		{"", false},
		{"2024-01-05T00:00:00Z", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.in), "Valid(%q)", tt.in)
	}
}

func TestTodayAndDaysAgo(t *testing.T) {
	now := time.Date(2024, 3, 2, 23, 30, 0, 0, time.FixedZone("X", -5*3600))

	assert.Equal(t, "2024-03-03", Today(now), "today is computed in UTC")
	assert.Equal(t, "2024-02-02", DaysAgo(now, 30))
}

func TestRange(t *testing.T) {
	got, err := Range("2024-02-27", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, got)

	single, err := Range("2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, single)

	inverted, err := Range("2024-01-02", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, inverted)

	_, err = Range("bad", "2024-01-01")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	n, err := DaysBetween("2024-01-01", "2024-04-10")
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = DaysBetween("2024-01-02", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, -1, n)
}
