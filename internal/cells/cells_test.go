package cells

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceDateRepresentationsAgree(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	inputs := []any{
		45366.0,
		45366,
		45366.75, // con hora
		"45366",
		"15/03/2024",
		"15-03-2024",
		"15/3/24",
		"15/03/2024 10:30",
		"2024-03-15",
		"2024-03-15T22:10:00Z",
		time.Date(2024, 3, 15, 17, 45, 0, 0, time.UTC),
	}
	for _, in := range inputs {
		got, ok := CoerceDate(in)
		require.True(t, ok, "input %v", in)
		assert.True(t, got.Equal(want), "input %v gave %v", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestCoerceDateFailures(t *testing.T) {
	for _, in := range []any{nil, "", "   ", "mañana", "31/02/2024", "10/13/2024", -5.0, 0, 9e9, time.Time{}, true} {
		got, ok := CoerceDate(in)
		assert.False(t, ok, "input %v", in)
		assert.True(t, got.IsZero())
	}
}

func TestCoerceDateBareYear(t *testing.T) {
	got, ok := CoerceDate("2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)

	// cinco cifras sigue siendo serial
	got, ok = CoerceDate("45366")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	// número real 2024 es serial, como lo guarda Excel
	got, ok = CoerceDate(2024.0)
	require.True(t, ok)
	assert.Equal(t, 1905, got.Year())
}

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{"1.234.567,89", 1234567.89},
		{"1,234.56", 1234.56},
		{"", 0},
		{"abc", 0},
		{"1234,5", 1234.5},
		{"$ 1.500.000", 1500000},
		{"-1.234,5", -1234.5},
		{"1,234,567", 1234567},
		{"12.5", 12.5},
		{"COP 2.000.000 ", 2000000},
		{3.5, 3.5},
		{7, 7},
		{nil, 0},
		{"2024-03-15", 0},
		{"10-20", 0},
		{"300-555-1234", 0},
		{"--5", 0},
		{"- 12,5", -12.5},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, CoerceNumber(c.in), 1e-9, "input %v", c.in)
	}
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, "", Period(time.Time{}))
	assert.Equal(t, "2025-01", Period(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2025, PeriodYear("2025-01"))
	assert.Equal(t, 0, PeriodYear(""))
}
