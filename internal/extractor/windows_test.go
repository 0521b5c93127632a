package extractor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{name: "single short batch", start: date(2024, 1, 1), end: date(2024, 2, 1), want: 1},
		{name: "exactly sixty days", start: date(2024, 1, 1), end: date(2024, 3, 1), want: 1},
		{name: "sixty one days", start: date(2024, 1, 1), end: date(2024, 3, 2), want: 2},
		{name: "whole year", start: date(2024, 1, 1), end: date(2024, 12, 31), want: 7},
		{name: "one day", start: date(2024, 5, 5), end: date(2024, 5, 6), want: 1},
		{name: "empty range", start: date(2024, 5, 5), end: date(2024, 5, 5), want: 0},
		{name: "inverted range", start: date(2024, 5, 6), end: date(2024, 5, 5), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := Windows(tt.start, tt.end, 60)
			require.Len(t, windows, tt.want)

			if tt.want == 0 {
				return
			}
			days := tt.end.Sub(tt.start).Hours() / 24
			assert.Equal(t, int(math.Ceil(days/60)), len(windows))

			assert.True(t, windows[0].From.Equal(tt.start))
			assert.True(t, windows[len(windows)-1].To.Equal(tt.end))
			for i, w := range windows {
				assert.True(t, w.From.Before(w.To))
				assert.LessOrEqual(t, w.Days(), 60)
				if i > 0 {
					// no gap, no overlap
					assert.True(t, windows[i-1].To.Equal(w.From))
				}
			}
		})
	}
}

func TestWindows_CustomSize(t *testing.T) {
	windows := Windows(date(2024, 1, 1), date(2024, 1, 11), 3)
	require.Len(t, windows, 4)
	assert.Equal(t, 3, windows[0].Days())
	assert.Equal(t, 1, windows[3].Days())
}

func TestWindows_InvalidSizeFallsBackToOneDay(t *testing.T) {
	assert.Len(t, Windows(date(2024, 1, 1), date(2024, 1, 4), 0), 3)
}

func TestWindows_CalendarDaysAcrossDST(t *testing.T) {
	sofia, err := time.LoadLocation("Europe/Sofia")
	if err != nil {
		t.Skip("tzdata not available")
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, sofia)
	end := time.Date(2024, 5, 30, 0, 0, 0, 0, sofia)

	windows := Windows(start, end, 60)
	require.Len(t, windows, 2)
	// the window boundary stays at local midnight after the clocks change
	assert.True(t, time.Date(2024, 4, 30, 0, 0, 0, 0, sofia).Equal(windows[0].To))
}
