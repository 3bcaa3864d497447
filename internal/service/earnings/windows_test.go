package earnings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowBoundaries(t *testing.T) {
	// Wednesday 2025-03-12 15:04:05 UTC
	at := time.Date(2025, 3, 12, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), startOfDay(at))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), startOfWeek(at))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), startOfMonth(at))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), startOfYear(at))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), startOfPreviousMonth(at))
}

func TestStartOfWeekOnSundayAndMonday(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), startOfWeek(sunday))

	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, startOfWeek(monday))
}

func TestStartOfPreviousMonthAcrossYear(t *testing.T) {
	january := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), startOfPreviousMonth(january))
}
