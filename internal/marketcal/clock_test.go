package marketcal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/pkg/config"
	"github.com/hward/premia/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Market: config.MarketConfig{
			Timezone:    "America/New_York",
			OpenHour:    9,
			OpenMinute:  30,
			CloseHour:   16,
			CloseMinute: 0,
			LockOffset:  5 * time.Minute,
		},
	}
}

func newTestClock(t *testing.T, cal contracts.TradingCalendar) *Clock {
	t.Helper()
	clock, err := NewClock(testConfig(), cal, logger.NewNop())
	require.NoError(t, err)
	return clock
}

// failingCalendar simulates a broken holiday source.
type failingCalendar struct{}

func (failingCalendar) IsHoliday(time.Time) (bool, error) {
	return false, errors.New("calendar backend unreachable")
}

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestClock_Mode(t *testing.T) {
	clock := newTestClock(t, NewUSCalendar())
	loc := eastern(t)

	tests := []struct {
		name string
		now  time.Time
		want contracts.SessionMode
	}{
		{
			name: "mid session weekday",
			now:  time.Date(2026, 1, 23, 11, 0, 0, 0, loc), // Friday
			want: contracts.ModeLive,
		},
		{
			name: "pre-open is locked",
			now:  time.Date(2026, 1, 23, 8, 0, 0, 0, loc),
			want: contracts.ModeEODLocked,
		},
		{
			name: "one minute before open is locked",
			now:  time.Date(2026, 1, 23, 9, 29, 0, 0, loc),
			want: contracts.ModeEODLocked,
		},
		{
			name: "post-close grace window still live for ingestion",
			now:  time.Date(2026, 1, 23, 16, 10, 0, 0, loc),
			want: contracts.ModeLive,
		},
		{
			name: "evening is locked",
			now:  time.Date(2026, 1, 23, 18, 0, 0, 0, loc),
			want: contracts.ModeEODLocked,
		},
		{
			name: "saturday is locked",
			now:  time.Date(2026, 1, 24, 11, 0, 0, 0, loc),
			want: contracts.ModeEODLocked,
		},
		{
			name: "christmas is locked",
			now:  time.Date(2026, 12, 25, 11, 0, 0, 0, loc),
			want: contracts.ModeEODLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clock.Mode(tt.now))
		})
	}
}

func TestClock_IsTradingDay(t *testing.T) {
	clock := newTestClock(t, NewUSCalendar())
	loc := eastern(t)

	assert.True(t, clock.IsTradingDay(time.Date(2026, 1, 23, 0, 0, 0, 0, loc)))   // Friday
	assert.False(t, clock.IsTradingDay(time.Date(2026, 1, 24, 0, 0, 0, 0, loc)))  // Saturday
	assert.False(t, clock.IsTradingDay(time.Date(2026, 1, 25, 0, 0, 0, 0, loc)))  // Sunday
	assert.False(t, clock.IsTradingDay(time.Date(2026, 1, 19, 0, 0, 0, 0, loc)))  // MLK Day
	assert.False(t, clock.IsTradingDay(time.Date(2026, 7, 3, 0, 0, 0, 0, loc)))   // July 4th observed (Saturday -> Friday)
	assert.False(t, clock.IsTradingDay(time.Date(2026, 11, 26, 0, 0, 0, 0, loc))) // Thanksgiving
}

func TestClock_CalendarFailureTreatedAsOpen(t *testing.T) {
	// A broken calendar must degrade to "not a holiday", never error out.
	clock := newTestClock(t, failingCalendar{})
	loc := eastern(t)

	assert.True(t, clock.IsTradingDay(time.Date(2026, 1, 23, 0, 0, 0, 0, loc)))
	// Weekends stay closed regardless of the calendar.
	assert.False(t, clock.IsTradingDay(time.Date(2026, 1, 24, 0, 0, 0, 0, loc)))
}

func TestClock_LockTimestamp(t *testing.T) {
	clock := newTestClock(t, NewUSCalendar())
	loc := eastern(t)

	lock := clock.LockTimestamp(time.Date(2026, 1, 23, 3, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 1, 23, 16, 5, 0, 0, loc), lock)
}

func TestClock_Session(t *testing.T) {
	clock := newTestClock(t, NewUSCalendar())
	loc := eastern(t)

	s := clock.Session(time.Date(2026, 1, 23, 11, 0, 0, 0, loc))
	assert.True(t, s.IsTradingDay)
	assert.False(t, s.IsWeekend)
	assert.False(t, s.IsHoliday)
	assert.Equal(t, contracts.ModeLive, s.CurrentMode)
	assert.Equal(t, time.Date(2026, 1, 23, 16, 5, 0, 0, loc), s.LockTimestamp)

	s = clock.Session(time.Date(2026, 11, 26, 11, 0, 0, 0, loc))
	assert.False(t, s.IsTradingDay)
	assert.True(t, s.IsHoliday)
	assert.Equal(t, contracts.ModeEODLocked, s.CurrentMode)
}

func TestUSCalendar_GoodFriday(t *testing.T) {
	cal := NewUSCalendar()

	// Good Friday 2026 is April 3rd.
	holiday, err := cal.IsHoliday(time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, holiday)

	holiday, err = cal.IsHoliday(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, holiday)
}
