package marketcal

import (
	"fmt"
	"time"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/pkg/config"
	"github.com/hward/premia/pkg/logger"
)

// ingestGrace extends the LIVE window past the lock timestamp so the
// post-close ingestion jobs can still reach the provider. Quotes recorded
// inside the grace window are by definition last-session quotes.
const ingestGrace = 55 * time.Minute

// Clock implements contracts.SessionClock. Pure function of wall-clock
// time plus the injected holiday calendar; it holds no mutable state.
type Clock struct {
	calendar   contracts.TradingCalendar
	loc        *time.Location
	openHour   int
	openMin    int
	closeHour  int
	closeMin   int
	lockOffset time.Duration
	logger     *logger.Logger
}

// NewClock creates a session clock from market config
func NewClock(cfg *config.Config, cal contracts.TradingCalendar, log *logger.Logger) (*Clock, error) {
	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load market timezone: %w", err)
	}

	return &Clock{
		calendar:   cal,
		loc:        loc,
		openHour:   cfg.Market.OpenHour,
		openMin:    cfg.Market.OpenMinute,
		closeHour:  cfg.Market.CloseHour,
		closeMin:   cfg.Market.CloseMinute,
		lockOffset: cfg.Market.LockOffset,
		logger:     log.WithField("module", "session_clock"),
	}, nil
}

// IsTradingDay reports whether date is a weekday and not a market holiday.
// A failed holiday lookup is treated as "not a holiday" (never silently
// treat a holiday as open the other way around) and logged.
func (c *Clock) IsTradingDay(date time.Time) bool {
	d := date.In(c.loc)
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}

	holiday, err := c.calendar.IsHoliday(d)
	if err != nil {
		c.logger.WithError(err).WithField("date", d.Format("2006-01-02")).
			Warn("Holiday lookup failed, assuming not a holiday")
		return true
	}

	return !holiday
}

// LockTimestamp returns the canonical lock time for a date: the nominal
// close plus a configurable offset, deliberately later than the literal
// close to absorb late prints.
func (c *Clock) LockTimestamp(date time.Time) time.Time {
	d := date.In(c.loc)
	close := time.Date(d.Year(), d.Month(), d.Day(), c.closeHour, c.closeMin, 0, 0, c.loc)
	return close.Add(c.lockOffset)
}

// Mode returns LIVE when now falls inside a trading day's live window,
// EOD_LOCKED otherwise. Non-trading days and pre-open hours are always
// EOD_LOCKED.
func (c *Clock) Mode(now time.Time) contracts.SessionMode {
	n := now.In(c.loc)

	if !c.IsTradingDay(n) {
		return contracts.ModeEODLocked
	}

	open := time.Date(n.Year(), n.Month(), n.Day(), c.openHour, c.openMin, 0, 0, c.loc)
	liveEnd := c.LockTimestamp(n).Add(ingestGrace)

	if n.Before(open) || !n.Before(liveEnd) {
		return contracts.ModeEODLocked
	}

	return contracts.ModeLive
}

// Session derives the full session state for now. Computed, not persisted.
func (c *Clock) Session(now time.Time) contracts.TradingSession {
	n := now.In(c.loc)
	weekend := n.Weekday() == time.Saturday || n.Weekday() == time.Sunday

	holiday := false
	if !weekend {
		h, err := c.calendar.IsHoliday(n)
		if err != nil {
			c.logger.WithError(err).Warn("Holiday lookup failed in session derivation")
		} else {
			holiday = h
		}
	}

	return contracts.TradingSession{
		Date:          time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc),
		IsTradingDay:  !weekend && !holiday,
		IsWeekend:     weekend,
		IsHoliday:     holiday,
		CurrentMode:   c.Mode(now),
		LockTimestamp: c.LockTimestamp(n),
	}
}

// EnforceLive guards live-only code paths. The violation is surfaced
// loudly: it signals a potential data-integrity bug, not a routine miss.
func (c *Clock) EnforceLive(operation string) error {
	if mode := c.Mode(time.Now()); mode != contracts.ModeLive {
		c.logger.WithFields(map[string]interface{}{
			"operation": operation,
			"mode":      mode,
		}).Error("Live-mode violation")
		return fmt.Errorf("%s: %w", operation, contracts.ErrLiveModeViolation)
	}
	return nil
}

// Location returns the exchange-local timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}
