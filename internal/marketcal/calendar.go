// Package marketcal owns the session clock and the US equity market
// holiday calendar. The clock is the single authority on whether the
// system may touch live market data.
package marketcal

import "time"

// USCalendar implements contracts.TradingCalendar for NYSE/Nasdaq full-day
// market holidays. Rule-based, so it needs no data refresh.
type USCalendar struct{}

// NewUSCalendar creates a US market holiday calendar
func NewUSCalendar() *USCalendar {
	return &USCalendar{}
}

// IsHoliday reports whether date is a full-day US market holiday.
func (c *USCalendar) IsHoliday(date time.Time) (bool, error) {
	y, m, d := date.Date()
	for _, h := range marketHolidays(y) {
		hy, hm, hd := h.Date()
		if hy == y && hm == m && hd == d {
			return true, nil
		}
	}
	return false, nil
}

// marketHolidays returns the observed full-day market holidays for a year.
func marketHolidays(year int) []time.Time {
	days := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),              // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),                                // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),                               // Presidents' Day
		goodFriday(year),                                                              // Good Friday
		lastWeekday(year, time.May, time.Monday),                                      // Memorial Day
		observed(time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)),                // Juneteenth
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)),                 // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),                              // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4),                             // Thanksgiving
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)),            // Christmas
	}
	return days
}

// observed shifts a fixed-date holiday falling on a weekend to the nearest
// weekday, per exchange convention.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

// nthWeekday returns the nth given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// goodFriday returns Good Friday: two days before Easter Sunday, computed
// with the anonymous Gregorian algorithm.
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
