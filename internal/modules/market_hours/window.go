// Package market_hours decides whether a configured trading window is open at a given time.
package market_hours

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// HolidayCalendarUS selects the NYSE holiday calendar.
const HolidayCalendarUS = "us"

// Window describes when signals may fire: trading days, an open/close time of day and
// an optional holiday calendar, all interpreted in Timezone.
type Window struct {
	Timezone string   `json:"timezone" yaml:"timezone"`
	Days     []string `json:"days" yaml:"days"`   // mon, tue, ... sun
	Open     string   `json:"open" yaml:"open"`   // HH:MM
	Close    string   `json:"close" yaml:"close"` // HH:MM
	Holidays string   `json:"holidays,omitempty" yaml:"holidays,omitempty"`
}

// DefaultWindow is the regular US equity session.
func DefaultWindow() Window {
	return Window{
		Timezone: "America/New_York",
		Days:     []string{"mon", "tue", "wed", "thu", "fri"},
		Open:     "09:30",
		Close:    "16:00",
		Holidays: HolidayCalendarUS,
	}
}

// Status is the state of a window at a point in time.
type Status struct {
	Open     bool      `json:"open"`
	Reason   string    `json:"reason,omitempty"`
	Timezone string    `json:"timezone"`
	OpensAt  time.Time `json:"opens_at"`
	ClosesAt time.Time `json:"closes_at"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

type compiled struct {
	loc         *time.Location
	days        map[time.Weekday]bool
	openMinute  int
	closeMinute int
	holidays    string
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (w Window) compile() (*compiled, error) {
	tz := w.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	if len(w.Days) == 0 {
		return nil, fmt.Errorf("market window needs at least one trading day")
	}

	days := make(map[time.Weekday]bool, len(w.Days))
	for _, d := range w.Days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("invalid trading day %q", d)
		}
		days[wd] = true
	}

	open, err := parseClock(w.Open)
	if err != nil {
		return nil, err
	}
	closeMin, err := parseClock(w.Close)
	if err != nil {
		return nil, err
	}
	if closeMin <= open {
		return nil, fmt.Errorf("market close %s must be after open %s", w.Close, w.Open)
	}

	switch w.Holidays {
	case "", HolidayCalendarUS:
	default:
		return nil, fmt.Errorf("unknown holiday calendar %q", w.Holidays)
	}

	return &compiled{loc: loc, days: days, openMinute: open, closeMinute: closeMin, holidays: w.Holidays}, nil
}

// Validate checks that the window can be interpreted.
func (w Window) Validate() error {
	_, err := w.compile()
	return err
}

// Service evaluates windows and caches holiday calendars by year.
type Service struct {
	mu           sync.Mutex
	holidayCache map[int][]time.Time
}

// NewService creates a new market hours service
func NewService() *Service {
	return &Service{holidayCache: make(map[int][]time.Time)}
}

// IsOpen reports whether the window is open at t.
func (s *Service) IsOpen(w Window, t time.Time) (bool, error) {
	st, err := s.Status(w, t)
	if err != nil {
		return false, err
	}
	return st.Open, nil
}

// Status returns whether the window is open at t, why not if closed, and today's session bounds.
func (s *Service) Status(w Window, t time.Time) (Status, error) {
	c, err := w.compile()
	if err != nil {
		return Status{}, err
	}

	local := t.In(c.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	st := Status{
		Timezone: c.loc.String(),
		OpensAt:  midnight.Add(time.Duration(c.openMinute) * time.Minute),
		ClosesAt: midnight.Add(time.Duration(c.closeMinute) * time.Minute),
	}

	switch {
	case !c.days[local.Weekday()]:
		st.Reason = "not a trading day"
	case c.holidays == HolidayCalendarUS && s.isHoliday(local):
		st.Reason = "market holiday"
	case local.Before(st.OpensAt):
		st.Reason = "before market open"
	case !local.Before(st.ClosesAt):
		st.Reason = "after market close"
	default:
		st.Open = true
	}
	return st, nil
}

// Holidays returns the holiday dates the window observes in year.
func (s *Service) Holidays(w Window, year int) ([]time.Time, error) {
	c, err := w.compile()
	if err != nil {
		return nil, err
	}
	if c.holidays != HolidayCalendarUS {
		return []time.Time{}, nil
	}
	return s.usHolidays(year), nil
}

func (s *Service) usHolidays(year int) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.holidayCache[year]; ok {
		return cached
	}
	holidays := USHolidays(year)
	s.holidayCache[year] = holidays
	return holidays
}

func (s *Service) isHoliday(local time.Time) bool {
	for _, h := range s.usHolidays(local.Year()) {
		if h.Month() == local.Month() && h.Day() == local.Day() {
			return true
		}
	}
	return false
}
