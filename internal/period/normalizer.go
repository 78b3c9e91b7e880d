package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const displayDayLayout = "2 Jan 2006"

var (
	ErrInvalidRange = errors.New("period end precedes start")
	ErrInvalidClock = errors.New("invalid clock time")
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "HH:MM" in 24-hour notation.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("%q: %w", s, ErrInvalidClock)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%q: %w", s, ErrInvalidClock)
	}

	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%q: %w", s, ErrInvalidClock)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// String renders the clock as "9:00 AM".
func (c Clock) String() string {
	return time.Date(0, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

// Session is the check-in/check-out policy applied to every booked day.
type Session struct {
	CheckIn  Clock
	CheckOut Clock
	// Location is the reference zone calendar days are evaluated in.
	Location *time.Location
}

func DefaultSession() Session {
	return Session{
		CheckIn:  Clock{Hour: 9},
		CheckOut: Clock{Hour: 18},
		Location: time.UTC,
	}
}

type Normalizer struct {
	session Session
}

func NewNormalizer(session Session) *Normalizer {
	if session.Location == nil {
		session.Location = time.UTC
	}

	return &Normalizer{session: session}
}

func (n *Normalizer) Session() Session {
	return n.session
}

// Normalize maps each present bound onto its calendar day in the session zone.
func (n *Normalizer) Normalize(start, end time.Time) (Period, error) {
	p := Period{
		Start: n.calendarDay(start),
		End:   n.calendarDay(end),
	}

	if p.HasStart() && p.HasEnd() && p.Start.After(p.End) {
		return Period{}, fmt.Errorf("%s after %s: %w",
			p.Start.Format(dayLayout), p.End.Format(dayLayout), ErrInvalidRange)
	}

	return p, nil
}

// ParseDay parses "2006-01-02" in the session zone. An empty string is an
// absent bound and yields the zero time.
func (n *Normalizer) ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.ParseInLocation(dayLayout, s, n.session.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}

	return t, nil
}

// Today returns the calendar day of now in the session zone.
func (n *Normalizer) Today(now time.Time) time.Time {
	return n.calendarDay(now)
}

// StartsAt is the check-in instant of the first day; zero when open-started.
func (n *Normalizer) StartsAt(p Period) time.Time {
	if !p.HasStart() {
		return time.Time{}
	}

	return n.at(p.Start, n.session.CheckIn)
}

// EndsAt is the check-out instant of the last day; zero when open-ended.
func (n *Normalizer) EndsAt(p Period) time.Time {
	if !p.HasEnd() {
		return time.Time{}
	}

	return n.at(p.End, n.session.CheckOut)
}

// Format is the single display form of a period.
func (n *Normalizer) Format(p Period) string {
	in := n.session.CheckIn.String()
	out := n.session.CheckOut.String()

	switch {
	case p.SingleDay():
		return fmt.Sprintf("%s (%s – %s)", p.Start.Format(displayDayLayout), in, out)
	case p.HasStart() && p.HasEnd():
		return fmt.Sprintf("%s %s to %s %s",
			p.Start.Format(displayDayLayout), in, p.End.Format(displayDayLayout), out)
	case p.HasStart():
		return fmt.Sprintf("%s %s onwards", p.Start.Format(displayDayLayout), in)
	case p.HasEnd():
		return fmt.Sprintf("Till %s %s", p.End.Format(displayDayLayout), out)
	default:
		return "-"
	}
}

func (n *Normalizer) calendarDay(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}

	y, m, d := t.In(n.session.Location).Date()

	return Day(y, m, d)
}

func (n *Normalizer) at(day time.Time, c Clock) time.Time {
	y, m, d := day.Date()

	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, n.session.Location)
}
