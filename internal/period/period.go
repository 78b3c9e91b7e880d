package period

import (
	"encoding/json"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Period is an inclusive range of calendar days. Days are stored at UTC
// midnight; a zero Start or End means the bound is absent.
type Period struct {
	Start time.Time
	End   time.Time
}

// Day returns the calendar day y-m-d.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (p Period) HasStart() bool {
	return !p.Start.IsZero()
}

func (p Period) HasEnd() bool {
	return !p.End.IsZero()
}

// SingleDay reports whether both bounds are present and fall on the same day.
func (p Period) SingleDay() bool {
	return p.HasStart() && p.HasEnd() && p.Start.Equal(p.End)
}

// Overlaps uses inclusive bounds: an absent start is -inf, an absent end +inf.
func (p Period) Overlaps(o Period) bool {
	return notAfter(p.Start, o.End) && notAfter(o.Start, p.End)
}

// Contains reports whether day falls inside p.
func (p Period) Contains(day time.Time) bool {
	return p.Overlaps(Period{Start: day, End: day})
}

// Within reports whether p is a sub-range of outer.
func (p Period) Within(outer Period) bool {
	if outer.HasStart() && (!p.HasStart() || p.Start.Before(outer.Start)) {
		return false
	}

	if outer.HasEnd() && (!p.HasEnd() || p.End.After(outer.End)) {
		return false
	}

	return true
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s]", formatBound(p.Start, "-inf"), formatBound(p.End, "+inf"))
}

func notAfter(start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return true
	}

	return !start.After(end)
}

func formatBound(t time.Time, absent string) string {
	if t.IsZero() {
		return absent
	}

	return t.Format(dayLayout)
}

type periodJSON struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

func (p Period) MarshalJSON() ([]byte, error) {
	var out periodJSON

	if p.HasStart() {
		s := p.Start.Format(dayLayout)
		out.Start = &s
	}

	if p.HasEnd() {
		e := p.End.Format(dayLayout)
		out.End = &e
	}

	return json.Marshal(out)
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var in periodJSON

	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode period: %w", err)
	}

	var out Period

	if in.Start != nil && *in.Start != "" {
		start, err := time.Parse(dayLayout, *in.Start)
		if err != nil {
			return fmt.Errorf("parse period start: %w", err)
		}

		out.Start = start
	}

	if in.End != nil && *in.End != "" {
		end, err := time.Parse(dayLayout, *in.End)
		if err != nil {
			return fmt.Errorf("parse period end: %w", err)
		}

		out.End = end
	}

	*p = out

	return nil
}
