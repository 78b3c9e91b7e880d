package period

import (
	"strings"
	"time"
)

var week = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ClosedDays returns the weekdays missing from workingDays, Monday first.
// workingDays holds three-letter abbreviations ("Mon", "Tue", ...); unknown
// entries are ignored.
func ClosedDays(workingDays []string) []time.Weekday {
	open := make(map[time.Weekday]bool, len(workingDays))

	for _, abbr := range workingDays {
		if wd, ok := parseWeekday(abbr); ok {
			open[wd] = true
		}
	}

	closed := make([]time.Weekday, 0, len(week))

	for _, wd := range week {
		if !open[wd] {
			closed = append(closed, wd)
		}
	}

	return closed
}

func ClosedDaysDisplay(workingDays []string) string {
	if len(workingDays) == 0 {
		return ""
	}

	closed := ClosedDays(workingDays)
	if len(closed) == 0 {
		return "Open all days"
	}

	names := make([]string, 0, len(closed))
	for _, wd := range closed {
		names = append(names, wd.String())
	}

	return "Closed on " + strings.Join(names, ", ")
}

// TimingDisplay renders opening hours given as "HH:MM".
func TimingDisplay(open, closeAt string) string {
	if open == "" || closeAt == "" {
		return ""
	}

	o, err := ParseClock(open)
	if err != nil {
		return ""
	}

	c, err := ParseClock(closeAt)
	if err != nil {
		return ""
	}

	return o.String() + " – " + c.String()
}

func Is24HoursDisplay(flag *bool) string {
	switch {
	case flag == nil:
		return ""
	case *flag:
		return "Open 24 hours"
	default:
		return "Fixed timings"
	}
}

func parseWeekday(abbr string) (time.Weekday, bool) {
	abbr = strings.ToLower(strings.TrimSpace(abbr))

	for _, wd := range week {
		if strings.ToLower(wd.String()[:3]) == abbr {
			return wd, true
		}
	}

	return 0, false
}
