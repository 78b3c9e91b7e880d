package period

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(d int) time.Time {
	return Day(2025, time.January, d)
}

func TestNormalizer_Format(t *testing.T) {
	n := NewNormalizer(DefaultSession())

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  string
	}{
		{"same day", jan(10), jan(10), "10 Jan 2025 (9:00 AM – 6:00 PM)"},
		{"range", jan(10), jan(12), "10 Jan 2025 9:00 AM to 12 Jan 2025 6:00 PM"},
		{"onwards", jan(10), time.Time{}, "10 Jan 2025 9:00 AM onwards"},
		{"till", time.Time{}, jan(12), "Till 12 Jan 2025 6:00 PM"},
		{"empty", time.Time{}, time.Time{}, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := n.Normalize(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Format(p))
		})
	}
}

func TestNormalizer_ParsedDaysFormat(t *testing.T) {
	n := NewNormalizer(DefaultSession())

	start, err := n.ParseDay("2025-01-10")
	require.NoError(t, err)

	end, err := n.ParseDay("2025-01-10")
	require.NoError(t, err)

	p, err := n.Normalize(start, end)
	require.NoError(t, err)
	assert.Equal(t, "10 Jan 2025 (9:00 AM – 6:00 PM)", n.Format(p))

	end, err = n.ParseDay("2025-01-12")
	require.NoError(t, err)

	p, err = n.Normalize(start, end)
	require.NoError(t, err)
	assert.Equal(t, "10 Jan 2025 9:00 AM to 12 Jan 2025 6:00 PM", n.Format(p))

	absent, err := n.ParseDay("  ")
	require.NoError(t, err)
	assert.True(t, absent.IsZero())

	_, err = n.ParseDay("10/01/2025")
	assert.Error(t, err)
}

func TestNormalizer_InvalidRange(t *testing.T) {
	n := NewNormalizer(DefaultSession())

	_, err := n.Normalize(jan(12), jan(10))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNormalizer_ReferenceZoneKeepsCalendarDay(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)

	session := DefaultSession()
	session.Location = kolkata
	n := NewNormalizer(session)

	// 20:00 UTC on the 9th is already the 10th in the reference zone.
	late := time.Date(2025, time.January, 9, 20, 0, 0, 0, time.UTC)

	p, err := n.Normalize(late, late)
	require.NoError(t, err)
	assert.Equal(t, jan(10), p.Start)
	assert.Equal(t, "10 Jan 2025 (9:00 AM – 6:00 PM)", n.Format(p))

	assert.Equal(t, time.Date(2025, time.January, 10, 9, 0, 0, 0, kolkata), n.StartsAt(p))
	assert.Equal(t, time.Date(2025, time.January, 10, 18, 0, 0, 0, kolkata), n.EndsAt(p))
}

func TestNormalizer_CustomSession(t *testing.T) {
	n := NewNormalizer(Session{
		CheckIn:  Clock{Hour: 7, Minute: 30},
		CheckOut: Clock{Hour: 22},
	})

	p, err := n.Normalize(jan(3), jan(3))
	require.NoError(t, err)
	assert.Equal(t, "3 Jan 2025 (7:30 AM – 10:00 PM)", n.Format(p))
	assert.Equal(t, time.UTC, n.Session().Location)
}

func TestPeriod_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Period
		want bool
	}{
		{"disjoint", Period{jan(1), jan(5)}, Period{jan(6), jan(8)}, false},
		{"touching bound", Period{jan(1), jan(5)}, Period{jan(5), jan(8)}, true},
		{"nested", Period{jan(1), jan(10)}, Period{jan(3), jan(4)}, true},
		{"open end", Period{Start: jan(1)}, Period{jan(20), jan(25)}, true},
		{"open start", Period{End: jan(3)}, Period{jan(4), jan(5)}, false},
		{"open start hits", Period{End: jan(4)}, Period{jan(4), jan(5)}, true},
		{"unbounded", Period{}, Period{jan(4), jan(5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestPeriod_Within(t *testing.T) {
	outer := Period{jan(1), jan(10)}

	assert.True(t, Period{jan(2), jan(3)}.Within(outer))
	assert.True(t, outer.Within(outer))
	assert.False(t, Period{jan(2), jan(11)}.Within(outer))
	assert.False(t, Period{Start: jan(2)}.Within(outer))
	assert.True(t, Period{jan(2), jan(3)}.Within(Period{Start: jan(1)}))
}

func TestPeriod_JSON(t *testing.T) {
	data, err := json.Marshal(Period{Start: jan(10)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2025-01-10","end":null}`, string(data))

	var p Period
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2025-01-10","end":"2025-01-12"}`), &p))
	assert.Equal(t, Period{jan(10), jan(12)}, p)
}

func TestClosedDaysDisplay(t *testing.T) {
	assert.Equal(t, "Closed on Saturday, Sunday",
		ClosedDaysDisplay([]string{"Mon", "Tue", "Wed", "Thu", "Fri"}))
	assert.Equal(t, "Open all days",
		ClosedDaysDisplay([]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}))
	assert.Equal(t, "", ClosedDaysDisplay(nil))
	assert.Equal(t, []time.Weekday{time.Wednesday, time.Sunday},
		ClosedDays([]string{"mon", "Tue", "Thu", "Fri", "Sat", "bogus"}))
}

func TestTimingDisplay(t *testing.T) {
	assert.Equal(t, "9:00 AM – 9:30 PM", TimingDisplay("09:00", "21:30"))
	assert.Equal(t, "", TimingDisplay("", "21:00"))
	assert.Equal(t, "", TimingDisplay("25:00", "21:00"))
}

func TestIs24HoursDisplay(t *testing.T) {
	yes, no := true, false

	assert.Equal(t, "Open 24 hours", Is24HoursDisplay(&yes))
	assert.Equal(t, "Fixed timings", Is24HoursDisplay(&no))
	assert.Equal(t, "", Is24HoursDisplay(nil))
}
