package booking

import (
	"time"

	"github.com/avstrong/studystay/internal/period"
)

type Status string

const (
	StatusReserved   Status = "reserved"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
)

type Booking struct {
	ID             string        `json:"id"`
	UnitID         string        `json:"unit_id"`
	OccupantID     string        `json:"occupant_id"`
	Period         period.Period `json:"period"`
	Status         Status        `json:"status"`
	IdempotencyKey string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	CheckedInAt    *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt   *time.Time    `json:"checked_out_at,omitempty"`
}

func (b *Booking) Clone() *Booking {
	c := *b

	if b.CheckedInAt != nil {
		t := *b.CheckedInAt
		c.CheckedInAt = &t
	}

	if b.CheckedOutAt != nil {
		t := *b.CheckedOutAt
		c.CheckedOutAt = &t
	}

	return &c
}

type EventKind string

const (
	EventReserved          EventKind = "reserved"
	EventCheckedIn         EventKind = "checked_in"
	EventCheckedOut        EventKind = "checked_out"
	EventCancelled         EventKind = "cancelled"
	EventMarkedUnavailable EventKind = "marked_unavailable"
	EventMarkedAvailable   EventKind = "marked_available"
)

// Event is an audit record of a state transition.
type Event struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	BookingID string    `json:"booking_id,omitempty"`
	Kind      EventKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type ReserveInput struct {
	UnitID     string        `json:"unit_id"`
	OccupantID string        `json:"occupant_id"`
	Period     period.Period `json:"period"`
}
