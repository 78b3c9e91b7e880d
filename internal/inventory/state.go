package inventory

import (
	"encoding/json"
	"fmt"
)

type StateKind string

const (
	StateAvailable   StateKind = "available"
	StateOccupied    StateKind = "occupied"
	StateUnavailable StateKind = "unavailable"
)

// State is the current occupancy of a unit. Only the occupied variant carries
// a booking id. The zero value is available.
type State struct {
	kind      StateKind
	bookingID string
}

func Available() State {
	return State{kind: StateAvailable}
}

func Occupied(bookingID string) State {
	return State{kind: StateOccupied, bookingID: bookingID}
}

func Unavailable() State {
	return State{kind: StateUnavailable}
}

// RestoreState rebuilds a state from its persisted columns.
func RestoreState(kind StateKind, bookingID string) (State, error) {
	switch kind {
	case "", StateAvailable:
		return Available(), nil
	case StateUnavailable:
		return Unavailable(), nil
	case StateOccupied:
		if bookingID == "" {
			return State{}, fmt.Errorf("occupied state without booking id: %w", ErrInvalidState)
		}

		return Occupied(bookingID), nil
	default:
		return State{}, fmt.Errorf("state %q: %w", kind, ErrInvalidState)
	}
}

func (s State) Kind() StateKind {
	if s.kind == "" {
		return StateAvailable
	}

	return s.kind
}

// BookingID is the booking holding an occupied unit.
func (s State) BookingID() (string, bool) {
	return s.bookingID, s.kind == StateOccupied
}

// OccupiedBy reports whether the unit is occupied by bookingID.
func (s State) OccupiedBy(bookingID string) bool {
	id, ok := s.BookingID()

	return ok && id == bookingID
}

func (s State) String() string {
	if id, ok := s.BookingID(); ok {
		return fmt.Sprintf("%s(%s)", s.Kind(), id)
	}

	return string(s.Kind())
}

type stateJSON struct {
	Status           StateKind `json:"status"`
	CurrentBookingID string    `json:"current_booking_id,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{Status: s.Kind(), CurrentBookingID: s.bookingID})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var in stateJSON

	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	restored, err := RestoreState(in.Status, in.CurrentBookingID)
	if err != nil {
		return err
	}

	*s = restored

	return nil
}
