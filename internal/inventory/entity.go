package inventory

import (
	"fmt"
	"time"
)

type SharingType string

const (
	Private      SharingType = "private"
	TwoSharing   SharingType = "2-sharing"
	ThreeSharing SharingType = "3-sharing"
	FourSharing  SharingType = "4-sharing"
	FiveSharing  SharingType = "5-sharing"
	SixSharing   SharingType = "6-sharing"
	EightSharing SharingType = "8-sharing"
)

var occupants = map[SharingType]int{
	Private:      1,
	TwoSharing:   2,
	ThreeSharing: 3,
	FourSharing:  4,
	FiveSharing:  5,
	SixSharing:   6,
	EightSharing: 8,
}

func ParseSharingType(s string) (SharingType, error) {
	t := SharingType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown sharing type %q", s)
	}

	return t, nil
}

func (t SharingType) Valid() bool {
	_, ok := occupants[t]

	return ok
}

// Occupants is how many people share the physical room for this type.
func (t SharingType) Occupants() int {
	return occupants[t]
}

// SharingOption declares how many bed records of Type a room may hold.
// Capacity is occupants per unit of the type, not a pool of fungible slots.
type SharingOption struct {
	Type     SharingType `json:"type"`
	Capacity int         `json:"capacity"`
	Count    int         `json:"count"`
	Price    float64     `json:"price"`
}

type RoomKind string

const (
	ReadingRoom RoomKind = "reading_room"
	Hostel      RoomKind = "hostel"
	Cabin       RoomKind = "cabin"
)

func (k RoomKind) Valid() bool {
	switch k {
	case ReadingRoom, Hostel, Cabin:
		return true
	default:
		return false
	}
}

type Room struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Kind           RoomKind        `json:"kind"`
	SharingOptions []SharingOption `json:"sharing_options"`
	WorkingDays    []string        `json:"working_days"`
	OpenTime       string          `json:"open_time"`
	CloseTime      string          `json:"close_time"`
	Is24Hours      bool            `json:"is_24_hours"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Option returns the room's sharing option for t.
func (r *Room) Option(t SharingType) (SharingOption, bool) {
	for _, opt := range r.SharingOptions {
		if opt.Type == t {
			return opt, true
		}
	}

	return SharingOption{}, false
}

func (r *Room) Clone() *Room {
	c := *r
	c.SharingOptions = append([]SharingOption(nil), r.SharingOptions...)
	c.WorkingDays = append([]string(nil), r.WorkingDays...)

	return &c
}

type UnitKind string

const (
	Seat UnitKind = "seat"
	Bed  UnitKind = "bed"
)

// Unit is a single bookable slot. Every unit holds one occupant at a time.
type Unit struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"room_id"`
	Kind        UnitKind    `json:"kind"`
	Serial      string      `json:"serial"`
	Position    string      `json:"position,omitempty"`
	Category    string      `json:"category,omitempty"`
	Price       float64     `json:"price"`
	SharingType SharingType `json:"sharing_type,omitempty"`
	State       State       `json:"state"`
}

func (u *Unit) Capacity() int {
	return 1
}

func (u *Unit) Clone() *Unit {
	c := *u

	return &c
}
