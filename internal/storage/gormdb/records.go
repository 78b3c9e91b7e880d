package gormdb

import (
	"strings"
	"time"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
)

type roomRecord struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"uniqueIndex;not null"`
	Name        string `gorm:"not null"`
	Kind        string `gorm:"not null"`
	WorkingDays string
	OpenTime    string
	CloseTime   string
	Is24Hours   bool
	CreatedAt   time.Time
}

func (roomRecord) TableName() string { return "rooms" }

type sharingOptionRecord struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement"`
	RoomID      string `gorm:"index;not null"`
	SharingType string `gorm:"not null"`
	Capacity    int
	BedCount    int
	Price       float64
}

func (sharingOptionRecord) TableName() string { return "sharing_options" }

type unitRecord struct {
	Seq              uint64 `gorm:"primaryKey;autoIncrement"`
	ID               string `gorm:"uniqueIndex;not null"`
	RoomID           string `gorm:"index;not null"`
	Kind             string `gorm:"not null"`
	Serial           string
	Position         string
	Category         string
	Price            float64
	SharingType      string
	Status           string `gorm:"not null"`
	CurrentBookingID *string
}

func (unitRecord) TableName() string { return "units" }

type bookingRecord struct {
	ID             string     `gorm:"primaryKey"`
	UnitID         string     `gorm:"not null;uniqueIndex:idx_bookings_unit_start"`
	StartDay       *time.Time `gorm:"type:date;uniqueIndex:idx_bookings_unit_start"`
	EndDay         *time.Time `gorm:"type:date"`
	OccupantID     string     `gorm:"not null"`
	Status         string     `gorm:"not null"`
	IdempotencyKey *string    `gorm:"uniqueIndex"`
	CreatedAt      time.Time
	CheckedInAt    *time.Time
	CheckedOutAt   *time.Time
}

func (bookingRecord) TableName() string { return "bookings" }

type eventRecord struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;not null"`
	UnitID    string `gorm:"index;not null"`
	BookingID string
	Kind      string `gorm:"not null"`
	CreatedAt time.Time
}

func (eventRecord) TableName() string { return "booking_events" }

func newRoomRecord(r *inventory.Room) roomRecord {
	return roomRecord{
		ID:          r.ID,
		Name:        r.Name,
		Kind:        string(r.Kind),
		WorkingDays: strings.Join(r.WorkingDays, ","),
		OpenTime:    r.OpenTime,
		CloseTime:   r.CloseTime,
		Is24Hours:   r.Is24Hours,
		CreatedAt:   r.CreatedAt,
	}
}

func (rec *roomRecord) toRoom(options []sharingOptionRecord) *inventory.Room {
	room := &inventory.Room{
		ID:             rec.ID,
		Name:           rec.Name,
		Kind:           inventory.RoomKind(rec.Kind),
		SharingOptions: make([]inventory.SharingOption, 0, len(options)),
		OpenTime:       rec.OpenTime,
		CloseTime:      rec.CloseTime,
		Is24Hours:      rec.Is24Hours,
		CreatedAt:      rec.CreatedAt.UTC(),
	}

	if rec.WorkingDays != "" {
		room.WorkingDays = strings.Split(rec.WorkingDays, ",")
	}

	for _, opt := range options {
		room.SharingOptions = append(room.SharingOptions, inventory.SharingOption{
			Type:     inventory.SharingType(opt.SharingType),
			Capacity: opt.Capacity,
			Count:    opt.BedCount,
			Price:    opt.Price,
		})
	}

	return room
}

func newUnitRecord(u *inventory.Unit) unitRecord {
	rec := unitRecord{
		ID:          u.ID,
		RoomID:      u.RoomID,
		Kind:        string(u.Kind),
		Serial:      u.Serial,
		Position:    u.Position,
		Category:    u.Category,
		Price:       u.Price,
		SharingType: string(u.SharingType),
	}

	rec.Status, rec.CurrentBookingID = stateColumns(u.State)

	return rec
}

func stateColumns(s inventory.State) (string, *string) {
	if id, ok := s.BookingID(); ok {
		return string(s.Kind()), &id
	}

	return string(s.Kind()), nil
}

func (rec *unitRecord) toUnit() (*inventory.Unit, error) {
	var bookingID string
	if rec.CurrentBookingID != nil {
		bookingID = *rec.CurrentBookingID
	}

	state, err := inventory.RestoreState(inventory.StateKind(rec.Status), bookingID)
	if err != nil {
		return nil, err
	}

	return &inventory.Unit{
		ID:          rec.ID,
		RoomID:      rec.RoomID,
		Kind:        inventory.UnitKind(rec.Kind),
		Serial:      rec.Serial,
		Position:    rec.Position,
		Category:    rec.Category,
		Price:       rec.Price,
		SharingType: inventory.SharingType(rec.SharingType),
		State:       state,
	}, nil
}

func newBookingRecord(b *booking.Booking) bookingRecord {
	rec := bookingRecord{
		ID:           b.ID,
		UnitID:       b.UnitID,
		StartDay:     dayColumn(b.Period.Start),
		EndDay:       dayColumn(b.Period.End),
		OccupantID:   b.OccupantID,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		CheckedInAt:  b.CheckedInAt,
		CheckedOutAt: b.CheckedOutAt,
	}

	if b.IdempotencyKey != "" {
		key := b.IdempotencyKey
		rec.IdempotencyKey = &key
	}

	return rec
}

func (rec *bookingRecord) toBooking() *booking.Booking {
	b := &booking.Booking{
		ID:           rec.ID,
		UnitID:       rec.UnitID,
		OccupantID:   rec.OccupantID,
		Period:       period.Period{Start: fromDayColumn(rec.StartDay), End: fromDayColumn(rec.EndDay)},
		Status:       booking.Status(rec.Status),
		CreatedAt:    rec.CreatedAt.UTC(),
		CheckedInAt:  utc(rec.CheckedInAt),
		CheckedOutAt: utc(rec.CheckedOutAt),
	}

	if rec.IdempotencyKey != nil {
		b.IdempotencyKey = *rec.IdempotencyKey
	}

	return b
}

func (rec *eventRecord) toEvent() *booking.Event {
	return &booking.Event{
		ID:        rec.ID,
		UnitID:    rec.UnitID,
		BookingID: rec.BookingID,
		Kind:      booking.EventKind(rec.Kind),
		CreatedAt: rec.CreatedAt.UTC(),
	}
}

func dayColumn(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

func fromDayColumn(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	y, m, d := t.UTC().Date()

	return period.Day(y, m, d)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()

	return &u
}
