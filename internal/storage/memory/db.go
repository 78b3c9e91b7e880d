package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/period"
)

type Config struct {
	L *logger.Logger
}

type roomRecord struct {
	room inventory.Room
	seq  int64
}

type unitRecord struct {
	unit inventory.Unit
	seq  int64
}

type DB struct {
	mu              sync.Mutex
	l               *logger.Logger
	rooms           map[string]*roomRecord
	units           map[string]*unitRecord
	bookings        map[string]*booking.Booking
	events          map[string][]*booking.Event
	idempotencyKeys map[string]string
	transactions    map[string]*transaction
	nextTrxID       int64
	nextSeq         int64
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:               conf.L,
		rooms:           make(map[string]*roomRecord),
		units:           make(map[string]*unitRecord),
		bookings:        make(map[string]*booking.Booking),
		events:          make(map[string][]*booking.Event),
		idempotencyKeys: make(map[string]string),
		transactions:    make(map[string]*transaction),
	}
}

func (db *DB) seq() int64 {
	db.nextSeq++

	return db.nextSeq
}

func (db *DB) SaveRoom(ctx context.Context, room *inventory.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	saved := room.Clone()

	trx.ops = append(trx.ops, func() {
		if rec, ok := db.rooms[saved.ID]; ok {
			rec.room = *saved

			return
		}

		db.rooms[saved.ID] = &roomRecord{room: *saved, seq: db.seq()}
	})

	return nil
}

func (db *DB) SaveUnit(ctx context.Context, unit *inventory.Unit) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	saved := unit.Clone()

	trx.ops = append(trx.ops, func() {
		if rec, ok := db.units[saved.ID]; ok {
			rec.unit = *saved

			return
		}

		db.units[saved.ID] = &unitRecord{unit: *saved, seq: db.seq()}
	})

	return nil
}

func (db *DB) SaveUnitState(ctx context.Context, unitID string, state inventory.State) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	if _, ok := db.units[unitID]; !ok {
		return fmt.Errorf("unit %s: %w", unitID, inventory.ErrNotFound)
	}

	trx.ops = append(trx.ops, func() {
		if rec, ok := db.units[unitID]; ok {
			rec.unit.State = state
		}
	})

	return nil
}

func (db *DB) DeleteUnit(ctx context.Context, unitID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	if _, ok := db.units[unitID]; !ok {
		return fmt.Errorf("unit %s: %w", unitID, inventory.ErrNotFound)
	}

	trx.ops = append(trx.ops, func() {
		delete(db.units, unitID)
		delete(db.events, unitID)
	})

	return nil
}

func (db *DB) SaveBooking(ctx context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	saved := b.Clone()
	trx.bookings = append(trx.bookings, saved)

	trx.ops = append(trx.ops, func() {
		db.bookings[saved.ID] = saved

		if saved.IdempotencyKey != "" {
			db.idempotencyKeys[saved.IdempotencyKey] = saved.ID
		}
	})

	return nil
}

func (db *DB) DeleteBooking(ctx context.Context, bookingID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	if _, ok := db.bookings[bookingID]; !ok {
		return fmt.Errorf("booking %s: %w", bookingID, booking.ErrNotFound)
	}

	trx.deletedBookings[bookingID] = true

	trx.ops = append(trx.ops, func() {
		if b, ok := db.bookings[bookingID]; ok && b.IdempotencyKey != "" {
			delete(db.idempotencyKeys, b.IdempotencyKey)
		}

		delete(db.bookings, bookingID)
	})

	return nil
}

func (db *DB) SaveEvent(ctx context.Context, event *booking.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	saved := *event

	trx.ops = append(trx.ops, func() {
		db.events[saved.UnitID] = append(db.events[saved.UnitID], &saved)
	})

	return nil
}

func (db *DB) GetRoom(_ context.Context, roomID string) (*inventory.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, inventory.ErrNotFound)
	}

	return rec.room.Clone(), nil
}

func (db *DB) ListRooms(_ context.Context) ([]*inventory.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	recs := make([]*roomRecord, 0, len(db.rooms))
	for _, rec := range db.rooms {
		recs = append(recs, rec)
	}

	slices.SortFunc(recs, func(a, b *roomRecord) int {
		return cmp.Compare(a.seq, b.seq)
	})

	rooms := make([]*inventory.Room, 0, len(recs))
	for _, rec := range recs {
		rooms = append(rooms, rec.room.Clone())
	}

	return rooms, nil
}

func (db *DB) GetUnit(_ context.Context, unitID string) (*inventory.Unit, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.units[unitID]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", unitID, inventory.ErrNotFound)
	}

	return rec.unit.Clone(), nil
}

func (db *DB) ListUnits(_ context.Context) ([]*inventory.Unit, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.sortedUnits(func(*inventory.Unit) bool { return true }), nil
}

func (db *DB) ListUnitsByRoom(_ context.Context, roomID string) ([]*inventory.Unit, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.sortedUnits(func(u *inventory.Unit) bool { return u.RoomID == roomID }), nil
}

func (db *DB) sortedUnits(keep func(*inventory.Unit) bool) []*inventory.Unit {
	recs := make([]*unitRecord, 0, len(db.units))

	for _, rec := range db.units {
		if keep(&rec.unit) {
			recs = append(recs, rec)
		}
	}

	slices.SortFunc(recs, func(a, b *unitRecord) int {
		return cmp.Compare(a.seq, b.seq)
	})

	units := make([]*inventory.Unit, 0, len(recs))
	for _, rec := range recs {
		units = append(units, rec.unit.Clone())
	}

	return units
}

func (db *DB) CountBookingsByUnit(_ context.Context, unitID string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var n int

	for _, b := range db.bookings {
		if b.UnitID == unitID {
			n++
		}
	}

	return n, nil
}

func (db *DB) GetBooking(_ context.Context, bookingID string) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", bookingID, booking.ErrNotFound)
	}

	return b.Clone(), nil
}

func (db *DB) GetBookingByIdempotencyKey(_ context.Context, key string) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.idempotencyKeys[key]
	if !ok {
		return nil, booking.ErrNotFound
	}

	b, ok := db.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}

	return b.Clone(), nil
}

// ListBookingsByUnit returns the unit's bookings ordered by start day, open
// starts first.
func (db *DB) ListBookingsByUnit(_ context.Context, unitID string) ([]*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.unitBookings(unitID), nil
}

func (db *DB) ListBookedPeriods(_ context.Context, unitID string) ([]period.Period, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	bookings := db.unitBookings(unitID)

	periods := make([]period.Period, 0, len(bookings))
	for _, b := range bookings {
		periods = append(periods, b.Period)
	}

	return periods, nil
}

func (db *DB) unitBookings(unitID string) []*booking.Booking {
	out := make([]*booking.Booking, 0)

	for _, b := range db.bookings {
		if b.UnitID == unitID {
			out = append(out, b.Clone())
		}
	}

	slices.SortFunc(out, func(a, b *booking.Booking) int {
		if c := a.Period.Start.Compare(b.Period.Start); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return out
}

func (db *DB) ListEventsByUnit(_ context.Context, unitID string) ([]*booking.Event, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	events := make([]*booking.Event, 0, len(db.events[unitID]))

	for _, e := range db.events[unitID] {
		c := *e
		events = append(events, &c)
	}

	return events, nil
}
