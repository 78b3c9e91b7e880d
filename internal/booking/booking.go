package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/lock"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/period"
	"github.com/avstrong/studystay/internal/validation"
)

const DefaultLockTimeout = lock.DefaultTimeout

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type locker interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error)
}

type availabilityIndex interface {
	IsAvailable(ctx context.Context, unitID string, p period.Period) (bool, error)
}

type storageReader interface {
	GetUnit(ctx context.Context, unitID string) (*inventory.Unit, error)
	GetBooking(ctx context.Context, bookingID string) (*Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*Booking, error)
	ListBookingsByUnit(ctx context.Context, unitID string) ([]*Booking, error)
	ListEventsByUnit(ctx context.Context, unitID string) ([]*Event, error)
}

type storageWriter interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveUnitState(ctx context.Context, unitID string, state inventory.State) error
	SaveBooking(ctx context.Context, booking *Booking) error
	DeleteBooking(ctx context.Context, bookingID string) error
	SaveEvent(ctx context.Context, event *Event) error
}

type storage interface {
	storageReader
	storageWriter
}

// Manager is the allocation engine. It is the only writer of bookings and of
// unit occupancy state. Every mutation of a unit runs under that unit's lock
// and inside one storage transaction.
type Manager struct {
	l           *logger.Logger
	storage     storage
	idGenerator idGenerator
	index       availabilityIndex
	normalizer  *period.Normalizer
	locks       locker
	lockTimeout time.Duration
	now         func() time.Time
}

type Option func(m *Manager)

// WithLockTimeout bounds how long a mutation waits for the unit lock before
// giving up with ErrConflict. Non-positive values keep DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lockTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func New(
	l *logger.Logger,
	storage storage,
	idGenerator idGenerator,
	index availabilityIndex,
	normalizer *period.Normalizer,
	locks locker,
	opts ...Option,
) *Manager {
	m := &Manager{
		l:           l,
		storage:     storage,
		idGenerator: idGenerator,
		index:       index,
		normalizer:  normalizer,
		locks:       locks,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (in *ReserveInput) validate() error {
	inputErr := validation.NewInputError()

	in.UnitID = strings.TrimSpace(in.UnitID)
	if in.UnitID == "" {
		inputErr.AddError("unit_id", "provide unit_id")
	}

	in.OccupantID = strings.TrimSpace(in.OccupantID)
	if in.OccupantID == "" {
		inputErr.AddError("occupant_id", "provide occupant_id")
	}

	p := in.Period
	if !p.HasStart() && !p.HasEnd() {
		inputErr.AddError("period", "provide start or end")
	}

	if p.HasStart() && p.HasEnd() && p.Start.After(p.End) {
		inputErr.AddError("period", period.ErrInvalidRange.Error())
	}

	if inputErr.FieldsCount() > 0 {
		return inputErr
	}

	return nil
}

// Reserve books a unit for a period. If the period covers today the unit is
// held for the booking right away; a future booking leaves the unit state
// untouched. Either way the booking stays reserved until CheckIn.
//
//nolint:funlen,cyclop // linear checks before a single write
func (m *Manager) Reserve(ctx context.Context, input ReserveInput) (*Booking, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	key, hasKey := IdempotencyKeyFromContext(ctx)
	if hasKey {
		existing, err := m.storage.GetBookingByIdempotencyKey(ctx, key)
		if err == nil {
			return existing, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get booking by idempotency key: %w", err)
		}
	}

	release, err := m.lockUnit(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	defer release()

	var booking *Booking

	err = m.inTransaction(ctx, func(ctx context.Context) error {
		if hasKey {
			existing, err := m.storage.GetBookingByIdempotencyKey(ctx, key)
			if err == nil {
				booking = existing

				return nil
			}

			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("get booking by idempotency key: %w", err)
			}
		}

		unit, err := m.storage.GetUnit(ctx, input.UnitID)
		if err != nil {
			return fmt.Errorf("get unit %s: %w", input.UnitID, err)
		}

		if unit.State.Kind() == inventory.StateUnavailable {
			return newConflictError(unit.ID, "unit is unavailable")
		}

		available, err := m.index.IsAvailable(ctx, unit.ID, input.Period)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}

		if !available {
			return newConflictError(unit.ID, fmt.Sprintf("period %s overlaps an existing booking", input.Period))
		}

		id, err := m.idGenerator.GetID(ctx)
		if err != nil {
			return ErrNextID
		}

		now := m.now().UTC()

		booking = &Booking{
			ID:             id,
			UnitID:         unit.ID,
			OccupantID:     input.OccupantID,
			Period:         input.Period,
			Status:         StatusReserved,
			IdempotencyKey: key,
			CreatedAt:      now,
		}

		if input.Period.Contains(m.normalizer.Today(now)) {
			if holder, occupied := unit.State.BookingID(); occupied {
				return newConflictError(unit.ID, fmt.Sprintf("unit is still occupied by booking %s", holder))
			}

			if err := m.storage.SaveUnitState(ctx, unit.ID, inventory.Occupied(id)); err != nil {
				return fmt.Errorf("save unit state: %w", err)
			}
		}

		if err := m.storage.SaveBooking(ctx, booking); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}

		return m.saveEvents(ctx, unit.ID, id, EventReserved)
	})
	if err != nil {
		return nil, err
	}

	m.l.LogInfo("Booking %s reserved unit %s for %s", booking.ID, booking.UnitID, m.normalizer.Format(booking.Period))

	return booking, nil
}

// CheckIn starts occupancy. It is valid once the booking's first day has come
// and until its last day has passed. Checking in twice is a no-op.
func (m *Manager) CheckIn(ctx context.Context, bookingID string) (*Booking, error) {
	var booking *Booking

	err := m.withBooking(ctx, bookingID, func(ctx context.Context, b *Booking) error {
		switch b.Status {
		case StatusCheckedIn:
			booking = b

			return nil
		case StatusCheckedOut:
			return fmt.Errorf("booking %s already checked out: %w", b.ID, ErrInvalidTransition)
		case StatusReserved:
		}

		now := m.now().UTC()
		today := m.normalizer.Today(now)

		if b.Period.HasStart() && today.Before(b.Period.Start) {
			return fmt.Errorf("booking %s has not started: %w", b.ID, ErrInvalidTransition)
		}

		if b.Period.HasEnd() && today.After(b.Period.End) {
			return fmt.Errorf("booking %s has ended: %w", b.ID, ErrInvalidTransition)
		}

		unit, err := m.storage.GetUnit(ctx, b.UnitID)
		if err != nil {
			return fmt.Errorf("get unit %s: %w", b.UnitID, err)
		}

		switch unit.State.Kind() {
		case inventory.StateUnavailable:
			return fmt.Errorf("unit %s is unavailable: %w", unit.ID, ErrInvalidTransition)
		case inventory.StateOccupied:
			if !unit.State.OccupiedBy(b.ID) {
				return fmt.Errorf("unit %s is %s: %w", unit.ID, unit.State, ErrInvalidTransition)
			}
		case inventory.StateAvailable:
		}

		b.Status = StatusCheckedIn
		b.CheckedInAt = &now

		if err := m.storage.SaveBooking(ctx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}

		if err := m.storage.SaveUnitState(ctx, unit.ID, inventory.Occupied(b.ID)); err != nil {
			return fmt.Errorf("save unit state: %w", err)
		}

		booking = b

		return m.saveEvents(ctx, unit.ID, b.ID, EventCheckedIn)
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// CheckOut ends occupancy and frees the unit if this booking held it. The
// booking keeps only the days up to checkout, so an early or open-ended stay
// stops blocking later dates. Checking out twice is a no-op.
func (m *Manager) CheckOut(ctx context.Context, bookingID string) (*Booking, error) {
	var booking *Booking

	err := m.withBooking(ctx, bookingID, func(ctx context.Context, b *Booking) error {
		switch b.Status {
		case StatusCheckedOut:
			booking = b

			return nil
		case StatusReserved:
			return fmt.Errorf("booking %s has not checked in: %w", b.ID, ErrInvalidTransition)
		case StatusCheckedIn:
		}

		now := m.now().UTC()
		b.Status = StatusCheckedOut
		b.CheckedOutAt = &now
		b.Period = checkedOutPeriod(b.Period, m.normalizer.Today(now))

		if err := m.storage.SaveBooking(ctx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}

		if err := m.releaseUnit(ctx, b); err != nil {
			return err
		}

		booking = b

		return m.saveEvents(ctx, b.UnitID, b.ID, EventCheckedOut)
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// Cancel removes a booking that has not checked in yet.
func (m *Manager) Cancel(ctx context.Context, bookingID string) error {
	return m.withBooking(ctx, bookingID, func(ctx context.Context, b *Booking) error {
		if b.Status != StatusReserved {
			return fmt.Errorf("cancel booking %s in status %s: %w", b.ID, b.Status, ErrAlreadyOccupied)
		}

		if err := m.storage.DeleteBooking(ctx, b.ID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}

		if err := m.releaseUnit(ctx, b); err != nil {
			return err
		}

		return m.saveEvents(ctx, b.UnitID, b.ID, EventCancelled)
	})
}

// MarkUnavailable takes a unit out of service. An occupied unit is refused
// unless force is set; the booking holding it stays checked in.
func (m *Manager) MarkUnavailable(ctx context.Context, unitID string, force bool) (*inventory.Unit, error) {
	return m.withUnit(ctx, unitID, func(ctx context.Context, unit *inventory.Unit) error {
		switch unit.State.Kind() {
		case inventory.StateUnavailable:
			return nil
		case inventory.StateOccupied:
			if !force {
				return fmt.Errorf("unit %s is %s: %w", unit.ID, unit.State, ErrHasActiveBooking)
			}
		case inventory.StateAvailable:
		}

		unit.State = inventory.Unavailable()

		if err := m.storage.SaveUnitState(ctx, unit.ID, unit.State); err != nil {
			return fmt.Errorf("save unit state: %w", err)
		}

		return m.saveEvents(ctx, unit.ID, "", EventMarkedUnavailable)
	})
}

// MarkAvailable puts a unit back in service. If a checked-in booking, or a
// reservation covering today, still holds it the unit returns to occupied.
func (m *Manager) MarkAvailable(ctx context.Context, unitID string) (*inventory.Unit, error) {
	return m.withUnit(ctx, unitID, func(ctx context.Context, unit *inventory.Unit) error {
		if unit.State.Kind() != inventory.StateUnavailable {
			return nil
		}

		bookings, err := m.storage.ListBookingsByUnit(ctx, unit.ID)
		if err != nil {
			return fmt.Errorf("list bookings of unit %s: %w", unit.ID, err)
		}

		unit.State = inventory.Available()
		today := m.normalizer.Today(m.now())

		for _, b := range bookings {
			if b.Status == StatusCheckedIn {
				unit.State = inventory.Occupied(b.ID)

				break
			}

			if b.Status == StatusReserved && b.Period.Contains(today) {
				unit.State = inventory.Occupied(b.ID)
			}
		}

		if err := m.storage.SaveUnitState(ctx, unit.ID, unit.State); err != nil {
			return fmt.Errorf("save unit state: %w", err)
		}

		return m.saveEvents(ctx, unit.ID, "", EventMarkedAvailable)
	})
}

func (m *Manager) Get(ctx context.Context, bookingID string) (*Booking, error) {
	b, err := m.storage.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}

	return b, nil
}

func (m *Manager) ListByUnit(ctx context.Context, unitID string) ([]*Booking, error) {
	if _, err := m.storage.GetUnit(ctx, unitID); err != nil {
		return nil, fmt.Errorf("get unit %s: %w", unitID, err)
	}

	bookings, err := m.storage.ListBookingsByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list bookings of unit %s: %w", unitID, err)
	}

	return bookings, nil
}

func (m *Manager) Events(ctx context.Context, unitID string) ([]*Event, error) {
	if _, err := m.storage.GetUnit(ctx, unitID); err != nil {
		return nil, fmt.Errorf("get unit %s: %w", unitID, err)
	}

	events, err := m.storage.ListEventsByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list events of unit %s: %w", unitID, err)
	}

	return events, nil
}

// checkedOutPeriod trims p so it ends on the checkout day, never before its
// start.
func checkedOutPeriod(p period.Period, today time.Time) period.Period {
	if p.HasEnd() && !p.End.After(today) {
		return p
	}

	p.End = today
	if p.HasStart() && p.End.Before(p.Start) {
		p.End = p.Start
	}

	return p
}

func (m *Manager) releaseUnit(ctx context.Context, b *Booking) error {
	unit, err := m.storage.GetUnit(ctx, b.UnitID)
	if err != nil {
		return fmt.Errorf("get unit %s: %w", b.UnitID, err)
	}

	if !unit.State.OccupiedBy(b.ID) {
		return nil
	}

	if err := m.storage.SaveUnitState(ctx, unit.ID, inventory.Available()); err != nil {
		return fmt.Errorf("save unit state: %w", err)
	}

	return nil
}

func (m *Manager) saveEvents(ctx context.Context, unitID, bookingID string, kinds ...EventKind) error {
	for _, kind := range kinds {
		id, err := m.idGenerator.GetID(ctx)
		if err != nil {
			return ErrNextID
		}

		event := &Event{
			ID:        id,
			UnitID:    unitID,
			BookingID: bookingID,
			Kind:      kind,
			CreatedAt: m.now().UTC(),
		}

		if err := m.storage.SaveEvent(ctx, event); err != nil {
			return fmt.Errorf("save event %s: %w", kind, err)
		}
	}

	return nil
}

// withBooking locks the booking's unit and hands fn a fresh copy of the
// booking read inside the transaction.
func (m *Manager) withBooking(ctx context.Context, bookingID string, fn func(ctx context.Context, b *Booking) error) error {
	b, err := m.storage.GetBooking(ctx, bookingID)
	if err != nil {
		return m.bookingErr(bookingID, err)
	}

	release, err := m.lockUnit(ctx, b.UnitID)
	if err != nil {
		return err
	}
	defer release()

	return m.inTransaction(ctx, func(ctx context.Context) error {
		b, err := m.storage.GetBooking(ctx, bookingID)
		if err != nil {
			return m.bookingErr(bookingID, err)
		}

		return fn(ctx, b)
	})
}

func (m *Manager) withUnit(
	ctx context.Context,
	unitID string,
	fn func(ctx context.Context, unit *inventory.Unit) error,
) (*inventory.Unit, error) {
	release, err := m.lockUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	defer release()

	var unit *inventory.Unit

	err = m.inTransaction(ctx, func(ctx context.Context) error {
		unit, err = m.storage.GetUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("get unit %s: %w", unitID, err)
		}

		return fn(ctx, unit)
	})
	if err != nil {
		return nil, err
	}

	return unit, nil
}

func (m *Manager) bookingErr(bookingID string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("booking %s: %w: %w", bookingID, ErrInvalidTransition, ErrNotFound)
	}

	return fmt.Errorf("get booking %s: %w", bookingID, err)
}

func (m *Manager) lockUnit(ctx context.Context, unitID string) (func(), error) {
	release, err := m.locks.Acquire(ctx, inventory.UnitKey(unitID), m.lockTimeout)
	if errors.Is(err, lock.ErrTimeout) {
		m.l.LogWarnf("Unit %s stayed locked for %v", unitID, m.lockTimeout)

		return nil, fmt.Errorf("%w: %w", newConflictError(unitID, "unit is busy"), err)
	}

	if err != nil {
		return nil, fmt.Errorf("lock unit %s: %w", unitID, err)
	}

	return release, nil
}

func (m *Manager) inTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, err = m.storage.BeginTransaction(ctx, "READ COMMITTED")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback booking transaction after panic %v", p)
			}

			m.l.LogInfo("Transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback booking transaction after error %v", rbErr.Error())
			}

			return
		}

		if err = m.storage.CommitTransaction(ctx); err != nil {
			m.l.LogErrorf("Could not commit booking transaction, err %v", err.Error())
		}
	}()

	return fn(ctx)
}
