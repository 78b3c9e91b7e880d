package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avstrong/studystay/internal/lock"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/period"
	"github.com/avstrong/studystay/internal/validation"
)

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type locker interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error)
}

type storageReader interface {
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	ListRooms(ctx context.Context) ([]*Room, error)
	GetUnit(ctx context.Context, unitID string) (*Unit, error)
	ListUnitsByRoom(ctx context.Context, roomID string) ([]*Unit, error)
	CountBookingsByUnit(ctx context.Context, unitID string) (int, error)
}

type storageWriter interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveRoom(ctx context.Context, room *Room) error
	SaveUnit(ctx context.Context, unit *Unit) error
	DeleteUnit(ctx context.Context, unitID string) error
}

type storage interface {
	storageReader
	storageWriter
}

// Catalog is the read model of rooms and units plus the administrative
// mutations that keep bed counts within each room's sharing options.
type Catalog struct {
	l           *logger.Logger
	storage     storage
	idGenerator idGenerator
	locks       locker
	lockTimeout time.Duration
}

func New(l *logger.Logger, storage storage, idGenerator idGenerator, locks locker, lockTimeout time.Duration) *Catalog {
	if lockTimeout <= 0 {
		lockTimeout = lock.DefaultTimeout
	}

	return &Catalog{
		l:           l,
		storage:     storage,
		idGenerator: idGenerator,
		locks:       locks,
		lockTimeout: lockTimeout,
	}
}

type RoomInput struct {
	Name           string          `json:"name"`
	Kind           RoomKind        `json:"kind"`
	SharingOptions []SharingOption `json:"sharing_options"`
	WorkingDays    []string        `json:"working_days"`
	OpenTime       string          `json:"open_time"`
	CloseTime      string          `json:"close_time"`
	Is24Hours      bool            `json:"is_24_hours"`
}

type UnitInput struct {
	RoomID      string      `json:"room_id"`
	Kind        UnitKind    `json:"kind"`
	Serial      string      `json:"serial"`
	Position    string      `json:"position"`
	Category    string      `json:"category"`
	Price       float64     `json:"price"`
	SharingType SharingType `json:"sharing_type"`
}

func RoomKey(roomID string) string {
	return "room:" + roomID
}

func UnitKey(unitID string) string {
	return "unit:" + unitID
}

func (c *Catalog) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}

	return room, nil
}

func (c *Catalog) ListRooms(ctx context.Context) ([]*Room, error) {
	rooms, err := c.storage.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return rooms, nil
}

func (c *Catalog) GetUnit(ctx context.Context, unitID string) (*Unit, error) {
	unit, err := c.storage.GetUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("get unit %s: %w", unitID, err)
	}

	return unit, nil
}

func (c *Catalog) ListUnitsForRoom(ctx context.Context, roomID string) ([]*Unit, error) {
	if _, err := c.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	units, err := c.storage.ListUnitsByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list units of room %s: %w", roomID, err)
	}

	return units, nil
}

func (c *Catalog) GetSharingOptions(ctx context.Context, roomID string) ([]SharingOption, error) {
	room, err := c.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return room.SharingOptions, nil
}

func (in *RoomInput) validate() error {
	inputErr := validation.NewInputError()

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		inputErr.AddError("name", "provide room name")
	}

	if !in.Kind.Valid() {
		inputErr.AddError("kind", "kind must be one of reading_room, hostel, cabin")
	}

	validateSharingOptions(inputErr, in.SharingOptions)

	if in.OpenTime != "" {
		if _, err := period.ParseClock(in.OpenTime); err != nil {
			inputErr.AddError("open_time", "open_time must be HH:MM")
		}
	}

	if in.CloseTime != "" {
		if _, err := period.ParseClock(in.CloseTime); err != nil {
			inputErr.AddError("close_time", "close_time must be HH:MM")
		}
	}

	if inputErr.FieldsCount() > 0 {
		return inputErr
	}

	return nil
}

func validateSharingOptions(inputErr *validation.InputError, opts []SharingOption) {
	seen := make(map[SharingType]bool, len(opts))

	for _, opt := range opts {
		if !opt.Type.Valid() {
			inputErr.AddError("sharing_options.type", fmt.Sprintf("unknown sharing type %q", opt.Type))

			continue
		}

		if seen[opt.Type] {
			inputErr.AddError("sharing_options.type", fmt.Sprintf("duplicate sharing type %q", opt.Type))
		}

		seen[opt.Type] = true

		if opt.Capacity != opt.Type.Occupants() {
			inputErr.AddError("sharing_options.capacity",
				fmt.Sprintf("capacity of %s must be %d", opt.Type, opt.Type.Occupants()))
		}

		if opt.Count < 0 {
			inputErr.AddError("sharing_options.count", "count must not be negative")
		}

		if opt.Price < 0 {
			inputErr.AddError("sharing_options.price", "price must not be negative")
		}
	}
}

func (c *Catalog) CreateRoom(ctx context.Context, input RoomInput) (*Room, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	id, err := c.idGenerator.GetID(ctx)
	if err != nil {
		return nil, ErrNextID
	}

	room := &Room{
		ID:             id,
		Name:           input.Name,
		Kind:           input.Kind,
		SharingOptions: input.SharingOptions,
		WorkingDays:    input.WorkingDays,
		OpenTime:       input.OpenTime,
		CloseTime:      input.CloseTime,
		Is24Hours:      input.Is24Hours,
		CreatedAt:      time.Now().UTC(),
	}

	err = c.inTransaction(ctx, func(ctx context.Context) error {
		return c.storage.SaveRoom(ctx, room)
	})
	if err != nil {
		return nil, fmt.Errorf("save room: %w", err)
	}

	c.l.LogInfo("Room %s (%s) created", room.ID, room.Kind)

	return room, nil
}

// UpdateSharingOptions replaces the room's options after checking that the
// beds it already holds still fit the new counts.
func (c *Catalog) UpdateSharingOptions(ctx context.Context, roomID string, opts []SharingOption) (*Room, error) {
	inputErr := validation.NewInputError()
	validateSharingOptions(inputErr, opts)

	if inputErr.FieldsCount() > 0 {
		return nil, inputErr
	}

	release, err := c.locks.Acquire(ctx, RoomKey(roomID), c.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer release()

	var room *Room

	err = c.inTransaction(ctx, func(ctx context.Context) error {
		r, err := c.storage.GetRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("get room %s: %w", roomID, err)
		}

		units, err := c.storage.ListUnitsByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("list units of room %s: %w", roomID, err)
		}

		room = r
		room.SharingOptions = opts

		for sharing, beds := range countBeds(units) {
			opt, ok := room.Option(sharing)
			if !ok || beds > opt.Count {
				return fmt.Errorf("room %s holds %d %s beds: %w", roomID, beds, sharing, ErrCapacityExceeded)
			}
		}

		return c.storage.SaveRoom(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (in *UnitInput) validate() error {
	inputErr := validation.NewInputError()

	if in.RoomID == "" {
		inputErr.AddError("room_id", "provide room_id")
	}

	in.Serial = strings.TrimSpace(in.Serial)
	if in.Serial == "" {
		inputErr.AddError("serial", "provide serial")
	}

	if in.Price < 0 {
		inputErr.AddError("price", "price must not be negative")
	}

	switch in.Kind {
	case Bed:
		if !in.SharingType.Valid() {
			inputErr.AddError("sharing_type", "a bed needs a valid sharing_type")
		}
	case Seat:
		if in.SharingType != "" {
			inputErr.AddError("sharing_type", "a seat has no sharing_type")
		}
	default:
		inputErr.AddError("kind", "kind must be seat or bed")
	}

	if inputErr.FieldsCount() > 0 {
		return inputErr
	}

	return nil
}

// AddUnit creates a seat or bed. A bed needs a matching sharing option on the
// room with room for one more record, otherwise ErrCapacityExceeded.
func (c *Catalog) AddUnit(ctx context.Context, input UnitInput) (*Unit, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	release, err := c.locks.Acquire(ctx, RoomKey(input.RoomID), c.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer release()

	id, err := c.idGenerator.GetID(ctx)
	if err != nil {
		return nil, ErrNextID
	}

	unit := &Unit{
		ID:          id,
		RoomID:      input.RoomID,
		Kind:        input.Kind,
		Serial:      input.Serial,
		Position:    input.Position,
		Category:    input.Category,
		Price:       input.Price,
		SharingType: input.SharingType,
		State:       Available(),
	}

	err = c.inTransaction(ctx, func(ctx context.Context) error {
		room, err := c.storage.GetRoom(ctx, input.RoomID)
		if err != nil {
			return fmt.Errorf("get room %s: %w", input.RoomID, err)
		}

		if unit.Kind == Bed {
			units, err := c.storage.ListUnitsByRoom(ctx, room.ID)
			if err != nil {
				return fmt.Errorf("list units of room %s: %w", room.ID, err)
			}

			opt, _ := room.Option(unit.SharingType)
			if beds := countBeds(units)[unit.SharingType]; beds+1 > opt.Count {
				return fmt.Errorf("room %s allows %d %s beds, has %d: %w",
					room.ID, opt.Count, unit.SharingType, beds, ErrCapacityExceeded)
			}
		}

		return c.storage.SaveUnit(ctx, unit)
	})
	if err != nil {
		return nil, err
	}

	c.l.LogInfo("Unit %s (%s) added to room %s", unit.ID, unit.Kind, unit.RoomID)

	return unit, nil
}

// RemoveUnit deletes a unit that has never been booked.
func (c *Catalog) RemoveUnit(ctx context.Context, unitID string) error {
	unit, err := c.GetUnit(ctx, unitID)
	if err != nil {
		return err
	}

	releaseRoom, err := c.locks.Acquire(ctx, RoomKey(unit.RoomID), c.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer releaseRoom()

	releaseUnit, err := c.locks.Acquire(ctx, UnitKey(unitID), c.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer releaseUnit()

	err = c.inTransaction(ctx, func(ctx context.Context) error {
		bookings, err := c.storage.CountBookingsByUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("count bookings of unit %s: %w", unitID, err)
		}

		if bookings > 0 {
			return fmt.Errorf("unit %s has %d bookings: %w", unitID, bookings, ErrUnitInUse)
		}

		return c.storage.DeleteUnit(ctx, unitID)
	})
	if err != nil {
		return err
	}

	c.l.LogInfo("Unit %s removed from room %s", unitID, unit.RoomID)

	return nil
}

func countBeds(units []*Unit) map[SharingType]int {
	counts := make(map[SharingType]int)

	for _, u := range units {
		if u.Kind == Bed {
			counts[u.SharingType]++
		}
	}

	return counts
}

func (c *Catalog) inTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, err = c.storage.BeginTransaction(ctx, "READ COMMITTED")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := c.storage.RollbackTransaction(ctx); rbErr != nil {
				c.l.LogErrorf("Could not rollback catalog transaction after panic %v", p)
			}

			panic(p)
		}

		if err != nil {
			if rbErr := c.storage.RollbackTransaction(ctx); rbErr != nil {
				c.l.LogErrorf("Could not rollback catalog transaction after error %v", rbErr.Error())
			}

			return
		}

		if err = c.storage.CommitTransaction(ctx); err != nil {
			c.l.LogErrorf("Could not commit catalog transaction, err %v", err.Error())
		}
	}()

	return fn(ctx)
}
