package availability

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
)

const DefaultHorizonDays = 365

type storage interface {
	GetUnit(ctx context.Context, unitID string) (*inventory.Unit, error)
	ListUnitsByRoom(ctx context.Context, roomID string) ([]*inventory.Unit, error)
	ListBookedPeriods(ctx context.Context, unitID string) ([]period.Period, error)
}

// Index answers availability questions per concrete unit. Shared rooms are
// never evaluated as a pool: each bed is its own capacity-1 unit.
type Index struct {
	storage storage
	horizon int
}

func New(storage storage, horizonDays int) *Index {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	return &Index{
		storage: storage,
		horizon: horizonDays,
	}
}

// Free reports whether p overlaps none of booked.
func Free(booked []period.Period, p period.Period) bool {
	for _, b := range booked {
		if b.Overlaps(p) {
			return false
		}
	}

	return true
}

// Days yields n consecutive calendar days starting at from.
func Days(from time.Time, n int) iter.Seq[time.Time] {
	y, m, d := from.Date()
	start := period.Day(y, m, d)

	return func(yield func(time.Time) bool) {
		for i := range n {
			if !yield(start.AddDate(0, 0, i)) {
				return
			}
		}
	}
}

func (i *Index) IsAvailable(ctx context.Context, unitID string, p period.Period) (bool, error) {
	booked, err := i.bookedPeriods(ctx, unitID)
	if err != nil {
		return false, err
	}

	return Free(booked, p), nil
}

// NextAvailableDate returns the first day on or after `after` with no booking,
// looking no further than the horizon.
func (i *Index) NextAvailableDate(ctx context.Context, unitID string, after time.Time) (time.Time, bool, error) {
	booked, err := i.bookedPeriods(ctx, unitID)
	if err != nil {
		return time.Time{}, false, err
	}

	for day := range Days(after, i.horizon) {
		if Free(booked, period.Period{Start: day, End: day}) {
			return day, true, nil
		}
	}

	return time.Time{}, false, nil
}

// FreeUnits lists the room's units that can take a booking for p. An empty
// sharing type matches every unit.
func (i *Index) FreeUnits(
	ctx context.Context,
	roomID string,
	sharing inventory.SharingType,
	p period.Period,
) ([]*inventory.Unit, error) {
	units, err := i.storage.ListUnitsByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list units of room %s: %w", roomID, err)
	}

	free := make([]*inventory.Unit, 0, len(units))

	for _, unit := range units {
		if sharing != "" && unit.SharingType != sharing {
			continue
		}

		if unit.State.Kind() == inventory.StateUnavailable {
			continue
		}

		booked, err := i.storage.ListBookedPeriods(ctx, unit.ID)
		if err != nil {
			return nil, fmt.Errorf("list booked periods of unit %s: %w", unit.ID, err)
		}

		if Free(booked, p) {
			free = append(free, unit)
		}
	}

	return free, nil
}

func (i *Index) bookedPeriods(ctx context.Context, unitID string) ([]period.Period, error) {
	if _, err := i.storage.GetUnit(ctx, unitID); err != nil {
		return nil, fmt.Errorf("get unit %s: %w", unitID, err)
	}

	booked, err := i.storage.ListBookedPeriods(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list booked periods of unit %s: %w", unitID, err)
	}

	return booked, nil
}
