package calendar

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
)

const defaultConcurrency = 8

// Palette colors cabins by their position in the projection.
var Palette = []string{
	"#4f46e5", "#0891b2", "#16a34a", "#ca8a04",
	"#dc2626", "#9333ea", "#db2777", "#475569",
}

type storage interface {
	GetUnit(ctx context.Context, unitID string) (*inventory.Unit, error)
	ListUnits(ctx context.Context) ([]*inventory.Unit, error)
	ListBookingsByUnit(ctx context.Context, unitID string) ([]*booking.Booking, error)
}

type Entry struct {
	CabinID    string         `json:"cabin_id"`
	BookingID  string         `json:"booking_id"`
	OccupantID string         `json:"occupant_id"`
	Period     period.Period  `json:"period"`
	Status     booking.Status `json:"status"`
	Label      string         `json:"label"`
	Color      string         `json:"color"`
}

// Projector is a read-only timeline view over bookings. It takes no locks, so
// a projection may trail concurrent writers by one refresh.
type Projector struct {
	storage     storage
	normalizer  *period.Normalizer
	concurrency int
}

func New(storage storage, normalizer *period.Normalizer) *Projector {
	return &Projector{
		storage:     storage,
		normalizer:  normalizer,
		concurrency: defaultConcurrency,
	}
}

// Project returns one entry per booking on the given cabins whose period
// intersects dateRange. An empty cabinIDs projects every unit. Entries follow
// cabin order, then start day.
func (p *Projector) Project(ctx context.Context, cabinIDs []string, dateRange period.Period) ([]Entry, error) {
	if dateRange.HasStart() && dateRange.HasEnd() && dateRange.Start.After(dateRange.End) {
		return nil, period.ErrInvalidRange
	}

	if len(cabinIDs) == 0 {
		units, err := p.storage.ListUnits(ctx)
		if err != nil {
			return nil, fmt.Errorf("list units: %w", err)
		}

		for _, u := range units {
			cabinIDs = append(cabinIDs, u.ID)
		}
	}

	cabinIDs = uniq(cabinIDs)
	perCabin := make([][]Entry, len(cabinIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, cabinID := range cabinIDs {
		g.Go(func() error {
			entries, err := p.cabin(gctx, cabinID, Palette[i%len(Palette)], dateRange)
			if err != nil {
				return err
			}

			perCabin[i] = entries

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.Concat(perCabin...), nil
}

func (p *Projector) cabin(ctx context.Context, cabinID, color string, dateRange period.Period) ([]Entry, error) {
	if _, err := p.storage.GetUnit(ctx, cabinID); err != nil {
		return nil, fmt.Errorf("get unit %s: %w", cabinID, err)
	}

	bookings, err := p.storage.ListBookingsByUnit(ctx, cabinID)
	if err != nil {
		return nil, fmt.Errorf("list bookings of unit %s: %w", cabinID, err)
	}

	entries := make([]Entry, 0, len(bookings))

	for _, b := range bookings {
		if !b.Period.Overlaps(dateRange) {
			continue
		}

		entries = append(entries, Entry{
			CabinID:    cabinID,
			BookingID:  b.ID,
			OccupantID: b.OccupantID,
			Period:     b.Period,
			Status:     b.Status,
			Label:      fmt.Sprintf("%s · %s", b.OccupantID, p.normalizer.Format(b.Period)),
			Color:      color,
		})
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return a.Period.Start.Compare(b.Period.Start)
	})

	return entries, nil
}

// GroupByCabin splits a projection per cabin, keeping entry order.
func GroupByCabin(entries []Entry) map[string][]Entry {
	groups := make(map[string][]Entry)

	for _, e := range entries {
		groups[e.CabinID] = append(groups[e.CabinID], e)
	}

	return groups
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		out = append(out, id)
	}

	return out
}
