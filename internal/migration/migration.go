package migration

import (
	"context"
	"fmt"

	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/logger"
)

type catalog interface {
	ListRooms(ctx context.Context) ([]*inventory.Room, error)
	CreateRoom(ctx context.Context, input inventory.RoomInput) (*inventory.Room, error)
	AddUnit(ctx context.Context, input inventory.UnitInput) (*inventory.Unit, error)
}

type demoRoom struct {
	input inventory.RoomInput
	units []inventory.UnitInput
}

func seats(category string, serials ...string) []inventory.UnitInput {
	units := make([]inventory.UnitInput, 0, len(serials))
	for i, serial := range serials {
		units = append(units, inventory.UnitInput{
			Kind:     inventory.Seat,
			Serial:   serial,
			Position: fmt.Sprintf("row-1/%d", i+1),
			Category: category,
			Price:    1500,
		})
	}

	return units
}

func beds(sharing inventory.SharingType, price float64, serials ...string) []inventory.UnitInput {
	units := make([]inventory.UnitInput, 0, len(serials))
	for _, serial := range serials {
		units = append(units, inventory.UnitInput{
			Kind:        inventory.Bed,
			Serial:      serial,
			SharingType: sharing,
			Price:       price,
		})
	}

	return units
}

func demoCatalog() []demoRoom {
	return []demoRoom{
		{
			input: inventory.RoomInput{
				Name:        "Quiet Reading Hall",
				Kind:        inventory.ReadingRoom,
				WorkingDays: []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
				OpenTime:    "09:00",
				CloseTime:   "21:00",
			},
			units: seats("AC", "A1", "A2", "A3", "A4"),
		},
		{
			input: inventory.RoomInput{
				Name: "Sunrise Hostel Block A",
				Kind: inventory.Hostel,
				SharingOptions: []inventory.SharingOption{
					{Type: inventory.Private, Capacity: 1, Count: 1, Price: 9000},
					{Type: inventory.FourSharing, Capacity: 4, Count: 4, Price: 4500},
				},
				Is24Hours: true,
			},
			units: append(
				beds(inventory.Private, 9000, "P-1"),
				beds(inventory.FourSharing, 4500, "Q-1", "Q-2", "Q-3", "Q-4")...,
			),
		},
		{
			input: inventory.RoomInput{
				Name:      "Lakeside Cabins",
				Kind:      inventory.Cabin,
				OpenTime:  "08:00",
				CloseTime: "20:00",
			},
			units: seats("cabin", "C1", "C2", "C3"),
		},
	}
}

// Up seeds a demo catalog. It does nothing when any room already exists, so
// it is safe to run against a persistent store on every start.
func Up(ctx context.Context, l *logger.Logger, catalog catalog) error {
	rooms, err := catalog.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	if len(rooms) > 0 {
		l.LogInfo("Catalog already has %d rooms, skipping demo data", len(rooms))

		return nil
	}

	var units int

	for _, demo := range demoCatalog() {
		room, err := catalog.CreateRoom(ctx, demo.input)
		if err != nil {
			return fmt.Errorf("create room %q: %w", demo.input.Name, err)
		}

		for _, input := range demo.units {
			input.RoomID = room.ID

			if _, err := catalog.AddUnit(ctx, input); err != nil {
				return fmt.Errorf("add unit %s to room %q: %w", input.Serial, demo.input.Name, err)
			}

			units++
		}
	}

	l.LogInfo("Demo catalog has been seeded with %d units", units)

	return nil
}
