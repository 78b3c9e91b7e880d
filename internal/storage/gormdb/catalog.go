package gormdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
)

func (s *Store) SaveRoom(ctx context.Context, room *inventory.Room) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	rec := newRoomRecord(room)

	var existing roomRecord

	err = tx.Select("seq").Where("id = ?", room.ID).Take(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = tx.Create(&rec).Error
	case err == nil:
		rec.Seq = existing.Seq
		err = tx.Save(&rec).Error
	}

	if err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, writeErr(err))
	}

	if err := tx.Where("room_id = ?", room.ID).Delete(&sharingOptionRecord{}).Error; err != nil {
		return fmt.Errorf("clear sharing options of room %s: %w", room.ID, err)
	}

	if len(room.SharingOptions) == 0 {
		return nil
	}

	options := make([]sharingOptionRecord, 0, len(room.SharingOptions))
	for _, opt := range room.SharingOptions {
		options = append(options, sharingOptionRecord{
			RoomID:      room.ID,
			SharingType: string(opt.Type),
			Capacity:    opt.Capacity,
			BedCount:    opt.Count,
			Price:       opt.Price,
		})
	}

	if err := tx.Create(&options).Error; err != nil {
		return fmt.Errorf("save sharing options of room %s: %w", room.ID, err)
	}

	return nil
}

func (s *Store) SaveUnit(ctx context.Context, unit *inventory.Unit) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	rec := newUnitRecord(unit)

	var existing unitRecord

	err = tx.Select("seq").Where("id = ?", unit.ID).Take(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = tx.Create(&rec).Error
	case err == nil:
		rec.Seq = existing.Seq
		err = tx.Save(&rec).Error
	}

	if err != nil {
		return fmt.Errorf("save unit %s: %w", unit.ID, writeErr(err))
	}

	return nil
}

func (s *Store) SaveUnitState(ctx context.Context, unitID string, state inventory.State) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	status, bookingID := stateColumns(state)

	res := tx.Model(&unitRecord{}).Where("id = ?", unitID).Updates(map[string]any{
		"status":             status,
		"current_booking_id": bookingID,
	})
	if res.Error != nil {
		return fmt.Errorf("save state of unit %s: %w", unitID, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("unit %s: %w", unitID, inventory.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteUnit(ctx context.Context, unitID string) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	res := tx.Where("id = ?", unitID).Delete(&unitRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete unit %s: %w", unitID, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("unit %s: %w", unitID, inventory.ErrNotFound)
	}

	if err := tx.Where("unit_id = ?", unitID).Delete(&eventRecord{}).Error; err != nil {
		return fmt.Errorf("delete events of unit %s: %w", unitID, err)
	}

	return nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*inventory.Room, error) {
	db := s.conn(ctx)

	var rec roomRecord
	if err := db.Where("id = ?", roomID).Take(&rec).Error; err != nil {
		return nil, notFound(err, "room", roomID)
	}

	var options []sharingOptionRecord
	if err := db.Where("room_id = ?", roomID).Order("seq").Find(&options).Error; err != nil {
		return nil, fmt.Errorf("get sharing options of room %s: %w", roomID, err)
	}

	return rec.toRoom(options), nil
}

func (s *Store) ListRooms(ctx context.Context) ([]*inventory.Room, error) {
	db := s.conn(ctx)

	var recs []roomRecord
	if err := db.Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	var options []sharingOptionRecord
	if err := db.Order("seq").Find(&options).Error; err != nil {
		return nil, fmt.Errorf("list sharing options: %w", err)
	}

	byRoom := make(map[string][]sharingOptionRecord)
	for _, opt := range options {
		byRoom[opt.RoomID] = append(byRoom[opt.RoomID], opt)
	}

	rooms := make([]*inventory.Room, 0, len(recs))
	for _, rec := range recs {
		rooms = append(rooms, rec.toRoom(byRoom[rec.ID]))
	}

	return rooms, nil
}

func (s *Store) GetUnit(ctx context.Context, unitID string) (*inventory.Unit, error) {
	var rec unitRecord
	if err := s.conn(ctx).Where("id = ?", unitID).Take(&rec).Error; err != nil {
		return nil, notFound(err, "unit", unitID)
	}

	return rec.toUnit()
}

func (s *Store) ListUnits(ctx context.Context) ([]*inventory.Unit, error) {
	return s.findUnits(s.conn(ctx))
}

func (s *Store) ListUnitsByRoom(ctx context.Context, roomID string) ([]*inventory.Unit, error) {
	return s.findUnits(s.conn(ctx).Where("room_id = ?", roomID))
}

func (s *Store) findUnits(db *gorm.DB) ([]*inventory.Unit, error) {
	var recs []unitRecord
	if err := db.Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	units := make([]*inventory.Unit, 0, len(recs))

	for _, rec := range recs {
		u, err := rec.toUnit()
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", rec.ID, err)
		}

		units = append(units, u)
	}

	return units, nil
}

func (s *Store) CountBookingsByUnit(ctx context.Context, unitID string) (int, error) {
	var n int64
	if err := s.conn(ctx).Model(&bookingRecord{}).Where("unit_id = ?", unitID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count bookings of unit %s: %w", unitID, err)
	}

	return int(n), nil
}

func (s *Store) ListBookedPeriods(ctx context.Context, unitID string) ([]period.Period, error) {
	recs, err := s.unitBookings(ctx, unitID)
	if err != nil {
		return nil, err
	}

	periods := make([]period.Period, 0, len(recs))
	for _, rec := range recs {
		periods = append(periods, period.Period{Start: fromDayColumn(rec.StartDay), End: fromDayColumn(rec.EndDay)})
	}

	return periods, nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, inventory.ErrNotFound)
	}

	return fmt.Errorf("get %s %s: %w", what, id, err)
}
