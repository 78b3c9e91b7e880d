package gormdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avstrong/studystay/internal/booking"
)

func (s *Store) SaveBooking(ctx context.Context, b *booking.Booking) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	rec := newBookingRecord(b)

	if err := tx.Save(&rec).Error; err != nil {
		return fmt.Errorf("save booking %s: %w", b.ID, writeErr(err))
	}

	return nil
}

func (s *Store) DeleteBooking(ctx context.Context, bookingID string) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	res := tx.Where("id = ?", bookingID).Delete(&bookingRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete booking %s: %w", bookingID, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, booking.ErrNotFound)
	}

	return nil
}

func (s *Store) SaveEvent(ctx context.Context, event *booking.Event) error {
	tx, err := s.writer(ctx)
	if err != nil {
		return err
	}

	rec := eventRecord{
		ID:        event.ID,
		UnitID:    event.UnitID,
		BookingID: event.BookingID,
		Kind:      string(event.Kind),
		CreatedAt: event.CreatedAt,
	}

	if err := tx.Create(&rec).Error; err != nil {
		return fmt.Errorf("save event %s: %w", event.ID, err)
	}

	return nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	var rec bookingRecord

	err := s.conn(ctx).Where("id = ?", bookingID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, booking.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}

	return rec.toBooking(), nil
}

func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, key string) (*booking.Booking, error) {
	var rec bookingRecord

	err := s.conn(ctx).Where("idempotency_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, booking.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get booking by idempotency key: %w", err)
	}

	return rec.toBooking(), nil
}

// ListBookingsByUnit returns the unit's bookings ordered by start day, open
// starts first.
func (s *Store) ListBookingsByUnit(ctx context.Context, unitID string) ([]*booking.Booking, error) {
	recs, err := s.unitBookings(ctx, unitID)
	if err != nil {
		return nil, err
	}

	bookings := make([]*booking.Booking, 0, len(recs))
	for _, rec := range recs {
		bookings = append(bookings, rec.toBooking())
	}

	return bookings, nil
}

func (s *Store) ListEventsByUnit(ctx context.Context, unitID string) ([]*booking.Event, error) {
	var recs []eventRecord
	if err := s.conn(ctx).Where("unit_id = ?", unitID).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list events of unit %s: %w", unitID, err)
	}

	events := make([]*booking.Event, 0, len(recs))
	for _, rec := range recs {
		events = append(events, rec.toEvent())
	}

	return events, nil
}

func (s *Store) unitBookings(ctx context.Context, unitID string) ([]bookingRecord, error) {
	var recs []bookingRecord

	err := s.conn(ctx).
		Where("unit_id = ?", unitID).
		Order("start_day IS NOT NULL, start_day, id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings of unit %s: %w", unitID, err)
	}

	return recs, nil
}
