package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/period"
)

func jan(d int) time.Time {
	return period.Day(2025, time.January, d)
}

func newDB(t *testing.T) *DB {
	t.Helper()

	db := New(Config{L: logger.Discard()})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	require.NoError(t, db.SaveRoom(trxCtx, &inventory.Room{
		ID:   "r1",
		Name: "Block A",
		Kind: inventory.Hostel,
		SharingOptions: []inventory.SharingOption{
			{Type: inventory.TwoSharing, Capacity: 2, Count: 2},
		},
	}))
	require.NoError(t, db.SaveUnit(trxCtx, &inventory.Unit{ID: "b1", RoomID: "r1", Kind: inventory.Bed, SharingType: inventory.TwoSharing}))
	require.NoError(t, db.SaveUnit(trxCtx, &inventory.Unit{ID: "b2", RoomID: "r1", Kind: inventory.Bed, SharingType: inventory.TwoSharing}))
	require.NoError(t, db.CommitTransaction(trxCtx))

	return db
}

func TestDB_WritesNeedTransaction(t *testing.T) {
	db := newDB(t)

	err := db.SaveBooking(context.Background(), &booking.Booking{ID: "x"})
	assert.ErrorIs(t, err, ErrTransactionIDNotFoundInCtx)

	err = db.CommitTransaction(withTransactionID(context.Background(), "trx-404"))
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestDB_CommitAndRollback(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.SaveBooking(trxCtx, &booking.Booking{
		ID: "bk-1", UnitID: "b1", Period: period.Period{Start: jan(1), End: jan(3)}, IdempotencyKey: "key-1",
	}))
	require.NoError(t, db.SaveUnitState(trxCtx, "b1", inventory.Occupied("bk-1")))

	_, err = db.GetBooking(ctx, "bk-1")
	assert.ErrorIs(t, err, booking.ErrNotFound, "uncommitted writes stay invisible")

	require.NoError(t, db.CommitTransaction(trxCtx))

	b, err := db.GetBookingByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "bk-1", b.ID)

	unit, err := db.GetUnit(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, unit.State.OccupiedBy("bk-1"))

	trxCtx, err = db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.DeleteBooking(trxCtx, "bk-1"))
	require.NoError(t, db.RollbackTransaction(trxCtx))

	_, err = db.GetBooking(ctx, "bk-1")
	assert.NoError(t, err)
}

func TestDB_CommitRefusesOverlap(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	first, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	second, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	require.NoError(t, db.SaveBooking(first, &booking.Booking{ID: "bk-1", UnitID: "b1", Period: period.Period{Start: jan(1), End: jan(5)}}))
	require.NoError(t, db.SaveBooking(second, &booking.Booking{ID: "bk-2", UnitID: "b1", Period: period.Period{Start: jan(5), End: jan(6)}}))

	require.NoError(t, db.CommitTransaction(first))
	assert.ErrorIs(t, db.CommitTransaction(second), booking.ErrConflict)

	periods, err := db.ListBookedPeriods(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []period.Period{{Start: jan(1), End: jan(5)}}, periods)

	// Another bed of the same room is independent.
	third, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.SaveBooking(third, &booking.Booking{ID: "bk-3", UnitID: "b2", Period: period.Period{Start: jan(1), End: jan(5)}}))
	assert.NoError(t, db.CommitTransaction(third))
}

func TestDB_UpdateOwnBookingIsNotAnOverlap(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	b := &booking.Booking{ID: "bk-1", UnitID: "b1", Period: period.Period{Start: jan(1), End: jan(5)}, Status: booking.StatusReserved}

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.SaveBooking(trxCtx, b))
	require.NoError(t, db.CommitTransaction(trxCtx))

	b.Status = booking.StatusCheckedIn

	trxCtx, err = db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.SaveBooking(trxCtx, b))
	require.NoError(t, db.CommitTransaction(trxCtx))

	got, err := db.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCheckedIn, got.Status)
}

func TestDB_ListingsKeepInsertionOrder(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	units, err := db.ListUnitsByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "b1", units[0].ID)
	assert.Equal(t, "b2", units[1].ID)

	units, err = db.ListUnitsByRoom(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, units)

	_, err = db.GetRoom(ctx, "nope")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestDB_ReturnsCopies(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	room, err := db.GetRoom(ctx, "r1")
	require.NoError(t, err)

	room.SharingOptions[0].Count = 99

	again, err := db.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.SharingOptions[0].Count)
}
