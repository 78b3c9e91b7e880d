package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/avstrong/studystay/internal/booking"
)

var (
	ErrTransactionIDNotFoundInCtx = errors.New("no transaction id found in ctx")
	ErrTransactionNotFound        = errors.New("transaction not found")
)

type contextKey string

const transactionKey contextKey = "storageTransactionID"

// transaction buffers writes until commit. Reads always see committed data.
type transaction struct {
	id              string
	ops             []func()
	bookings        []*booking.Booking
	deletedBookings map[string]bool
}

func withTransactionID(ctx context.Context, trxID string) context.Context {
	return context.WithValue(ctx, transactionKey, trxID)
}

func transactionIDFromContext(ctx context.Context) (string, bool) {
	trxID, ok := ctx.Value(transactionKey).(string)

	return trxID, ok
}

func (db *DB) BeginTransaction(ctx context.Context, _ string) (context.Context, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	db.transactions[trxID] = &transaction{
		id:              trxID,
		deletedBookings: make(map[string]bool),
	}

	return withTransactionID(ctx, trxID), nil
}

// CommitTransaction applies the buffered writes. It refuses, and drops the
// transaction, when a written booking would overlap another booking of the
// same unit.
func (db *DB) CommitTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trx.id)

	if err := db.checkOverlaps(trx); err != nil {
		if db.l != nil {
			db.l.LogWarnf("Transaction %s refused: %v", trx.id, err)
		}

		return fmt.Errorf("commit %s: %w", trx.id, err)
	}

	for _, op := range trx.ops {
		op()
	}

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trx.id)

	return nil
}

// transaction must be called with db.mu held.
func (db *DB) transaction(ctx context.Context) (*transaction, error) {
	trxID, ok := transactionIDFromContext(ctx)
	if !ok || trxID == "" {
		return nil, ErrTransactionIDNotFoundInCtx
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trx, nil
}

func (db *DB) checkOverlaps(trx *transaction) error {
	for i, b := range trx.bookings {
		for _, other := range trx.bookings[i+1:] {
			if other.ID != b.ID && other.UnitID == b.UnitID && other.Period.Overlaps(b.Period) {
				return fmt.Errorf("bookings %s and %s: %w", b.ID, other.ID, booking.ErrConflict)
			}
		}

		for _, existing := range db.bookings {
			if existing.ID == b.ID || existing.UnitID != b.UnitID || trx.deletedBookings[existing.ID] {
				continue
			}

			if existing.Period.Overlaps(b.Period) {
				return fmt.Errorf("booking %s overlaps %s: %w", b.ID, existing.ID, booking.ErrConflict)
			}
		}
	}

	return nil
}
