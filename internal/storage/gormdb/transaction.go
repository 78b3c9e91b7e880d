package gormdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrTransactionNotFoundInCtx = errors.New("no transaction found in ctx")

type contextKey string

const transactionKey contextKey = "gormTransaction"

var isolationLevels = map[string]sql.IsolationLevel{
	"READ COMMITTED":  sql.LevelReadCommitted,
	"REPEATABLE READ": sql.LevelRepeatableRead,
	"SERIALIZABLE":    sql.LevelSerializable,
}

func transactionFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(transactionKey).(*gorm.DB)

	return tx, ok
}

// BeginTransaction opens a transaction and returns a context carrying it.
// The isolation level is honoured on PostgreSQL only.
func (s *Store) BeginTransaction(ctx context.Context, level string) (context.Context, error) {
	var opts *sql.TxOptions

	if iso, ok := isolationLevels[level]; ok && s.dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: iso}
	}

	tx := s.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return ctx, fmt.Errorf("begin: %w", tx.Error)
	}

	return context.WithValue(ctx, transactionKey, tx), nil
}

func (s *Store) CommitTransaction(ctx context.Context) error {
	tx, ok := transactionFromContext(ctx)
	if !ok {
		return ErrTransactionNotFoundInCtx
	}

	return writeErr(tx.Commit().Error)
}

func (s *Store) RollbackTransaction(ctx context.Context) error {
	tx, ok := transactionFromContext(ctx)
	if !ok {
		return ErrTransactionNotFoundInCtx
	}

	return tx.Rollback().Error
}

// writer is the transaction carried by ctx. Writes outside a transaction are
// refused.
func (s *Store) writer(ctx context.Context) (*gorm.DB, error) {
	tx, ok := transactionFromContext(ctx)
	if !ok {
		return nil, ErrTransactionNotFoundInCtx
	}

	return tx, nil
}
