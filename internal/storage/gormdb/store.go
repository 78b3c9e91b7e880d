package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/logger"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

var ErrUnknownDialect = errors.New("unknown storage dialect")

type Config struct {
	L       *logger.Logger
	Dialect string
	DSN     string
}

// Store persists the catalog and the booking ledger through GORM. Every write
// must run inside a transaction started with BeginTransaction; reads join the
// transaction carried by ctx when there is one.
type Store struct {
	l       *logger.Logger
	db      *gorm.DB
	dialect string
}

func Open(conf Config) (*Store, error) {
	var dialector gorm.Dialector

	switch conf.Dialect {
	case DialectSQLite:
		dialector = sqlite.Open(conf.DSN)
	case DialectPostgres:
		dialector = postgres.Open(conf.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, conf.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(conf.L.Writer(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Dialect, err)
	}

	if conf.Dialect == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}

		// SQLite allows a single writer; one connection turns lock errors into waits.
		sqlDB.SetMaxOpenConns(1)
	}

	return &Store{l: conf.L, db: db, dialect: conf.Dialect}, nil
}

// Migrate creates the schema. On PostgreSQL it also installs the exclusion
// constraint that refuses overlapping bookings of one unit.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	err := db.AutoMigrate(&roomRecord{}, &sharingOptionRecord{}, &unitRecord{}, &bookingRecord{}, &eventRecord{})
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if s.dialect != DialectPostgres {
		return nil
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("create btree_gist extension: %w", err)
	}

	err = db.Exec(`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
		ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
			EXCLUDE USING gist (unit_id WITH =, daterange(start_day, end_day, '[]') WITH &&);
	END IF;
END $$`).Error
	if err != nil {
		return fmt.Errorf("add overlap constraint: %w", err)
	}

	s.l.LogInfo("Booking overlap constraint is in place")

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	return sqlDB.Close()
}

// conn is the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := transactionFromContext(ctx); ok {
		return tx
	}

	return s.db.WithContext(ctx)
}

// writeErr turns constraint violations into booking.ErrConflict.
func writeErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", booking.ErrConflict, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation) {
		return fmt.Errorf("%w: %s", booking.ErrConflict, pgErr.Message)
	}

	return err
}
