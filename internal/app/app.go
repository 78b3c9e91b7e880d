package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/avstrong/studystay/internal/availability"
	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/calendar"
	"github.com/avstrong/studystay/internal/config"
	"github.com/avstrong/studystay/internal/idgen/random"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/lock"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/migration"
	"github.com/avstrong/studystay/internal/period"
	"github.com/avstrong/studystay/internal/storage/gormdb"
	"github.com/avstrong/studystay/internal/storage/memory"
	"github.com/avstrong/studystay/internal/transport/web"
)

const shutdownTimeout = 4 * time.Second

// Store is everything the domain packages need from persistence. Both the
// in-memory DB and the GORM store satisfy it.
type Store interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error

	SaveRoom(ctx context.Context, room *inventory.Room) error
	SaveUnit(ctx context.Context, unit *inventory.Unit) error
	SaveUnitState(ctx context.Context, unitID string, state inventory.State) error
	DeleteUnit(ctx context.Context, unitID string) error
	SaveBooking(ctx context.Context, b *booking.Booking) error
	DeleteBooking(ctx context.Context, bookingID string) error
	SaveEvent(ctx context.Context, event *booking.Event) error

	GetRoom(ctx context.Context, roomID string) (*inventory.Room, error)
	ListRooms(ctx context.Context) ([]*inventory.Room, error)
	GetUnit(ctx context.Context, unitID string) (*inventory.Unit, error)
	ListUnits(ctx context.Context) ([]*inventory.Unit, error)
	ListUnitsByRoom(ctx context.Context, roomID string) ([]*inventory.Unit, error)
	CountBookingsByUnit(ctx context.Context, unitID string) (int, error)
	GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*booking.Booking, error)
	ListBookingsByUnit(ctx context.Context, unitID string) ([]*booking.Booking, error)
	ListBookedPeriods(ctx context.Context, unitID string) ([]period.Period, error)
	ListEventsByUnit(ctx context.Context, unitID string) ([]*booking.Event, error)
}

// OpenStorage returns the configured store, migrated and ready. The returned
// close func releases the database connection.
func OpenStorage(ctx context.Context, l *logger.Logger, conf config.Storage) (Store, func() error, error) {
	if conf.Driver == config.DriverMemory {
		return memory.New(memory.Config{L: l}), func() error { return nil }, nil
	}

	db, err := gormdb.Open(gormdb.Config{L: l, Dialect: conf.Driver, DSN: conf.DSN})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", conf.Driver, err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, nil, fmt.Errorf("migrate %s storage: %w", conf.Driver, err)
	}

	l.LogInfo("Storage %s is migrated", conf.Driver)

	return db, db.Close, nil
}

// Migrate prepares the configured storage and seeds the demo catalog when
// asked to, without serving.
func Migrate(ctx context.Context, l *logger.Logger, conf *config.Config) (err error) {
	storage, closeStorage, err := OpenStorage(ctx, l, conf.Storage)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closeStorage(); closeErr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", closeErr)
		}
	}()

	if !conf.SeedDemoData {
		return nil
	}

	catalog := inventory.New(l, storage, random.New(), lock.New(), conf.LockTimeout)

	if err := migration.Up(ctx, l, catalog); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}

	return nil
}

func Run(l *logger.Logger, conf *config.Config) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	storage, closeStorage, err := OpenStorage(ctx, l, conf.Storage)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeStorage(); err != nil {
			l.LogErrorf("Failed to close storage: %v", err.Error())
		}
	}()

	locks := lock.New()
	idGen := random.New()
	normalizer := period.NewNormalizer(conf.Session)
	index := availability.New(storage, conf.AvailabilityHorizon)
	catalog := inventory.New(l, storage, idGen, locks, conf.LockTimeout)
	bookings := booking.New(l, storage, idGen, index, normalizer, locks, booking.WithLockTimeout(conf.LockTimeout))

	if conf.SeedDemoData {
		if err := migration.Up(ctx, l, catalog); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      l.Writer(),
		Host:              conf.HTTP.Host,
		Port:              conf.HTTP.Port,
		ReadHeaderTimeout: conf.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  conf.HTTP.LivenessEndpoint,
	}

	srv, err := web.New(ctx, webConf, web.Services{
		Catalog:    catalog,
		Bookings:   bookings,
		Index:      index,
		Projector:  calendar.New(storage, normalizer),
		Normalizer: normalizer,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v with %s storage...", webConf.Host, webConf.Port, conf.Storage.Driver)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}
