package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/avstrong/studystay/internal/period"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalid = errors.New("invalid configuration")

type HTTP struct {
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
}

type Storage struct {
	Driver string
	DSN    string
}

type Config struct {
	HTTP                HTTP
	Storage             Storage
	SeedDemoData        bool
	LockTimeout         time.Duration
	AvailabilityHorizon int
	Session             period.Session
}

// Load reads settings from the process environment. Files are read with
// godotenv first; variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load(files...)

	var errs []error

	conf := &Config{
		HTTP: HTTP{
			Host:              getEnv("HTTP_HOST", "localhost"),
			Port:              getEnv("HTTP_PORT", "8092"),
			ReadHeaderTimeout: duration("HTTP_READ_HEADER_TIMEOUT", 20*time.Second, &errs),
			LivenessEndpoint:  "/liveness",
		},
		Storage: Storage{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
			DSN:    getEnv("DATABASE_URL", ""),
		},
		SeedDemoData:        boolean("SEED_DEMO_DATA", true, &errs),
		LockTimeout:         duration("BOOKING_LOCK_TIMEOUT", 2*time.Second, &errs),
		AvailabilityHorizon: integer("AVAILABILITY_HORIZON_DAYS", 365, &errs),
		Session:             period.DefaultSession(),
	}

	switch conf.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if conf.Storage.DSN == "" {
			conf.Storage.DSN = "studystay.db"
		}
	case DriverPostgres:
		if conf.Storage.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", conf.Storage.Driver))
	}

	if conf.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("BOOKING_LOCK_TIMEOUT: must be positive, got %v", conf.LockTimeout))
	}

	if conf.AvailabilityHorizon <= 0 {
		errs = append(errs, fmt.Errorf("AVAILABILITY_HORIZON_DAYS: must be positive, got %d", conf.AvailabilityHorizon))
	}

	if v := os.Getenv("SESSION_CHECK_IN"); v != "" {
		c, err := period.ParseClock(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_CHECK_IN: %w", err))
		}

		conf.Session.CheckIn = c
	}

	if v := os.Getenv("SESSION_CHECK_OUT"); v != "" {
		c, err := period.ParseClock(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_CHECK_OUT: %w", err))
		}

		conf.Session.CheckOut = c
	}

	if v := os.Getenv("SESSION_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_TIMEZONE: %w", err))
		} else {
			conf.Session.Location = loc
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	return conf, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func duration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))

		return fallback
	}

	return d
}

func integer(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))

		return fallback
	}

	return n
}

func boolean(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))

		return fallback
	}

	return b
}
