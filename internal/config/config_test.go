package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/studystay/internal/period"
)

func noFile(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load(noFile(t))
	require.NoError(t, err)

	assert.Equal(t, "localhost", conf.HTTP.Host)
	assert.Equal(t, "8092", conf.HTTP.Port)
	assert.Equal(t, 20*time.Second, conf.HTTP.ReadHeaderTimeout)
	assert.Equal(t, DriverMemory, conf.Storage.Driver)
	assert.True(t, conf.SeedDemoData)
	assert.Equal(t, 2*time.Second, conf.LockTimeout)
	assert.Equal(t, 365, conf.AvailabilityHorizon)
	assert.Equal(t, period.DefaultSession(), conf.Session)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("SEED_DEMO_DATA", "false")
	t.Setenv("BOOKING_LOCK_TIMEOUT", "150ms")
	t.Setenv("AVAILABILITY_HORIZON_DAYS", "30")
	t.Setenv("SESSION_CHECK_IN", "08:30")
	t.Setenv("SESSION_CHECK_OUT", "17:00")
	t.Setenv("SESSION_TIMEZONE", "Asia/Kolkata")

	conf, err := Load(noFile(t))
	require.NoError(t, err)

	assert.Equal(t, "9000", conf.HTTP.Port)
	assert.Equal(t, DriverSQLite, conf.Storage.Driver)
	assert.Equal(t, "studystay.db", conf.Storage.DSN)
	assert.False(t, conf.SeedDemoData)
	assert.Equal(t, 150*time.Millisecond, conf.LockTimeout)
	assert.Equal(t, 30, conf.AvailabilityHorizon)
	assert.Equal(t, period.Clock{Hour: 8, Minute: 30}, conf.Session.CheckIn)
	assert.Equal(t, period.Clock{Hour: 17}, conf.Session.CheckOut)
	assert.Equal(t, "Asia/Kolkata", conf.Session.Location.String())
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_HOST=0.0.0.0\nHTTP_PORT=7000\n"), 0o600))

	t.Setenv("HTTP_PORT", "7100")
	t.Cleanup(func() {
		_ = os.Unsetenv("HTTP_HOST")
	})

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", conf.HTTP.Host)
	assert.Equal(t, "7100", conf.HTTP.Port, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("BOOKING_LOCK_TIMEOUT", "soon")
	t.Setenv("SESSION_CHECK_IN", "9am")
	t.Setenv("AVAILABILITY_HORIZON_DAYS", "0")

	_, err := Load(noFile(t))
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, period.ErrInvalidClock)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "BOOKING_LOCK_TIMEOUT")
	assert.Contains(t, err.Error(), "AVAILABILITY_HORIZON_DAYS")
}

func TestLoad_LockTimeoutMustBePositive(t *testing.T) {
	for _, v := range []string{"0s", "-1s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("BOOKING_LOCK_TIMEOUT", v)

			_, err := Load(noFile(t))
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), "BOOKING_LOCK_TIMEOUT: must be positive")
		})
	}
}
