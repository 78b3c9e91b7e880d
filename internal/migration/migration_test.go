package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/studystay/internal/idgen/simple"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/lock"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/storage/memory"
)

func TestUp(t *testing.T) {
	l := logger.Discard()
	db := memory.New(memory.Config{L: l})
	catalog := inventory.New(l, db, simple.New("id-"), lock.New(), time.Second)
	ctx := context.Background()

	require.NoError(t, Up(ctx, l, catalog))

	rooms, err := catalog.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, inventory.Hostel, rooms[1].Kind)

	units, err := catalog.ListUnitsForRoom(ctx, rooms[1].ID)
	require.NoError(t, err)
	assert.Len(t, units, 5)

	require.NoError(t, Up(ctx, l, catalog), "second run is a no-op")

	all, err := db.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 12)
}
