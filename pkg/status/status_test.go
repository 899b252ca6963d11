package status

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/departures-board/pkg/board"
)

func snapshot() Snapshot {
	departures := board.New()
	departures.SetLocation("Brighton")
	departures.Departures.Append(board.Departure{Destination: "London Victoria", ScheduledTime: "10:04"})
	departures.AddMessage("Engineering works at the weekend")

	return Snapshot{
		Mode:      "rail",
		Result:    "Success",
		Successes: 3,
		Failures:  1,
		Board:     departures,
		Firmware:  Firmware{Running: "2.0", Latest: "2.1", Available: true},
		UpdatedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
	}
}

func assertRoundTrip(t *testing.T, store *Store) {
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.Error(t, err)

	require.NoError(t, store.Publish(ctx, snapshot()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Brighton", loaded.Board.Location)
	assert.Equal(t, 1, loaded.Board.Departures.Len())
	assert.Equal(t, "Engineering works at the weekend", loaded.Board.Messages.Items[0])
	assert.Equal(t, 3, loaded.Successes)
	assert.True(t, loaded.Firmware.Available)
	assert.True(t, loaded.UpdatedAt.Equal(snapshot().UpdatedAt))
}

func TestMemoryStore(t *testing.T) {
	assertRoundTrip(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	assertRoundTrip(t, NewRedis(client))

	assert.True(t, server.Exists(snapshotKey))
}
