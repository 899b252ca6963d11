// Package status holds the diagnostics the scheduler publishes for the
// configuration interface.
package status

import (
	"context"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocachestore "github.com/eko/gocache/store/go_cache/v4"
	redisstore "github.com/eko/gocache/store/redis/v4"
	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/departures-board/pkg/board"
)

const snapshotKey = "departures-board:status"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Firmware describes the newest release seen by the daily check.
type Firmware struct {
	Running     string    `json:"running"`
	Latest      string    `json:"latest"`
	Description string    `json:"description"`
	Available   bool      `json:"available"`
	CheckedAt   time.Time `json:"checked_at"`
	Error       string    `json:"error,omitempty"`
}

type Snapshot struct {
	Mode        string      `json:"mode"`
	Result      string      `json:"result"`
	Message     string      `json:"message"`
	Successes   int         `json:"successes"`
	Failures    int         `json:"failures"`
	LastSuccess time.Time   `json:"last_success"`
	LastFailure time.Time   `json:"last_failure"`
	Fatal       bool        `json:"fatal"`
	Sleeping    bool        `json:"sleeping"`
	Brightness  int         `json:"brightness"`
	Weather     string      `json:"weather"`
	Headlines   string      `json:"headlines"`
	Board       board.Board `json:"board"`
	Firmware    Firmware    `json:"firmware"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Store struct {
	cache *cache.Cache[string]
}

func New(backend store.StoreInterface) *Store {
	return &Store{cache: cache.New[string](backend)}
}

// NewMemory keeps the snapshot in process.
func NewMemory() *Store {
	client := gocache.New(gocache.NoExpiration, 10*time.Minute)

	return New(gocachestore.NewGoCache(client))
}

// NewRedis mirrors the snapshot into redis so it survives restarts and can be
// read by other processes.
func NewRedis(client *redis.Client) *Store {
	return New(redisstore.NewRedis(client))
}

func (s *Store) Publish(ctx context.Context, snapshot Snapshot) error {
	data, err := json.MarshalToString(snapshot)
	if err != nil {
		return errors.Wrap(err, "encode status")
	}

	if err := s.cache.Set(ctx, snapshotKey, data); err != nil {
		return errors.Wrap(err, "store status")
	}

	return nil
}

func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot

	data, err := s.cache.Get(ctx, snapshotKey)
	if err != nil {
		return snapshot, errors.Wrap(err, "load status")
	}

	if err := json.UnmarshalFromString(data, &snapshot); err != nil {
		return snapshot, errors.Wrap(err, "decode status")
	}

	return snapshot, nil
}
