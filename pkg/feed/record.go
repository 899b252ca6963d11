package feed

import (
	"reflect"
	"sync"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
)

// Record holds the last complete result of a feed. A fetch fills a separate
// working value and only a fully parsed working value is ever promoted, so
// readers never observe a half-updated record.
type Record[R any] struct {
	Name string

	mu      sync.RWMutex
	current R
	loaded  bool
}

// Promote swaps working in as the current value. It reports NoChange when the
// freshly parsed value is identical to the one already held.
func (r *Record[R]) Promote(working R) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded && reflect.DeepEqual(r.current, working) {
		return NoChange
	}

	if r.loaded {
		if e := log.Debug(); e.Enabled() {
			e.Str("feed", r.Name).Strs("changes", pretty.Diff(r.current, working)).Msg("Feed data changed")
		}
	}

	r.current = working
	r.loaded = true

	return Success
}

func (r *Record[R]) Current() R {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current
}

// Loaded is true once any fetch has been promoted.
func (r *Record[R]) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loaded
}

func (r *Record[R]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero R
	r.current = zero
	r.loaded = false
}
