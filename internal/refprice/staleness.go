package refprice

import (
	"context"
	"log"
	"time"

	"github.com/skingap/skingap/internal/cache"
)

// Fresh reports whether the persisted last-update time is inside the
// freshness window. A missing timestamp counts as stale.
func (t *Table) Fresh() bool {
	if t.store == nil {
		return false
	}
	last, ok := t.store.LastUpdate()
	if !ok {
		return false
	}
	return time.Since(last) < t.window
}

// EnsureFresh refreshes the table when it is stale and reports whether the
// table is usable afterwards — freshly loaded or already warm. A failed
// refresh is not an error here: the previous table stays in place and
// callers keep using stale-but-present data until the next cadence.
func (t *Table) EnsureFresh(ctx context.Context) bool {
	if t.Fresh() && t.Size() > 0 {
		return true
	}
	t.Refresh(ctx)
	return t.Size() > 0
}

// Refresh unconditionally requests a new table and reports whether the load
// itself succeeded. Concurrent callers collapse onto one in-flight fetch —
// the source is large and rate-sensitive — and all receive that fetch's
// outcome.
func (t *Table) Refresh(ctx context.Context) bool {
	if t.source == nil {
		return false
	}
	loaded, _, _ := t.sf.Do("refresh", func() (interface{}, error) {
		entries, err := t.source.Fetch(ctx)
		if err != nil {
			log.Printf("[refprice] refresh failed, keeping previous table: %v", err)
			return false, nil
		}
		t.Replace(entries)
		if t.store != nil {
			if err := t.store.SetLastUpdate(time.Now()); err != nil {
				log.Printf("[refprice] persisting last update: %v", err)
			}
		}
		return true, nil
	})
	return loaded.(bool)
}

// lastUpdateKey is the state-store key for the refresh timestamp.
const lastUpdateKey = "refprice:last_update"

// FileUpdateStore persists the last-update timestamp in the daemon's state
// file.
type FileUpdateStore struct {
	state *cache.Cache
}

func NewFileUpdateStore(path string) (*FileUpdateStore, error) {
	state, err := cache.New(path)
	if err != nil {
		return nil, err
	}
	return &FileUpdateStore{state: state}, nil
}

func (s *FileUpdateStore) LastUpdate() (time.Time, bool) {
	var last time.Time
	found, err := s.state.Get(lastUpdateKey, &last)
	if err != nil || !found {
		return time.Time{}, false
	}
	return last, true
}

func (s *FileUpdateStore) SetLastUpdate(t time.Time) error {
	return s.state.Put(lastUpdateKey, t)
}
