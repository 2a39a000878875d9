// Package refprice holds the reference price table: canonical item name to
// ask/bid, with an optional per-style breakdown for patterned finishes. The
// table is read concurrently by price derivation and replaced wholesale by
// the staleness controller's successful-refresh path; readers never observe
// a partially written table.
package refprice

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skingap/skingap/internal/model"
)

// DefaultFreshnessWindow is how old the table may grow before a lookup path
// should trigger a refresh.
const DefaultFreshnessWindow = 8 * time.Hour

// Entry is one reference quote: either a flat ask/bid pair or a per-style
// mapping, never both.
type Entry struct {
	Flat   *model.PricePair
	Styles map[string]model.PricePair
}

// UnmarshalJSON accepts the source's two entry encodings: a bare pair
// `{"ask":1,"bid":2}` or a style map `{"phase2":{"ask":1,"bid":2},...}`.
// The "ask"/"bid" keys decide which; style names never collide with them.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	_, hasAsk := probe["ask"]
	_, hasBid := probe["bid"]
	if hasAsk || hasBid {
		var pair model.PricePair
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		e.Flat = &pair
		e.Styles = nil
		return nil
	}

	styles := make(map[string]model.PricePair, len(probe))
	for style, raw := range probe {
		var pair model.PricePair
		if err := json.Unmarshal(raw, &pair); err != nil {
			return err
		}
		styles[style] = pair
	}
	e.Flat = nil
	e.Styles = styles
	return nil
}

// Source fetches a fresh table. The transport behind it (HTTP, extension
// bridge, fixture file) is not this package's concern.
type Source interface {
	Fetch(ctx context.Context) (map[string]Entry, error)
}

// UpdateStore persists the last successful refresh time across restarts.
type UpdateStore interface {
	LastUpdate() (time.Time, bool)
	SetLastUpdate(t time.Time) error
}

// Table is the process-wide reference price table plus its staleness
// controller. Construct once and share by reference.
type Table struct {
	source Source
	store  UpdateStore
	window time.Duration

	mu      sync.RWMutex
	entries map[string]Entry

	sf singleflight.Group
}

func NewTable(source Source, store UpdateStore, window time.Duration) *Table {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Table{
		source:  source,
		store:   store,
		window:  window,
		entries: make(map[string]Entry),
	}
}

// Lookup resolves a canonical name, and for styled entries the style token.
// Absent names, unknown styles and unsupplied styles all report !ok — the
// caller degrades to zero figures, reference data for rare variants is
// routinely incomplete.
func (t *Table) Lookup(name, style string) (model.PricePair, bool) {
	t.mu.RLock()
	entry, ok := t.entries[name]
	t.mu.RUnlock()
	if !ok {
		return model.PricePair{}, false
	}

	if entry.Styles != nil {
		pair, ok := entry.Styles[style]
		return pair, ok
	}
	if entry.Flat == nil {
		return model.PricePair{}, false
	}
	return *entry.Flat, true
}

// Size returns the number of canonical names in the table.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Replace swaps in a whole new table. Readers in flight keep the map
// they already hold.
func (t *Table) Replace(entries map[string]Entry) {
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}
