// Package itemcache holds the most recent observed listing per marketplace.
// Each marketplace owns exactly one Cache; entries are overwritten by native
// identifier and live for the page session, there is no eviction.
package itemcache

import (
	"sync"

	"github.com/skingap/skingap/internal/model"
)

// Cache is one marketplace's listing cache. Mutated only by the event
// router; read concurrently by derivation and the overlay matcher.
type Cache struct {
	marketplace model.Marketplace

	mu    sync.RWMutex
	items map[string]model.Item

	// mostRecent supports the DOM/network race: the observer sees a row
	// before it knows which response produced it, so it reads the latest
	// insert and verifies by name instead of joining on a key.
	mostRecent    model.Item
	hasMostRecent bool

	// The detail popup is cached apart from the list so a detail view and
	// a list row for the same identifier cannot thrash each other.
	popup    model.Item
	hasPopup bool

	historyGraph []model.GraphPoint
	historySales []model.Sale

	// rate converts this marketplace's display currency into the
	// reference table's currency. 1 until a rate event arrives.
	rate     float64
	currency string
}

func New(marketplace model.Marketplace) *Cache {
	return &Cache{
		marketplace: marketplace,
		items:       make(map[string]model.Item),
		rate:        1,
	}
}

func (c *Cache) Marketplace() model.Marketplace { return c.marketplace }

// UpsertOne inserts or replaces a single listing and marks it most recent.
func (c *Cache) UpsertOne(item model.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(item)
}

// UpsertMany inserts a list payload item by item, replacing by native
// identifier. The final element of the batch becomes the most recent item.
func (c *Cache) UpsertMany(items []model.Item) {
	if len(items) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.insertLocked(item)
	}
}

func (c *Cache) insertLocked(item model.Item) {
	if item.ID != "" {
		c.items[item.ID] = item
	}
	c.mostRecent = item
	c.hasMostRecent = true
}

// Get returns the cached listing for a native identifier.
func (c *Cache) Get(id string) (model.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// MostRecent returns the most recently inserted listing, if any.
func (c *Cache) MostRecent() (model.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mostRecent, c.hasMostRecent
}

// SetPopup caches the current detail-view item.
func (c *Cache) SetPopup(item model.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.popup = item
	c.hasPopup = true
}

// Popup returns the current detail-view item, if one has been cached.
func (c *Cache) Popup() (model.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.popup, c.hasPopup
}

func (c *Cache) SetHistoryGraph(points []model.GraphPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyGraph = points
}

func (c *Cache) HistoryGraph() []model.GraphPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historyGraph
}

func (c *Cache) SetHistorySales(sales []model.Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historySales = sales
}

func (c *Cache) HistorySales() []model.Sale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historySales
}

// SetRate records the marketplace's current conversion rate into the
// reference currency. Zero is ignored to keep division safe.
func (c *Cache) SetRate(rate float64) {
	if rate == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
}

func (c *Cache) Rate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate
}

func (c *Cache) SetCurrency(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currency = code
}

func (c *Cache) Currency() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currency
}

// Len returns the number of distinct listings cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Registry owns one cache per marketplace. Constructed once at startup and
// passed to the router, deriver and matcher; never a package-level global.
// The map is read and grown from the HTTP and socket goroutines at once,
// so access goes through the registry's own lock.
type Registry struct {
	mu     sync.RWMutex
	caches map[model.Marketplace]*Cache
}

func NewRegistry() *Registry {
	r := &Registry{caches: make(map[model.Marketplace]*Cache)}
	for _, m := range []model.Marketplace{
		model.MarketCSFloat,
		model.MarketSkinport,
		model.MarketSkinbid,
		model.MarketSkinbaron,
	} {
		r.caches[m] = New(m)
	}
	return r
}

// Cache returns the marketplace's cache. Unknown marketplaces get a cache
// allocated on first use so callers never receive nil.
func (r *Registry) Cache(m model.Marketplace) *Cache {
	r.mu.RLock()
	c, ok := r.caches[m]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[m]; ok {
		return c
	}
	c = New(m)
	r.caches[m] = c
	return c
}

// Rate reports the marketplace's conversion rate into the reference
// currency. Satisfies the deriver's rate source.
func (r *Registry) Rate(m model.Marketplace) float64 {
	return r.Cache(m).Rate()
}
