package itemcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/skingap/skingap/internal/model"
)

func TestCache_UpsertAndGet(t *testing.T) {
	c := New(model.MarketSkinport)

	c.UpsertOne(model.Item{ID: "101", Name: "AK-47 | Redline", Price: 20})
	c.UpsertOne(model.Item{ID: "102", Name: "AWP | Asiimov", Price: 55})

	item, ok := c.Get("101")
	if !ok {
		t.Fatal("Expected to find item 101")
	}
	if item.Name != "AK-47 | Redline" {
		t.Errorf("Expected 'AK-47 | Redline', got '%s'", item.Name)
	}

	// Overwrite by identifier.
	c.UpsertOne(model.Item{ID: "101", Name: "AK-47 | Redline", Price: 18})
	item, _ = c.Get("101")
	if item.Price != 18 {
		t.Errorf("Expected overwritten price 18, got %v", item.Price)
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 distinct items, got %d", c.Len())
	}
}

func TestCache_MostRecent(t *testing.T) {
	c := New(model.MarketSkinbaron)

	if _, ok := c.MostRecent(); ok {
		t.Error("Expected no most recent item on empty cache")
	}

	c.UpsertMany([]model.Item{
		{ID: "a", Name: "first"},
		{ID: "b", Name: "second"},
		{ID: "c", Name: "third"},
	})

	item, ok := c.MostRecent()
	if !ok {
		t.Fatal("Expected a most recent item")
	}
	if item.Name != "third" {
		t.Errorf("Expected 'third', got '%s'", item.Name)
	}

	c.UpsertOne(model.Item{ID: "d", Name: "fourth"})
	item, _ = c.MostRecent()
	if item.Name != "fourth" {
		t.Errorf("Expected 'fourth', got '%s'", item.Name)
	}
}

func TestCache_PopupSeparateFromList(t *testing.T) {
	c := New(model.MarketCSFloat)

	c.UpsertOne(model.Item{ID: "55", Name: "list row", Price: 10})
	c.SetPopup(model.Item{ID: "55", Name: "detail view", Price: 11})

	listItem, _ := c.Get("55")
	if listItem.Name != "list row" {
		t.Errorf("Popup write clobbered list entry: got '%s'", listItem.Name)
	}

	popup, ok := c.Popup()
	if !ok {
		t.Fatal("Expected popup item")
	}
	if popup.Name != "detail view" {
		t.Errorf("Expected 'detail view', got '%s'", popup.Name)
	}

	// A later list write must not disturb the popup slot either.
	c.UpsertOne(model.Item{ID: "55", Name: "list row again", Price: 9})
	popup, _ = c.Popup()
	if popup.Name != "detail view" {
		t.Errorf("List write clobbered popup: got '%s'", popup.Name)
	}
}

func TestCache_RateDefaultsToOne(t *testing.T) {
	c := New(model.MarketSkinbid)

	if got := c.Rate(); got != 1 {
		t.Errorf("Expected default rate 1, got %v", got)
	}

	c.SetRate(0.92)
	if got := c.Rate(); got != 0.92 {
		t.Errorf("Expected rate 0.92, got %v", got)
	}

	// Zero must not poison later conversions.
	c.SetRate(0)
	if got := c.Rate(); got != 0.92 {
		t.Errorf("Expected zero rate to be ignored, got %v", got)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New(model.MarketSkinport)

	const goroutines = 8
	const inserts = 200
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < inserts; i++ {
				c.UpsertOne(model.Item{
					ID:   fmt.Sprintf("%d-%d", g, i),
					Name: fmt.Sprintf("item %d %d", g, i),
				})
				c.MostRecent()
				c.Rate()
			}
		}(g)
	}
	wg.Wait()

	if c.Len() != goroutines*inserts {
		t.Errorf("Expected %d items, got %d", goroutines*inserts, c.Len())
	}
}

func TestRegistry_IsolatesMarketplaces(t *testing.T) {
	r := NewRegistry()

	r.Cache(model.MarketSkinport).UpsertOne(model.Item{ID: "1", Name: "sp item"})

	if _, ok := r.Cache(model.MarketCSFloat).Get("1"); ok {
		t.Error("Item leaked between marketplace caches")
	}
	if _, ok := r.Cache(model.MarketSkinport).Get("1"); !ok {
		t.Error("Expected item in its own marketplace cache")
	}

	r.Cache(model.MarketSkinbid).SetRate(1.08)
	if got := r.Rate(model.MarketSkinbid); got != 1.08 {
		t.Errorf("Expected rate 1.08, got %v", got)
	}
	if got := r.Rate(model.MarketSkinport); got != 1 {
		t.Errorf("Expected default rate 1 for other marketplace, got %v", got)
	}
}

func TestRegistry_ConcurrentUnknownMarketplace(t *testing.T) {
	r := NewRegistry()

	// Unknown marketplaces grow the registry map while other goroutines
	// read it; both directions must be safe at once.
	const goroutines = 8
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Cache(model.Marketplace(fmt.Sprintf("unknown-%d", g)))
				r.Rate(model.MarketSkinport)
				r.Cache(model.MarketCSFloat).MostRecent()
			}
		}(g)
	}
	wg.Wait()

	first := r.Cache(model.Marketplace("unknown-0"))
	if again := r.Cache(model.Marketplace("unknown-0")); again != first {
		t.Error("Expected repeated lookups to return the same cache")
	}
}
