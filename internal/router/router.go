// Package router classifies intercepted marketplace traffic by URL shape and
// feeds the per-marketplace item caches. The intercepted responses are the
// page's own API traffic and carry no envelope designed for this purpose, so
// classification is substring matching over an ordered rule table.
package router

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/skingap/skingap/internal/itemcache"
	"github.com/skingap/skingap/internal/model"
)

// rule pairs a URL predicate with its payload handler. Rules are evaluated
// in table order and the first match wins, so more specific endpoints must
// precede the prefixes that contain them.
type rule struct {
	name   string
	match  func(url string) bool
	handle func(r *Router, data json.RawMessage) error
}

// Router dispatches intercepted events into the item caches. It is the only
// mutator of the caches.
type Router struct {
	caches *itemcache.Registry
	debug  bool

	tables map[model.Marketplace][]rule
}

func New(caches *itemcache.Registry, debug bool) *Router {
	r := &Router{caches: caches, debug: debug}
	r.tables = map[model.Marketplace][]rule{
		model.MarketCSFloat:   csfloatRules,
		model.MarketSkinport:  skinportRules,
		model.MarketSkinbid:   skinbidRules,
		model.MarketSkinbaron: skinbaronRules,
	}
	return r
}

// Route classifies one intercepted response and mutates the matching cache.
//
// Unrecognized URL shapes are expected (profile, feed, who-am-i endpoints)
// and ignored without error. A payload that fails to decode for its matched
// rule is a contract violation — the marketplace changed its API — and is
// returned as an error rather than silently miscached.
func (r *Router) Route(ev model.Event) error {
	if ev.Marketplace == model.MarketSkinbaron && isForeignApp(ev.URL) {
		r.debugf("skinbaron: ignoring non-csgo request %s", ev.URL)
		return nil
	}

	for _, rl := range r.tables[ev.Marketplace] {
		if !rl.match(ev.URL) {
			continue
		}
		if rl.handle == nil {
			r.debugf("%s: ignoring %s endpoint", ev.Marketplace, rl.name)
			return nil
		}
		if err := rl.handle(r, ev.Data); err != nil {
			return fmt.Errorf("%s %s: %w", ev.Marketplace, rl.name, err)
		}
		return nil
	}

	r.debugf("%s: no rule for url %s", ev.Marketplace, ev.URL)
	return nil
}

// RouteSocket handles the Skinport trade socket. "listed" and "sold" both
// deliver item lists for the list-cache path; anything else is ignored.
func (r *Router) RouteSocket(ev model.SocketEvent) error {
	switch ev.EventType {
	case "listed", "sold":
		items, err := decodeSkinportItems(ev.Data)
		if err != nil {
			return fmt.Errorf("skinport socket %s: %w", ev.EventType, err)
		}
		r.caches.Cache(model.MarketSkinport).UpsertMany(items)
		return nil
	default:
		r.debugf("skinport socket: ignoring event type %q", ev.EventType)
		return nil
	}
}

func (r *Router) debugf(format string, args ...interface{}) {
	if r.debug {
		log.Printf("[router] "+format, args...)
	}
}

// isForeignApp reports whether a Skinbaron request targets a game other
// than CS:GO (appId 730).
func isForeignApp(url string) bool {
	return strings.Contains(url, "appId=") && !strings.Contains(url, "appId=730")
}

func contains(sub string) func(string) bool {
	return func(url string) bool { return strings.Contains(url, sub) }
}

// segmentCount matches URLs with exactly n slash-separated segments, used to
// tell a detail endpoint ("v1/listings/:id") from its list siblings.
func segmentCount(sub string, n int) func(string) bool {
	return func(url string) bool {
		return strings.Contains(url, sub) && len(strings.Split(url, "/")) == n
	}
}
