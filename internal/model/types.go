package model

import "encoding/json"

// Marketplace identifies which site an intercepted event or cached item
// belongs to. Items from different marketplaces never share a cache.
type Marketplace string

const (
	MarketCSFloat   Marketplace = "csfloat"
	MarketSkinport  Marketplace = "skinport"
	MarketSkinbid   Marketplace = "skinbid"
	MarketSkinbaron Marketplace = "skinbaron"
)

// Kind discriminates the two item record shapes. The discriminant is decided
// by the payload decoder, never inferred downstream from field presence.
type Kind int

const (
	// KindSingle is an individual offer whose canonical name must be
	// assembled from its parts (name, exterior, prefixes).
	KindSingle Kind = iota
	// KindAggregate represents many simultaneous offers of the same skin
	// and carries the fully assembled market hash name directly.
	KindAggregate
)

// Item is the decoded, marketplace-agnostic form of a listing. Decoders in
// the router construct it from wire payloads; one marketplace's cache owns
// each instance for the rest of the page session.
type Item struct {
	Marketplace Marketplace
	Kind        Kind

	// ID is the marketplace-native identifier (listing id, sale id, ...).
	ID string

	// Name is the localized display name without wear or prefixes.
	// For KindAggregate records MarketHashName is authoritative instead.
	Name           string
	MarketHashName string

	// Exterior is the localized wear descriptor ("Factory New", ...).
	// ExteriorNA is the marketplace's sentinel meaning "no exterior
	// applies"; when Exterior equals it the wear suffix is omitted.
	Exterior   string
	ExteriorNA string

	StatTrak bool
	Souvenir bool
	// Label text the marketplace uses for the prefixes. Empty means the
	// default label.
	StatTrakLabel string
	SouvenirLabel string

	// Category is the marketplace's item type ("Knife", "Rifle", ...).
	Category string

	// StyleClass carries a finish-pattern class like "doppler-phase2".
	// Empty for items without a style axis.
	StyleClass string

	// Price is the observed price: the lowest offer for aggregates, the
	// single offer's price otherwise. Denominated in Currency.
	Price    float64
	Currency string
}

// DisplayName returns the name a rendered row would show, used for
// read-and-verify matching against DOM text.
func (i Item) DisplayName() string {
	if i.Kind == KindAggregate && i.MarketHashName != "" {
		return i.MarketHashName
	}
	return i.Name
}

// Event is one intercepted network response: the requesting URL and the raw
// body. Constructed by the interception collaborator, consumed immediately
// by the router, never stored.
type Event struct {
	Marketplace Marketplace     `json:"marketplace"`
	URL         string          `json:"url"`
	Data        json.RawMessage `json:"data"`
}

// SocketEvent is one message from the Skinport trade socket.
type SocketEvent struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// PricePair is a reference ask/bid quote: ask is the lowest current listing,
// bid the highest standing buy order.
type PricePair struct {
	Ask float64 `json:"ask"`
	Bid float64 `json:"bid"`
}

// GraphPoint is one point of an item's price history graph.
type GraphPoint struct {
	Day   string  `json:"day"`
	Price float64 `json:"avg_price"`
	Count int     `json:"count"`
}

// Sale is one row of an item's recent-sales table.
type Sale struct {
	ID     string  `json:"id"`
	Price  float64 `json:"price"`
	SoldAt string  `json:"sold_at"`
	Wear   float64 `json:"wear"`
}
