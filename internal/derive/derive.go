// Package derive turns an observed marketplace listing into a quote
// against the reference price table.
package derive

import (
	"math"

	"github.com/skingap/skingap/internal/model"
	"github.com/skingap/skingap/internal/names"
	"github.com/skingap/skingap/internal/refprice"
)

// Preference selects which side of the reference pair the difference
// is computed against.
type Preference int

const (
	PrefAsk Preference = iota
	PrefBid
)

// Verdict classifies a derived difference from the buyer's side.
type Verdict string

const (
	VerdictNeutral Verdict = "neutral"
	VerdictProfit  Verdict = "profit"
	VerdictLoss    Verdict = "loss"
)

// RateSource reports the currency conversion rate for a marketplace.
// A rate is the number of local currency units per US dollar.
type RateSource interface {
	Rate(m model.Marketplace) float64
}

// Quote is the result of deriving a single listing.
type Quote struct {
	Name         string  `json:"name"`
	ReferenceAsk float64 `json:"reference_ask"`
	ReferenceBid float64 `json:"reference_bid"`
	Observed     float64 `json:"observed"`
	Difference   float64 `json:"difference"`
	HasReference bool    `json:"has_reference"`
	Verdict      Verdict `json:"verdict"`
}

type Deriver struct {
	table *refprice.Table
	pref  Preference
	rates RateSource
}

func New(table *refprice.Table, pref Preference, rates RateSource) *Deriver {
	return &Deriver{table: table, pref: pref, rates: rates}
}

// Derive canonicalizes the item, converts its observed price to US
// dollars and differences it against the reference table. Conversion
// always runs; a marketplace already trading in dollars carries a
// rate of 1. An item with no reference entry yields zero reference
// figures and a difference equal to the observed price.
func (d *Deriver) Derive(item model.Item) Quote {
	name := names.Canonicalize(item)
	style := names.StyleToken(item.StyleClass)

	observed := item.Price
	if rate := d.rates.Rate(item.Marketplace); rate > 0 {
		observed = item.Price / rate
	}
	observed = round2(observed)

	q := Quote{Name: name, Observed: observed}

	pair, ok := d.table.Lookup(name, style)
	if !ok {
		// No baseline to judge against; the quote stays neutral so the
		// renderer never sees an empty verdict string.
		q.Difference = observed
		q.Verdict = VerdictNeutral
		return q
	}

	q.HasReference = true
	q.ReferenceAsk = pair.Ask
	q.ReferenceBid = pair.Bid

	ref := pair.Ask
	if d.pref == PrefBid {
		ref = pair.Bid
	}
	q.Difference = round2(observed - ref)

	switch {
	case q.Difference > 0:
		q.Verdict = VerdictLoss
	case q.Difference < 0:
		q.Verdict = VerdictProfit
	default:
		q.Verdict = VerdictNeutral
	}
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
