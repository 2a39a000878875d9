package router

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/skingap/skingap/internal/model"
)

// --- CSFloat ---------------------------------------------------------------

// Precedence: the specific listing endpoints (recommended, unique-items) and
// the "v1/me/..." children come before "v1/me" and before the detail-view
// rule, which would otherwise swallow them on a bare substring match. The
// history graph and sales suffixes are checked before their "v1/history/"
// parent for the same reason.
var csfloatRules = []rule{
	{name: "listings", match: contains("v1/listings?"), handle: (*Router).csfloatList},
	{name: "recommended", match: contains("v1/listings/recommended"), handle: (*Router).csfloatList},
	{name: "unique-items", match: contains("v1/listings/unique-items"), handle: (*Router).csfloatList},
	{name: "watchlist", match: contains("v1/me/watchlist"), handle: (*Router).csfloatList},
	{name: "own-listings", match: contains("v1/me/listings"), handle: (*Router).csfloatList},
	{name: "stall", match: contains("v1/users/"), handle: (*Router).csfloatStall},
	{name: "history-graph", match: func(u string) bool {
		return strings.Contains(u, "v1/history/") && strings.Contains(u, "/graph")
	}, handle: (*Router).csfloatHistoryGraph},
	{name: "history-sales", match: func(u string) bool {
		return strings.Contains(u, "v1/history/") && strings.Contains(u, "/sales")
	}, handle: (*Router).csfloatHistorySales},
	{name: "me", match: contains("v1/me"), handle: nil},
	{name: "popup", match: segmentCount("v1/listings/", 7), handle: (*Router).csfloatPopup},
}

type csfloatListing struct {
	ID    string `json:"id"`
	Price int64  `json:"price"` // cents
	Item  struct {
		MarketHashName string `json:"market_hash_name"`
		ItemName       string `json:"item_name"`
		WearName       string `json:"wear_name"`
		IsStatTrak     bool   `json:"is_stattrak"`
		IsSouvenir     bool   `json:"is_souvenir"`
		Phase          string `json:"phase"`
	} `json:"item"`
}

func (w csfloatListing) toItem() model.Item {
	return model.Item{
		Marketplace:    model.MarketCSFloat,
		Kind:           model.KindAggregate,
		ID:             w.ID,
		Name:           w.Item.ItemName,
		MarketHashName: w.Item.MarketHashName,
		Exterior:       w.Item.WearName,
		StatTrak:       w.Item.IsStatTrak,
		Souvenir:       w.Item.IsSouvenir,
		StyleClass:     phaseClass(w.Item.Phase),
		Price:          float64(w.Price) / 100,
		Currency:       "USD",
	}
}

// phaseClass turns CSFloat's phase label ("Phase 2", "Ruby") into the
// hyphenated style class the derivation layer parses.
func phaseClass(phase string) string {
	if phase == "" {
		return ""
	}
	return "doppler-" + strings.ReplaceAll(strings.ToLower(phase), " ", "")
}

func (r *Router) csfloatList(data json.RawMessage) error {
	var wire []csfloatListing
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	items := make([]model.Item, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.toItem())
	}
	r.caches.Cache(model.MarketCSFloat).UpsertMany(items)
	return nil
}

// The seller-stall response nests the listing array inside an envelope that
// also carries seller metadata; unwrap before the list path.
func (r *Router) csfloatStall(data json.RawMessage) error {
	var wire struct {
		Listings []csfloatListing `json:"listings"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	items := make([]model.Item, 0, len(wire.Listings))
	for _, w := range wire.Listings {
		items = append(items, w.toItem())
	}
	r.caches.Cache(model.MarketCSFloat).UpsertMany(items)
	return nil
}

func (r *Router) csfloatPopup(data json.RawMessage) error {
	var wire csfloatListing
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.caches.Cache(model.MarketCSFloat).SetPopup(wire.toItem())
	return nil
}

func (r *Router) csfloatHistoryGraph(data json.RawMessage) error {
	var points []model.GraphPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	r.caches.Cache(model.MarketCSFloat).SetHistoryGraph(points)
	return nil
}

func (r *Router) csfloatHistorySales(data json.RawMessage) error {
	var sales []model.Sale
	if err := json.Unmarshal(data, &sales); err != nil {
		return err
	}
	r.caches.Cache(model.MarketCSFloat).SetHistorySales(sales)
	return nil
}

// --- Skinport --------------------------------------------------------------

var skinportRules = []rule{
	{name: "browse", match: contains("api/browse/730"), handle: (*Router).skinportList},
	{name: "item", match: contains("api/item"), handle: (*Router).skinportPopup},
	{name: "home", match: contains("api/home"), handle: nil},
	{name: "user-data", match: contains("api/data/"), handle: (*Router).skinportRates},
}

type skinportItem struct {
	SaleID         int64  `json:"saleId"`
	MarketHashName string `json:"marketHashName"`
	Name           string `json:"name"`
	Exterior       string `json:"exterior"`
	Currency       string `json:"currency"`
	SalePrice      int64  `json:"salePrice"` // cents
	Category       string `json:"category"`
	StatTrak       bool   `json:"stattrak"`
	Souvenir       bool   `json:"souvenir"`
}

func (w skinportItem) toItem() model.Item {
	return model.Item{
		Marketplace:    model.MarketSkinport,
		Kind:           model.KindAggregate,
		ID:             strconv.FormatInt(w.SaleID, 10),
		Name:           w.Name,
		MarketHashName: w.MarketHashName,
		Exterior:       w.Exterior,
		StatTrak:       w.StatTrak,
		Souvenir:       w.Souvenir,
		Category:       w.Category,
		Price:          float64(w.SalePrice) / 100,
		Currency:       w.Currency,
	}
}

func decodeSkinportItems(data json.RawMessage) ([]model.Item, error) {
	var wire []skinportItem
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	items := make([]model.Item, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.toItem())
	}
	return items, nil
}

func (r *Router) skinportList(data json.RawMessage) error {
	var wire struct {
		Items []skinportItem `json:"items"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	items := make([]model.Item, 0, len(wire.Items))
	for _, w := range wire.Items {
		items = append(items, w.toItem())
	}
	r.caches.Cache(model.MarketSkinport).UpsertMany(items)
	return nil
}

func (r *Router) skinportPopup(data json.RawMessage) error {
	var wire struct {
		Item skinportItem `json:"item"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.caches.Cache(model.MarketSkinport).SetPopup(wire.Item.toItem())
	return nil
}

// skinportRates caches the page-load exchange rates: the rate for the user's
// display currency converts observed prices back into the table's currency.
func (r *Router) skinportRates(data json.RawMessage) error {
	var wire struct {
		Currency string             `json:"currency"`
		Rates    map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	cache := r.caches.Cache(model.MarketSkinport)
	cache.SetCurrency(wire.Currency)
	if rate, ok := wire.Rates[wire.Currency]; ok {
		cache.SetRate(rate)
	}
	return nil
}

// --- Skinbid ---------------------------------------------------------------

// The bare "api/auction/" detail rule has to trail its more specific
// siblings (itemInventoryStatus, shop), which it substring-matches.
var skinbidRules = []rule{
	{name: "search", match: contains("api/search/auctions"), handle: (*Router).skinbidList},
	{name: "inventory-status", match: contains("api/auction/itemInventoryStatus"), handle: nil},
	{name: "shop", match: contains("api/auction/shop"), handle: (*Router).skinbidShop},
	{name: "auction", match: contains("api/auction/"), handle: (*Router).skinbidSingle},
	{name: "exchange-rates", match: contains("api/public/exchangeRates"), handle: (*Router).skinbidRates},
	{name: "whoami", match: contains("api/user/whoami"), handle: nil},
	{name: "preferences", match: contains("api/user/preferences"), handle: (*Router).skinbidPreferences},
}

type skinbidListing struct {
	ID             string  `json:"id"`
	NextMinimumBid float64 `json:"nextMinimumBid"`
	Items          []struct {
		Item struct {
			FullName        string `json:"fullName"`
			SubCategoryName string `json:"subCategoryName"`
		} `json:"item"`
	} `json:"items"`
}

func (w skinbidListing) toItem() (model.Item, bool) {
	if len(w.Items) == 0 {
		return model.Item{}, false
	}
	inner := w.Items[0].Item
	return model.Item{
		Marketplace:    model.MarketSkinbid,
		Kind:           model.KindAggregate,
		ID:             w.ID,
		Name:           inner.FullName,
		MarketHashName: inner.FullName,
		Category:       inner.SubCategoryName,
		Price:          w.NextMinimumBid,
		Currency:       "EUR",
	}, true
}

func (r *Router) skinbidUpsert(listings []skinbidListing) {
	items := make([]model.Item, 0, len(listings))
	for _, w := range listings {
		if item, ok := w.toItem(); ok {
			items = append(items, item)
		}
	}
	r.caches.Cache(model.MarketSkinbid).UpsertMany(items)
}

func (r *Router) skinbidList(data json.RawMessage) error {
	var wire struct {
		Items []skinbidListing `json:"items"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.skinbidUpsert(wire.Items)
	return nil
}

// skinbidShop handles "api/auction/shop/...": the "/data" variant carries
// shop metadata only, everything else is a listing page.
func (r *Router) skinbidShop(data json.RawMessage) error {
	var wire struct {
		Items []skinbidListing `json:"items"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Items == nil {
		return nil
	}
	r.skinbidUpsert(wire.Items)
	return nil
}

func (r *Router) skinbidSingle(data json.RawMessage) error {
	var wire skinbidListing
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.skinbidUpsert([]skinbidListing{wire})
	return nil
}

func (r *Router) skinbidRates(data json.RawMessage) error {
	var rates []struct {
		CurrencyCode string  `json:"currencyCode"`
		Rate         float64 `json:"rate"`
	}
	if err := json.Unmarshal(data, &rates); err != nil {
		return err
	}
	for _, rate := range rates {
		if rate.CurrencyCode == "USD" {
			r.caches.Cache(model.MarketSkinbid).SetRate(rate.Rate)
			return nil
		}
	}
	return nil
}

func (r *Router) skinbidPreferences(data json.RawMessage) error {
	var wire struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.caches.Cache(model.MarketSkinbid).SetCurrency(wire.Currency)
	return nil
}

// --- Skinbaron -------------------------------------------------------------

var skinbaronRules = []rule{
	{name: "filter-offers", match: contains("api/v2/Browsing/FilterOffers"), handle: (*Router).skinbaronOffers},
	{name: "promo-offers", match: contains("api/v2/PromoOffers"), handle: (*Router).skinbaronPromo},
}

// skinbaronExteriorNA is Skinbaron's sentinel for items without a wear axis.
const skinbaronExteriorNA = "Not Pained"

// skinbaronOffer is either an aggregated offer group (variant present,
// lowest price and the assembled name on the envelope) or a single offer.
// The discriminant is the variant key, checked once here at decode time.
type skinbaronOffer struct {
	Variant                    json.RawMessage `json:"variant"`
	LowestPrice                float64         `json:"lowestPrice"`
	ExtendedProductInformation struct {
		LocalizedName string `json:"localizedName"`
	} `json:"extendedProductInformation"`
	SingleOffer *struct {
		ID                       string  `json:"id"`
		LocalizedName            string  `json:"localizedName"`
		LocalizedExteriorName    string  `json:"localizedExteriorName"`
		StatTrakString           string  `json:"statTrakString"`
		SouvenirString           string  `json:"souvenirString"`
		LocalizedVariantTypeName string  `json:"localizedVariantTypeName"`
		DopplerClassName         string  `json:"dopplerClassName"`
		ItemPrice                float64 `json:"itemPrice"`
	} `json:"singleOffer"`
}

func (w skinbaronOffer) toItem() (model.Item, error) {
	if len(w.Variant) > 0 && string(w.Variant) != "null" {
		return model.Item{
			Marketplace:    model.MarketSkinbaron,
			Kind:           model.KindAggregate,
			ID:             w.ExtendedProductInformation.LocalizedName,
			Name:           w.ExtendedProductInformation.LocalizedName,
			MarketHashName: w.ExtendedProductInformation.LocalizedName,
			Price:          w.LowestPrice,
			Currency:       "EUR",
		}, nil
	}
	so := w.SingleOffer
	if so == nil {
		return model.Item{}, fmt.Errorf("offer carries neither variant nor singleOffer")
	}
	return model.Item{
		Marketplace:   model.MarketSkinbaron,
		Kind:          model.KindSingle,
		ID:            so.ID,
		Name:          so.LocalizedName,
		Exterior:      so.LocalizedExteriorName,
		ExteriorNA:    skinbaronExteriorNA,
		StatTrak:      so.StatTrakString != "",
		Souvenir:      so.SouvenirString != "",
		StatTrakLabel: so.StatTrakString,
		SouvenirLabel: so.SouvenirString,
		Category:      so.LocalizedVariantTypeName,
		StyleClass:    so.DopplerClassName,
		Price:         so.ItemPrice,
		Currency:      "EUR",
	}, nil
}

func (r *Router) skinbaronCache(offers []skinbaronOffer) error {
	items := make([]model.Item, 0, len(offers))
	for _, w := range offers {
		item, err := w.toItem()
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	r.caches.Cache(model.MarketSkinbaron).UpsertMany(items)
	return nil
}

func (r *Router) skinbaronOffers(data json.RawMessage) error {
	var wire struct {
		AggregatedMetaOffers []skinbaronOffer `json:"aggregatedMetaOffers"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	return r.skinbaronCache(wire.AggregatedMetaOffers)
}

func (r *Router) skinbaronPromo(data json.RawMessage) error {
	var wire struct {
		BestDeals struct {
			AggregatedMetaOffers []skinbaronOffer `json:"aggregatedMetaOffers"`
		} `json:"bestDeals"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	return r.skinbaronCache(wire.BestDeals.AggregatedMetaOffers)
}
