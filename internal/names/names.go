// Package names derives the canonical reference-table key for a marketplace
// item. Canonicalization is a pure function of the item's own fields so that
// repeated calls on the same logical item always produce the same key.
package names

import (
	"strings"

	"github.com/skingap/skingap/internal/model"
)

// KnifeStar is the glyph the reference table's naming convention uses to
// mark melee weapons.
const KnifeStar = "★"

// Default prefix labels, used when the marketplace payload did not carry its
// own label text.
const (
	DefaultStatTrakLabel = "StatTrak™"
	DefaultSouvenirLabel = "Souvenir"
)

// stickerRewrites maps substrings of assembled names that differ cosmetically
// between marketplaces and the reference table onto the table's spelling.
// The Katowice 2015 team stickers carry a double space in the table.
var stickerRewrites = map[string]string{
	"Ninjas in Pyjamas | Katowice 2015": "Ninjas in Pyjamas  | Katowice 2015",
	"Vox Eminor | Katowice 2015":        "Vox Eminor  | Katowice 2015",
}

// Canonicalize builds the reference-table key for item.
//
// Aggregate records carry the assembled name directly and short-circuit.
// Single records are assembled in fixed rule order: base name with the
// exterior in parentheses (omitted entirely when the exterior equals the
// marketplace's no-exterior sentinel), then the StatTrak or Souvenir prefix
// (StatTrak wins when both flags are set), then the knife star, and finally
// the sticker rewrites over the fully assembled string.
func Canonicalize(item model.Item) string {
	if item.Kind == model.KindAggregate {
		return rewriteStickers(item.MarketHashName)
	}

	name := item.Name
	if item.Exterior != "" && item.Exterior != item.ExteriorNA {
		name += " (" + item.Exterior + ")"
	}

	if item.StatTrak {
		name = label(item.StatTrakLabel, DefaultStatTrakLabel) + " " + name
	} else if item.Souvenir {
		name = label(item.SouvenirLabel, DefaultSouvenirLabel) + " " + name
	}

	if item.Category == "Knife" && !strings.HasPrefix(name, KnifeStar) {
		name = KnifeStar + " " + name
	}

	return rewriteStickers(name)
}

func label(fromPayload, fallback string) string {
	if fromPayload != "" {
		return fromPayload
	}
	return fallback
}

func rewriteStickers(name string) string {
	for from, to := range stickerRewrites {
		if strings.Contains(name, from) {
			return strings.Replace(name, from, to, 1)
		}
	}
	return name
}

// StyleToken extracts the reference table's style key from a marketplace
// style class such as "doppler-phase2": the substring after the first
// hyphen. Returns "" when the class carries no style axis.
func StyleToken(styleClass string) string {
	if i := strings.Index(styleClass, "-"); i >= 0 {
		return styleClass[i+1:]
	}
	return ""
}
