// Package overlay resolves which cached listing a rendered page
// fragment belongs to. The page renders before or after the network
// payload lands, so matching retries with a short backoff instead of
// assuming either side arrives first.
package overlay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/skingap/skingap/internal/itemcache"
	"github.com/skingap/skingap/internal/model"
)

const (
	defaultAttempts = 5
	defaultBackoff  = 200 * time.Millisecond
)

// Matcher pairs rendered fragments with cached items for one marketplace.
type Matcher struct {
	cache    *itemcache.Cache
	attempts int
	backoff  time.Duration
}

func NewMatcher(cache *itemcache.Cache) *Matcher {
	return &Matcher{cache: cache, attempts: defaultAttempts, backoff: defaultBackoff}
}

// Match returns the most recently cached item once its name and the
// rendered name agree. It retries while the cache is still empty or
// holds a stale most-recent entry from an earlier page. A match that
// never materializes is reported as an explicit miss, not an error:
// the caller skips that fragment and the page stays untouched.
func (m *Matcher) Match(ctx context.Context, renderedName string) (model.Item, bool, error) {
	rendered := strings.TrimSpace(renderedName)
	if rendered == "" {
		return model.Item{}, false, fmt.Errorf("empty rendered name")
	}

	for attempt := 0; attempt < m.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return model.Item{}, false, ctx.Err()
			case <-time.After(m.backoff):
			}
		}

		item, ok := m.cache.MostRecent()
		if !ok {
			continue
		}
		if namesAgree(rendered, item.DisplayName()) {
			return item, true, nil
		}
	}
	return model.Item{}, false, nil
}

// MatchID resolves a fragment that carries the listing's own
// identifier, bypassing the most-recent race entirely.
func (m *Matcher) MatchID(id string) (model.Item, bool) {
	return m.cache.Get(id)
}

// namesAgree accepts containment in either direction: the page often
// renders a truncated name, and some pages render the exterior the
// payload omits.
func namesAgree(rendered, cached string) bool {
	if rendered == cached {
		return true
	}
	return strings.Contains(cached, rendered) || strings.Contains(rendered, cached)
}

// ExtractName pulls the listing name out of an HTML fragment using a
// marketplace-specific selector. Text of nested elements is joined the
// way the page displays it.
func ExtractName(fragment, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parsing fragment: %w", err)
	}

	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("selector %q matched nothing", selector)
	}

	var parts []string
	sel.First().Contents().Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return "", fmt.Errorf("selector %q matched an empty element", selector)
	}
	return strings.Join(parts, " "), nil
}
