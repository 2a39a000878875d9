package overlay

import (
	"context"
	"testing"
	"time"

	"github.com/skingap/skingap/internal/itemcache"
	"github.com/skingap/skingap/internal/model"
)

func newTestMatcher(cache *itemcache.Cache) *Matcher {
	m := NewMatcher(cache)
	m.attempts = 3
	m.backoff = 10 * time.Millisecond
	return m
}

func TestMatch_ImmediateHit(t *testing.T) {
	cache := itemcache.New(model.MarketCSFloat)
	cache.UpsertOne(model.Item{
		Marketplace:    model.MarketCSFloat,
		Kind:           model.KindAggregate,
		ID:             "1",
		MarketHashName: "AK-47 | Redline (Field-Tested)",
	})

	m := newTestMatcher(cache)
	item, ok, err := m.Match(context.Background(), "AK-47 | Redline (Field-Tested)")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a match")
	}
	if item.ID != "1" {
		t.Errorf("Expected item 1, got %q", item.ID)
	}
}

func TestMatch_TruncatedRenderedName(t *testing.T) {
	cache := itemcache.New(model.MarketCSFloat)
	cache.UpsertOne(model.Item{
		Marketplace:    model.MarketCSFloat,
		Kind:           model.KindAggregate,
		ID:             "2",
		MarketHashName: "AWP | Chromatic Aberration (Factory New)",
	})

	m := newTestMatcher(cache)
	if _, ok, _ := m.Match(context.Background(), "AWP | Chromatic Aberration"); !ok {
		t.Error("Expected a truncated rendered name to match by containment")
	}
}

func TestMatch_WaitsForLatePayload(t *testing.T) {
	cache := itemcache.New(model.MarketSkinport)
	m := newTestMatcher(cache)

	go func() {
		time.Sleep(15 * time.Millisecond)
		cache.UpsertOne(model.Item{
			Marketplace:    model.MarketSkinport,
			Kind:           model.KindAggregate,
			ID:             "3",
			MarketHashName: "M4A4 | Asiimov (Well-Worn)",
		})
	}()

	item, ok, err := m.Match(context.Background(), "M4A4 | Asiimov (Well-Worn)")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a match once the payload landed")
	}
	if item.ID != "3" {
		t.Errorf("Expected item 3, got %q", item.ID)
	}
}

func TestMatch_MissAfterBoundedRetries(t *testing.T) {
	cache := itemcache.New(model.MarketCSFloat)
	cache.UpsertOne(model.Item{
		Marketplace:    model.MarketCSFloat,
		Kind:           model.KindAggregate,
		ID:             "4",
		MarketHashName: "Glock-18 | Fade (Factory New)",
	})

	m := newTestMatcher(cache)
	item, ok, err := m.Match(context.Background(), "USP-S | Kill Confirmed (Minimal Wear)")
	if err != nil {
		t.Fatalf("Miss must not be an error: %v", err)
	}
	if ok {
		t.Errorf("Expected a miss, matched %q", item.MarketHashName)
	}
}

func TestMatch_ContextCancellation(t *testing.T) {
	cache := itemcache.New(model.MarketCSFloat)
	m := newTestMatcher(cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := m.Match(ctx, "AK-47 | Redline (Field-Tested)"); err == nil {
		t.Error("Expected a context error")
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		selector string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain text node",
			fragment: `<div class="item-card"><span class="item-name">AK-47 | Redline</span></div>`,
			selector: ".item-name",
			want:     "AK-47 | Redline",
		},
		{
			name:     "nested spans joined with spaces",
			fragment: `<h1 class="title"><span>StatTrak™</span> <span>AK-47 | Redline</span></h1>`,
			selector: ".title",
			want:     "StatTrak™ AK-47 | Redline",
		},
		{
			name:     "selector matches nothing",
			fragment: `<div><span class="other">x</span></div>`,
			selector: ".item-name",
			wantErr:  true,
		},
		{
			name:     "empty element",
			fragment: `<div><span class="item-name">   </span></div>`,
			selector: ".item-name",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractName(tt.fragment, tt.selector)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractName failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
