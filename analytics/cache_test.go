package analytics

import (
	"errors"
	"testing"
	"time"
)

func TestPanelCacheHitAndExpiry(t *testing.T) {
	c := NewPanelCache(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	loads := 0
	load := func() (any, error) {
		loads++
		return loads, nil
	}

	v, _ := c.Get(PanelKey{Kind: "k"}, load)
	v2, _ := c.Get(PanelKey{Kind: "k"}, load)
	if v != 1 || v2 != 1 || loads != 1 {
		t.Fatalf("expected cached value, got %v %v after %d loads", v, v2, loads)
	}

	now = now.Add(2 * time.Minute)
	if v, _ := c.Get(PanelKey{Kind: "k"}, load); v != 2 {
		t.Fatalf("expected reload after expiry, got %v", v)
	}

	c.Invalidate()
	if v, _ := c.Get(PanelKey{Kind: "k"}, load); v != 3 {
		t.Fatalf("expected reload after invalidate, got %v", v)
	}
}

func TestPanelCacheErrorsNotCached(t *testing.T) {
	c := NewPanelCache(time.Minute)
	boom := errors.New("boom")
	if _, err := c.Get(PanelKey{Kind: "k"}, func() (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	v, err := c.Get(PanelKey{Kind: "k"}, func() (any, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("expected fresh load, got %v, %v", v, err)
	}
}

func TestPanelCacheDisabled(t *testing.T) {
	c := NewPanelCache(0)
	loads := 0
	for i := 0; i < 3; i++ {
		c.Get(PanelKey{Kind: "k"}, func() (any, error) { loads++; return nil, nil })
	}
	if loads != 3 {
		t.Fatalf("expected every Get to load, got %d loads", loads)
	}
}

func TestPanelCacheInvalidateApp(t *testing.T) {
	c := NewPanelCache(time.Minute)
	shop := PanelKey{Kind: "referrers", AppID: 1}
	docs := PanelKey{Kind: "referrers", AppID: 2}

	loads := map[int64]int{}
	load := func(k PanelKey) func() (any, error) {
		return func() (any, error) {
			loads[k.AppID]++
			return loads[k.AppID], nil
		}
	}
	c.Get(shop, load(shop))
	c.Get(docs, load(docs))

	c.InvalidateApp(1)
	if v, _ := c.Get(shop, load(shop)); v != 2 {
		t.Errorf("expected shop reload, got %v", v)
	}
	if v, _ := c.Get(docs, load(docs)); v != 1 {
		t.Errorf("expected docs to stay cached, got %v", v)
	}
}
