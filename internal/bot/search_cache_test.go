package bot

import (
	"testing"
	"time"

	"github.com/ytget/yt-music-bot/internal/model"
)

func TestSearchCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := newSearchCache(time.Minute)
	cache.now = func() time.Time { return now }

	cache.put(1, []model.Track{{URL: "a"}, {URL: "b"}})

	if tr, ok := cache.pick(1, 2); !ok || tr.URL != "b" {
		t.Errorf("Expected second result, got %+v, %v", tr, ok)
	}
	for _, n := range []int{0, 3} {
		if _, ok := cache.pick(1, n); ok {
			t.Errorf("Expected %d to be out of range", n)
		}
	}
	if _, ok := cache.pick(2, 1); ok {
		t.Error("Expected no results for another user")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.pick(1, 1); ok {
		t.Error("Expected results to expire")
	}

	cache.put(2, []model.Track{{URL: "c"}})
	if _, ok := cache.entries[1]; ok {
		t.Error("Expected expired entries to be evicted on put")
	}
}
