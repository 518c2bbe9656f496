package bot

import (
	"sync"
	"time"

	"github.com/ytget/yt-music-bot/internal/model"
)

// SearchResultsTTL is how long a result list stays pickable
const SearchResultsTTL = 30 * time.Minute

type searchEntry struct {
	tracks []model.Track
	at     time.Time
}

// searchCache keeps the last search result list per user
type searchCache struct {
	mu      sync.Mutex
	entries map[int64]searchEntry
	ttl     time.Duration
	now     func() time.Time
}

func newSearchCache(ttl time.Duration) *searchCache {
	return &searchCache{
		entries: make(map[int64]searchEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *searchCache) put(userID int64, tracks []model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.at) > c.ttl {
			delete(c.entries, id)
		}
	}
	c.entries[userID] = searchEntry{tracks: tracks, at: now}
}

// pick returns the n-th (1-based) result of the user's last search
func (c *searchCache) pick(userID int64, n int) (model.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userID]
	if !ok || c.now().Sub(e.at) > c.ttl || n < 1 || n > len(e.tracks) {
		return model.Track{}, false
	}
	return e.tracks[n-1], true
}
