package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/yt-music-bot/internal/model"
)

// Search limits
const (
	DefaultSearchResults = 5
	MaxSearchResults     = 10
	DefaultSearchTimeout = 30 * time.Second
)

// SearchTemplate is printed once per search hit
const SearchTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s"

// ErrEmptyQuery is returned for a blank search query
var ErrEmptyQuery = errors.New("empty search query")

// SearchService looks tracks up through yt-dlp search extractors
type SearchService struct {
	proxy   string
	timeout time.Duration
	run     Runner
}

// NewSearchService creates a new search service
func NewSearchService(proxy string) *SearchService {
	return &SearchService{
		proxy:   proxy,
		timeout: DefaultSearchTimeout,
		run:     RunYTDLP,
	}
}

// Search returns up to limit tracks matching query on source
func (s *SearchService) Search(ctx context.Context, source model.Source, query string, limit int) ([]model.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchResults
	}
	limit = min(limit, MaxSearchResults)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := NewCommand(s.proxy).
		Quiet().
		FlatPlaylist().
		Print(SearchTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", limit))

	out, err := s.run(ctx, cmd, searchKey(source, query, limit))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	tracks := ParseSearchOutput(out, searchSource(source))
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

func searchSource(source model.Source) model.Source {
	if source == model.SourceYouTube {
		return model.SourceYouTube
	}
	return model.SourceSoundCloud
}

func searchKey(source model.Source, query string, limit int) string {
	prefix := "scsearch"
	if searchSource(source) == model.SourceYouTube {
		prefix = "ytsearch"
	}
	return fmt.Sprintf("%s%d:%s", prefix, limit, query)
}

// ParseSearchOutput parses SearchTemplate lines, skipping malformed ones
func ParseSearchOutput(output string, source model.Source) []model.Track {
	var tracks []model.Track
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 2 {
			continue
		}
		u := Field(parts, 0)
		if u == "" || !strings.Contains(u, "://") {
			continue
		}
		tracks = append(tracks, model.Track{
			URL:      u,
			Title:    Field(parts, 1),
			Artist:   Field(parts, 2),
			Duration: ParseSeconds(Field(parts, 3)),
			Source:   source,
		})
	}
	return tracks
}
