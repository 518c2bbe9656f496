package platform

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ytget/yt-music-bot/internal/model"
)

// Timeout constants
const (
	DefaultParseTimeout = 60 * time.Second
)

// Default values
const (
	DefaultPlaylistName = "Unknown Playlist"
)

// Playlist title constants
const (
	MinPrefixLength = 10
	PlaylistSuffix  = " Playlist"
)

// FlatPlaylistTemplate is printed once per playlist entry
const FlatPlaylistTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(playlist_title)s"

// YTDLPParserService lists playlist entries with yt-dlp without downloading them
type YTDLPParserService struct {
	timeout time.Duration
	proxy   string
	run     Runner
}

// NewYTDLPParserService creates a new parser service
func NewYTDLPParserService(proxy string) *YTDLPParserService {
	return &YTDLPParserService{
		timeout: DefaultParseTimeout,
		proxy:   proxy,
		run:     RunYTDLP,
	}
}

// SetTimeout sets the timeout for parsing operations
func (y *YTDLPParserService) SetTimeout(timeout time.Duration) {
	y.timeout = timeout
}

// ListEntries returns up to limit tracks of the playlist at url (0 means all) and its title
func (y *YTDLPParserService) ListEntries(ctx context.Context, url string, source model.Source, limit int) ([]model.Track, string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := NewCommand(y.proxy).
		Quiet().
		FlatPlaylist().
		Print(FlatPlaylistTemplate)
	if limit > 0 {
		cmd.PlaylistItems(fmt.Sprintf("1-%d", limit))
	}

	out, err := y.run(ctx, cmd, url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get playlist items: %w", err)
	}

	tracks, title := y.parseFlatPlaylistOutput(out, source)
	if title == "" {
		title = y.extractPlaylistTitle(tracks)
	}
	return tracks, title, nil
}

// parseFlatPlaylistOutput parses FlatPlaylistTemplate lines
func (y *YTDLPParserService) parseFlatPlaylistOutput(output string, source model.Source) ([]model.Track, string) {
	var (
		tracks []model.Track
		title  string
	)

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		entryURL := Field(parts, 0)
		if entryURL == "" || !strings.Contains(entryURL, "://") {
			continue
		}

		tracks = append(tracks, model.Track{
			URL:      entryURL,
			Title:    Field(parts, 1),
			Artist:   Field(parts, 2),
			Duration: ParseSeconds(Field(parts, 3)),
			Source:   source,
		})
		if title == "" {
			title = Field(parts, 4)
		}
	}
	return tracks, title
}

// extractPlaylistTitle generates a title for the playlist based on its tracks
func (y *YTDLPParserService) extractPlaylistTitle(tracks []model.Track) string {
	if len(tracks) == 0 || tracks[0].Title == "" {
		return DefaultPlaylistName
	}
	if len(tracks) > 1 {
		commonPrefix := y.findCommonPrefix(tracks[0].Title, tracks[1].Title)
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}
	return tracks[0].Title + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings
func (y *YTDLPParserService) findCommonPrefix(s1, s2 string) string {
	n := min(len(s1), len(s2))
	for i := 0; i < n; i++ {
		if s1[i] != s2[i] {
			n = i
			break
		}
	}
	// do not split a multi-byte rune
	for n > 0 && n < len(s1) && !utf8.RuneStart(s1[n]) {
		n--
	}
	return s1[:n]
}
