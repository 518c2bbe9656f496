package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ytget/yt-music-bot/internal/model"
)

// Timeout constants
const (
	DefaultPlaylistParseTimeout = 60 * time.Second
)

// Default values
const (
	DefaultMaxPlaylistTracks = 100
	MaxTitleLength           = 64
	TitleTruncateSuffix      = "..."
)

// ErrNotPlaylist is returned when the link does not point to a playlist
var ErrNotPlaylist = errors.New("invalid playlist URL format")

// ParsedPlaylist is the expanded track list of a playlist link
type ParsedPlaylist struct {
	URL       string
	Title     string
	Source    model.Source
	Tracks    []model.Track
	Truncated bool // the playlist had more tracks than the configured cap
}

// PlaylistParserService expands playlist links into track lists
type PlaylistParserService struct {
	parser    *YTDLPParserService
	maxTracks int
}

// NewPlaylistParserService creates a new playlist parser service
func NewPlaylistParserService(proxy string, maxTracks int) *PlaylistParserService {
	if maxTracks <= 0 {
		maxTracks = DefaultMaxPlaylistTracks
	}
	parser := NewYTDLPParserService(proxy)
	parser.SetTimeout(DefaultPlaylistParseTimeout)

	return &PlaylistParserService{
		parser:    parser,
		maxTracks: maxTracks,
	}
}

// SetTimeout sets the timeout for playlist parsing
func (p *PlaylistParserService) SetTimeout(timeout time.Duration) {
	p.parser.SetTimeout(timeout)
}

// MaxTracks returns the per-playlist track cap
func (p *PlaylistParserService) MaxTracks() int {
	return p.maxTracks
}

// ParsePlaylist lists the tracks of a playlist link, capped at MaxTracks
func (p *PlaylistParserService) ParsePlaylist(ctx context.Context, url string) (*ParsedPlaylist, error) {
	source, kind, err := ClassifyURL(url)
	if err != nil {
		return nil, err
	}
	if kind != KindPlaylist {
		return nil, fmt.Errorf("%w: %s", ErrNotPlaylist, url)
	}

	// one extra entry tells a full playlist from a truncated one
	tracks, title, err := p.parser.ListEntries(ctx, url, source, p.maxTracks+1)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("playlist %s has no tracks", url)
	}

	parsed := &ParsedPlaylist{
		URL:    url,
		Title:  truncateTitle(title),
		Source: source,
		Tracks: tracks,
	}
	if len(tracks) > p.maxTracks {
		parsed.Tracks = tracks[:p.maxTracks]
		parsed.Truncated = true
	}
	return parsed, nil
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) > MaxTitleLength {
		return string(runes[:MaxTitleLength]) + TitleTruncateSuffix
	}
	return title
}
