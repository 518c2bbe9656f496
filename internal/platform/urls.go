package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ytget/yt-music-bot/internal/model"
)

// Kind tells a single track link from a playlist link
type Kind int

const (
	KindSingle Kind = iota
	KindPlaylist
)

func (k Kind) String() string {
	if k == KindPlaylist {
		return "playlist"
	}
	return "single"
}

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// ErrInvalidURL is returned for text that is not an http(s) link
var ErrInvalidURL = errors.New("not a valid link")

// ClassifyURL detects the source of a link and whether it points to a playlist
func ClassifyURL(raw string) (model.Source, Kind, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", KindSingle, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "mobile."} {
		host = strings.TrimPrefix(host, prefix)
	}
	path := strings.ToLower(u.Path)

	switch {
	case hostIs(host, "soundcloud.com"):
		if strings.Contains(path, "/sets/") {
			return model.SourceSoundCloud, KindPlaylist, nil
		}
		return model.SourceSoundCloud, KindSingle, nil

	case hostIs(host, "vk.com") || hostIs(host, "vk.ru"):
		if strings.Contains(path, "audio_playlist") ||
			strings.HasPrefix(path, "/music/album") ||
			strings.HasPrefix(path, "/music/playlist") ||
			strings.Contains(u.Query().Get("z"), "audio_playlist") {
			return model.SourceVK, KindPlaylist, nil
		}
		return model.SourceVK, KindSingle, nil

	case hostIs(host, "youtube.com") || host == "youtu.be":
		if id, err := extractPlaylistID(raw); err == nil && id != "" {
			return model.SourceYouTube, KindPlaylist, nil
		}
		return model.SourceYouTube, KindSingle, nil
	}

	return model.SourceGeneric, KindSingle, nil
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ExtractURL returns the first http(s) link found in text, or ""
func ExtractURL(text string) string {
	for _, field := range strings.Fields(text) {
		lower := strings.ToLower(field)
		start := strings.Index(lower, "https://")
		if i := strings.Index(lower, "http://"); i >= 0 && (start < 0 || i < start) {
			start = i
		}
		if start >= 0 {
			return strings.TrimRight(field[start:], ".,;!?)>\"'")
		}
	}
	return ""
}

// extractPlaylistID extracts the playlist ID from a YouTube playlist URL
func extractPlaylistID(raw string) (string, error) {
	// Supported formats:
	// - https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID&start_radio=1
	// - https://www.youtube.com/playlist?list=PLAYLIST_ID
	if !strings.Contains(raw, PlaylistParam) {
		return "", fmt.Errorf("URL does not contain playlist parameter")
	}

	parts := strings.Split(raw, PlaylistParam)
	if len(parts) < 2 {
		return "", fmt.Errorf("could not extract playlist ID from URL")
	}

	playlistID := parts[1]
	if strings.Contains(playlistID, ParamSeparator) {
		playlistID = strings.Split(playlistID, ParamSeparator)[0]
	}
	if playlistID == "" {
		return "", fmt.Errorf("empty playlist ID")
	}
	return playlistID, nil
}
