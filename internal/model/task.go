package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Source tags where a track comes from
type Source string

const (
	SourceSoundCloud Source = "soundcloud"
	SourceVK         Source = "vk"
	SourceYouTube    Source = "youtube"
	SourceGeneric    Source = "generic"
)

// Track describes a single piece of media that can be fetched
type Track struct {
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	URL      string        `json:"url"`
	Source   Source        `json:"source"`
	Duration time.Duration `json:"duration,omitempty"`
}

// DisplayTitle returns "Artist - Title", the title alone, or the URL in order of preference
func (t Track) DisplayTitle() string {
	title := strings.TrimSpace(t.Title)
	artist := strings.TrimSpace(t.Artist)

	switch {
	case title != "" && artist != "":
		return fmt.Sprintf("%s - %s", artist, title)
	case title != "":
		return title
	default:
		return t.URL
	}
}

// MessageRef points to a chat message sent by the bot
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// IsZero reports whether the reference points nowhere
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// DownloadTask represents one in-flight fetch. Its identity is (UserID, URL).
type DownloadTask struct {
	ID         string
	UserID     int64
	ChatID     int64
	URL        string
	Track      Track
	PlaylistID string     // empty for single downloads
	Status     TaskStatus // guarded by the owning registry
	StatusMsg  MessageRef // progress message of a single download
	LastError  string
	StartedAt  time.Time
	FinishedAt time.Time

	Cancel context.CancelCauseFunc `json:"-"`
}

// Done reports whether the task no longer occupies a slot
func (dt *DownloadTask) Done() bool {
	return dt.Status.IsFinished()
}

// InPlaylist reports whether the task belongs to a playlist download
func (dt *DownloadTask) InPlaylist() bool {
	return dt.PlaylistID != ""
}

// QueueItem is a track waiting for a free download slot
type QueueItem struct {
	Track      Track
	ChatID     int64
	PlaylistID string // empty when the item is not part of a playlist
}

// FetchOptions tune a single fetch
type FetchOptions struct {
	AudioFormat string
	MaxDuration time.Duration
}

// FetchResult is what the fetch service produces for one URL
type FetchResult struct {
	FilePath string
	Dir      string // scratch directory owned by this fetch, removed with the file
	Title    string
	Artist   string
	Duration time.Duration
}

// Track merges extracted metadata into the requested track
func (r *FetchResult) Track(requested Track) Track {
	out := requested
	if r.Title != "" {
		out.Title = r.Title
	}
	if r.Artist != "" {
		out.Artist = r.Artist
	}
	if r.Duration > 0 {
		out.Duration = r.Duration
	}
	return out
}
