package model

import (
	"sort"
	"time"
)

// PlaylistTrackEntry represents a single track in a playlist download.
// FilePath is set iff Status is TrackStatusCompleted.
type PlaylistTrackEntry struct {
	Index    int         `json:"index"` // original position, used to restore source order
	URL      string      `json:"url"`
	Title    string      `json:"title"`
	Artist   string      `json:"artist"`
	Source   Source      `json:"source"`
	Status   TrackStatus `json:"status"`
	FilePath string      `json:"file_path,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Track returns the descriptor of the entry
func (e *PlaylistTrackEntry) Track() Track {
	return Track{Title: e.Title, Artist: e.Artist, URL: e.URL, Source: e.Source}
}

// PlaylistDownload aggregates one multi-track job
type PlaylistDownload struct {
	ID              string                `json:"id"`
	UserID          int64                 `json:"user_id"`
	ChatID          int64                 `json:"chat_id"`
	StatusMsg       MessageRef            `json:"status_msg"`
	Title           string                `json:"title"`
	TotalTracks     int                   `json:"total_tracks"`
	CompletedTracks int                   `json:"completed_tracks"`
	FailedTracks    int                   `json:"failed_tracks"`
	Entries         []*PlaylistTrackEntry `json:"entries"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	LastProgressAt  time.Time             `json:"-"`
}

// NewPlaylistDownload creates a playlist download with one pending entry per track.
// A URL repeated inside the same list is kept only once.
func NewPlaylistDownload(id string, userID, chatID int64, title string, tracks []Track) *PlaylistDownload {
	now := time.Now()
	p := &PlaylistDownload{
		ID:        id,
		UserID:    userID,
		ChatID:    chatID,
		Title:     title,
		Entries:   make([]*PlaylistTrackEntry, 0, len(tracks)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	seen := make(map[string]struct{}, len(tracks))
	for _, tr := range tracks {
		if _, dup := seen[tr.URL]; dup || tr.URL == "" {
			continue
		}
		seen[tr.URL] = struct{}{}
		p.Entries = append(p.Entries, &PlaylistTrackEntry{
			Index:  len(p.Entries),
			URL:    tr.URL,
			Title:  tr.Title,
			Artist: tr.Artist,
			Source: tr.Source,
			Status: TrackStatusPending,
		})
	}
	p.TotalTracks = len(p.Entries)

	return p
}

// EntryByURL finds the entry of a track by its URL
func (p *PlaylistDownload) EntryByURL(url string) (*PlaylistTrackEntry, bool) {
	for _, e := range p.Entries {
		if e.URL == url {
			return e, true
		}
	}
	return nil, false
}

// MarkDownloading flags the entry as picked up by a task
func (p *PlaylistDownload) MarkDownloading(url string) bool {
	e, ok := p.EntryByURL(url)
	if !ok || e.Status.IsTerminal() {
		return false
	}
	e.Status = TrackStatusDownloading
	p.UpdatedAt = time.Now()
	return true
}

// MarkCompleted records a successful download. Returns false if the entry
// is unknown or already terminal, in which case counters are untouched.
func (p *PlaylistDownload) MarkCompleted(url, filePath string) bool {
	e, ok := p.EntryByURL(url)
	if !ok || e.Status.IsTerminal() || p.CompletedTracks >= p.TotalTracks {
		return false
	}
	e.Status = TrackStatusCompleted
	e.FilePath = filePath
	e.Error = ""
	p.CompletedTracks++
	p.UpdatedAt = time.Now()
	return true
}

// MarkFailed records a failed download. completed_tracks is not incremented.
func (p *PlaylistDownload) MarkFailed(url string, reason string) bool {
	e, ok := p.EntryByURL(url)
	if !ok || e.Status.IsTerminal() {
		return false
	}
	e.Status = TrackStatusFailed
	e.FilePath = ""
	e.Error = reason
	p.FailedTracks++
	p.UpdatedAt = time.Now()
	return true
}

// IsFull reports whether every track reached a terminal state
func (p *PlaylistDownload) IsFull() bool {
	return p.CompletedTracks+p.FailedTracks == p.TotalTracks
}

// OrderedEntries returns the entries sorted by their original index
func (p *PlaylistDownload) OrderedEntries() []*PlaylistTrackEntry {
	out := make([]*PlaylistTrackEntry, len(p.Entries))
	copy(out, p.Entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out
}

// GetCompletedEntries returns entries that hold a downloaded file
func (p *PlaylistDownload) GetCompletedEntries() []*PlaylistTrackEntry {
	var completed []*PlaylistTrackEntry
	for _, e := range p.Entries {
		if e.Status == TrackStatusCompleted {
			completed = append(completed, e)
		}
	}
	return completed
}

// GetDownloadProgress returns overall progress as percentage
func (p *PlaylistDownload) GetDownloadProgress() float64 {
	if p.TotalTracks == 0 {
		return 0
	}
	return float64(p.CompletedTracks+p.FailedTracks) / float64(p.TotalTracks) * 100
}
