package download

import (
	"sort"
	"time"

	"github.com/ytget/yt-music-bot/internal/model"
)

// TaskView is a read-only copy of an active task
type TaskView struct {
	ID         string           `json:"id"`
	URL        string           `json:"url"`
	Title      string           `json:"title"`
	PlaylistID string           `json:"playlist_id,omitempty"`
	Status     model.TaskStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
}

// PlaylistView is a read-only copy of a playlist in progress
type PlaylistView struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Progress  float64 `json:"progress"`
}

// UserSnapshot describes everything a user has in flight
type UserSnapshot struct {
	UserID    int64          `json:"user_id"`
	Active    int            `json:"active"`
	Limit     int            `json:"limit"`
	Queued    int            `json:"queued"`
	Tasks     []TaskView     `json:"tasks"`
	Playlists []PlaylistView `json:"playlists"`
}

// Idle reports whether the user has nothing in flight
func (s UserSnapshot) Idle() bool {
	return len(s.Tasks) == 0 && s.Queued == 0 && len(s.Playlists) == 0
}

// Snapshot returns a consistent copy of the user's state
func (c *Coordinator) Snapshot(userID int64) UserSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := UserSnapshot{
		UserID:    userID,
		Limit:     c.opts.MaxParallel,
		Tasks:     []TaskView{},
		Playlists: []PlaylistView{},
	}

	if us, ok := c.users[userID]; ok {
		snap.Active = us.activeCount()
		snap.Queued = len(us.queue)
		for _, task := range us.tasks {
			snap.Tasks = append(snap.Tasks, TaskView{
				ID:         task.ID,
				URL:        task.URL,
				Title:      task.Track.DisplayTitle(),
				PlaylistID: task.PlaylistID,
				Status:     task.Status,
				StartedAt:  task.StartedAt,
			})
		}
		sort.Slice(snap.Tasks, func(i, j int) bool {
			return snap.Tasks[i].StartedAt.Before(snap.Tasks[j].StartedAt)
		})
	}

	for _, pl := range c.playlists {
		if pl.UserID != userID {
			continue
		}
		snap.Playlists = append(snap.Playlists, PlaylistView{
			ID:        pl.ID,
			Title:     pl.Title,
			Total:     pl.TotalTracks,
			Completed: pl.CompletedTracks,
			Failed:    pl.FailedTracks,
			Progress:  pl.GetDownloadProgress(),
		})
	}
	sort.Slice(snap.Playlists, func(i, j int) bool {
		return snap.Playlists[i].ID < snap.Playlists[j].ID
	})

	return snap
}

// Users returns the ids of users with tasks or queued work, sorted
func (c *Coordinator) Users() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.users))
	for id := range c.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
