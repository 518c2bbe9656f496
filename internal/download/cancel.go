package download

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/yt-music-bot/internal/model"
)

// CancelSummary reports what CancelAll stopped
type CancelSummary struct {
	TasksCancelled   int `json:"tasks_cancelled"`
	PlaylistsStopped int `json:"playlists_stopped"`
	QueueCleared     int `json:"queue_cleared"`
	FilesRemoved     int `json:"files_removed"`
}

// Nothing reports whether there was nothing to cancel
func (s CancelSummary) Nothing() bool {
	return s.TasksCancelled == 0 && s.PlaylistsStopped == 0 && s.QueueCleared == 0
}

func (s CancelSummary) String() string {
	if s.Nothing() {
		return "Nothing to cancel."
	}

	var parts []string
	if s.TasksCancelled > 0 {
		parts = append(parts, fmt.Sprintf("%d active download(s)", s.TasksCancelled))
	}
	if s.QueueCleared > 0 {
		parts = append(parts, fmt.Sprintf("%d queued track(s)", s.QueueCleared))
	}
	if s.PlaylistsStopped > 0 {
		parts = append(parts, fmt.Sprintf("%d playlist(s)", s.PlaylistsStopped))
	}
	return "🛑 Cancelled " + strings.Join(parts, ", ") + "."
}

// CancelAll stops every active task, queued item and playlist of the user.
// Cancellation is signalled first; registry entries are removed after a
// short settle delay so cancelled fetches can unwind. Files of tracks that
// finished but were never delivered are removed.
func (c *Coordinator) CancelAll(ctx context.Context, userID int64) CancelSummary {
	var (
		summary   CancelSummary
		cancelled []*model.DownloadTask
		stopped   []*model.PlaylistDownload
		files     []*TempFile
	)

	c.mu.Lock()
	if us, ok := c.users[userID]; ok {
		for _, task := range us.tasks {
			if task.Done() {
				continue
			}
			task.Status = model.TaskStatusCancelling
			task.Cancel(ErrCancelledByUser)
			cancelled = append(cancelled, task)
		}
		summary.QueueCleared = len(us.queue)
		us.queue = nil
	}
	for id, pl := range c.playlists {
		if pl.UserID != userID {
			continue
		}
		delete(c.playlists, id)
		stopped = append(stopped, pl)
		for _, entry := range pl.GetCompletedEntries() {
			if file, ok := c.kept[entry.FilePath]; ok {
				delete(c.kept, entry.FilePath)
				files = append(files, file)
			}
		}
	}
	c.mu.Unlock()

	summary.TasksCancelled = len(cancelled)
	summary.PlaylistsStopped = len(stopped)

	if len(cancelled) > 0 {
		c.settle(ctx)
	}

	c.mu.Lock()
	for _, task := range cancelled {
		c.removeLocked(task)
		if task.Status == model.TaskStatusCancelling {
			task.Status = model.TaskStatusCancelled
			task.FinishedAt = c.now()
		}
	}
	c.drainLocked(userID)
	c.mu.Unlock()

	for _, file := range files {
		if err := file.Release(); err != nil {
			c.log.Warn("remove %s: %v", file.Path(), err)
			continue
		}
		summary.FilesRemoved++
	}
	for _, pl := range stopped {
		c.deleteMessage(pl.StatusMsg)
	}

	c.log.Info("user %d: cancel all: %+v", userID, summary)
	return summary
}

func (c *Coordinator) settle(ctx context.Context) {
	if c.opts.CancelSettleDelay <= 0 {
		return
	}

	timer := time.NewTimer(c.opts.CancelSettleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
