package download

import (
	"context"

	"github.com/segmentio/ksuid"

	"github.com/ytget/yt-music-bot/internal/model"
)

// SubmitPlaylist registers a playlist download, queues all of its tracks
// and starts as many as the user has free slots for. It returns the playlist id.
func (c *Coordinator) SubmitPlaylist(ctx context.Context, userID, chatID int64, title string, tracks []model.Track) (string, error) {
	pl := model.NewPlaylistDownload(ksuid.New().String(), userID, chatID, title, tracks)
	if pl.TotalTracks == 0 {
		return "", ErrEmptyPlaylist
	}

	ref, err := c.notifier.Notify(ctx, chatID, progressText(pl))
	if err != nil {
		c.log.Warn("notify chat %d: %v", chatID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pl.StatusMsg = ref
	pl.LastProgressAt = c.now()
	c.playlists[pl.ID] = pl

	us := c.userLocked(userID)
	for _, entry := range pl.OrderedEntries() {
		us.queue = append(us.queue, model.QueueItem{
			Track:      entry.Track(),
			ChatID:     chatID,
			PlaylistID: pl.ID,
		})
	}
	c.log.Info("user %d: playlist %s %q with %d tracks queued", userID, pl.ID, pl.Title, pl.TotalTracks)

	c.drainLocked(userID)
	return pl.ID, nil
}

// completePlaylistTrack records the outcome of one playlist track. The track
// that makes the playlist full claims it, so finalization runs exactly once.
func (c *Coordinator) completePlaylistTrack(ctx context.Context, task *model.DownloadTask, res *model.FetchResult, file *TempFile, err error) {
	var (
		done     *model.PlaylistDownload
		progress string
		ref      model.MessageRef
	)

	c.mu.Lock()
	pl, registered := c.playlists[task.PlaylistID]
	status := model.TaskStatusCompleted
	switch {
	case isCancelled(ctx):
		status = model.TaskStatusCancelled
	case err != nil:
		status = model.TaskStatusFailed
		c.log.Warn("user %d: playlist %s: %v", task.UserID, task.PlaylistID, err)
		if registered {
			pl.MarkFailed(task.URL, err.Error())
		}
	case registered:
		if pl.MarkCompleted(task.URL, file.Path()) {
			if entry, ok := pl.EntryByURL(task.URL); ok {
				merged := res.Track(entry.Track())
				entry.Title, entry.Artist = merged.Title, merged.Artist
			}
			c.kept[file.Path()] = file.Detach()
		}
	}

	if registered && !isCancelled(ctx) {
		pl.UpdatedAt = c.now()
		if pl.IsFull() {
			delete(c.playlists, pl.ID)
			done = pl
		} else if c.progressDueLocked(pl) {
			progress = progressText(pl)
			ref = pl.StatusMsg
		}
	}
	c.finishLocked(task, status, err)
	c.mu.Unlock()

	if progress != "" {
		c.edit(ref, progress)
	}
	if done != nil {
		c.finalize(done)
	}
}

func (c *Coordinator) progressDueLocked(pl *model.PlaylistDownload) bool {
	now := c.now()
	if now.Sub(pl.LastProgressAt) < c.opts.ProgressInterval {
		return false
	}
	pl.LastProgressAt = now
	return true
}

// finalize delivers the completed tracks of a claimed playlist in their
// original order, removes every file and posts one summary.
func (c *Coordinator) finalize(pl *model.PlaylistDownload) {
	delivered, failed := 0, pl.FailedTracks

	for _, entry := range pl.OrderedEntries() {
		if entry.Status != model.TrackStatusCompleted {
			continue
		}

		file := c.takeKept(entry.FilePath)
		if err := c.deliverer.DeliverFile(c.baseCtx, pl.ChatID, entry.FilePath, entry.Track()); err != nil {
			failed++
			c.log.Warn("user %d: playlist %s: %v", pl.UserID, pl.ID, &DeliveryError{Path: entry.FilePath, Err: err})
		} else {
			delivered++
		}
		if err := file.Release(); err != nil {
			c.log.Warn("remove %s: %v", entry.FilePath, err)
		}
	}

	c.log.Info("user %d: playlist %s finished, %d delivered, %d failed", pl.UserID, pl.ID, delivered, failed)
	c.notify(pl.ChatID, summaryText(pl, delivered, failed))
	c.deleteMessage(pl.StatusMsg)
}

// takeKept hands the file of a finished entry over to the caller
func (c *Coordinator) takeKept(path string) *TempFile {
	c.mu.Lock()
	defer c.mu.Unlock()

	file, ok := c.kept[path]
	if !ok {
		return NewTempFile(path, "")
	}
	delete(c.kept, path)
	return file
}
