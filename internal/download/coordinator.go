package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/model"
)

const (
	// DefaultMaxParallel is the per-user slot limit when none is configured
	DefaultMaxParallel = 5

	// TaskIDPrefix prefixes generated task ids
	TaskIDPrefix = "task-"
)

// Options configure a Coordinator.
type Options struct {
	MaxParallel       int
	ProgressInterval  time.Duration // minimum gap between playlist progress edits, 0 edits on every track
	CancelSettleDelay time.Duration // grace period for cancelled fetches before their slots are reclaimed
	Fetch             model.FetchOptions
}

// DefaultOptions returns the options used when the config leaves fields empty
func DefaultOptions() Options {
	return Options{
		MaxParallel:       DefaultMaxParallel,
		ProgressInterval:  3 * time.Second,
		CancelSettleDelay: 200 * time.Millisecond,
	}
}

// userState is the per-user registry and queue.
type userState struct {
	tasks map[string]*model.DownloadTask // keyed by URL
	queue []model.QueueItem
}

func (u *userState) activeCount() int {
	n := 0
	for _, task := range u.tasks {
		if !task.Done() {
			n++
		}
	}
	return n
}

func (u *userState) isQueued(url string) bool {
	for _, item := range u.queue {
		if item.Track.URL == url {
			return true
		}
	}
	return false
}

// Coordinator owns all download state. Every mutation happens under mu and
// mu is never held across a fetch, a delivery or a chat notification.
type Coordinator struct {
	mu        sync.Mutex
	users     map[int64]*userState
	playlists map[string]*model.PlaylistDownload
	kept      map[string]*TempFile // finished playlist files waiting for ordered delivery

	fetcher   Fetcher
	notifier  Notifier
	deliverer Deliverer
	log       *logger.Logger
	opts      Options

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

var _ Manager = (*Coordinator)(nil)

// NewCoordinator creates a coordinator around the given collaborators
func NewCoordinator(fetcher Fetcher, notifier Notifier, deliverer Deliverer, log *logger.Logger, opts Options) *Coordinator {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.ProgressInterval < 0 {
		opts.ProgressInterval = 0
	}
	if opts.CancelSettleDelay < 0 {
		opts.CancelSettleDelay = 0
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Coordinator{
		users:     make(map[int64]*userState),
		playlists: make(map[string]*model.PlaylistDownload),
		kept:      make(map[string]*TempFile),
		fetcher:   fetcher,
		notifier:  notifier,
		deliverer: deliverer,
		log:       log.With("download"),
		opts:      opts,
		baseCtx:   ctx,
		stop:      stop,
		now:       time.Now,
	}
}

// MaxParallel returns the per-user slot limit
func (c *Coordinator) MaxParallel() int {
	return c.opts.MaxParallel
}

// SubmitSingle admits a single track download. It rejects a URL that is
// already active or queued for the user, and fails with a
// *CapacityExceededError when every slot is taken. Single downloads are never queued.
func (c *Coordinator) SubmitSingle(ctx context.Context, userID, chatID int64, track model.Track) (*model.DownloadTask, error) {
	if track.URL == "" {
		return nil, ErrInvalidTrack
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	us := c.userLocked(userID)
	if _, exists := us.tasks[track.URL]; exists || us.isQueued(track.URL) {
		c.gcUserLocked(userID)
		return nil, ErrDuplicateRequest
	}
	if active := us.activeCount(); active >= c.opts.MaxParallel {
		c.gcUserLocked(userID)
		return nil, &CapacityExceededError{Active: active, Limit: c.opts.MaxParallel}
	}

	task := c.startLocked(userID, model.QueueItem{Track: track, ChatID: chatID})
	c.log.Info("user %d: started %s (%s)", userID, track.URL, task.ID)

	snapshot := *task
	return &snapshot, nil
}

// ActiveCount returns the number of slots the user currently occupies
func (c *Coordinator) ActiveCount(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if us, ok := c.users[userID]; ok {
		return us.activeCount()
	}
	return 0
}

// QueueLength returns the number of tracks waiting for a slot
func (c *Coordinator) QueueLength(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if us, ok := c.users[userID]; ok {
		return len(us.queue)
	}
	return 0
}

// Wait blocks until every started task and finalization has returned
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels everything in flight, waits for the workers to exit and
// removes files of playlists that never finished.
func (c *Coordinator) Close() {
	c.stop()
	c.wg.Wait()

	c.mu.Lock()
	kept := c.kept
	c.kept = make(map[string]*TempFile)
	c.mu.Unlock()

	for path, file := range kept {
		if err := file.Release(); err != nil {
			c.log.Warn("remove %s: %v", path, err)
		}
	}
}

func (c *Coordinator) userLocked(userID int64) *userState {
	us, ok := c.users[userID]
	if !ok {
		us = &userState{tasks: make(map[string]*model.DownloadTask)}
		c.users[userID] = us
	}
	return us
}

// gcUserLocked forgets users without tasks or queued work
func (c *Coordinator) gcUserLocked(userID int64) {
	if us, ok := c.users[userID]; ok && len(us.tasks) == 0 && len(us.queue) == 0 {
		delete(c.users, userID)
	}
}

// startLocked registers the task before its worker starts, so the slot is
// visible to the next admission check.
func (c *Coordinator) startLocked(userID int64, item model.QueueItem) *model.DownloadTask {
	ctx, cancel := context.WithCancelCause(c.baseCtx)
	task := &model.DownloadTask{
		ID:         generateTaskID(),
		UserID:     userID,
		ChatID:     item.ChatID,
		URL:        item.Track.URL,
		Track:      item.Track,
		PlaylistID: item.PlaylistID,
		Status:     model.TaskStatusDownloading,
		StartedAt:  c.now(),
		Cancel:     cancel,
	}
	c.userLocked(userID).tasks[task.URL] = task

	c.wg.Add(1)
	go c.run(ctx, task)
	return task
}

// removeLocked deletes the registry entry if it still belongs to task.
// Removing twice is a no-op.
func (c *Coordinator) removeLocked(task *model.DownloadTask) bool {
	us, ok := c.users[task.UserID]
	if !ok {
		return false
	}
	current, ok := us.tasks[task.URL]
	if !ok || current != task {
		return false
	}
	delete(us.tasks, task.URL)
	return true
}

// drainLocked starts queued items in FIFO order while the user has free
// slots. Items of stopped playlists are dropped. An item whose URL is still
// in flight is held back in place until that task leaves the registry.
func (c *Coordinator) drainLocked(userID int64) {
	us, ok := c.users[userID]
	if !ok {
		return
	}

	var held []model.QueueItem
	for len(us.queue) > 0 && us.activeCount() < c.opts.MaxParallel {
		item := us.queue[0]
		us.queue[0] = model.QueueItem{}
		us.queue = us.queue[1:]

		var pl *model.PlaylistDownload
		if item.PlaylistID != "" {
			if pl = c.playlists[item.PlaylistID]; pl == nil {
				continue
			}
		}
		if _, busy := us.tasks[item.Track.URL]; busy {
			held = append(held, item)
			continue
		}

		if pl != nil {
			pl.MarkDownloading(item.Track.URL)
		}
		task := c.startLocked(userID, item)
		c.log.Debug("user %d: dequeued %s (%s)", userID, item.Track.URL, task.ID)
	}

	if len(held) > 0 {
		us.queue = append(held, us.queue...)
	}
	if len(us.queue) == 0 {
		us.queue = nil
	}
	c.gcUserLocked(userID)
}

// run is the worker of one task. Whatever happens, the task leaves the
// registry exactly once and the queue is drained afterwards.
func (c *Coordinator) run(ctx context.Context, task *model.DownloadTask) {
	defer c.wg.Done()
	defer task.Cancel(nil)

	if !task.InPlaylist() {
		c.announce(task)
	}

	res, err := c.fetcher.Fetch(ctx, task.URL, c.opts.Fetch)
	var file *TempFile
	if res != nil && res.FilePath != "" {
		file = NewTempFile(res.FilePath, res.Dir)
	}
	defer file.Release()

	if err == nil && file == nil {
		err = ErrNoFile
	}
	if err != nil {
		err = &FetchError{URL: task.URL, Err: err}
	}

	if task.InPlaylist() {
		c.completePlaylistTrack(ctx, task, res, file, err)
		return
	}
	c.completeSingle(ctx, task, res, file, err)
}

func (c *Coordinator) completeSingle(ctx context.Context, task *model.DownloadTask, res *model.FetchResult, file *TempFile, err error) {
	defer c.dismiss(task)

	switch {
	case isCancelled(ctx):
		c.log.Info("user %d: %s cancelled", task.UserID, task.URL)
		c.finish(task, model.TaskStatusCancelled, nil)
		return
	case err != nil:
		c.log.Warn("user %d: %v", task.UserID, err)
		c.notify(task.ChatID, failureText(task.Track, err))
		c.finish(task, model.TaskStatusFailed, err)
		return
	}

	c.setStatus(task, model.TaskStatusDelivering)
	meta := res.Track(task.Track)
	if derr := c.deliverer.DeliverFile(ctx, task.ChatID, file.Path(), meta); derr != nil {
		if isCancelled(ctx) {
			c.finish(task, model.TaskStatusCancelled, nil)
			return
		}
		derr = &DeliveryError{Path: file.Path(), Err: derr}
		c.log.Warn("user %d: %v", task.UserID, derr)
		c.notify(task.ChatID, failureText(task.Track, derr))
		c.finish(task, model.TaskStatusFailed, derr)
		return
	}

	if rerr := file.Release(); rerr != nil {
		c.log.Warn("remove %s: %v", file.Path(), rerr)
	}
	c.log.Info("user %d: delivered %s", task.UserID, meta.DisplayTitle())
	c.finish(task, model.TaskStatusCompleted, nil)
}

// finish moves the task to its terminal status, frees its slot and drains the queue
func (c *Coordinator) finish(task *model.DownloadTask, status model.TaskStatus, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishLocked(task, status, err)
}

func (c *Coordinator) finishLocked(task *model.DownloadTask, status model.TaskStatus, err error) {
	cancelledByUser := task.Status == model.TaskStatusCancelling || task.Status == model.TaskStatusCancelled
	if cancelledByUser {
		status = model.TaskStatusCancelled
	}
	task.Status = status
	if task.FinishedAt.IsZero() {
		task.FinishedAt = c.now()
	}
	if err != nil {
		task.LastError = err.Error()
	}

	if !c.removeLocked(task) && !cancelledByUser {
		c.log.Warn("user %d: registry entry for %s already gone", task.UserID, task.URL)
	}
	c.drainLocked(task.UserID)
}

func (c *Coordinator) setStatus(task *model.DownloadTask, status model.TaskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !task.Done() {
		task.Status = status
	}
}

// announce posts the status message of a single download
func (c *Coordinator) announce(task *model.DownloadTask) {
	ref, err := c.notifier.Notify(c.baseCtx, task.ChatID, downloadingText(task.Track))
	if err != nil {
		c.log.Warn("notify chat %d: %v", task.ChatID, err)
		return
	}

	c.mu.Lock()
	task.StatusMsg = ref
	c.mu.Unlock()
}

// dismiss deletes the status message of a single download
func (c *Coordinator) dismiss(task *model.DownloadTask) {
	c.mu.Lock()
	ref := task.StatusMsg
	task.StatusMsg = model.MessageRef{}
	c.mu.Unlock()

	c.deleteMessage(ref)
}

func (c *Coordinator) notify(chatID int64, text string) {
	if _, err := c.notifier.Notify(c.baseCtx, chatID, text); err != nil {
		c.log.Warn("notify chat %d: %v", chatID, err)
	}
}

func (c *Coordinator) edit(ref model.MessageRef, text string) {
	if ref.IsZero() {
		return
	}
	if err := c.notifier.Edit(c.baseCtx, ref, text); err != nil {
		c.log.Debug("edit message %d: %v", ref.MessageID, err)
	}
}

func (c *Coordinator) deleteMessage(ref model.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := c.notifier.Delete(c.baseCtx, ref); err != nil {
		c.log.Debug("delete message %d: %v", ref.MessageID, err)
	}
}

func isCancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// generateTaskID generates a unique, time-ordered task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%s%d", TaskIDPrefix, time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
