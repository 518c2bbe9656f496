package download

import (
	"context"

	"github.com/ytget/yt-music-bot/internal/model"
)

// Fetcher turns a URL into a local media file. Implementations must not touch
// coordinator state; results flow back through the return values.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts model.FetchOptions) (*model.FetchResult, error)
}

// Notifier is the fire-and-forget status channel to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) (model.MessageRef, error)
	Edit(ctx context.Context, ref model.MessageRef, text string) error
	Delete(ctx context.Context, ref model.MessageRef) error
}

// Deliverer sends a finished file to a chat. The caller owns the file and
// removes it after DeliverFile returns.
type Deliverer interface {
	DeliverFile(ctx context.Context, chatID int64, path string, track model.Track) error
}

// Manager is the command surface used by transport handlers.
type Manager interface {
	SubmitSingle(ctx context.Context, userID, chatID int64, track model.Track) (*model.DownloadTask, error)
	SubmitPlaylist(ctx context.Context, userID, chatID int64, title string, tracks []model.Track) (string, error)
	CancelAll(ctx context.Context, userID int64) CancelSummary
	Snapshot(userID int64) UserSnapshot
	Users() []int64
}
