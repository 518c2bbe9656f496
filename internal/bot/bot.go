package bot

import (
	"context"
	"runtime/debug"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/yt-music-bot/internal/config"
	"github.com/ytget/yt-music-bot/internal/download"
	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

// Long polling timeout in seconds
const updateTimeout = 60

// PlaylistExpander resolves a playlist link into tracks
type PlaylistExpander interface {
	ParsePlaylist(ctx context.Context, url string) (*platform.ParsedPlaylist, error)
	MaxTracks() int
}

// Searcher looks tracks up by free text
type Searcher interface {
	Search(ctx context.Context, source model.Source, query string, limit int) ([]model.Track, error)
}

// Bot routes Telegram updates to the download manager
type Bot struct {
	api       Client
	messenger *Messenger
	manager   download.Manager
	playlists PlaylistExpander
	search    Searcher
	cfg       config.BotConfig
	results   *searchCache
	sem       chan struct{}
	log       *logger.Logger
}

// New creates a bot. messenger is the same one the manager reports through.
func New(api Client, messenger *Messenger, manager download.Manager, playlists PlaylistExpander, search Searcher, cfg config.BotConfig, log *logger.Logger) *Bot {
	if cfg.HandlerConcurrency <= 0 {
		cfg.HandlerConcurrency = config.DefaultHandlerLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:       api,
		messenger: messenger,
		manager:   manager,
		playlists: playlists,
		search:    search,
		cfg:       cfg,
		results:   newSearchCache(SearchResultsTTL),
		sem:       make(chan struct{}, cfg.HandlerConcurrency),
		log:       log.With("bot"),
	}
}

// Run long-polls updates until ctx is done. Each update is handled in its
// own goroutine, bounded by the handler concurrency limit.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout
	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	b.log.Info("Listening for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()

				select {
				case b.sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				defer func() { <-b.sem }()

				b.HandleUpdate(ctx, update)
			}(update)
		}
	}
}

// HandleUpdate dispatches one update. Panics are logged and swallowed so
// one bad update cannot take the loop down.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic handling update %d: %v\n%s", update.UpdateID, r, debug.Stack())
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.messenger.Notify(context.Background(), chatID, text); err != nil {
		b.log.Warn("reply to chat %d: %v", chatID, err)
	}
}
