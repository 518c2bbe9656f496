package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/yt-music-bot/internal/compress"
	"github.com/ytget/yt-music-bot/internal/download"
	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

// Telegram answers edits with identical text with this error
const errNotModified = "message is not modified"

// Messenger sends status messages and audio files to chats
type Messenger struct {
	api         Client
	shrinker    compress.Shrinker
	uploadLimit int64
	log         *logger.Logger
}

var (
	_ download.Notifier  = (*Messenger)(nil)
	_ download.Deliverer = (*Messenger)(nil)
)

// NewMessenger creates a messenger. Files above uploadLimit are passed
// through shrinker first when it is set.
func NewMessenger(api Client, shrinker compress.Shrinker, uploadLimit int64, log *logger.Logger) *Messenger {
	if log == nil {
		log = logger.Nop()
	}
	return &Messenger{
		api:         api,
		shrinker:    shrinker,
		uploadLimit: uploadLimit,
		log:         log.With("messenger"),
	}
}

// Notify sends a plain text message
func (m *Messenger) Notify(ctx context.Context, chatID int64, text string) (model.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return model.MessageRef{}, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	sent, err := m.api.Send(msg)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return model.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit replaces the text of a sent message
func (m *Messenger) Edit(ctx context.Context, ref model.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.DisableWebPagePreview = true
	if _, err := m.api.Request(edit); err != nil && !strings.Contains(err.Error(), errNotModified) {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// Delete removes a sent message
func (m *Messenger) Delete(ctx context.Context, ref model.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// DeliverFile uploads path as an audio message. The caller keeps ownership
// of path; a shrunk copy is removed here.
func (m *Messenger) DeliverFile(ctx context.Context, chatID int64, path string, track model.Track) error {
	upload := path
	if m.shrinker != nil && m.uploadLimit > 0 {
		shrunk, err := m.shrinker.Shrink(ctx, path, m.uploadLimit)
		if err != nil {
			return err
		}
		if shrunk != path {
			defer platform.RemoveQuietly(shrunk)
			upload = shrunk
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(upload)
	if err != nil {
		return fmt.Errorf("open %s: %w", upload, err)
	}
	defer f.Close()

	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileReader{
		Name:   platform.SanitizeFileName(track.DisplayTitle()) + filepath.Ext(upload),
		Reader: f,
	})
	audio.Title = track.Title
	audio.Performer = track.Artist
	audio.Duration = int(track.Duration.Seconds())

	if _, err := m.api.Send(audio); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	m.log.Debug("chat %d: sent %s", chatID, track.DisplayTitle())
	return nil
}
