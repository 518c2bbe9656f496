package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

// Callback data prefix of search result buttons
const callbackDownload = "dl:"

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	userID, chatID := message.From.ID, message.Chat.ID

	if !b.cfg.IsAllowed(userID) {
		b.log.Info("user %d (%s) is not allowed", userID, message.From.UserName)
		b.reply(chatID, textNotAllowed)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}
	b.log.Debug("user %d: %s", userID, text)

	if link := platform.ExtractURL(text); link != "" {
		b.handleLink(ctx, userID, chatID, link)
		return
	}
	b.runSearch(ctx, userID, chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID, chatID := message.From.ID, message.Chat.ID

	switch message.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "cancel":
		summary := b.manager.CancelAll(ctx, userID)
		b.reply(chatID, summary.String())
	case "status":
		b.reply(chatID, statusText(b.manager.Snapshot(userID)))
	case "search":
		query := strings.TrimSpace(message.CommandArguments())
		if query == "" {
			b.reply(chatID, textSearchUsage)
			return
		}
		b.runSearch(ctx, userID, chatID, query)
	default:
		b.reply(chatID, textUnknownCommand)
	}
}

func (b *Bot) handleLink(ctx context.Context, userID, chatID int64, link string) {
	source, kind, err := platform.ClassifyURL(link)
	if err != nil {
		b.reply(chatID, submitErrorText(err))
		return
	}

	if kind == platform.KindPlaylist {
		b.submitPlaylist(ctx, userID, chatID, link)
		return
	}
	b.submitTrack(ctx, userID, chatID, model.Track{URL: link, Source: source})
}

func (b *Bot) submitTrack(ctx context.Context, userID, chatID int64, track model.Track) {
	if _, err := b.manager.SubmitSingle(ctx, userID, chatID, track); err != nil {
		if isRejection(err) {
			b.log.Debug("user %d: %s rejected: %v", userID, track.URL, err)
		} else {
			b.log.Warn("user %d: submit %s: %v", userID, track.URL, err)
		}
		b.reply(chatID, submitErrorText(err))
	}
}

func (b *Bot) submitPlaylist(ctx context.Context, userID, chatID int64, link string) {
	ref, err := b.messenger.Notify(ctx, chatID, textReadingList)
	if err == nil {
		defer b.messenger.Delete(context.Background(), ref)
	}

	parsed, err := b.playlists.ParsePlaylist(ctx, link)
	if err != nil {
		b.log.Warn("user %d: playlist %s: %v", userID, link, err)
		b.reply(chatID, "❌ Could not read the playlist: "+err.Error())
		return
	}

	if _, err := b.manager.SubmitPlaylist(ctx, userID, chatID, parsed.Title, parsed.Tracks); err != nil {
		b.log.Warn("user %d: submit playlist %s: %v", userID, link, err)
		b.reply(chatID, submitErrorText(err))
		return
	}
	b.reply(chatID, queuedPlaylistText(parsed, b.playlists.MaxTracks()))
}

func (b *Bot) runSearch(ctx context.Context, userID, chatID int64, query string) {
	tracks, err := b.search.Search(ctx, model.SourceSoundCloud, query, platform.DefaultSearchResults)
	if err != nil {
		b.log.Warn("user %d: search %q: %v", userID, query, err)
		b.reply(chatID, "❌ Search failed, try again later.")
		return
	}
	if len(tracks) == 0 {
		b.reply(chatID, textNothingFound)
		return
	}
	b.results.put(userID, tracks)

	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(tracks))
	for i := range tracks {
		n := strconv.Itoa(i + 1)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(n, callbackDownload+n))
	}

	msg := tgbotapi.NewMessage(chatID, searchResultsText(query, tracks))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send search results to chat %d: %v", chatID, err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.From == nil || callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	userID, chatID := callback.From.ID, callback.Message.Chat.ID

	answer := ""
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, answer)); err != nil {
			b.log.Debug("answer callback: %v", err)
		}
	}()

	if !b.cfg.IsAllowed(userID) {
		answer = textNotAllowed
		return
	}

	n, ok := parseDownloadCallback(callback.Data)
	if !ok {
		return
	}
	track, ok := b.results.pick(userID, n)
	if !ok {
		answer = textResultsExpired
		return
	}

	answer = fmt.Sprintf("⏳ %s", track.DisplayTitle())
	b.submitTrack(ctx, userID, chatID, track)
}

// parseDownloadCallback parses "dl:<n>" with n >= 1
func parseDownloadCallback(data string) (int, bool) {
	rest, ok := strings.CutPrefix(data, callbackDownload)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
