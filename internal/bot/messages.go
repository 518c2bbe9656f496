package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ytget/yt-music-bot/internal/download"
	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

const helpText = `🎵 Send me a link to a track or a playlist and I will send back the audio.

Supported: SoundCloud, VK, YouTube and most sites yt-dlp understands.
Any other text is searched on SoundCloud.

/search <query> - search SoundCloud
/status - what is downloading right now
/cancel - stop all your downloads
/help - this message`

const (
	textNotAllowed     = "⛔ Sorry, this bot is private."
	textUnknownCommand = "Unknown command. Try /help."
	textSearchUsage    = "Usage: /search <artist or title>"
	textNothingFound   = "🔍 Nothing found."
	textResultsExpired = "These search results have expired, search again."
	textReadingList    = "🔍 Reading playlist..."
	textIdle           = "💤 Nothing is downloading."
)

// submitErrorText maps admission errors to user-facing replies
func submitErrorText(err error) string {
	var capErr *download.CapacityExceededError
	switch {
	case errors.Is(err, download.ErrDuplicateRequest):
		return "⚠️ This track is already downloading or queued."
	case errors.As(err, &capErr):
		return fmt.Sprintf("⏳ You already have %d of %d downloads running. Wait for one to finish or /cancel.", capErr.Active, capErr.Limit)
	case errors.Is(err, platform.ErrInvalidURL):
		return "❌ That does not look like a link."
	default:
		return "❌ " + err.Error()
	}
}

// isRejection reports errors caused by the request rather than the bot
func isRejection(err error) bool {
	return errors.Is(err, download.ErrDuplicateRequest) ||
		errors.Is(err, download.ErrCapacityExceeded) ||
		errors.Is(err, platform.ErrInvalidURL)
}

func queuedPlaylistText(parsed *platform.ParsedPlaylist, limit int) string {
	text := fmt.Sprintf("📃 %s: %d tracks queued.", parsed.Title, len(parsed.Tracks))
	if parsed.Truncated {
		text += fmt.Sprintf(" Only the first %d are downloaded.", limit)
	}
	return text
}

func statusText(snap download.UserSnapshot) string {
	if snap.Idle() {
		return textIdle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Active: %d/%d, queued: %d\n", snap.Active, snap.Limit, snap.Queued)
	for _, task := range snap.Tasks {
		fmt.Fprintf(&b, "• %s (%s)\n", task.Title, strings.ToLower(task.Status.String()))
	}
	for _, pl := range snap.Playlists {
		fmt.Fprintf(&b, "📃 %s: %d/%d", pl.Title, pl.Completed, pl.Total)
		if pl.Failed > 0 {
			fmt.Fprintf(&b, ", %d failed", pl.Failed)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func searchResultsText(query string, tracks []model.Track) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Results for %q:\n", query)
	for i, tr := range tracks {
		fmt.Fprintf(&b, "%d. %s", i+1, tr.DisplayTitle())
		if tr.Duration > 0 {
			fmt.Fprintf(&b, " [%s]", platform.FormatDuration(tr.Duration))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
