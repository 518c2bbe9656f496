package download

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ytget/yt-music-bot/internal/model"
)

func downloadingText(track model.Track) string {
	return "⏳ Downloading: " + track.DisplayTitle()
}

func failureText(track model.Track, err error) string {
	return fmt.Sprintf("❌ Could not download %s: %s", track.DisplayTitle(), reason(err))
}

func progressText(pl *model.PlaylistDownload) string {
	title := pl.Title
	if title == "" {
		title = "Playlist"
	}
	text := fmt.Sprintf("📥 %s: %d/%d downloaded", title, pl.CompletedTracks, pl.TotalTracks)
	if pl.FailedTracks > 0 {
		text += fmt.Sprintf(", %d failed", pl.FailedTracks)
	}
	return text
}

func summaryText(pl *model.PlaylistDownload, delivered, failed int) string {
	title := pl.Title
	if title == "" {
		title = "Playlist"
	}
	if delivered == 0 {
		return fmt.Sprintf("❌ %s: nothing could be delivered, %d of %d tracks failed.", title, failed, pl.TotalTracks)
	}
	text := fmt.Sprintf("✅ %s: delivered %d of %d tracks", title, delivered, pl.TotalTracks)
	if failed > 0 {
		text += fmt.Sprintf(", %d failed", failed)
	}
	return text + "."
}

// reason unwraps coordinator wrappers so the chat sees the fetcher's message
func reason(err error) string {
	msg := err.Error()
	var (
		fe *FetchError
		de *DeliveryError
	)
	switch {
	case errors.As(err, &fe):
		msg = fe.Err.Error()
	case errors.As(err, &de):
		msg = de.Err.Error()
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
