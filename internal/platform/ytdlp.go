package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// NotAvailable is what yt-dlp prints for a missing template field
const NotAvailable = "NA"

// Runner executes a prepared yt-dlp command and returns its stdout.
// Tests replace it to feed canned output.
type Runner func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error)

// NewCommand returns a yt-dlp command with the options shared by every call
func NewCommand(proxy string) *ytdlp.Command {
	cmd := ytdlp.New().
		NoWarnings().
		IgnoreConfig()

	if proxy != "" {
		cmd.Proxy(proxy)
	}
	return cmd
}

// RunYTDLP runs cmd and folds the last stderr line into the error
func RunYTDLP(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
	res, err := cmd.Run(ctx, args...)
	if err != nil {
		if res != nil {
			if line := lastLine(res.Stderr); line != "" {
				return "", fmt.Errorf("yt-dlp: %s: %w", line, err)
			}
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	return res.Stdout, nil
}

// Field returns a printed template field, mapping "NA" to empty
func Field(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	v := strings.TrimSpace(parts[i])
	if v == NotAvailable {
		return ""
	}
	return v
}

// ParseSeconds converts a printed duration in seconds, possibly fractional
func ParseSeconds(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" || s == NotAvailable {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second)).Round(time.Second)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
