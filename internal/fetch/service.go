package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/semaphore"

	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

// Defaults and yt-dlp templates
const (
	DefaultWorkers     = 4
	DefaultAudioFormat = "mp3"
	AudioQualityBest   = "0"
	MaxRetries         = 1
	RetryBackoff       = 2 * time.Second
	ProgressInterval   = 2 * time.Second
	OutputTemplate     = "%(title).80B [%(id)s].%(ext)s"
	AfterMoveTemplate  = "after_move:%(filepath)s\t%(title)s\t%(artist,uploader)s\t%(duration)s"
	FetchDirPattern    = "fetch-*"
)

var (
	// ErrTooLong is returned for tracks above the configured maximum duration
	ErrTooLong = errors.New("track is too long")

	// ErrNoOutput means yt-dlp finished without reporting a file
	ErrNoOutput = errors.New("yt-dlp produced no file")
)

// Options configure the fetch service
type Options struct {
	TempDir string
	Workers int
	Proxy   string
}

// Service downloads single tracks as audio files with yt-dlp.
// Each fetch gets its own scratch directory; the caller owns it afterwards.
type Service struct {
	tempDir string
	proxy   string
	sem     *semaphore.Weighted
	backoff time.Duration
	run     platform.Runner
	log     *logger.Logger
}

// NewService creates a fetch service limited to opts.Workers concurrent yt-dlp processes
func NewService(opts Options, log *logger.Logger) (*Service, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	tempDir, err := filepath.Abs(opts.TempDir)
	if err != nil {
		return nil, fmt.Errorf("resolve temp dir: %w", err)
	}
	if err := platform.CreateDirectoryIfNotExists(tempDir); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Service{
		tempDir: tempDir,
		proxy:   opts.Proxy,
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
		backoff: RetryBackoff,
		run:     platform.RunYTDLP,
		log:     log.With("fetch"),
	}, nil
}

// Fetch downloads url and converts it to opts.AudioFormat. On success the
// result points into a fresh directory that the caller must remove.
func (s *Service) Fetch(ctx context.Context, url string, opts model.FetchOptions) (*model.FetchResult, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	dir, err := os.MkdirTemp(s.tempDir, FetchDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create fetch dir: %w", err)
	}
	keep := false
	defer func() {
		if !keep {
			os.RemoveAll(dir)
		}
	}()

	out, err := s.downloadWithRetry(ctx, dir, url, opts)
	if err != nil {
		return nil, err
	}

	res, err := ParseAfterMove(out)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(filepath.Clean(res.FilePath), filepath.Clean(dir)) {
		return nil, fmt.Errorf("unexpected output location %s", res.FilePath)
	}
	if _, err := os.Stat(res.FilePath); err != nil {
		return nil, fmt.Errorf("downloaded file missing: %w", err)
	}
	if opts.MaxDuration > 0 && res.Duration > opts.MaxDuration {
		return nil, fmt.Errorf("%w: %s, limit %s", ErrTooLong,
			platform.FormatDuration(res.Duration), platform.FormatDuration(opts.MaxDuration))
	}

	res.Dir = dir
	keep = true
	s.log.Debug("fetched %s -> %s", url, res.FilePath)
	return res, nil
}

// downloadWithRetry attempts download with retry logic
func (s *Service) downloadWithRetry(ctx context.Context, dir, url string, opts model.FetchOptions) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			s.log.Info("Retrying %s, attempt %d", url, attempt+1)
		}

		out, err := s.run(ctx, s.command(dir, url, opts), url)
		if err == nil {
			return out, nil
		}

		lastErr = err
		s.log.Warn("Download attempt %d failed for %s: %v", attempt+1, url, err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

func (s *Service) command(dir, url string, opts model.FetchOptions) *ytdlp.Command {
	format := opts.AudioFormat
	if format == "" {
		format = DefaultAudioFormat
	}

	cmd := platform.NewCommand(s.proxy).
		NoPlaylist().
		ExtractAudio().
		AudioFormat(format).
		AudioQuality(AudioQualityBest).
		RestrictFilenames().
		ForceOverwrites().
		Output(filepath.Join(dir, OutputTemplate)).
		Print(AfterMoveTemplate).
		NoSimulate()

	cmd.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
			s.log.Debug("%s: %.0f%%", url, percent)
		}
	})
	return cmd
}

// ParseAfterMove extracts the result from the AfterMoveTemplate line.
// The last matching line wins.
func ParseAfterMove(output string) (*model.FetchResult, error) {
	var res *model.FetchResult

	for _, line := range strings.Split(output, "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 4 {
			continue
		}
		path := platform.Field(parts, 0)
		if path == "" || !filepath.IsAbs(path) {
			continue
		}
		res = &model.FetchResult{
			FilePath: path,
			Title:    platform.Field(parts, 1),
			Artist:   platform.Field(parts, 2),
			Duration: platform.ParseSeconds(platform.Field(parts, 3)),
		}
	}

	if res == nil {
		return nil, ErrNoOutput
	}
	return res, nil
}
