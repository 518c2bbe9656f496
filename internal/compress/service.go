package compress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/platform"
)

// FFmpeg constants for re-encoding settings
const (
	AudioCodec       = "libmp3lame"
	MinBitrateKbps   = 32
	MaxBitrateKbps   = 320
	SizeSafetyFactor = 0.95 // container overhead and VBR drift

	// Output suffix
	CompressedSuffix   = "-compressed"
	OutputExtensionMP3 = ".mp3"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
)

// ErrCannotFit means even the lowest bitrate would exceed the limit
var ErrCannotFit = errors.New("audio cannot be shrunk below the upload limit")

// Service re-encodes oversize audio with ffmpeg
type Service struct {
	log    *logger.Logger
	probe  func(ctx context.Context, path string) (float64, error)
	encode func(ctx context.Context, args []string, duration float64) error
}

var _ Shrinker = (*Service)(nil)

// NewService creates a new compression service
func NewService(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{log: log.With("compress")}
	s.probe = s.getAudioDuration
	s.encode = s.runFFmpeg
	return s
}

// Shrink re-encodes inputPath at the highest bitrate that fits limitBytes
func (s *Service) Shrink(ctx context.Context, inputPath string, limitBytes int64) (string, error) {
	size, err := platform.FileSize(inputPath)
	if err != nil {
		return "", fmt.Errorf("input file does not exist: %w", err)
	}
	if limitBytes <= 0 || size <= limitBytes {
		return inputPath, nil
	}

	duration, err := s.probe(ctx, inputPath)
	if err != nil {
		return "", err
	}
	kbps, err := TargetBitrate(duration, limitBytes)
	if err != nil {
		return "", err
	}

	outputPath := generateOutputPath(inputPath)
	s.log.Info("Shrinking %s (%d bytes) to %dk", filepath.Base(inputPath), size, kbps)

	if err := s.encode(ctx, s.BuildFFmpegArgs(inputPath, outputPath, kbps), duration); err != nil {
		s.discard(outputPath)
		return "", fmt.Errorf("ffmpeg: %w", err)
	}

	outSize, err := platform.FileSize(outputPath)
	if err != nil {
		return "", fmt.Errorf("compressed file missing: %w", err)
	}
	if outSize > limitBytes {
		s.discard(outputPath)
		return "", fmt.Errorf("%w: %d bytes at %dk", ErrCannotFit, outSize, kbps)
	}
	return outputPath, nil
}

// discard removes a partial or oversized output
func (s *Service) discard(path string) {
	if err := platform.RemoveQuietly(path); err != nil {
		s.log.Warn("remove %s: %v", path, err)
	}
}

// TargetBitrate returns the bitrate in kbps that fits duration seconds into limitBytes
func TargetBitrate(duration float64, limitBytes int64) (int, error) {
	if duration <= 0 {
		return 0, fmt.Errorf("unknown duration")
	}

	kbps := int(float64(limitBytes) * 8 * SizeSafetyFactor / duration / 1000)
	if kbps < MinBitrateKbps {
		return 0, fmt.Errorf("%w: %.0fs needs %dk", ErrCannotFit, duration, kbps)
	}
	return min(kbps, MaxBitrateKbps), nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func (s *Service) BuildFFmpegArgs(inputPath, outputPath string, kbps int) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", inputPath, // Input file
		"-vn",                 // Drop cover art streams
		"-map_metadata", "0", // Keep tags
		"-c:a", AudioCodec, // Audio codec
		"-b:a", strconv.Itoa(kbps) + "k", // Audio bitrate
		"-progress", ProgressPipeTarget, // Progress to stderr
		"-nostats",  // No stats output
		outputPath, // Output file
	}
}

// getAudioDuration gets the duration of an audio file using ffprobe
func (s *Service) getAudioDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, FFprobeCommand, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

func (s *Service) runFFmpeg(ctx context.Context, args []string, duration float64) error {
	cmd := exec.CommandContext(ctx, FFmpegCommand, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.monitorProgress(stderr, duration)
	return cmd.Wait()
}

// monitorProgress logs ffmpeg progress output until the pipe closes
func (s *Service) monitorProgress(stderr io.Reader, totalDuration float64) {
	scanner := bufio.NewScanner(stderr)
	lastPercent := -1

	for scanner.Scan() {
		progress, ok := parseProgressLine(scanner.Text(), totalDuration)
		if !ok {
			continue
		}
		if percent := int(progress * 100); percent/25 != lastPercent/25 {
			lastPercent = percent
			s.log.Debug("ffmpeg: %d%%", percent)
		}
	}
}

// parseProgressLine parses "out_time_us=123456" into a 0..1 fraction
func parseProgressLine(line string, totalDuration float64) (float64, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ProgressTimePrefix) || totalDuration <= 0 {
		return 0, false
	}

	timeMicroseconds, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil {
		return 0, false
	}

	progress := float64(timeMicroseconds) / 1000000.0 / totalDuration
	return min(max(progress, 0), 1), true
}

// generateOutputPath generates the output path for compressed file
func generateOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	baseName := strings.TrimSuffix(inputPath, ext)
	return baseName + CompressedSuffix + OutputExtensionMP3
}
