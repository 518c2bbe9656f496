package compress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeFile(t *testing.T, size int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

func TestGenerateOutputPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/tmp/a/track.mp3", "/tmp/a/track-compressed.mp3"},
		{"/tmp/a/track.m4a", "/tmp/a/track-compressed.mp3"},
		{"/tmp/a/track", "/tmp/a/track-compressed.mp3"},
	}

	for _, tt := range tests {
		if got := generateOutputPath(tt.input); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	s := NewService(nil)
	args := s.BuildFFmpegArgs("in.mp3", "out.mp3", 128)

	joined := strings.Join(args, " ")
	for _, want := range []string{"-i in.mp3", "-c:a " + AudioCodec, "-b:a 128k", "-vn"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q, got %s", want, joined)
		}
	}
	if args[len(args)-1] != "out.mp3" {
		t.Errorf("Expected output path last, got %s", args[len(args)-1])
	}
}

func TestTargetBitrate(t *testing.T) {
	const fiftyMB = 50 * 1024 * 1024

	tests := []struct {
		name     string
		duration float64
		limit    int64
		want     int
		wantErr  bool
	}{
		{"short track capped at max", 180, fiftyMB, MaxBitrateKbps, false},
		{"hour long mix", 3600, fiftyMB, 110, false},
		{"too long", 20 * 3600, fiftyMB, 0, true},
		{"unknown duration", 0, fiftyMB, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetBitrate(tt.duration, tt.limit)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestShrink_FitsAlready(t *testing.T) {
	s := NewService(nil)
	s.probe = func(context.Context, string) (float64, error) {
		t.Fatal("Expected no probe for a file under the limit")
		return 0, nil
	}

	input := writeFile(t, 100)
	got, err := s.Shrink(context.Background(), input, 1000)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != input {
		t.Errorf("Expected input path back, got %s", got)
	}
}

func TestShrink_ReEncodes(t *testing.T) {
	s := NewService(nil)
	s.probe = func(context.Context, string) (float64, error) { return 0.1, nil }

	var gotArgs []string
	s.encode = func(_ context.Context, args []string, _ float64) error {
		gotArgs = args
		return os.WriteFile(args[len(args)-1], make([]byte, 500), 0o644)
	}

	// 4000 bytes over 0.1s at the safety factor gives 304 kbps
	input := writeFile(t, 5000)
	out, err := s.Shrink(context.Background(), input, 4000)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != generateOutputPath(input) {
		t.Errorf("Expected %s, got %s", generateOutputPath(input), out)
	}
	if len(gotArgs) == 0 {
		t.Fatal("Expected ffmpeg to be invoked")
	}
	if !slices.Contains(gotArgs, "304k") {
		t.Errorf("Expected bitrate 304k in %v", gotArgs)
	}
}

func TestShrink_EncodeFailureRemovesOutput(t *testing.T) {
	s := NewService(nil)
	s.probe = func(context.Context, string) (float64, error) { return 0.1, nil }
	encoded := false
	s.encode = func(_ context.Context, args []string, _ float64) error {
		encoded = true
		os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		return errors.New("exit status 1")
	}

	input := writeFile(t, 5000)
	if _, err := s.Shrink(context.Background(), input, 4000); err == nil {
		t.Fatal("Expected error")
	}
	if !encoded {
		t.Fatal("Expected ffmpeg to be invoked")
	}
	if _, err := os.Stat(generateOutputPath(input)); !os.IsNotExist(err) {
		t.Error("Expected partial output to be removed")
	}
}

func TestShrink_StillTooBig(t *testing.T) {
	s := NewService(nil)
	s.probe = func(context.Context, string) (float64, error) { return 10, nil }
	s.encode = func(_ context.Context, args []string, _ float64) error {
		return os.WriteFile(args[len(args)-1], make([]byte, 2_000_000), 0o644)
	}

	input := writeFile(t, 5_000_000)
	if _, err := s.Shrink(context.Background(), input, 1_000_000); !errors.Is(err, ErrCannotFit) {
		t.Errorf("Expected ErrCannotFit, got %v", err)
	}
	if _, err := os.Stat(generateOutputPath(input)); !os.IsNotExist(err) {
		t.Error("Expected oversized output to be removed")
	}
}

func TestShrink_MissingInput(t *testing.T) {
	s := NewService(nil)
	if _, err := s.Shrink(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), 10); err == nil {
		t.Error("Expected error for a missing input")
	}
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line   string
		total  float64
		want   float64
		wantOK bool
	}{
		{"out_time_us=5000000", 10, 0.5, true},
		{"out_time_us=20000000", 10, 1, true},
		{"out_time_us=abc", 10, 0, false},
		{"frame=10", 10, 0, false},
		{"out_time_us=5000000", 0, 0, false},
	}

	for _, tt := range tests {
		got, ok := parseProgressLine(tt.line, tt.total)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Expected (%v, %v), got (%v, %v) for %q", tt.want, tt.wantOK, got, ok, tt.line)
		}
	}
}
