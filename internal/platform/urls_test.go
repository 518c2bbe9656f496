package platform

import (
	"errors"
	"testing"

	"github.com/ytget/yt-music-bot/internal/model"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		source model.Source
		kind   Kind
	}{
		{"soundcloud track", "https://soundcloud.com/artist/song", model.SourceSoundCloud, KindSingle},
		{"soundcloud set", "https://soundcloud.com/artist/sets/album", model.SourceSoundCloud, KindPlaylist},
		{"soundcloud mobile", "https://m.soundcloud.com/artist/song", model.SourceSoundCloud, KindSingle},
		{"vk audio", "https://vk.com/audio-2001_123", model.SourceVK, KindSingle},
		{"vk playlist", "https://vk.com/music/playlist/-2000_1_abc", model.SourceVK, KindPlaylist},
		{"vk album", "https://vk.com/music/album/-2000_2", model.SourceVK, KindPlaylist},
		{"vk audio_playlist", "https://vk.com/audio_playlist-2000_3", model.SourceVK, KindPlaylist},
		{"vk z param", "https://vk.com/audios1?z=audio_playlist1_2", model.SourceVK, KindPlaylist},
		{"youtube video", "https://www.youtube.com/watch?v=abc", model.SourceYouTube, KindSingle},
		{"youtube playlist", "https://www.youtube.com/playlist?list=PL123", model.SourceYouTube, KindPlaylist},
		{"youtube video in list", "https://www.youtube.com/watch?v=abc&list=PL123&index=2", model.SourceYouTube, KindPlaylist},
		{"youtube empty list", "https://www.youtube.com/watch?v=abc&list=", model.SourceYouTube, KindSingle},
		{"youtu.be", "https://youtu.be/abc", model.SourceYouTube, KindSingle},
		{"youtube music", "https://music.youtube.com/watch?v=abc", model.SourceYouTube, KindSingle},
		{"generic", "https://example.com/track.mp3", model.SourceGeneric, KindSingle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, kind, err := ClassifyURL(tt.url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if source != tt.source {
				t.Errorf("expected source %s, got %s", tt.source, source)
			}
			if kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, kind)
			}
		})
	}
}

func TestClassifyURL_Invalid(t *testing.T) {
	for _, raw := range []string{"", "hello", "ftp://example.com/a", "https://", "soundcloud.com/a/b"} {
		if _, _, err := ClassifyURL(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL for %q, got %v", raw, err)
		}
	}
}

func TestExtractURL(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"https://soundcloud.com/a/b", "https://soundcloud.com/a/b"},
		{"check this https://soundcloud.com/a/b out", "https://soundcloud.com/a/b"},
		{"(https://vk.com/audio1_2).", "https://vk.com/audio1_2"},
		{"(https://soundcloud.com/a/b)", "https://soundcloud.com/a/b"},
		{"<https://vk.com/audio1_2>", "https://vk.com/audio1_2"},
		{"\"https://youtu.be/x\"", "https://youtu.be/x"},
		{"link:http://example.com/t.mp3", "http://example.com/t.mp3"},
		{"HTTPS://YOUTU.BE/x", "HTTPS://YOUTU.BE/x"},
		{"just words", ""},
	}

	for _, tt := range tests {
		if got := ExtractURL(tt.text); got != tt.expected {
			t.Errorf("expected %q, got %q for %q", tt.expected, got, tt.text)
		}
	}
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expected    string
		expectError bool
	}{
		{"playlist page", "https://www.youtube.com/playlist?list=PLxyz", "PLxyz", false},
		{"watch with radio", "https://www.youtube.com/watch?v=VIDEO_ID&list=RDabc&start_radio=1", "RDabc", false},
		{"no list", "https://www.youtube.com/watch?v=VIDEO_ID", "", true},
		{"empty list", "https://www.youtube.com/watch?v=VIDEO_ID&list=", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := extractPlaylistID(tt.url)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got id %q", id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, id)
			}
		})
	}
}
