package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Audio formats accepted by the fetch service
type AudioFormat string

const (
	AudioMP3  AudioFormat = "mp3"
	AudioM4A  AudioFormat = "m4a"
	AudioOpus AudioFormat = "opus"
)

// Default values
const (
	DefaultMaxParallel       = 5
	MinMaxParallel           = 1
	MaxMaxParallel           = 20
	DefaultProgressInterval  = 3 * time.Second
	DefaultCancelSettleDelay = 200 * time.Millisecond
	DefaultMaxPlaylistTracks = 100
	DefaultFetchWorkers      = 4
	DefaultAudioFormat       = AudioMP3
	DefaultMaxDuration       = 30 * time.Minute
	DefaultHandlerLimit      = 10
	DefaultUploadLimitMB     = 50
	DefaultAPIAddr           = ":8080"
	EnvPrefix                = "YTMB"
)

type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Bot      BotConfig      `mapstructure:"bot" yaml:"bot"`
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type DownloadConfig struct {
	MaxParallel       int           `mapstructure:"max_parallel" yaml:"max_parallel"`
	TempDir           string        `mapstructure:"temp_dir" yaml:"temp_dir"`
	ProgressInterval  time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
	CancelSettleDelay time.Duration `mapstructure:"cancel_settle_delay" yaml:"cancel_settle_delay"`
	MaxPlaylistTracks int           `mapstructure:"max_playlist_tracks" yaml:"max_playlist_tracks"`
}

type FetchConfig struct {
	Workers     int           `mapstructure:"workers" yaml:"workers"`
	AudioFormat AudioFormat   `mapstructure:"audio_format" yaml:"audio_format"`
	MaxDuration time.Duration `mapstructure:"max_duration" yaml:"max_duration"`
}

type BotConfig struct {
	HandlerConcurrency int     `mapstructure:"handler_concurrency" yaml:"handler_concurrency"`
	AllowedUsers       []int64 `mapstructure:"allowed_users" yaml:"allowed_users"`
	UploadLimitMB      int     `mapstructure:"upload_limit_mb" yaml:"upload_limit_mb"`
	Debug              bool    `mapstructure:"debug" yaml:"debug"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

// Load reads the YAML file at path (optional when empty) and overlays
// YTMB_* environment variables on top of defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}

		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download.max_parallel", DefaultMaxParallel)
	v.SetDefault("download.temp_dir", os.TempDir())
	v.SetDefault("download.progress_interval", DefaultProgressInterval)
	v.SetDefault("download.cancel_settle_delay", DefaultCancelSettleDelay)
	v.SetDefault("download.max_playlist_tracks", DefaultMaxPlaylistTracks)
	v.SetDefault("fetch.workers", DefaultFetchWorkers)
	v.SetDefault("fetch.audio_format", string(DefaultAudioFormat))
	v.SetDefault("fetch.max_duration", DefaultMaxDuration)
	v.SetDefault("bot.handler_concurrency", DefaultHandlerLimit)
	v.SetDefault("bot.upload_limit_mb", DefaultUploadLimitMB)
	v.SetDefault("bot.debug", false)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.addr", DefaultAPIAddr)
	v.SetDefault("log.path", "yt-music-bot.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
}

func (c *Config) validate() error {
	c.Download.MaxParallel = ClampMaxParallel(c.Download.MaxParallel)

	if c.Download.TempDir == "" {
		c.Download.TempDir = os.TempDir()
	}

	if c.Download.ProgressInterval < 0 {
		return errors.New("download.progress_interval must not be negative")
	}

	if c.Download.MaxPlaylistTracks <= 0 {
		c.Download.MaxPlaylistTracks = DefaultMaxPlaylistTracks
	}

	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = DefaultFetchWorkers
	}

	switch c.Fetch.AudioFormat {
	case AudioMP3, AudioM4A, AudioOpus:
	case "":
		c.Fetch.AudioFormat = DefaultAudioFormat
	default:
		return fmt.Errorf("fetch.audio_format %q is not supported", c.Fetch.AudioFormat)
	}

	if c.Bot.HandlerConcurrency <= 0 {
		c.Bot.HandlerConcurrency = DefaultHandlerLimit
	}

	if c.Bot.UploadLimitMB <= 0 {
		c.Bot.UploadLimitMB = DefaultUploadLimitMB
	}

	if c.API.Enabled && c.API.Addr == "" {
		c.API.Addr = DefaultAPIAddr
	}

	return nil
}

// ClampMaxParallel keeps the per-user slot count within supported bounds
func ClampMaxParallel(count int) int {
	if count == 0 {
		return DefaultMaxParallel
	}
	if count < MinMaxParallel {
		return MinMaxParallel
	}
	if count > MaxMaxParallel {
		return MaxMaxParallel
	}
	return count
}

// UploadLimitBytes returns the bot upload cap in bytes
func (b BotConfig) UploadLimitBytes() int64 {
	return int64(b.UploadLimitMB) * 1024 * 1024
}

// IsAllowed reports whether userID may use the bot; an empty list allows everyone
func (b BotConfig) IsAllowed(userID int64) bool {
	if len(b.AllowedUsers) == 0 {
		return true
	}
	for _, id := range b.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
