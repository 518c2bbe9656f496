package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/ytget/yt-music-bot/internal/api"
	"github.com/ytget/yt-music-bot/internal/bot"
	"github.com/ytget/yt-music-bot/internal/compress"
	"github.com/ytget/yt-music-bot/internal/config"
	"github.com/ytget/yt-music-bot/internal/download"
	"github.com/ytget/yt-music-bot/internal/fetch"
	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	configPath string
	envFile    string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "optional .env file with secrets")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	secrets, err := config.LoadSecrets(opts.envFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	disabled, err := platform.ValidateDependencies()
	if err != nil {
		return err
	}
	for _, feature := range disabled {
		log.Warn("Disabled: %s", feature)
	}

	if err := platform.CreateDirectoryIfNotExists(cfg.Download.TempDir); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	if err := tgbotapi.SetLogger(log.With("telegram")); err != nil {
		return err
	}
	tg, err := tgbotapi.NewBotAPI(secrets.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	tg.Debug = cfg.Bot.Debug
	log.Info("Authorized as @%s", tg.Self.UserName)

	var shrinker compress.Shrinker
	if len(disabled) == 0 {
		shrinker = compress.NewService(log)
	}
	messenger := bot.NewMessenger(tg, shrinker, cfg.Bot.UploadLimitBytes(), log)

	fetcher, err := fetch.NewService(fetch.Options{
		TempDir: cfg.Download.TempDir,
		Workers: cfg.Fetch.Workers,
		Proxy:   secrets.YtdlpProxy,
	}, log)
	if err != nil {
		return err
	}

	coordinator := download.NewCoordinator(fetcher, messenger, messenger, log, download.Options{
		MaxParallel:       cfg.Download.MaxParallel,
		ProgressInterval:  cfg.Download.ProgressInterval,
		CancelSettleDelay: cfg.Download.CancelSettleDelay,
		Fetch: model.FetchOptions{
			AudioFormat: string(cfg.Fetch.AudioFormat),
			MaxDuration: cfg.Fetch.MaxDuration,
		},
	})
	defer coordinator.Close()

	playlists := platform.NewPlaylistParserService(secrets.YtdlpProxy, cfg.Download.MaxPlaylistTracks)
	search := platform.NewSearchService(secrets.YtdlpProxy)
	b := bot.New(tg, messenger, coordinator, playlists, search, cfg.Bot, log)

	if cfg.API.Enabled {
		srv := &http.Server{
			Addr:              cfg.API.Addr,
			Handler:           api.NewServer(coordinator, coordinator.MaxParallel(), log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Status API listening on %s", cfg.API.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Status API stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("Status API shutdown: %v", err)
			}
		}()
	}

	log.Info("Bot started, max %d parallel downloads per user", coordinator.MaxParallel())
	err = b.Run(ctx)
	log.Info("Shutting down")
	return err
}
