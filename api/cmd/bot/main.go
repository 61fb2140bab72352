package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"drawcal/api/internal/calculator"
	"drawcal/api/internal/config"
	"drawcal/api/internal/httpserver"
	"drawcal/api/internal/logger"
	"drawcal/api/internal/ocr/gemini"
	"drawcal/api/internal/store"
	"drawcal/api/internal/telegram"
)

var configFile string

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "drawcal-bot",
		Short:         "Telegram front-end for the handwritten math calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("config.Load() > %w", err)
	}
	if err := cfg.Require(config.NeedGemini, config.NeedTelegram); err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// The database only backs /healthz here; the bot keeps chat variables in memory.
	var db *sqlx.DB
	if dsn := cfg.Database.DSN(); dsn != "" {
		db, err = store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(dsn)))
	}

	engine, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return err
	}
	defer engine.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	log.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	r := telegram.NewRouter(bot, calculator.NewAnalyzer(engine, log.Named("calculator")), log.Named("telegram"))
	r.Timeout = cfg.Server.RequestTimeout
	serverOpts := httpserver.Options{Logger: log.Named("http")}
	if db != nil {
		r.Health = db.PingContext
		serverOpts.DB = db
	}

	if webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL); webhookURL != "" {
		return runWebhook(ctx, cfg.Server.Addr, bot, r, webhookURL, serverOpts, log)
	}
	return runPolling(ctx, cfg.Server.Addr, bot, r, serverOpts, log)
}

func runWebhook(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, opts httpserver.Options, log *zap.Logger) error {
	path := telegram.WebhookPath(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	opts.Mount = map[string]http.Handler{"POST " + path: r.WebhookHandler(bot.HandleUpdate)}
	log.Info("webhook mode", zap.String("addr", addr), zap.String("path", path))
	return httpserver.Run(ctx, addr, httpserver.New(opts), log)
}

func runPolling(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, opts httpserver.Options, log *zap.Logger) error {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("delete webhook failed", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, addr, httpserver.New(opts), log)
	})
	g.Go(func() error {
		log.Info("polling mode", zap.String("health_addr", addr))
		r.Poll(ctx, bot)
		return nil
	})
	return g.Wait()
}
