package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drawcal/api/internal/auth"
	"drawcal/api/internal/calculator"
	"drawcal/api/internal/config"
	"drawcal/api/internal/handle"
	"drawcal/api/internal/httpserver"
	"drawcal/api/internal/ocr/gemini"
	"drawcal/api/internal/store"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup(config.NeedGemini)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Auth.RequireForProcess {
		if err := cfg.Require(config.NeedDatabase, config.NeedAuth); err != nil {
			return fmt.Errorf("auth.require_for_process: %w", err)
		}
	}

	engine, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return err
	}
	defer engine.Close()

	handleOpts := handle.Options{
		Analyzer:       calculator.NewAnalyzer(engine, log.Named("calculator")),
		FrontendURL:    cfg.Auth.FrontendURL,
		SecureCookies:  cfg.Server.Env == "prod",
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         log.Named("handle"),
	}
	serverOpts := httpserver.Options{
		RequireAuth:    cfg.Auth.RequireForProcess,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log.Named("http"),
	}

	dsn := cfg.Database.DSN()
	if dsn != "" && cfg.Auth.SecretKey != "" {
		db, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(dsn)))

		if err := store.Migrate(ctx, db); err != nil {
			return err
		}

		issuer, err := auth.NewIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		handleOpts.Auth = auth.NewService(
			store.NewUserRepo(db),
			store.NewSessionRepo(db),
			issuer,
			cfg.Auth.AllowPasswordlessLogin,
			log.Named("auth"),
		)
		serverOpts.Auth = auth.Middleware(issuer, log.Named("auth"))
		serverOpts.DB = db

		if cfg.Auth.GoogleEnabled() {
			handleOpts.Google = auth.NewGoogle(cfg.Auth.Google)
			serverOpts.GoogleRoutes = true
		} else {
			log.Info("google login disabled: client id, secret or redirect url not set")
		}
	} else {
		log.Warn("auth routes disabled: database or SECRET_KEY not configured")
	}

	serverOpts.Handle = handle.New(handleOpts)

	log.Info("starting drawcal",
		zap.String("addr", cfg.Server.Addr),
		zap.String("env", cfg.Server.Env),
		zap.String("model", engine.GetModel()),
	)
	return httpserver.Run(ctx, cfg.Server.Addr, httpserver.New(serverOpts), log)
}
