package main

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drawcal/api/internal/config"
	"drawcal/api/internal/store"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users and sessions tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, log *zap.Logger, db *sqlx.DB) error {
				if err := store.Migrate(ctx, db); err != nil {
					return err
				}
				log.Info("schema applied")
				return nil
			})
		},
	}
}

func newSessionsCommand() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance",
	}

	var olderThan time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired and logged-out sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be > 0")
			}
			return withDB(cmd.Context(), func(ctx context.Context, log *zap.Logger, db *sqlx.DB) error {
				n, err := store.NewSessionRepo(db).PurgeOlderThan(ctx, olderThan)
				if err != nil {
					return err
				}
				log.Info("sessions purged", zap.Int64("deleted", n), zap.Duration("older_than", olderThan))
				cmd.Printf("deleted %d sessions\n", n)
				return nil
			})
		},
	}
	purgeCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "purge sessions that ended before now minus this duration")
	sessionsCmd.AddCommand(purgeCmd)

	return sessionsCmd
}

func withDB(ctx context.Context, fn func(ctx context.Context, log *zap.Logger, db *sqlx.DB) error) error {
	cfg, log, err := setup(config.NeedDatabase)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(cfg.Database.DSN())))

	return fn(ctx, log, db)
}
