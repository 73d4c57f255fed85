package main

import (
	"context"
	"database/sql"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/config"
	"field-route-service/internal/platform/db"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found (using environment variables)")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL, dbPath string

	rootCmd := &cobra.Command{
		Use:          "dbtool",
		Short:        "Schema and seed management for the route store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", config.Get("DATABASE_URL", ""), "Postgres URL; SQLite is used when empty")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", config.Get("DB_PATH", "data/app.db"), "SQLite file path")

	open := func() (*sql.DB, db.Dialect, error) {
		return db.Connect(databaseURL, dbPath)
	}

	rootCmd.AddCommand(
		newMigrateCommand(open),
		newSeedCommand(open),
	)
	return rootCmd
}

type opener func() (*sql.DB, db.Dialect, error)

func newMigrateCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Args:  cobra.NoArgs,
		Short: "Create tables and indexes if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, dialect, err := open()
			if err != nil {
				return err
			}
			defer conn.Close()

			return migrate(cmd.Context(), conn, dialect)
		},
	}
}

func newSeedCommand(open opener) *cobra.Command {
	var seedPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Args:  cobra.NoArgs,
		Short: "Migrate, then upsert clients, workers and jobs from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, dialect, err := open()
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			if err := migrate(ctx, conn, dialect); err != nil {
				return err
			}

			logrus.WithField("path", seedPath).Info("Seeding database...")
			if err := repositories.SeedFromJSON(ctx, conn, dialect, seedPath); err != nil {
				logrus.WithError(err).Error("seeding failed")
				return err
			}
			logrus.Info("Seeding complete.")
			return nil
		},
	}
	cmd.Flags().StringVar(&seedPath, "file", config.Get("SEED_PATH", "data/seeds/fieldservice.json"), "seed JSON file")
	return cmd
}

func migrate(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	logrus.WithField("store", dialect.String()).Info("Initializing database schema...")
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		logrus.WithError(err).Error("schema initialization failed")
		return err
	}
	logrus.Info("Schema ready.")
	return nil
}
