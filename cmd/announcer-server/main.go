// Package main provides the announcer server executable: a REST API for
// rule preferences and event ingestion, plus schema migrations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/coregx/announcer/adapters/zaplog"
	"github.com/coregx/announcer/cmd/announcer-server/internal/config"
	"github.com/coregx/announcer/migrator"
)

var (
	configFile string
	migrateUp  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "announcer-server",
		Short: "Rule driven notification dispatcher",
		Long:  "Announcer server evaluates subscriber rules for ticket and wiki events and hands announcements to distributors",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "Path to config file (optional)")

	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger, err := zaplog.New(cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					logger.Warnf("Failed to close database: error=%v", closeErr)
				}
			}()

			if migrateUp {
				if err := migrator.Up(db, cfg.Database.Driver); err != nil {
					return err
				}
				logger.Infof("Schema up to date: driver=%s", cfg.Database.Driver)
			}

			a, err := newApp(cfg, db, logger)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      a.handler,
				ReadTimeout:  cfg.Server.ReadTimeout(),
				WriteTimeout: cfg.Server.WriteTimeout(),
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Infof("HTTP server listening: addr=%s, driver=%s, distributors=%v",
					server.Addr, cfg.Database.Driver, cfg.Announcer.Distributors)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errCh:
				return fmt.Errorf("failed to start server: %w", err)
			}

			logger.Infof("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warnf("Server forced to shutdown: error=%v", err)
			}
			logger.Infof("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	run := func(action func(db *sql.DB, driver string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return action(db, cfg.Database.Driver)
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run(migrator.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE:  run(migrator.Down),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: run(func(db *sql.DB, driver string) error {
				version, dirty, err := migrator.Version(db, driver)
				if err != nil {
					return err
				}
				fmt.Printf("version=%d dirty=%t\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
