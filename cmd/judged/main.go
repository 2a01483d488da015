package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/judging/internal/config"
	"github.com/mind-engage/judging/internal/db"
	"github.com/mind-engage/judging/internal/judging"
	"github.com/mind-engage/judging/internal/storage"
)

// getConfig loads the env file named by --env-file and applies flag
// overrides on top of the environment.
func getConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return config.Config{}, err
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg := config.FromEnv()
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.HTTPAddr = f.Value.String()
	}
	return cfg, nil
}

// openService opens the database and builds the judging service on top of
// it. The caller closes the returned handle.
func openService(ctx context.Context, cfg config.Config) (*judging.Service, *sql.DB, error) {
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, nil, err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		_ = dbh.Close()
		return nil, nil, fmt.Errorf("blob store: %w", err)
	}
	svc := judging.NewService(judging.NewSQLStore(dbh),
		judging.WithPanelRules(judging.PanelRules{
			MinEvaluators: cfg.MinPanelEvaluators,
			MinProjects:   cfg.MinPanelProjects,
		}),
		judging.WithOverlapBlocking(cfg.PanelOverlap == config.OverlapBlock),
		judging.WithBcryptCost(cfg.BcryptCost),
		judging.WithBackups(blobs),
		judging.WithLogger(slog.Default()),
	)
	return svc, dbh, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "judged",
		Short:         "Event judging server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveMain,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "KEY=VALUE file loaded before reading the environment")
	rootCmd.PersistentFlags().String("addr", "", "listen address (overrides HTTP_ADDR)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API",
		RunE:  serveMain,
	})

	resetCmd := &cobra.Command{
		Use:   "reset-finalization",
		Short: "Reopens finalized evaluators so they can edit scores again",
		RunE:  resetFinalizationMain,
	}
	resetCmd.Flags().String("evaluator", "", "evaluator id to reopen (default: all)")
	rootCmd.AddCommand(resetCmd)

	exportCmd := &cobra.Command{
		Use:   "export-scores",
		Short: "Writes the detailed score table as CSV",
		RunE:  exportScoresMain,
	}
	exportCmd.Flags().StringP("out", "o", "-", "output file, - for stdout")
	rootCmd.AddCommand(exportCmd)

	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "Lists the backups written before each reset",
		Args:  cobra.NoArgs,
		RunE:  listBackupsMain,
	}
	backupsCmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Prints one backup file",
		Args:  cobra.ExactArgs(1),
		RunE:  getBackupMain,
	})
	rootCmd.AddCommand(backupsCmd)
	return rootCmd
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("judged failed", "err", err)
		os.Exit(1)
	}
}
