package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"listing-sync/core/config"
	"listing-sync/core/database"
	"listing-sync/core/ingest"
	"listing-sync/core/logger"
	"listing-sync/core/source"
	"listing-sync/core/storage"
	"listing-sync/feature/listedstock"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	dryRunIngest  bool
	minRowsIngest int
)

// ingestCmd is the parent command for all dataset passes.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one reconciliation pass for a dataset",
	Long: `Fetch the current snapshot of a dataset, insert rows for new keys and
delete rows whose key is no longer reported by the source.`,
}

// listedStockCmd reconciles the listed_stock table.
var listedStockCmd = &cobra.Command{
	Use:   "listed-stock",
	Short: "Reconcile the listed_stock table with the provider listing",
	Long: `Reconcile the listed_stock table with the symbols-by-industry listing.

Examples:
  # Apply
  listing-sync ingest listed-stock

  # Show what would change
  listing-sync ingest listed-stock --dry-run

  # Refuse to touch the table when the listing has fewer than 1000 symbols
  listing-sync ingest listed-stock --min-rows 1000`,
	RunE: runListedStock,
}

func init() {
	ingestCmd.AddCommand(listedStockCmd)

	ingestCmd.PersistentFlags().BoolVar(&dryRunIngest, "dry-run", false, "Compute the pass without writing")
	ingestCmd.PersistentFlags().IntVar(&minRowsIngest, "min-rows", -1, "Minimum normalized snapshot size before mutating (overrides INGEST_MIN_SNAPSHOT_ROWS)")

	RootCmd.AddCommand(ingestCmd)
}

func runListedStock(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIngestFlags(cmd, &cfg.Ingest)

	cfg.Log.File = listedstock.Name + ".log"
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	dataset, err := listedstock.New(src, cfg.Ingest.Table,
		ingest.WithProbeBatchSize(cfg.Ingest.ProbeBatchSize),
		ingest.WithInsertBatchSize(cfg.Ingest.InsertBatchSize),
	)
	if err != nil {
		return err
	}

	return runPass(cmd.Context(), cfg, dataset, l)
}

// applyIngestFlags lets explicit flags override the loaded configuration.
func applyIngestFlags(cmd *cobra.Command, cfg *ingest.Config) {
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = dryRunIngest
	}
	if cmd.Flags().Changed("min-rows") && minRowsIngest >= 0 {
		cfg.MinSnapshotRows = minRowsIngest
	}
}

func buildSource(cfg *config.Config) (ingest.Source, error) {
	var client storage.Client
	if cfg.Source.Kind == source.KindObject {
		c, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		client = c
	}
	src, err := source.New(cfg.Source, client, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to build source: %w", err)
	}
	return src, nil
}

// runPass connects the store and runs one pass of policy.
func runPass(ctx context.Context, cfg *config.Config, policy ingest.Policy, l *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// A terminated pass leaves committed steps in place; the next run converges
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect only once the snapshot is in hand; a failed fetch never opens the store
	open := func(context.Context) (*gorm.DB, func(), error) {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = database.Close(db) }, nil
	}

	res, err := ingest.New(open, policy, cfg.Ingest, l).Run(ctx)
	if err != nil {
		return fmt.Errorf("%s pass failed: %w", policy.Name(), err)
	}

	if res.Plan != nil {
		printPlan(l, res.Plan)
	}
	return nil
}

// printPlan logs a sample of the planned changes of a dry run.
func printPlan(l *zap.Logger, plan *ingest.Plan) {
	const maxShow = 5

	for i, rec := range plan.Insert {
		if i == maxShow {
			l.Info("Additional inserts not shown", zap.Int("count", len(plan.Insert)-maxShow))
			break
		}
		l.Info("Would insert", zap.Any("record", rec))
	}
	for i, key := range plan.Stale {
		if i == maxShow {
			l.Info("Additional deletes not shown", zap.Int("count", len(plan.Stale)-maxShow))
			break
		}
		l.Info("Would delete", zap.String("key", key))
	}
}
