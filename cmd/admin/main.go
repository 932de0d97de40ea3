package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"evidencia-backend/config"
	"evidencia-backend/db"
	"evidencia-backend/logger"
	"evidencia-backend/models"
	"evidencia-backend/repository"
	"evidencia-backend/service"
	"evidencia-backend/storage"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Maintenance tasks for the evidence media service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger.Init(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [" + db.MigrateUsage + "]",
	Short: "Apply or roll back database migrations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.UsesMemoryDatabase() {
			return fmt.Errorf("migrations need a postgres DATABASE_URL")
		}
		migrations, err := db.Migrations()
		if err != nil {
			return fmt.Errorf("migration files: %w", err)
		}
		return db.RunMigrate(logger.L, cfg.DatabaseURL, migrations, args[0], args[1:])
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stored objects no record references",
	Long: `Lists every object of the voucher, counter reading and meter calculation buckets,
compares them with the blob ids referenced in the database and reports (or, with --apply,
deletes) the unreferenced ones older than SWEEP_GRACE_PERIOD.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	apply, _ := cmd.Flags().GetBool("apply")
	ctx := cmd.Context()

	if cfg.UsesMemoryDatabase() {
		return fmt.Errorf("sweeping needs a postgres DATABASE_URL")
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	blobStore, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	sweeper := service.NewSweeper(
		service.SweeperWithBlobStore(blobStore),
		service.SweeperWithBuckets(cfg.Buckets),
		service.SweeperWithReferences(models.KindVoucher, repository.NewVoucherRepository(pool)),
		service.SweeperWithReferences(models.KindCounterReading, repository.NewCounterReadingRepository(pool)),
		service.SweeperWithReferences(models.KindMeterCalculation, repository.NewMeterCalculationRepository(pool)),
		service.SweeperWithGracePeriod(cfg.SweepGracePeriod),
		service.SweeperWithLogger(logger.Component("sweeper")),
	)

	result, err := sweeper.Sweep(ctx, apply)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	sweepCmd.Flags().Bool("apply", false, "delete the orphans instead of only reporting them")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
