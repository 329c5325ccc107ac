package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hba1c/hba1c/internal/config"
	"github.com/hba1c/hba1c/internal/domain/hba1c"
	"github.com/hba1c/hba1c/internal/ingest"
	"github.com/hba1c/hba1c/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hba1c-pipeline",
		Short: "HbA1c extraction and reconciliation pipeline",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline pass over the configured input",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", n)
			return nil
		},
	}
	upCmd.Flags().String("dir", "migrations", "Path to migrations directory")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "migrations", "Path to migrations directory")

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func runPipeline() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	// Database, only when a side needs it
	var pool *pgxpool.Pool
	if cfg.UsesDatabase() {
		p, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
		stats := db.GetPoolStats(p)
		logger.Info().Int32("max_conns", stats.MaxConns).Msg("connected to database")
	}

	source, err := buildSource(cfg, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build observation source")
	}
	sink := buildSink(cfg, pool)

	svc := hba1c.NewService(source, sink,
		hba1c.WithWorkers(cfg.Workers),
		hba1c.WithLogger(logger),
	)

	report, err := svc.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		return err
	}

	logger.Info().
		Str("run_id", report.RunID.String()).
		Int("emitted", report.Emitted).
		Msg("done")
	return nil
}

func buildSource(cfg *config.Config, pool *pgxpool.Pool) (hba1c.Source, error) {
	if cfg.Source == "postgres" {
		return hba1c.NewObservationSourcePG(pool, cfg.CohortFilter), nil
	}

	units := map[string]string{}
	if cfg.UnitLookupFile != "" {
		u, err := ingest.LoadUnitLookup(cfg.UnitLookupFile)
		if err != nil {
			return nil, err
		}
		units = u
	}
	codes, err := ingest.LoadCodeList(cfg.CodeListFile)
	if err != nil {
		return nil, err
	}
	var patients map[string]struct{}
	if cfg.PatientListFile != "" {
		patients, err = ingest.LoadPatientList(cfg.PatientListFile)
		if err != nil {
			return nil, err
		}
	}
	return ingest.NewCSVSource(cfg.InputGlob, units, codes, patients), nil
}

func buildSink(cfg *config.Config, pool *pgxpool.Pool) hba1c.Sink {
	if cfg.Sink == "postgres" {
		return hba1c.NewResultSinkPG(pool)
	}
	return ingest.NewCSVSink(cfg.OutputFile)
}
