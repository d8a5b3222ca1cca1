package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lendingScope/internal/aggregate"
	"lendingScope/internal/chain"
	"lendingScope/internal/config"
	"lendingScope/internal/indexer"
	"lendingScope/internal/protocol"
	"lendingScope/internal/storage"
	"lendingScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Lending protocol event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingestion cycles",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "Sui JSON-RPC URL")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	runCmd.Flags().String("mode", "continuous", "continuous or backfill")
	runCmd.Flags().Int("page-size", chain.MaxPageSize, "events per page")
	runCmd.Flags().Int("rate-ceiling", 40, "outbound queries before a cooldown")
	runCmd.Flags().Duration("rate-cooldown", time.Second, "pause once the rate ceiling is reached")
	runCmd.Flags().Duration("poll-interval", 10*time.Second, "pause between continuous cycles")
	runCmd.Flags().Int("max-retries", 3, "maximum retry attempts per page")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("protocol-package", "", "package id that emits protocol events")
	runCmd.Flags().String("market-id", "", "shared market object id")
	runCmd.Flags().StringSlice("groups", config.DefaultGroups, "event groups to run, in cycle order")
	runCmd.Flags().String("errors", "./data/projection_errors.jsonl", "malformed event JSONL")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the Postgres schema",
		RunE:  runSchema,
	}

	schemaCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	schemaCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(schemaCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := indexer.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	packageID, err := indexer.ParseObjectID(cfg.ProtocolPackage)
	if err != nil {
		return fmt.Errorf("protocol package: %w", err)
	}
	marketID, err := indexer.ParseObjectID(cfg.MarketID)
	if err != nil {
		return fmt.Errorf("market id: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	governor := chain.NewGovernor(cfg.RateCeiling, cfg.RateCooldown)
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, governor)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	events, err := protocol.NewEvents(packageID)
	if err != nil {
		return err
	}
	state := protocol.NewStateReader(chainClient, marketID)

	groups, err := buildGroups(cfg.Groups, events, store, state, logger)
	if err != nil {
		return err
	}

	paginator := indexer.NewPaginator(indexer.PaginatorConfig{
		PageSize:     cfg.PageSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, logger)
	ingestor := indexer.NewIngestor(store, paginator, storage.NewJsonlErrorLog(cfg.Errors))
	scheduler := indexer.NewScheduler(indexer.SchedulerConfig{
		Mode:         mode,
		PollInterval: cfg.PollInterval,
	}, governor, ingestor, groups, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("mode", string(mode)),
		zap.String("protocol_package", packageID),
		zap.String("market_id", marketID),
		zap.Strings("groups", cfg.Groups),
		zap.Int("page_size", cfg.PageSize),
		zap.Int("rate_ceiling", cfg.RateCeiling),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("errors", cfg.Errors),
	)

	err = scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("indexer stopped")
		return nil
	}
	return err
}

func buildGroups(names []string, events *protocol.Events, store *postgres.Store, state *protocol.StateReader, logger *zap.Logger) ([]*indexer.Group, error) {
	groups := make([]*indexer.Group, 0, len(names))
	for _, name := range names {
		var (
			g   *indexer.Group
			err error
		)
		switch name {
		case indexer.GroupLiquidation:
			g, err = indexer.NewLiquidationGroup(events, aggregate.NewResolver(store, state, logger), logger)
		case indexer.GroupMarketDynamics:
			g = indexer.NewMarketDynamicsGroup(state)
		case indexer.GroupFlashLoans:
			g, err = indexer.NewFlashLoanGroup(events)
		case indexer.GroupLending:
			g, err = indexer.NewLendingGroup(events, state)
		default:
			err = fmt.Errorf("unknown group: %s", name)
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("schema ready", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
