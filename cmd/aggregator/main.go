package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolscope/internal/aggregate"
	"poolscope/internal/chain"
	"poolscope/internal/chaincfg"
	"poolscope/internal/config"
	"poolscope/internal/erc20"
	"poolscope/internal/storage"
	"poolscope/internal/storage/postgres"
	"poolscope/internal/stream"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "aggregator",
		Short:        "AMM pool state aggregator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Stream events through the aggregation engine",
		RunE:  runAggregator,
	}

	runCmd.Flags().String("events", "./data/events.jsonl", "input events JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN; empty runs in memory")
	runCmd.Flags().String("snapshot", "./data/snapshot.jsonl", "snapshot JSONL path for in-memory runs")
	runCmd.Flags().StringSlice("rpc", nil, "chain RPC endpoints as chainid=url pairs")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts per event")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(runCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAggregator(cmd *cobra.Command, _ []string) error {
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

	if cfg.EventsPath == "" {
		return fmt.Errorf("events path is required")
	}

	chains, err := chaincfg.Load(cfg.Viper())
	if err != nil {
		return fmt.Errorf("load chain config: %w", err)
	}

	rpcURLs, err := config.ParseRPCURLs(cfg.RPCURLs)
	if err != nil {
		return err
	}
	clients := chain.NewRegistry(rpcURLs)
	defer clients.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.EntityStore
	var memory *storage.MemoryStore
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		memory = storage.NewMemoryStore()
		store = memory
	}

	resolver := erc20.NewResolver(clients, chains, logger)
	engine := aggregate.New(store, chains, resolver, logger)

	checkpointPath, _ := cmd.Flags().GetString("checkpoint")
	checkpointEnabled, _ := cmd.Flags().GetBool("checkpoint-enabled")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	retryBackoff, _ := cmd.Flags().GetDuration("retry-backoff")

	runner := stream.NewRunner(stream.RunConfig{
		CheckpointPath:    checkpointPath,
		CheckpointEnabled: checkpointEnabled,
		MaxRetries:        maxRetries,
		RetryBackoff:      retryBackoff,
	}, engine, logger)

	logger.Info("aggregator start",
		zap.String("events", cfg.EventsPath),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64s("chains", chains.ChainIDs()),
		zap.Int("rpc_endpoints", len(rpcURLs)),
		zap.String("log_level", cfg.LogLevel),
	)

	if err := runner.Run(ctx, cfg.EventsPath); err != nil {
		return err
	}

	if memory != nil && cfg.Snapshot != "" {
		writer := storage.NewSnapshotWriter(cfg.Snapshot)
		if err := writer.WriteSnapshot(memory); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logger.Info("snapshot written", zap.String("path", cfg.Snapshot))
	}

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
