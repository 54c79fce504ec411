package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/numeric"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/csvfile"
	"vaultScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultscope",
		Short:        "ERC-4626 vault daily metrics and allocator tracking",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.String("store", "", "storage backend (csv, postgres)")
	flags.String("data-dir", "", "directory for CSV series")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("redis-addr", "", "Redis address for the block timestamp cache")
	flags.Int("concurrency", 0, "vaults processed in parallel")

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fill missing days of each vault's daily series",
		RunE:  runBackfill,
	}
	backfillCmd.Flags().String("vault", "", "only this vault (by name)")
	root.AddCommand(backfillCmd)

	reallocCmd := &cobra.Command{
		Use:   "reallocations",
		Short: "Record allocator transactions with gas cost and APY impact",
		RunE:  runReallocations,
	}
	reallocCmd.Flags().String("vault", "", "only this vault (by name)")
	root.AddCommand(reallocCmd)

	root.AddCommand(&cobra.Command{
		Use:   "compare",
		Short: "Extend the daily APY comparison series",
		RunE:  runCompare,
	})

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print per-vault headline metrics as JSON lines",
		RunE:  runSummary,
	}
	summaryCmd.Flags().String("vault", "", "only this vault (by name)")
	root.AddCommand(summaryCmd)

	root.AddCommand(&cobra.Command{
		Use:   "schedule",
		Short: "Run backfill, reallocations and compare on a cron schedule",
		RunE:  runSchedule,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every sub-command shares.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	warnings *storage.JsonlWarnings
	num      numeric.Context

	client   *chain.Client
	resolver *chain.Resolver
	rdb      *redis.Client
}

// setup loads configuration and opens the store, and the node connection when needChain is set.
func setup(cmd *cobra.Command, needChain bool) (context.Context, *app, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		warnings: storage.NewJsonlWarnings(cfg.Warnings),
		num:      numeric.NewContext(cfg.Precision),
	}
	closers := []func(){func() { _ = logger.Sync() }, stop}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		a.store = pg
	default:
		a.store = csvfile.NewStore(cfg.DataDir)
	}
	closers = append(closers, a.store.Close)

	if needChain {
		if err := cfg.RequireRPC(); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		client, err := chain.NewClient(ctx, cfg.RPCURL, chain.ClientConfig{
			CallTimeout:  cfg.CallTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		a.client = client
		closers = append(closers, client.Close)

		if id, err := client.ChainID(ctx); err != nil {
			logger.Warn("chain id unavailable", zap.Error(err))
		} else if id.Int64() != cfg.ChainID {
			logger.Warn("rpc chain id differs from configuration", zap.Int64("rpc", id.Int64()), zap.Int64("config", cfg.ChainID))
		}

		var cache chain.TimestampCache = chain.NewMemoryCache()
		if cfg.RedisAddr != "" {
			a.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			closers = append(closers, func() { _ = a.rdb.Close() })
			cache = chain.NewLayeredCache(cache, chain.NewRedisCache(a.rdb, uint64(cfg.ChainID), logger))
		}
		a.resolver = chain.NewResolver(client, cache)
	}

	logger.Info("vaultscope start",
		zap.String("command", cmd.Name()),
		zap.String("store", cfg.Store),
		zap.Int("vaults", len(cfg.Vaults)),
		zap.String("timezone", cfg.Timezone),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Bool("redis_cache", cfg.RedisAddr != ""),
	)
	return ctx, a, cleanup, nil
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
