package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/backfill"
	"vaultScope/internal/config"
	"vaultScope/internal/events"
	"vaultScope/internal/jobs"
	"vaultScope/internal/model"
	"vaultScope/internal/vault"
	"vaultScope/internal/warn"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
	ctx, a, cleanup, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	name, _ := cmd.Flags().GetString("vault")
	vaults, err := a.cfg.Select(name)
	if err != nil {
		return err
	}
	return a.backfill(ctx, vaults)
}

func (a *app) backfill(ctx context.Context, vaults []config.VaultConfig) error {
	reporter := warn.NewReporter("backfill", a.warnings, a.logger)
	builder := backfill.NewBuilder(
		a.resolver,
		vault.NewReader(a.client, a.num, a.logger),
		events.NewAggregator(a.client, a.resolver, events.Config{
			BatchSize:     a.cfg.LogBatchSize,
			FeeSignatures: a.cfg.FeeEvents,
		}, a.logger),
		a.store,
		reporter,
		backfill.Config{Location: a.cfg.Location, Precision: a.cfg.Precision},
		a.logger,
	)

	return jobs.RunEach(ctx, a.cfg.Concurrency, vaults,
		func(v config.VaultConfig) string { return v.Name },
		func(ctx context.Context, v config.VaultConfig) error {
			addr, err := config.ParseAddress(v.Address)
			if err != nil {
				reporter.Report(v.Address, model.ScopeVault, v.Name, err)
				return nil
			}
			res, err := builder.Run(ctx, backfill.Vault{
				Name:         v.Name,
				Address:      addr,
				StartDate:    v.Start(),
				SnapshotTime: v.Clock(),
				Markets:      v.Markets,
			})
			if err != nil {
				return err
			}
			a.logger.Info("backfill done",
				zap.String("vault", v.Name),
				zap.Int("written", len(res.Written)),
				zap.Int("skipped", len(res.Skipped)),
			)
			return nil
		},
		a.logger,
	)
}
