package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/backfill"
	"vaultScope/internal/config"
	"vaultScope/internal/model"
	"vaultScope/internal/vault"
	"vaultScope/internal/warn"
)

func runCompare(cmd *cobra.Command, _ []string) error {
	ctx, a, cleanup, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()
	return a.compare(ctx)
}

// compare runs vaults one after another; they share one series.
func (a *app) compare(ctx context.Context) error {
	cmp := a.cfg.Comparisons
	if len(cmp.Vaults) == 0 {
		a.logger.Info("no comparison vaults configured")
		return nil
	}

	reporter := warn.NewReporter("compare", a.warnings, a.logger)
	builder := backfill.NewCompareBuilder(
		a.resolver,
		vault.NewReader(a.client, a.num, a.logger),
		a.store,
		reporter,
		backfill.Config{Location: a.cfg.Location, Precision: a.cfg.Precision},
		a.logger,
	)

	var errs []error
	for _, v := range cmp.Vaults {
		if err := ctx.Err(); err != nil {
			return err
		}
		addr, err := config.ParseAddress(v.Address)
		if err != nil {
			reporter.Report(v.Address, model.ScopeVault, v.Name, err)
			continue
		}
		res, err := builder.Run(ctx, backfill.CompareVault{Name: v.Name, Address: addr}, cmp.Start(), cmp.Clock())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v.Name, err))
			continue
		}
		a.logger.Info("comparison done",
			zap.String("vault", v.Name),
			zap.Int("written", len(res.Written)),
			zap.Int("skipped", len(res.Skipped)),
		)
	}
	return errors.Join(errs...)
}
