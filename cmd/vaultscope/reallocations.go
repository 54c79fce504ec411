package main

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/config"
	"vaultScope/internal/etherscan"
	"vaultScope/internal/jobs"
	"vaultScope/internal/model"
	"vaultScope/internal/morpho"
	"vaultScope/internal/reallocation"
	"vaultScope/internal/warn"
)

func runReallocations(cmd *cobra.Command, _ []string) error {
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
	return a.reallocations(ctx, vaults)
}

func (a *app) reallocations(ctx context.Context, vaults []config.VaultConfig) error {
	var tracked []config.VaultConfig
	for _, v := range vaults {
		if v.TracksReallocations() {
			tracked = append(tracked, v)
		}
	}
	if len(tracked) == 0 {
		a.logger.Info("no vault tracks reallocations")
		return nil
	}

	scan, err := etherscan.NewClient(etherscan.Config{
		BaseURL:    a.cfg.EtherscanURL,
		APIKey:     a.cfg.EtherscanKey,
		ChainID:    a.cfg.ChainID,
		RPS:        a.cfg.EtherscanRPS,
		Timeout:    a.cfg.CallTimeout,
		MaxRetries: a.cfg.MaxRetries,
	}, a.logger)
	if err != nil {
		return err
	}
	feed, err := config.ParseOptionalAddress(a.cfg.PriceFeed)
	if err != nil {
		return err
	}

	reporter := warn.NewReporter("reallocations", a.warnings, a.logger)
	prices := reallocation.NewPriceFeed(a.client, feed, a.logger)

	return jobs.RunEach(ctx, a.cfg.Concurrency, tracked,
		func(v config.VaultConfig) string { return v.Name },
		func(ctx context.Context, v config.VaultConfig) error {
			target, registry, err := reallocationTarget(v)
			if err != nil {
				reporter.Report(v.Address, model.ScopeVault, v.Name, err)
				return nil
			}
			estimator := morpho.NewEstimator(a.client, registry, a.num, reporter, a.logger)
			tracker := reallocation.NewTracker(scan, a.client, estimator, prices, a.store, reporter, a.logger)
			res, err := tracker.Run(ctx, target)
			if err != nil {
				return err
			}
			a.logger.Info("reallocations done",
				zap.String("vault", v.Name),
				zap.Int("matched", res.Matched),
				zap.Int("written", len(res.Written)),
			)
			return nil
		},
		a.logger,
	)
}

func reallocationTarget(v config.VaultConfig) (reallocation.Target, common.Address, error) {
	t := reallocation.Target{Name: v.Name}
	var err error
	if t.Vault, err = config.ParseAddress(v.Address); err != nil {
		return t, common.Address{}, err
	}
	if t.Allocator, err = config.ParseAddress(v.Allocator); err != nil {
		return t, common.Address{}, err
	}
	if t.Router, err = config.ParseAddress(v.Router); err != nil {
		return t, common.Address{}, err
	}
	if t.MarketIDs, err = config.ParseMarketIDs(v.MarketIDs); err != nil {
		return t, common.Address{}, err
	}
	if t.Selector, err = config.ParseSelector(v.ExecSelector); err != nil {
		return t, common.Address{}, err
	}
	registry, err := config.ParseOptionalAddress(v.Registry)
	if err != nil {
		return t, common.Address{}, err
	}
	return t, registry, nil
}
