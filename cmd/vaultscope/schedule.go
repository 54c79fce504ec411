package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, a, cleanup, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	cronLog := cron.PrintfLogger(zap.NewStdLog(a.logger.Named("cron")))
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(a.cfg.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(a.cfg.Schedule, func() { a.cycle(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", a.cfg.Schedule, err)
	}

	a.logger.Info("scheduler started", zap.String("schedule", a.cfg.Schedule), zap.String("timezone", a.cfg.Timezone))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info("scheduler stopped")
	return nil
}

// cycle is one scheduled pass. Each stage runs even when an earlier one failed.
func (a *app) cycle(ctx context.Context) {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"backfill", func(ctx context.Context) error { return a.backfill(ctx, a.cfg.Vaults) }},
		{"reallocations", func(ctx context.Context) error { return a.reallocations(ctx, a.cfg.Vaults) }},
		{"compare", a.compare},
	}
	for _, s := range stages {
		if ctx.Err() != nil {
			return
		}
		if err := s.run(ctx); err != nil {
			a.logger.Error("scheduled stage failed", zap.String("stage", s.name), zap.Error(err))
		}
	}
}
