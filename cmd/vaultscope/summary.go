package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vaultScope/internal/config"
	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
	"vaultScope/internal/storage"
	"vaultScope/internal/summary"
	"vaultScope/internal/warn"
)

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx, a, cleanup, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	name, _ := cmd.Flags().GetString("vault")
	vaults, err := a.cfg.Select(name)
	if err != nil {
		return err
	}

	warnings, err := a.warnings.CountWarnings()
	if err != nil {
		return err
	}
	reporter := warn.NewReporter("summary", a.warnings, a.logger)
	return writeSummaries(ctx, os.Stdout, a.store, a.num, vaults, warnings, reporter)
}

// writeSummaries encodes one JSON line per vault. A vault with a malformed
// address is reported and left out.
func writeSummaries(
	ctx context.Context,
	w io.Writer,
	store storage.Store,
	num numeric.Context,
	vaults []config.VaultConfig,
	warnings map[string]int,
	reporter *warn.Reporter,
) error {
	enc := json.NewEncoder(w)
	for _, v := range vaults {
		addr, err := config.ParseAddress(v.Address)
		if err != nil {
			reporter.Report(v.Address, model.ScopeVault, v.Name, err)
			continue
		}
		daily, err := store.LoadDaily(ctx, addr.Hex())
		if err != nil {
			return fmt.Errorf("load daily %s: %w", v.Name, err)
		}
		reallocations, err := store.LoadReallocations(ctx, addr.Hex())
		if err != nil {
			return fmt.Errorf("load reallocations %s: %w", v.Name, err)
		}
		s := summary.Build(num, v.Name, addr.Hex(), daily, reallocations)
		s.Warnings = warnings[storage.AddressKey(addr.Hex())]
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}
