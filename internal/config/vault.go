package config

import (
	"fmt"
	"strings"
	"time"

	"vaultScope/internal/model"
)

const (
	DefaultSnapshotTime        = "12:00"
	DefaultComparisonStartDate = "2025-09-01"
)

// VaultConfig is one configured vault as written in the config file.
// Addresses stay strings here and are checked per vault by the jobs.
type VaultConfig struct {
	Name         string   `mapstructure:"name"`
	Address      string   `mapstructure:"address"`
	StartDate    string   `mapstructure:"start-date"`
	SnapshotTime string   `mapstructure:"snapshot-time"`
	Markets      []string `mapstructure:"markets"`
	Allocator    string   `mapstructure:"allocator"`
	Router       string   `mapstructure:"router"`
	Registry     string   `mapstructure:"registry"`
	MarketIDs    []string `mapstructure:"market-ids"`
	ExecSelector string   `mapstructure:"exec-selector"`

	start model.Date
	clock time.Duration
}

func (v *VaultConfig) normalize() error {
	v.Name = strings.TrimSpace(v.Name)
	v.Address = strings.TrimSpace(v.Address)
	if v.Name == "" {
		return fmt.Errorf("name is required")
	}
	if v.Address == "" {
		return fmt.Errorf("%s: address is required", v.Name)
	}
	start, err := model.ParseDate(strings.TrimSpace(v.StartDate))
	if err != nil {
		return fmt.Errorf("%s: start-date: %w", v.Name, err)
	}
	v.start = start
	if strings.TrimSpace(v.SnapshotTime) == "" {
		v.SnapshotTime = DefaultSnapshotTime
	}
	if v.clock, err = ParseClock(v.SnapshotTime); err != nil {
		return fmt.Errorf("%s: snapshot-time: %w", v.Name, err)
	}
	v.Markets = cleanStrings(v.Markets)
	v.MarketIDs = cleanStrings(v.MarketIDs)
	return nil
}

// Start is the first calendar day of the series.
func (v VaultConfig) Start() model.Date { return v.start }

// Clock is the snapshot offset from local midnight.
func (v VaultConfig) Clock() time.Duration { return v.clock }

// TracksReallocations reports whether the allocator setup is configured.
func (v VaultConfig) TracksReallocations() bool {
	return v.Allocator != "" && v.Router != "" && len(v.MarketIDs) > 0
}

// ComparisonVault is one entry of the comparison list.
type ComparisonVault struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

type ComparisonConfig struct {
	StartDate    string            `mapstructure:"start-date"`
	SnapshotTime string            `mapstructure:"snapshot-time"`
	Vaults       []ComparisonVault `mapstructure:"vaults"`

	start model.Date
	clock time.Duration
}

func (c *ComparisonConfig) validate() error {
	if len(c.Vaults) == 0 {
		return nil
	}
	if strings.TrimSpace(c.StartDate) == "" {
		c.StartDate = DefaultComparisonStartDate
	}
	start, err := model.ParseDate(strings.TrimSpace(c.StartDate))
	if err != nil {
		return model.Errorf(model.ErrConfiguration, "validate config", "comparisons start-date: %v", err)
	}
	c.start = start
	if strings.TrimSpace(c.SnapshotTime) == "" {
		c.SnapshotTime = DefaultSnapshotTime
	}
	if c.clock, err = ParseClock(c.SnapshotTime); err != nil {
		return model.Errorf(model.ErrConfiguration, "validate config", "comparisons snapshot-time: %v", err)
	}
	for i, v := range c.Vaults {
		if strings.TrimSpace(v.Name) == "" || strings.TrimSpace(v.Address) == "" {
			return model.Errorf(model.ErrConfiguration, "validate config", "comparison vault %d needs name and address", i)
		}
	}
	return nil
}

func (c ComparisonConfig) Start() model.Date   { return c.start }
func (c ComparisonConfig) Clock() time.Duration { return c.clock }
