package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vaultScope/internal/model"
)

const (
	StoreCSV      = "csv"
	StorePostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	ChainID      int64
	EtherscanKey string
	EtherscanURL string
	EtherscanRPS float64
	Timezone     string
	Location     *time.Location
	Store        string
	DataDir      string
	PGDSN        string
	RedisAddr    string
	CallTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	LogBatchSize uint64
	Precision    int32
	Concurrency  int
	Schedule     string
	Warnings     string
	LogLevel     string
	PriceFeed    string
	FeeEvents    []string
	Vaults       []VaultConfig
	Comparisons  ComparisonConfig
}

// Load merges .env, config file, environment variables, and flags into Config
// and validates everything that does not need the network.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, model.Wrap(model.ErrConfiguration, "load .env", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VAULTSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("rpc", "VAULTSCOPE_RPC", "WEB3_HTTP_PROVIDER")
	_ = v.BindEnv("etherscan-key", "VAULTSCOPE_ETHERSCAN_KEY", "ETHERSCAN_API_KEY")

	v.SetDefault("chain-id", int64(1))
	v.SetDefault("etherscan-url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan-rps", 3.0)
	v.SetDefault("timezone", "Europe/Amsterdam")
	v.SetDefault("store", StoreCSV)
	v.SetDefault("data-dir", "./data")
	v.SetDefault("call-timeout", 30*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-batch-size", uint64(0))
	v.SetDefault("precision", 50)
	v.SetDefault("concurrency", 1)
	v.SetDefault("schedule", "0 15 12 * * *")
	v.SetDefault("log-level", "info")
	v.SetDefault("price-feed", "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, model.Wrap(model.ErrConfiguration, "read config", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, model.Wrap(model.ErrConfiguration, "read config", err)
			}
		}
	}

	cfg := Config{
		RPCURL:       strings.TrimSpace(v.GetString("rpc")),
		ChainID:      v.GetInt64("chain-id"),
		EtherscanKey: strings.TrimSpace(v.GetString("etherscan-key")),
		EtherscanURL: v.GetString("etherscan-url"),
		EtherscanRPS: v.GetFloat64("etherscan-rps"),
		Timezone:     v.GetString("timezone"),
		Store:        strings.ToLower(v.GetString("store")),
		DataDir:      v.GetString("data-dir"),
		PGDSN:        v.GetString("pg-dsn"),
		RedisAddr:    v.GetString("redis-addr"),
		CallTimeout:  v.GetDuration("call-timeout"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogBatchSize: v.GetUint64("log-batch-size"),
		Precision:    v.GetInt32("precision"),
		Concurrency:  v.GetInt("concurrency"),
		Schedule:     v.GetString("schedule"),
		Warnings:     v.GetString("warnings"),
		LogLevel:     v.GetString("log-level"),
		PriceFeed:    v.GetString("price-feed"),
		FeeEvents:    getStringSlice(v, "fee-events"),
	}
	if cfg.Warnings == "" {
		cfg.Warnings = cfg.DataDir + "/warnings.jsonl"
	}
	if err := v.UnmarshalKey("vaults", &cfg.Vaults); err != nil {
		return Config{}, model.Wrap(model.ErrConfiguration, "decode vaults", err)
	}
	if err := v.UnmarshalKey("comparisons", &cfg.Comparisons); err != nil {
		return Config{}, model.Wrap(model.ErrConfiguration, "decode comparisons", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	fail := func(format string, args ...any) error {
		return model.Errorf(model.ErrConfiguration, "validate config", format, args...)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fail("timezone %q: %v", c.Timezone, err)
	}
	c.Location = loc

	switch c.Store {
	case StoreCSV:
		if c.DataDir == "" {
			return fail("data-dir is required for the csv store")
		}
	case StorePostgres:
		if c.PGDSN == "" {
			return fail("pg-dsn is required for the postgres store")
		}
	default:
		return fail("unknown store %q", c.Store)
	}

	if c.Precision < 50 {
		return fail("precision %d is below 50 places", c.Precision)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxRetries < 0 {
		return fail("max-retries must not be negative")
	}

	seen := make(map[string]bool, len(c.Vaults))
	for i := range c.Vaults {
		if err := c.Vaults[i].normalize(); err != nil {
			return fail("vault %d: %v", i, err)
		}
		name := strings.ToLower(c.Vaults[i].Name)
		if seen[name] {
			return fail("duplicate vault name %q", c.Vaults[i].Name)
		}
		seen[name] = true
	}
	return c.Comparisons.validate()
}

// RequireRPC reports a configuration error when no node endpoint is set.
func (c Config) RequireRPC() error {
	if c.RPCURL == "" {
		return model.Errorf(model.ErrConfiguration, "validate config", "rpc is required (flag --rpc, VAULTSCOPE_RPC or WEB3_HTTP_PROVIDER)")
	}
	return nil
}

// Vault returns the vault with the given name, case-insensitively.
func (c Config) Vault(name string) (VaultConfig, bool) {
	for _, v := range c.Vaults {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return VaultConfig{}, false
}

// Select returns the vault named name, or every vault when name is empty.
func (c Config) Select(name string) ([]VaultConfig, error) {
	if name == "" {
		return c.Vaults, nil
	}
	v, ok := c.Vault(name)
	if !ok {
		return nil, model.Errorf(model.ErrConfiguration, "select vault", "no vault named %q", name)
	}
	return []VaultConfig{v}, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// Fee signatures contain commas, so a single string is split on ';'.
func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ";")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
