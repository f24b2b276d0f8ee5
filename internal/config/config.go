// Package config loads the dtmctl TOML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

const (
	DefaultManagers        = 1
	DefaultIssuancePerCall = 100_000_000_000
	DefaultIssues          = 1
	DefaultRecipients      = 1
	DefaultParallel        = 1
	DefaultAirdropLamports = 10_000_000_000
)

type Config struct {
	Network   string         `toml:"network"`
	RPCURL    string         `toml:"rpc_url"`
	ProgramID string         `toml:"program_id"`
	Simulate  SimulateConfig `toml:"simulate"`
	Log       LogConfig      `toml:"log"`
	Indexer   IndexerConfig  `toml:"indexer"`
}

// SimulateConfig drives `dtmctl simulate` against an in-process ledger.
type SimulateConfig struct {
	Managers        int    `toml:"managers"`
	IssuancePerCall uint64 `toml:"issuance_per_call"`
	Issues          int    `toml:"issues"`
	Recipients      int    `toml:"recipients"`
	Parallel        int    `toml:"parallel"`
	AirdropLamports uint64 `toml:"airdrop_lamports"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type IndexerConfig struct {
	Enabled      bool   `toml:"enabled"`
	SnapshotPath string `toml:"snapshot_path"`
}

func Default() Config {
	cfg := Config{}
	_ = applyDefaults(&cfg)
	return cfg
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes data, fills defaults and validates. name labels errors.
func Parse(data []byte, name string) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", name, err)
	}
	if err := applyDefaults(&cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", name, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", name, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) error {
	network, err := shared.NormalizeNetwork(cfg.Network)
	if err != nil {
		return err
	}
	cfg.Network = network
	if strings.TrimSpace(cfg.RPCURL) == "" {
		endpoint, err := shared.RPCEndpoint(network)
		if err != nil {
			return err
		}
		cfg.RPCURL = endpoint
	}
	if cfg.Simulate.Managers == 0 {
		cfg.Simulate.Managers = DefaultManagers
	}
	if cfg.Simulate.IssuancePerCall == 0 {
		cfg.Simulate.IssuancePerCall = DefaultIssuancePerCall
	}
	if cfg.Simulate.Issues == 0 {
		cfg.Simulate.Issues = DefaultIssues
	}
	if cfg.Simulate.Recipients == 0 {
		cfg.Simulate.Recipients = DefaultRecipients
	}
	if cfg.Simulate.Parallel == 0 {
		cfg.Simulate.Parallel = DefaultParallel
	}
	if cfg.Simulate.AirdropLamports == 0 {
		cfg.Simulate.AirdropLamports = DefaultAirdropLamports
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "console"
	}
	return nil
}

func Validate(cfg Config) error {
	switch cfg.Network {
	case shared.NetworkLocalnet, shared.NetworkDevnet, shared.NetworkTestnet, shared.NetworkMainnet:
	default:
		return fmt.Errorf("unsupported network %q", cfg.Network)
	}
	if strings.TrimSpace(cfg.ProgramID) != "" {
		if _, err := shared.ParsePublicKey(cfg.ProgramID); err != nil {
			return fmt.Errorf("program_id: %w", err)
		}
	}
	if err := ValidateSimulate(cfg.Simulate); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format)
	}
	return nil
}

func ValidateSimulate(cfg SimulateConfig) error {
	if cfg.Managers < 1 {
		return fmt.Errorf("managers must be positive")
	}
	if cfg.IssuancePerCall == 0 {
		return fmt.Errorf("issuance_per_call must be greater than zero")
	}
	if cfg.Issues < 0 {
		return fmt.Errorf("issues must not be negative")
	}
	if cfg.Recipients < 1 {
		return fmt.Errorf("recipients must be positive")
	}
	if cfg.Parallel < 1 {
		return fmt.Errorf("parallel must be positive")
	}
	return nil
}
