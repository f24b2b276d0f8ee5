package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtmctl.toml")
	if err := os.WriteFile(path, []byte("network = \"localnet\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Network != shared.NetworkLocalnet {
		t.Fatalf("expected localnet, got %s", cfg.Network)
	}
	endpoint, err := shared.RPCEndpoint(shared.NetworkLocalnet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RPCURL != endpoint {
		t.Fatalf("expected localnet endpoint, got %s", cfg.RPCURL)
	}
	if cfg.Simulate.IssuancePerCall != DefaultIssuancePerCall || cfg.Simulate.Parallel != DefaultParallel {
		t.Fatalf("unexpected simulate defaults: %+v", cfg.Simulate)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestParseFullConfig(t *testing.T) {
	data := []byte(`
network = "mainnet"
rpc_url = "http://127.0.0.1:8899"
program_id = "9T7y6YzHKFfHjpueENveMTidXcLmME1DK6TEjqQ753jc"

[simulate]
managers = 3
issuance_per_call = 5
issues = 4
recipients = 2
parallel = 8

[log]
level = "debug"
format = "json"

[indexer]
enabled = true
snapshot_path = "index.json.br"
`)
	cfg, err := Parse(data, "inline")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Network != shared.NetworkMainnet {
		t.Fatalf("expected mainnet-beta, got %s", cfg.Network)
	}
	if cfg.RPCURL != "http://127.0.0.1:8899" {
		t.Fatalf("expected explicit rpc url, got %s", cfg.RPCURL)
	}
	if cfg.Simulate.Managers != 3 || cfg.Simulate.IssuancePerCall != 5 || cfg.Simulate.Issues != 4 ||
		cfg.Simulate.Recipients != 2 || cfg.Simulate.Parallel != 8 {
		t.Fatalf("unexpected simulate config: %+v", cfg.Simulate)
	}
	if !cfg.Indexer.Enabled || cfg.Indexer.SnapshotPath != "index.json.br" {
		t.Fatalf("unexpected indexer config: %+v", cfg.Indexer)
	}
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"syntax":     "network = ",
		"network":    "network = \"moonnet\"",
		"program id": "program_id = \"not-a-key\"",
		"format":     "[log]\nformat = \"xml\"",
		"parallel":   "[simulate]\nparallel = -1",
		"recipients": "[simulate]\nrecipients = -2",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data), name); err == nil {
			t.Fatalf("expected error for %s", name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("expected default config to be valid: %v", err)
	}
}
