package shared

import (
	"fmt"
	"strings"
)

const (
	NetworkLocalnet = "localnet"
	NetworkDevnet   = "devnet"
	NetworkTestnet  = "testnet"
	NetworkMainnet  = "mainnet-beta"
)

var rpcEndpoints = map[string]string{
	NetworkLocalnet: "http://127.0.0.1:8899",
	NetworkDevnet:   "https://api.devnet.solana.com",
	NetworkTestnet:  "https://api.testnet.solana.com",
	NetworkMainnet:  "https://api.mainnet-beta.solana.com",
}

// NormalizeNetwork lower-cases and validates a cluster name. An empty name
// selects devnet and "mainnet" is accepted for mainnet-beta.
func NormalizeNetwork(network string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(network))
	if normalized == "" {
		return NetworkDevnet, nil
	}
	if normalized == "mainnet" {
		return NetworkMainnet, nil
	}

	switch normalized {
	case NetworkLocalnet, NetworkDevnet, NetworkTestnet, NetworkMainnet:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported network %q", network)
	}
}

// RPCEndpoint returns the public JSON-RPC endpoint for a cluster.
func RPCEndpoint(network string) (string, error) {
	normalized, err := NormalizeNetwork(network)
	if err != nil {
		return "", err
	}
	return rpcEndpoints[normalized], nil
}
