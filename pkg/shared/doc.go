// Package shared holds helpers used across the token manager SDK: cluster
// name normalization and RPC endpoints, fee payer configuration loaded from
// the environment or a .env file, and keypair and address parsing.
//
// # Environment Variables
//
//   - DTM_NETWORK selects localnet, devnet (default), testnet or mainnet-beta.
//   - DTM_PAYER_KEY holds the fee payer key. A cluster prefix such as
//     DEVNET_DTM_PAYER_KEY takes precedence.
//   - DTM_PAYER_KEYPAIR_FILE points at a solana-keygen JSON file when no key
//     is set inline.
//   - DTM_RPC_URL overrides the cluster's public endpoint.
package shared
