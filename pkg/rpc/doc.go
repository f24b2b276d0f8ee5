// Package rpc is a read-only JSON-RPC client for Solana-compatible clusters.
// It fetches account state, balances, slots and blockhashes, and satisfies
// ledger.AccountReader so registry records can be fetched and verified with
// dtm.FetchManager against a remote cluster exactly as against a local
// ledger.
//
// # Endpoints
//
// The endpoint defaults to the public RPC URL of the configured network (see
// shared.RPCEndpoint) and can be overridden with Config.BaseURL.
package rpc
