// dtmctl is the operator tool for the token manager registry.
//
//	dtmctl derive   --asset <key> --authority <key> [--program-id <key>] [--via-master]
//	dtmctl simulate [--config dtmctl.toml] [--managers N] [--issues N] [--parallel N] [--index]
//	dtmctl inspect  --asset <key> --authority <key> [--network devnet] [--rpc-url URL]
//
// derive prints the manager address and bump for an (asset, authority)
// pair. simulate runs the full create and issue lifecycle against an
// in-process ledger and prints a JSON report. inspect reads and verifies a
// manager record from a cluster over JSON-RPC.
package main
