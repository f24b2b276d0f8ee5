// The Dapp Token Manager SDK for Go implements a delegated-authority token
// issuance registry. A calling program obtains the power to mint a fungible
// asset without holding a private key: mint and freeze authority are handed
// to a program-derived manager address that only the registry can sign for.
//
// # Packages
//
//   - dtm: the registry program, its record layout, instruction builders and client
//   - pda: program-derived address derivation and verification
//   - ledger: an in-process account ledger with cross-program invocation and
//     privilege extension, plus built-in system, token and associated token programs
//   - master, puppet: programs that act through keyless authority
//   - localnet: a ledger with every built-in program registered
//   - rpc: a JSON-RPC account reader for live clusters
//   - indexer: managers, balances and issuance history built from registry events
//   - shared: network names, payer configuration and key parsing
//
// # Quick start
//
//	chain, _ := localnet.New(localnet.Config{})
//	_ = localnet.Fund(ctx, chain, ledger.LamportsPerSOL, payer.PublicKey)
//	client, _ := dtm.NewClient(dtm.ClientConfig{Ledger: chain, PayerPrivateKey: key})
//	info, _ := client.CreateManager(ctx, dtm.CreateManagerOptions{Authority: authority, IssuancePerCall: 100_000_000_000})
//	result, _ := client.Issue(ctx, dtm.IssueOptions{Mint: info.Record.Asset, Authority: authority, Recipient: recipient})
//
// # Installation
//
//	go get github.com/dapp-token-manager/token-manager-sdk-go@latest
package token_manager_sdk_go
