// Package dtm implements the dapp token manager: a registry program that
// takes over the mint and freeze authority of a fungible asset and issues a
// fixed amount per call, signing for the asset with a program-derived
// address instead of a private key.
//
// # Records
//
// Each manager record lives at the address derived from
// ["dapp-token-manager", asset, authority] under the registry program. The
// record address is also the asset's mint and freeze authority, so only the
// registry can mint:
//
//	address, bump, err := dtm.FindManagerAddress(dtm.ProgramID, mint, authority)
//
// # Client Usage
//
// Create a manager and issue supply against a local ledger:
//
//	net, err := localnet.New(localnet.Config{})
//	client, err := dtm.NewClient(dtm.ClientConfig{
//		Ledger:          net.Ledger(),
//		PayerPrivateKey: "<base58 secret key>",
//	})
//
//	info, err := client.CreateManager(context.Background(), dtm.CreateManagerOptions{
//		Authority:       callerProgramID,
//		IssuancePerCall: 100_000_000_000,
//	})
//
//	result, err := client.Issue(context.Background(), dtm.IssueOptions{
//		Mint:      info.Record.Asset,
//		Authority: callerProgramID,
//		Recipient: wallet,
//	})
//
// # Instructions
//
// BuildCreateManagerInstruction and BuildIssueInstruction produce the raw
// instructions for callers that assemble their own transactions or invoke
// the registry from another program.
package dtm
