// Package indexer follows the registry's ManagerCreated and SupplyIssued
// events and keeps a queryable view of managers, recipient balances and
// issuance history.
//
// The indexer reads committed transactions from a Source (a *ledger.Ledger
// satisfies it), either on demand with IndexOnce or in the background with
// StartPolling. Its state can be exported to and restored from a
// brotli-compressed JSON snapshot.
//
// # Example
//
//	managerIndexer, err := indexer.New(indexer.Config{Source: chain})
//	if err != nil {
//		return err
//	}
//	if err := managerIndexer.IndexOnce(ctx); err != nil {
//		return err
//	}
//	balance := managerIndexer.GetBalance(mint, recipient)
package indexer
