// Package ledger is an in-process, account-based execution environment used to
// run and test programs that delegate authority through program-derived
// addresses.
//
// A Ledger holds accounts in an AccountStore and executes signed transactions
// atomically: every instruction runs against a working copy of the accounts the
// transaction references, and nothing is committed unless all instructions
// succeed. Programs call each other through InvokeContext.Invoke, which carries
// the signer and writable privileges granted by the caller explicitly instead
// of relying on ambient runtime state. A program may present Derived signers
// to authorize addresses derived from its own id; Keypair signers are only
// accepted at the transaction level.
//
// The built-in System, Token and Associated Token programs live in the
// system, token and associated subpackages and speak the same instruction
// wire format as their on-chain counterparts.
package ledger
