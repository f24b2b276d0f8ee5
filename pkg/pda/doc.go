// Package pda derives program addresses: deterministic account addresses that
// have no private key because they fall off the ed25519 curve.
//
// An address is produced from a seed tuple, a bump byte, and the id of the
// owning program. FindAddress searches the bump space from 255 downward and
// returns the first combination that is not a valid public key. Only the
// owning program can later authorize for such an address, by presenting the
// same seeds and bump to the runtime, which recomputes the hash under the
// invoking program's id.
package pda
