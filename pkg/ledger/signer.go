package ledger

import (
	"crypto/ed25519"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
)

// Signer authorizes an account for an instruction. It is either a Keypair,
// which proves ownership of a private key at the transaction level, or a
// Derived seed set, which a program presents when it invokes another
// program on behalf of an address it derives.
type Signer interface {
	isSigner()
}

// Keypair is a transaction-level signer backed by an ed25519 private key.
type Keypair struct {
	Account types.Account
}

func NewKeypair(account types.Account) Keypair {
	return Keypair{Account: account}
}

// GenerateKeypair creates a Keypair from a fresh random key.
func GenerateKeypair() Keypair {
	return Keypair{Account: types.NewAccount()}
}

func (Keypair) isSigner() {}

func (keypair Keypair) PublicKey() common.PublicKey {
	return keypair.Account.PublicKey
}

func (keypair Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(keypair.Account.PrivateKey), message)
}

// Derived is a program-level signer: the seeds and bump the invoking program
// hashes together with its own ID to reproduce the signing address.
type Derived struct {
	Seeds [][]byte
	Bump  uint8
}

// NewDerived copies the seeds so later mutation by the caller has no effect.
func NewDerived(bump uint8, seeds ...[]byte) Derived {
	copied := make([][]byte, 0, len(seeds))
	for _, seed := range seeds {
		copied = append(copied, append([]byte(nil), seed...))
	}
	return Derived{Seeds: copied, Bump: bump}
}

func (Derived) isSigner() {}

// Address re-derives the signing address under the given program.
func (derived Derived) Address(programID common.PublicKey) (common.PublicKey, error) {
	return pda.CreateAddress(pda.WithBump(derived.Seeds, derived.Bump), programID)
}
