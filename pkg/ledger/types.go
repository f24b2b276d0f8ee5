package ledger

import (
	"bytes"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"
)

const (
	LamportsPerSOL = 1_000_000_000

	// MaxStackHeight bounds nested invocations; the top-level instruction is
	// height 1.
	MaxStackHeight = 5

	DefaultRecentBlockhashes = 150

	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

// MinimumBalance returns the rent-exempt balance for an account of size bytes.
func MinimumBalance(size uint64) uint64 {
	return (size + accountStorageOverhead) * lamportsPerByteYear * exemptionThreshold
}

type Account struct {
	Lamports   uint64
	Data       []byte
	Owner      common.PublicKey
	Executable bool
}

// Clone returns a deep copy of the account.
func (account Account) Clone() Account {
	clone := account
	if account.Data != nil {
		clone.Data = append([]byte(nil), account.Data...)
	}
	return clone
}

// IsEmpty reports whether the account has never been funded or allocated.
func (account Account) IsEmpty() bool {
	return account.Lamports == 0 && len(account.Data) == 0 && account.Owner == common.SystemProgramID
}

func (account Account) equal(other Account) bool {
	return account.Lamports == other.Lamports &&
		account.Owner == other.Owner &&
		account.Executable == other.Executable &&
		bytes.Equal(account.Data, other.Data)
}

// Privilege is the pair of flags an account carries inside one invocation.
type Privilege struct {
	Signer   bool
	Writable bool
}

// Program is executable logic registered under a program id.
type Program interface {
	ID() common.PublicKey
	Name() string
	Process(invoke *InvokeContext, accounts []types.AccountMeta, data []byte) error
}

// Event is a structured record emitted by a program during execution.
type Event struct {
	ProgramID common.PublicKey
	Name      string
	Data      []byte
}

type Receipt struct {
	Signature string
	Slot      uint64
	Logs      []string
	Events    []Event
}

// TransactionRecord is the retained history entry for a processed
// transaction. Err is empty when the transaction committed.
type TransactionRecord struct {
	Signature string
	Slot      uint64
	Logs      []string
	Events    []Event
	Err       string
}

type Config struct {
	Logger            *zerolog.Logger
	Metrics           *Metrics
	Store             AccountStore
	RecentBlockhashes int
}
