package indexer

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/rs/zerolog"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

// Source supplies committed and failed transactions after a slot.
type Source interface {
	Transactions(afterSlot uint64) []ledger.TransactionRecord
}

type Config struct {
	Source Source
	// ProgramID defaults to dtm.ProgramID.
	ProgramID common.PublicKey
	Logger    *zerolog.Logger
}

// Manager is the indexed view of one registry record. Keys are base58.
type Manager struct {
	Address            string `json:"address"`
	Asset              string `json:"asset"`
	Authority          string `json:"authority"`
	PayerAuthority     string `json:"payerAuthority"`
	IssuancePerCall    uint64 `json:"issuancePerCall"`
	TotalIssuanceCount uint64 `json:"totalIssuanceCount"`
	CurrentSupply      uint64 `json:"currentSupply"`
	CreatedSlot        uint64 `json:"createdSlot"`
	CreatedSignature   string `json:"createdSignature"`
}

type Balance struct {
	Asset           string `json:"asset"`
	Owner           string `json:"owner"`
	BalanceAccount  string `json:"balanceAccount"`
	Amount          uint64 `json:"amount"`
	LastUpdatedSlot uint64 `json:"lastUpdatedSlot"`
}

type Issuance struct {
	Signature          string `json:"signature"`
	Slot               uint64 `json:"slot"`
	Manager            string `json:"manager"`
	Asset              string `json:"asset"`
	Recipient          string `json:"recipient"`
	BalanceAccount     string `json:"balanceAccount"`
	Amount             uint64 `json:"amount"`
	TotalIssuanceCount uint64 `json:"totalIssuanceCount"`
}

// State is the full index. Balances are keyed by asset, then owner.
type State struct {
	Managers          map[string]Manager            `json:"managers"`
	Balances          map[string]map[string]Balance `json:"balances"`
	Issuances         []Issuance                    `json:"issuances"`
	LastProcessedSlot uint64                        `json:"lastProcessedSlot"`
}

func newEmptyState() State {
	return State{
		Managers:  map[string]Manager{},
		Balances:  map[string]map[string]Balance{},
		Issuances: make([]Issuance, 0),
	}
}
