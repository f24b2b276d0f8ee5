package dtm

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/rs/zerolog"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

const (
	ProgramName = "dapp-token-manager"
	SeedPrefix  = "dapp-token-manager"

	// RecordSize is the discriminator plus the fixed record body.
	RecordSize = 8 + 32 + 32 + 8 + 32 + 8 + 1

	MintAccountLamports = 10_000_000
	MintDecimals        = 9

	InstructionCreateManager = "create_dapp_token_manager"
	InstructionIssue         = "mint_dapp_token_supply"

	EventManagerCreated = "ManagerCreated"
	EventSupplyIssued   = "SupplyIssued"

	recordAccountName = "DappTokenManager"
)

var (
	ProgramID = common.PublicKeyFromString("9T7y6YzHKFfHjpueENveMTidXcLmME1DK6TEjqQ753jc")

	recordDiscriminator         = wire.AccountDiscriminator(recordAccountName)
	createManagerDiscriminator  = wire.InstructionDiscriminator(InstructionCreateManager)
	issueDiscriminator          = wire.InstructionDiscriminator(InstructionIssue)
	managerCreatedDiscriminator = wire.EventDiscriminator(EventManagerCreated)
	supplyIssuedDiscriminator   = wire.EventDiscriminator(EventSupplyIssued)
)

// Record is the registry state kept for one (asset, authority) pair.
type Record struct {
	// Authority is the delegating identity used as a seed; it never signs.
	Authority          common.PublicKey
	Asset              common.PublicKey
	IssuancePerCall    uint64
	PayerAuthority     common.PublicKey
	TotalIssuanceCount uint64
	Bump               uint8
}

type ManagerCreatedEvent struct {
	Manager         common.PublicKey
	Asset           common.PublicKey
	Authority       common.PublicKey
	PayerAuthority  common.PublicKey
	IssuancePerCall uint64
}

type SupplyIssuedEvent struct {
	Manager            common.PublicKey
	Asset              common.PublicKey
	Recipient          common.PublicKey
	BalanceAccount     common.PublicKey
	Amount             uint64
	TotalIssuanceCount uint64
}

type createManagerArgs struct {
	Authority       common.PublicKey
	IssuancePerCall uint64
}

// Submitter is what the client needs from a ledger.
type Submitter interface {
	ledger.AccountReader
	LatestBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, transaction ledger.Transaction) (ledger.Receipt, error)
}

type ClientConfig struct {
	Ledger          Submitter
	PayerPrivateKey string
	ProgramID       string
	Logger          *zerolog.Logger
}

type CreateManagerProgress struct {
	Stage      string
	Percentage int
	Manager    string
	Signature  string
	Error      string
}

type CreateManagerOptions struct {
	Authority       common.PublicKey
	IssuancePerCall uint64
	// Mint is generated when nil.
	Mint             *ledger.Keypair
	ProgressCallback func(CreateManagerProgress)
}

type IssueProgress struct {
	Stage      string
	Percentage int
	Signature  string
	Error      string
}

type IssueOptions struct {
	Mint             common.PublicKey
	Authority        common.PublicKey
	Recipient        common.PublicKey
	ProgressCallback func(IssueProgress)
}

type ManagerInfo struct {
	Address   common.PublicKey
	Record    Record
	Signature string
	Slot      uint64
}

type IssueResult struct {
	Manager            common.PublicKey
	BalanceAccount     common.PublicKey
	Amount             uint64
	Balance            uint64
	TotalIssuanceCount uint64
	Signature          string
	Slot               uint64
}
