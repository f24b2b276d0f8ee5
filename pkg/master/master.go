// Package master is a program that acts through keyless authority. Its
// derived address (seeds []) is recorded as the authority of the managers it
// creates and of the puppets it controls; the master forwards the privileges
// of its own callers into the registry and the puppet program.
package master

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/puppet"
)

const (
	ProgramName = "master"

	InstructionPullStrings     = "pull_strings"
	InstructionCreateManager   = "dapp_token_instruction_handler"
	InstructionIssueViaMaster  = "issue_via_master"
	createManagerAccountCount  = 7
	issueViaMasterAccountCount = 10
)

var (
	ProgramID = common.PublicKeyFromString("CXdpazvEeifrgWfQGbwbtokAewZPsGSGJ2tRCe1Bif8g")

	// ErrForeignManager is returned when the master is asked to issue for a
	// manager whose authority is not the master's own.
	ErrForeignManager = errors.New("manager is not controlled by the master program")

	// ErrUnexpectedRegistry is returned when the first account of a forwarded
	// instruction is not the registry program.
	ErrUnexpectedRegistry = errors.New("registry account is not the registry program")

	pullStringsDiscriminator    = wire.InstructionDiscriminator(InstructionPullStrings)
	createManagerDiscriminator  = wire.InstructionDiscriminator(InstructionCreateManager)
	issueViaMasterDiscriminator = wire.InstructionDiscriminator(InstructionIssueViaMaster)
)

type pullStringsArgs struct {
	Bump uint8
	Data uint64
}

type createManagerArgs struct {
	IssuancePerCall uint64
}

// Authority returns the master's derived authority and its bump.
func Authority() (common.PublicKey, uint8, error) {
	return pda.FindAddress([][]byte{}, ProgramID)
}

// PullStrings builds the instruction setting a puppet's data through the
// master's derived authority. bump must be the authority's bump.
func PullStrings(puppetAccount common.PublicKey, bump uint8, value uint64) (types.Instruction, error) {
	authority, err := pda.CreateAddress(pda.WithBump([][]byte{}, bump), ProgramID)
	if err != nil {
		return types.Instruction{}, err
	}
	data, err := wire.Encode(pullStringsDiscriminator, pullStringsArgs{Bump: bump, Data: value})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: puppetAccount, IsWritable: true},
			{PubKey: puppet.ProgramID},
			{PubKey: authority},
		},
		Data: data,
	}, nil
}

// CreateManager builds the instruction creating a registry manager whose
// recorded authority is the master's derived address. mint and payer sign.
func CreateManager(mint, payer common.PublicKey, issuancePerCall uint64) (types.Instruction, error) {
	authority, _, err := Authority()
	if err != nil {
		return types.Instruction{}, err
	}
	manager, _, err := dtm.FindManagerAddress(dtm.ProgramID, mint, authority)
	if err != nil {
		return types.Instruction{}, err
	}
	data, err := wire.Encode(createManagerDiscriminator, createManagerArgs{IssuancePerCall: issuancePerCall})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: dtm.ProgramID},
			{PubKey: mint, IsSigner: true, IsWritable: true},
			{PubKey: manager, IsWritable: true},
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: common.SysVarRentPubkey},
			{PubKey: common.TokenProgramID},
			{PubKey: common.SystemProgramID},
		},
		Data: data,
	}, nil
}

// IssueViaMaster builds the instruction issuing supply of a master-controlled
// manager to recipient.
//
// Routing through the master does not gate issuance: the registry's
// mint_dapp_token_supply accepts any payer for any manager, so the same
// supply can be issued by calling the registry directly.
func IssueViaMaster(mint, recipient, payer common.PublicKey) (types.Instruction, error) {
	authority, _, err := Authority()
	if err != nil {
		return types.Instruction{}, err
	}
	issue, err := dtm.BuildIssueInstruction(dtm.IssueParams{
		Mint:      mint,
		Authority: authority,
		Recipient: recipient,
		Payer:     payer,
	})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts:  append([]types.AccountMeta{{PubKey: dtm.ProgramID}}, issue.Accounts...),
		Data:      append([]byte(nil), issueViaMasterDiscriminator[:]...),
	}, nil
}

type Program struct{}

func New() Program {
	return Program{}
}

func (Program) ID() common.PublicKey {
	return ProgramID
}

func (Program) Name() string {
	return ProgramName
}

func (program Program) Process(invoke *ledger.InvokeContext, accounts []types.AccountMeta, data []byte) error {
	switch {
	case wire.Match(pullStringsDiscriminator, data):
		var args pullStringsArgs
		if err := wire.Decode(pullStringsDiscriminator, data, &args); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		return program.pullStrings(invoke, accounts, args)
	case wire.Match(createManagerDiscriminator, data):
		var args createManagerArgs
		if err := wire.Decode(createManagerDiscriminator, data, &args); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		return program.createManager(invoke, accounts, args)
	case wire.Match(issueViaMasterDiscriminator, data):
		return program.issue(invoke, accounts)
	}
	return ledger.ErrInvalidInstructionData
}

func (Program) pullStrings(invoke *ledger.InvokeContext, accounts []types.AccountMeta, args pullStringsArgs) error {
	if len(accounts) < 3 {
		return ledger.ErrNotEnoughAccountKeys
	}
	setData, err := puppet.SetData(accounts[0].PubKey, accounts[2].PubKey, args.Data)
	if err != nil {
		return err
	}
	return invoke.Invoke(setData, ledger.NewDerived(args.Bump))
}

func (Program) createManager(invoke *ledger.InvokeContext, accounts []types.AccountMeta, args createManagerArgs) error {
	if len(accounts) < createManagerAccountCount {
		return ledger.ErrNotEnoughAccountKeys
	}
	if err := expectRegistry(accounts[0]); err != nil {
		return err
	}
	authority, _, err := Authority()
	if err != nil {
		return err
	}
	create, err := dtm.BuildCreateManagerInstruction(dtm.CreateManagerParams{
		ProgramID:       dtm.ProgramID,
		Mint:            accounts[1].PubKey,
		Payer:           accounts[3].PubKey,
		Authority:       authority,
		IssuancePerCall: args.IssuancePerCall,
	})
	if err != nil {
		return err
	}
	invoke.Log("Creating manager for %s under master authority %s", accounts[1].PubKey.ToBase58(), authority.ToBase58())
	return invoke.Invoke(create)
}

func (Program) issue(invoke *ledger.InvokeContext, accounts []types.AccountMeta) error {
	if len(accounts) < issueViaMasterAccountCount {
		return ledger.ErrNotEnoughAccountKeys
	}
	if err := expectRegistry(accounts[0]); err != nil {
		return err
	}
	registry := accounts[0].PubKey
	forwarded := accounts[1:]
	manager := forwarded[2].PubKey

	account, err := invoke.Load(manager)
	if err != nil {
		return err
	}
	if account.Owner != registry {
		return fmt.Errorf("%w: manager %s is not owned by the registry", ledger.ErrInvalidAccountData, manager.ToBase58())
	}
	record, err := dtm.RecordFromData(account.Data)
	if err != nil {
		return err
	}
	authority, _, err := Authority()
	if err != nil {
		return err
	}
	if record.Authority != authority {
		return fmt.Errorf("%w: %s", ErrForeignManager, manager.ToBase58())
	}

	invoke.Log("Issuing for manager %s", manager.ToBase58())
	return invoke.Invoke(dtm.NewIssueInstruction(registry, dtm.IssueInstructionAccounts{
		BalanceAccount: forwarded[0].PubKey,
		Mint:           forwarded[1].PubKey,
		Manager:        manager,
		Recipient:      forwarded[3].PubKey,
		Payer:          forwarded[4].PubKey,
	}))
}

func expectRegistry(meta types.AccountMeta) error {
	if meta.PubKey != dtm.ProgramID {
		return fmt.Errorf("%w: got %s", ErrUnexpectedRegistry, meta.PubKey.ToBase58())
	}
	return nil
}
