// Package associated implements the Associated Token Account program on the
// in-process ledger. The account for a (wallet, mint) pair lives at the
// address derived from [wallet, token program, mint] under this program.
package associated

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/system"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/token"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
)

const (
	instructionCreate           uint8 = 0
	instructionCreateIdempotent uint8 = 1
)

var ErrInvalidOwner = errors.New("associated: existing account has a different owner or mint")

// Address returns the associated token account for wallet and mint.
func Address(wallet common.PublicKey, mint common.PublicKey) (common.PublicKey, uint8, error) {
	return pda.FindAddress(seeds(wallet, mint), common.SPLAssociatedTokenAccountProgramID)
}

func seeds(wallet common.PublicKey, mint common.PublicKey) [][]byte {
	return [][]byte{wallet.Bytes(), common.TokenProgramID.Bytes(), mint.Bytes()}
}

// Create builds the instruction that fails when the account already exists.
func Create(payer common.PublicKey, wallet common.PublicKey, mint common.PublicKey) (types.Instruction, error) {
	return build(payer, wallet, mint, []byte{})
}

// CreateIdempotent builds the instruction that succeeds when a matching
// account already exists.
func CreateIdempotent(payer common.PublicKey, wallet common.PublicKey, mint common.PublicKey) (types.Instruction, error) {
	return build(payer, wallet, mint, []byte{instructionCreateIdempotent})
}

func build(payer common.PublicKey, wallet common.PublicKey, mint common.PublicKey, data []byte) (types.Instruction, error) {
	address, _, err := Address(wallet, mint)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: common.SPLAssociatedTokenAccountProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: address, IsSigner: false, IsWritable: true},
			{PubKey: wallet, IsSigner: false, IsWritable: false},
			{PubKey: mint, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
		},
		Data: data,
	}, nil
}

type Program struct{}

func New() Program {
	return Program{}
}

func (Program) ID() common.PublicKey {
	return common.SPLAssociatedTokenAccountProgramID
}

func (Program) Name() string {
	return "spl-associated-token-account"
}

func (program Program) Process(invoke *ledger.InvokeContext, accounts []types.AccountMeta, data []byte) error {
	idempotent := false
	switch {
	case len(data) == 0 || data[0] == instructionCreate:
	case data[0] == instructionCreateIdempotent:
		idempotent = true
	default:
		return ledger.ErrInvalidInstructionData
	}
	if len(accounts) < 6 {
		return ledger.ErrNotEnoughAccountKeys
	}

	payer := accounts[0].PubKey
	address := accounts[1].PubKey
	wallet := accounts[2].PubKey
	mint := accounts[3].PubKey

	expected, bump, err := Address(wallet, mint)
	if err != nil {
		return err
	}
	if expected != address {
		return pda.NewAddressMismatchError(expected, address)
	}

	existing, err := invoke.Load(address)
	if err != nil {
		return err
	}
	if existing.Owner == common.TokenProgramID {
		if !idempotent {
			return ledger.NewAccountInUseError(address)
		}
		decoded, err := token.ReadAccount(existing)
		if err != nil {
			return err
		}
		if decoded.Owner != wallet || decoded.Mint != mint {
			return ErrInvalidOwner
		}
		invoke.Log("Create: account %s already exists", address.ToBase58())
		return nil
	}

	mintAccount, err := invoke.Load(mint)
	if err != nil {
		return err
	}
	if _, err := token.ReadMint(mintAccount); err != nil {
		return fmt.Errorf("invalid mint %s: %w", mint.ToBase58(), err)
	}

	invoke.Log("Create")
	instructions, err := system.CreateOrAdopt(
		payer,
		address,
		existing,
		ledger.MinimumBalance(token.AccountSize),
		token.AccountSize,
		common.TokenProgramID,
	)
	if err != nil {
		return err
	}
	signer := ledger.NewDerived(bump, seeds(wallet, mint)...)
	for _, instruction := range instructions {
		if err := invoke.Invoke(instruction, signer); err != nil {
			return err
		}
	}
	return invoke.Invoke(token.InitializeAccount3(address, mint, wallet))
}
