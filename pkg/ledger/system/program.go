// Package system implements the System program on the in-process ledger:
// account creation, allocation, assignment and lamport transfers, decoded from
// the same instruction layout the on-chain program uses.
package system

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

// MaxPermittedDataLength bounds the space a single CreateAccount may allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

const (
	instructionCreateAccount uint32 = 0
	instructionAssign        uint32 = 1
	instructionTransfer      uint32 = 2
	instructionAllocate      uint32 = 8
)

type createAccountArgs struct {
	Lamports uint64
	Space    uint64
	Owner    [32]byte
}

type assignArgs struct {
	Owner [32]byte
}

type transferArgs struct {
	Lamports uint64
}

type allocateArgs struct {
	Space uint64
}

type Program struct{}

func New() Program {
	return Program{}
}

func (Program) ID() common.PublicKey {
	return common.SystemProgramID
}

func (Program) Name() string {
	return "system"
}

func (program Program) Process(invoke *ledger.InvokeContext, accounts []types.AccountMeta, data []byte) error {
	if len(data) < 4 {
		return ledger.ErrInvalidInstructionData
	}
	body := data[4:]

	switch binary.LittleEndian.Uint32(data[:4]) {
	case instructionCreateAccount:
		var args createAccountArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		if len(accounts) < 2 {
			return ledger.ErrNotEnoughAccountKeys
		}
		return program.createAccount(invoke, accounts[0].PubKey, accounts[1].PubKey, args)
	case instructionTransfer:
		var args transferArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		if len(accounts) < 2 {
			return ledger.ErrNotEnoughAccountKeys
		}
		return program.transfer(invoke, accounts[0].PubKey, accounts[1].PubKey, args.Lamports)
	case instructionAssign:
		var args assignArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		if len(accounts) < 1 {
			return ledger.ErrNotEnoughAccountKeys
		}
		return program.assign(invoke, accounts[0].PubKey, args.Owner)
	case instructionAllocate:
		var args allocateArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		if len(accounts) < 1 {
			return ledger.ErrNotEnoughAccountKeys
		}
		return program.allocate(invoke, accounts[0].PubKey, args.Space)
	}
	return ledger.ErrInvalidInstructionData
}

func (Program) createAccount(invoke *ledger.InvokeContext, from common.PublicKey, created common.PublicKey, args createAccountArgs) error {
	if !invoke.IsSigner(from) {
		return ledger.NewMissingSignatureError(from)
	}
	if !invoke.IsSigner(created) {
		return ledger.NewMissingSignatureError(created)
	}
	if args.Space > MaxPermittedDataLength {
		return fmt.Errorf("%w: space %d exceeds %d", ledger.ErrInvalidInstructionData, args.Space, MaxPermittedDataLength)
	}

	target, err := invoke.Load(created)
	if err != nil {
		return err
	}
	if !target.IsEmpty() {
		return ledger.NewAccountInUseError(created)
	}
	funder, err := debit(invoke, from, args.Lamports)
	if err != nil {
		return err
	}
	if err := invoke.Store(from, funder); err != nil {
		return err
	}

	invoke.Log("create account %s (%d bytes) owned by %s", created.ToBase58(), args.Space, common.PublicKey(args.Owner).ToBase58())
	return invoke.Store(created, ledger.Account{
		Lamports: args.Lamports,
		Data:     make([]byte, args.Space),
		Owner:    args.Owner,
	})
}

func (Program) transfer(invoke *ledger.InvokeContext, from common.PublicKey, to common.PublicKey, lamports uint64) error {
	if !invoke.IsSigner(from) {
		return ledger.NewMissingSignatureError(from)
	}
	funder, err := debit(invoke, from, lamports)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	recipient, err := invoke.Load(to)
	if err != nil {
		return err
	}
	recipient.Lamports += lamports
	if err := invoke.Store(from, funder); err != nil {
		return err
	}
	return invoke.Store(to, recipient)
}

func (Program) assign(invoke *ledger.InvokeContext, key common.PublicKey, owner common.PublicKey) error {
	if !invoke.IsSigner(key) {
		return ledger.NewMissingSignatureError(key)
	}
	account, err := invoke.Load(key)
	if err != nil {
		return err
	}
	if account.Owner == owner {
		return nil
	}
	if account.Owner != common.SystemProgramID {
		return fmt.Errorf("%w: %s is not a system account", ledger.ErrIllegalOwner, key.ToBase58())
	}
	invoke.Log("assign %s to %s", key.ToBase58(), owner.ToBase58())
	account.Owner = owner
	return invoke.Store(key, account)
}

func (Program) allocate(invoke *ledger.InvokeContext, key common.PublicKey, space uint64) error {
	if !invoke.IsSigner(key) {
		return ledger.NewMissingSignatureError(key)
	}
	if space > MaxPermittedDataLength {
		return fmt.Errorf("%w: space %d exceeds %d", ledger.ErrInvalidInstructionData, space, MaxPermittedDataLength)
	}
	account, err := invoke.Load(key)
	if err != nil {
		return err
	}
	if account.Owner != common.SystemProgramID || len(account.Data) != 0 {
		return ledger.NewAccountInUseError(key)
	}
	invoke.Log("allocate %d bytes for %s", space, key.ToBase58())
	account.Data = make([]byte, space)
	return invoke.Store(key, account)
}

// debit returns the funding account with lamports removed. Only plain system
// accounts without data may fund.
func debit(invoke *ledger.InvokeContext, from common.PublicKey, lamports uint64) (ledger.Account, error) {
	funder, err := invoke.Load(from)
	if err != nil {
		return ledger.Account{}, err
	}
	if funder.Owner != common.SystemProgramID || len(funder.Data) != 0 {
		return ledger.Account{}, fmt.Errorf("%w: funding account %s must be a system account without data", ledger.ErrIllegalOwner, from.ToBase58())
	}
	if funder.Lamports < lamports {
		return ledger.Account{}, ledger.NewInsufficientFundsError(from, lamports, funder.Lamports)
	}
	funder.Lamports -= lamports
	return funder, nil
}
