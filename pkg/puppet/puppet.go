// Package puppet is a minimal program that stores one number under an
// authority. It exists to exercise keyless signing: only its recorded
// authority may change the number, and that authority is usually a
// program-derived address owned by the master program.
package puppet

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	systemprogram "github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

const (
	ProgramName = "puppet"

	// AccountSize is the discriminator plus data and authority.
	AccountSize = 8 + 8 + 32

	InstructionInitialize = "initialize"
	InstructionSetData    = "set_data"
)

var (
	ProgramID = common.PublicKeyFromString("CEReZ1uhTPWpaY3YbScWvKeLm8XcM6jM42dkv8F9Dypk")

	// ErrAuthorityMismatch is returned when set_data is signed by anyone but
	// the recorded authority.
	ErrAuthorityMismatch = errors.New("puppet authority mismatch")

	accountDiscriminator    = wire.AccountDiscriminator("Puppet")
	initializeDiscriminator = wire.InstructionDiscriminator(InstructionInitialize)
	setDataDiscriminator    = wire.InstructionDiscriminator(InstructionSetData)
)

// Puppet is the stored state.
type Puppet struct {
	Data      uint64
	Authority common.PublicKey
}

type initializeArgs struct {
	Authority common.PublicKey
}

type setDataArgs struct {
	Data uint64
}

// Initialize builds the instruction creating puppet, funded by user, with
// authority as the only key allowed to set its data. puppet must sign.
func Initialize(puppet, user, authority common.PublicKey) (types.Instruction, error) {
	data, err := wire.Encode(initializeDiscriminator, initializeArgs{Authority: authority})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: puppet, IsSigner: true, IsWritable: true},
			{PubKey: user, IsSigner: true, IsWritable: true},
			{PubKey: common.SystemProgramID},
		},
		Data: data,
	}, nil
}

// SetData builds the instruction storing value, signed by authority.
func SetData(puppet, authority common.PublicKey, value uint64) (types.Instruction, error) {
	data, err := wire.Encode(setDataDiscriminator, setDataArgs{Data: value})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: puppet, IsWritable: true},
			{PubKey: authority, IsSigner: true},
		},
		Data: data,
	}, nil
}

// Read decodes a puppet account.
func Read(account ledger.Account) (Puppet, error) {
	if account.Owner != ProgramID {
		return Puppet{}, fmt.Errorf("%w: account is not owned by the puppet program", ledger.ErrInvalidAccountData)
	}
	var puppet Puppet
	if err := wire.Decode(accountDiscriminator, account.Data, &puppet); err != nil {
		return Puppet{}, fmt.Errorf("%w: %v", ledger.ErrInvalidAccountData, err)
	}
	return puppet, nil
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
	case wire.Match(initializeDiscriminator, data):
		var args initializeArgs
		if err := wire.Decode(initializeDiscriminator, data, &args); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		return program.initialize(invoke, accounts, args)
	case wire.Match(setDataDiscriminator, data):
		var args setDataArgs
		if err := wire.Decode(setDataDiscriminator, data, &args); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		return program.setData(invoke, accounts, args)
	}
	return ledger.ErrInvalidInstructionData
}

func (Program) initialize(invoke *ledger.InvokeContext, accounts []types.AccountMeta, args initializeArgs) error {
	if len(accounts) < 3 {
		return ledger.ErrNotEnoughAccountKeys
	}
	puppet := accounts[0].PubKey
	user := accounts[1].PubKey

	create := systemprogram.CreateAccount(systemprogram.CreateAccountParam{
		From:     user,
		New:      puppet,
		Owner:    ProgramID,
		Lamports: ledger.MinimumBalance(AccountSize),
		Space:    AccountSize,
	})
	if err := invoke.Invoke(create); err != nil {
		return err
	}
	return save(invoke, puppet, Puppet{Authority: args.Authority})
}

func (Program) setData(invoke *ledger.InvokeContext, accounts []types.AccountMeta, args setDataArgs) error {
	if len(accounts) < 2 {
		return ledger.ErrNotEnoughAccountKeys
	}
	puppet := accounts[0].PubKey
	authority := accounts[1].PubKey

	account, err := invoke.Load(puppet)
	if err != nil {
		return err
	}
	state, err := Read(account)
	if err != nil {
		return err
	}
	if state.Authority != authority {
		return fmt.Errorf("%w: expected %s, got %s", ErrAuthorityMismatch, state.Authority.ToBase58(), authority.ToBase58())
	}
	if !invoke.IsSigner(authority) {
		return ledger.NewMissingSignatureError(authority)
	}

	invoke.Log("Puppet data set to %d", args.Data)
	state.Data = args.Data
	return save(invoke, puppet, state)
}

func save(invoke *ledger.InvokeContext, key common.PublicKey, state Puppet) error {
	account, err := invoke.Load(key)
	if err != nil {
		return err
	}
	data, err := wire.Encode(accountDiscriminator, state)
	if err != nil {
		return err
	}
	account.Data = data
	return invoke.Store(key, account)
}
