package token

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

const (
	instructionInitializeMint     uint8 = 0
	instructionInitializeAccount  uint8 = 1
	instructionMintTo             uint8 = 7
	instructionInitializeAccount3 uint8 = 18
)

type Program struct{}

func New() Program {
	return Program{}
}

func (Program) ID() common.PublicKey {
	return common.TokenProgramID
}

func (Program) Name() string {
	return "spl-token"
}

func (program Program) Process(invoke *ledger.InvokeContext, accounts []types.AccountMeta, data []byte) error {
	if len(data) == 0 {
		return ledger.ErrInvalidInstructionData
	}

	switch data[0] {
	case instructionInitializeMint:
		// decimals, mint authority, COption<freeze authority> as u8 tag
		if len(data) < 35 {
			return ledger.ErrInvalidInstructionData
		}
		if len(accounts) < 2 {
			return ledger.ErrNotEnoughAccountKeys
		}
		mintAuthority := common.PublicKeyFromBytes(data[2:34])
		var freezeAuthority *common.PublicKey
		switch data[34] {
		case 0:
		case 1:
			if len(data) < 67 {
				return ledger.ErrInvalidInstructionData
			}
			key := common.PublicKeyFromBytes(data[35:67])
			freezeAuthority = &key
		default:
			return ledger.ErrInvalidInstructionData
		}
		return program.initializeMint(invoke, accounts[0].PubKey, accounts[1].PubKey, data[1], mintAuthority, freezeAuthority)
	case instructionInitializeAccount:
		if len(accounts) < 4 {
			return ledger.ErrNotEnoughAccountKeys
		}
		if accounts[3].PubKey != common.SysVarRentPubkey {
			return ErrInvalidRentSysvar
		}
		return program.initializeAccount(invoke, accounts[0].PubKey, accounts[1].PubKey, accounts[2].PubKey)
	case instructionInitializeAccount3:
		if len(data) < 33 {
			return ledger.ErrInvalidInstructionData
		}
		if len(accounts) < 2 {
			return ledger.ErrNotEnoughAccountKeys
		}
		owner := common.PublicKeyFromBytes(data[1:33])
		return program.initializeAccount(invoke, accounts[0].PubKey, accounts[1].PubKey, owner)
	case instructionMintTo:
		if len(data) < 9 {
			return ledger.ErrInvalidInstructionData
		}
		if len(accounts) < 3 {
			return ledger.ErrNotEnoughAccountKeys
		}
		amount := binary.LittleEndian.Uint64(data[1:9])
		return program.mintTo(invoke, accounts[0].PubKey, accounts[1].PubKey, accounts[2].PubKey, amount)
	}
	return ledger.ErrInvalidInstructionData
}

func (Program) initializeMint(
	invoke *ledger.InvokeContext,
	mintKey common.PublicKey,
	rentKey common.PublicKey,
	decimals uint8,
	mintAuthority common.PublicKey,
	freezeAuthority *common.PublicKey,
) error {
	if rentKey != common.SysVarRentPubkey {
		return ErrInvalidRentSysvar
	}
	account, err := loadOwned(invoke, mintKey, MintSize)
	if err != nil {
		return err
	}
	current, err := MintFromData(account.Data)
	if err != nil {
		return err
	}
	if current.IsInitialized {
		return fmt.Errorf("%w: mint %s", ErrAlreadyInitialized, mintKey.ToBase58())
	}
	if account.Lamports < ledger.MinimumBalance(MintSize) {
		return ErrNotRentExempt
	}

	mint := Mint{
		MintAuthority:   &mintAuthority,
		Decimals:        decimals,
		IsInitialized:   true,
		FreezeAuthority: freezeAuthority,
	}
	account.Data = mint.Data()
	invoke.Log("Instruction: InitializeMint")
	return invoke.Store(mintKey, account)
}

func (Program) initializeAccount(
	invoke *ledger.InvokeContext,
	accountKey common.PublicKey,
	mintKey common.PublicKey,
	owner common.PublicKey,
) error {
	account, err := loadOwned(invoke, accountKey, AccountSize)
	if err != nil {
		return err
	}
	current, err := AccountFromData(account.Data)
	if err != nil {
		return err
	}
	if current.State != AccountStateUninitialized {
		return fmt.Errorf("%w: token account %s", ErrAlreadyInitialized, accountKey.ToBase58())
	}
	if account.Lamports < ledger.MinimumBalance(AccountSize) {
		return ErrNotRentExempt
	}
	if _, err := loadMint(invoke, mintKey); err != nil {
		return err
	}

	initialized := Account{Mint: mintKey, Owner: owner, State: AccountStateInitialized}
	account.Data = initialized.Data()
	invoke.Log("Instruction: InitializeAccount")
	return invoke.Store(accountKey, account)
}

func (Program) mintTo(
	invoke *ledger.InvokeContext,
	mintKey common.PublicKey,
	destinationKey common.PublicKey,
	authority common.PublicKey,
	amount uint64,
) error {
	mintAccount, err := loadOwned(invoke, mintKey, MintSize)
	if err != nil {
		return err
	}
	mint, err := MintFromData(mintAccount.Data)
	if err != nil {
		return err
	}
	if !mint.IsInitialized {
		return fmt.Errorf("%w: mint %s", ErrUninitialized, mintKey.ToBase58())
	}

	destinationAccount, err := loadOwned(invoke, destinationKey, AccountSize)
	if err != nil {
		return err
	}
	destination, err := AccountFromData(destinationAccount.Data)
	if err != nil {
		return err
	}
	switch destination.State {
	case AccountStateUninitialized:
		return fmt.Errorf("%w: token account %s", ErrUninitialized, destinationKey.ToBase58())
	case AccountStateFrozen:
		return ErrAccountFrozen
	}
	if destination.Mint != mintKey {
		return ErrMintMismatch
	}

	if mint.MintAuthority == nil {
		return ErrFixedSupply
	}
	if *mint.MintAuthority != authority {
		return ErrOwnerMismatch
	}
	if !invoke.IsSigner(authority) {
		return ledger.NewMissingSignatureError(authority)
	}

	supply, carry := bits.Add64(mint.Supply, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	balance, carry := bits.Add64(destination.Amount, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	mint.Supply = supply
	destination.Amount = balance

	mintAccount.Data = mint.Data()
	destinationAccount.Data = destination.Data()
	invoke.Log("Instruction: MintTo")
	if err := invoke.Store(mintKey, mintAccount); err != nil {
		return err
	}
	return invoke.Store(destinationKey, destinationAccount)
}

func loadOwned(invoke *ledger.InvokeContext, key common.PublicKey, size int) (ledger.Account, error) {
	account, err := invoke.Load(key)
	if err != nil {
		return ledger.Account{}, err
	}
	if account.Owner != common.TokenProgramID {
		return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrIllegalOwner, key.ToBase58())
	}
	if len(account.Data) != size {
		return ledger.Account{}, fmt.Errorf("%w: %s is %d bytes, want %d", ErrInvalidAccountSize, key.ToBase58(), len(account.Data), size)
	}
	return account, nil
}

func loadMint(invoke *ledger.InvokeContext, key common.PublicKey) (Mint, error) {
	account, err := loadOwned(invoke, key, MintSize)
	if err != nil {
		return Mint{}, err
	}
	mint, err := MintFromData(account.Data)
	if err != nil {
		return Mint{}, err
	}
	if !mint.IsInitialized {
		return Mint{}, fmt.Errorf("%w: mint %s", ErrUninitialized, key.ToBase58())
	}
	return mint, nil
}

// InitializeAccount3 builds the rent-sysvar-free variant of
// InitializeAccount that the associated token program issues.
func InitializeAccount3(account common.PublicKey, mint common.PublicKey, owner common.PublicKey) types.Instruction {
	data := make([]byte, 33)
	data[0] = instructionInitializeAccount3
	copy(data[1:], owner.Bytes())
	return types.Instruction{
		ProgramID: common.TokenProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: account, IsSigner: false, IsWritable: true},
			{PubKey: mint, IsSigner: false, IsWritable: false},
		},
		Data: data,
	}
}

// ReadMint decodes a mint account owned by the token program.
func ReadMint(account ledger.Account) (Mint, error) {
	if account.Owner != common.TokenProgramID {
		return Mint{}, ledger.ErrIllegalOwner
	}
	return MintFromData(account.Data)
}

// ReadAccount decodes a token account owned by the token program.
func ReadAccount(account ledger.Account) (Account, error) {
	if account.Owner != common.TokenProgramID {
		return Account{}, ledger.ErrIllegalOwner
	}
	return AccountFromData(account.Data)
}
