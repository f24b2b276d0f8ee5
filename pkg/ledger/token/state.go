// Package token implements the subset of the SPL Token program the registry
// depends on (InitializeMint, InitializeAccount and MintTo) together with
// codecs for the 82-byte mint and 165-byte token account layouts.
package token

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

const (
	MintSize    = 82
	AccountSize = 165
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

type Mint struct {
	MintAuthority   *common.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *common.PublicKey
}

type Account struct {
	Mint            common.PublicKey
	Owner           common.PublicKey
	Amount          uint64
	Delegate        *common.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *common.PublicKey
}

// MintFromData decodes an 82-byte mint account.
func MintFromData(data []byte) (Mint, error) {
	if len(data) != MintSize {
		return Mint{}, fmt.Errorf("%w: mint is %d bytes, want %d", ErrInvalidAccountSize, len(data), MintSize)
	}
	mintAuthority, err := getOptionKey(data[0:36])
	if err != nil {
		return Mint{}, err
	}
	freezeAuthority, err := getOptionKey(data[46:82])
	if err != nil {
		return Mint{}, err
	}
	return Mint{
		MintAuthority:   mintAuthority,
		Supply:          binary.LittleEndian.Uint64(data[36:44]),
		Decimals:        data[44],
		IsInitialized:   data[45] == 1,
		FreezeAuthority: freezeAuthority,
	}, nil
}

func (mint Mint) Data() []byte {
	data := make([]byte, MintSize)
	putOptionKey(data[0:36], mint.MintAuthority)
	binary.LittleEndian.PutUint64(data[36:44], mint.Supply)
	data[44] = mint.Decimals
	if mint.IsInitialized {
		data[45] = 1
	}
	putOptionKey(data[46:82], mint.FreezeAuthority)
	return data
}

// AccountFromData decodes a 165-byte token account.
func AccountFromData(data []byte) (Account, error) {
	if len(data) != AccountSize {
		return Account{}, fmt.Errorf("%w: token account is %d bytes, want %d", ErrInvalidAccountSize, len(data), AccountSize)
	}
	delegate, err := getOptionKey(data[72:108])
	if err != nil {
		return Account{}, err
	}
	closeAuthority, err := getOptionKey(data[129:165])
	if err != nil {
		return Account{}, err
	}
	account := Account{
		Mint:            common.PublicKeyFromBytes(data[0:32]),
		Owner:           common.PublicKeyFromBytes(data[32:64]),
		Amount:          binary.LittleEndian.Uint64(data[64:72]),
		Delegate:        delegate,
		State:           AccountState(data[108]),
		DelegatedAmount: binary.LittleEndian.Uint64(data[121:129]),
		CloseAuthority:  closeAuthority,
	}
	if account.State > AccountStateFrozen {
		return Account{}, fmt.Errorf("token: invalid account state %d", data[108])
	}
	switch binary.LittleEndian.Uint32(data[109:113]) {
	case 0:
	case 1:
		native := binary.LittleEndian.Uint64(data[113:121])
		account.IsNative = &native
	default:
		return Account{}, fmt.Errorf("token: invalid option tag at offset 109")
	}
	return account, nil
}

func (account Account) Data() []byte {
	data := make([]byte, AccountSize)
	copy(data[0:32], account.Mint.Bytes())
	copy(data[32:64], account.Owner.Bytes())
	binary.LittleEndian.PutUint64(data[64:72], account.Amount)
	putOptionKey(data[72:108], account.Delegate)
	data[108] = byte(account.State)
	if account.IsNative != nil {
		binary.LittleEndian.PutUint32(data[109:113], 1)
		binary.LittleEndian.PutUint64(data[113:121], *account.IsNative)
	}
	binary.LittleEndian.PutUint64(data[121:129], account.DelegatedAmount)
	putOptionKey(data[129:165], account.CloseAuthority)
	return data
}

func getOptionKey(data []byte) (*common.PublicKey, error) {
	switch binary.LittleEndian.Uint32(data[0:4]) {
	case 0:
		return nil, nil
	case 1:
		key := common.PublicKeyFromBytes(data[4:36])
		return &key, nil
	}
	return nil, fmt.Errorf("token: invalid option tag %d", binary.LittleEndian.Uint32(data[0:4]))
}

func putOptionKey(data []byte, key *common.PublicKey) {
	if key == nil {
		return
	}
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], key.Bytes())
}
