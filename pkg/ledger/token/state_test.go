package token

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

func TestMintLayoutOffsets(t *testing.T) {
	authority := types.NewAccount().PublicKey
	mint := Mint{MintAuthority: &authority, Supply: 42, Decimals: 9, IsInitialized: true, FreezeAuthority: &authority}
	data := mint.Data()

	if len(data) != MintSize {
		t.Fatalf("expected %d bytes, got %d", MintSize, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != 1 || !bytes.Equal(data[4:36], authority.Bytes()) {
		t.Fatalf("unexpected mint authority encoding %x", data[0:36])
	}
	if binary.LittleEndian.Uint64(data[36:44]) != 42 || data[44] != 9 || data[45] != 1 {
		t.Fatalf("unexpected supply/decimals/initialized encoding %x", data[36:46])
	}
	if binary.LittleEndian.Uint32(data[46:50]) != 1 || !bytes.Equal(data[50:82], authority.Bytes()) {
		t.Fatalf("unexpected freeze authority encoding %x", data[46:82])
	}

	decoded, err := MintFromData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded.MintAuthority != authority || *decoded.FreezeAuthority != authority || decoded.Supply != 42 {
		t.Fatalf("unexpected decoded mint %+v", decoded)
	}
}

func TestMintWithoutFreezeAuthority(t *testing.T) {
	decoded, err := MintFromData(Mint{Decimals: 6}.Data())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.MintAuthority != nil || decoded.FreezeAuthority != nil || decoded.IsInitialized {
		t.Fatalf("expected empty options, got %+v", decoded)
	}
}

func TestAccountLayoutOffsets(t *testing.T) {
	mint := types.NewAccount().PublicKey
	owner := types.NewAccount().PublicKey
	account := Account{Mint: mint, Owner: owner, Amount: 7, State: AccountStateInitialized}
	data := account.Data()

	if len(data) != AccountSize {
		t.Fatalf("expected %d bytes, got %d", AccountSize, len(data))
	}
	if common.PublicKeyFromBytes(data[0:32]) != mint || common.PublicKeyFromBytes(data[32:64]) != owner {
		t.Fatalf("unexpected mint/owner encoding")
	}
	if binary.LittleEndian.Uint64(data[64:72]) != 7 || data[108] != 1 {
		t.Fatalf("unexpected amount/state encoding")
	}

	decoded, err := AccountFromData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Mint != mint || decoded.Owner != owner || decoded.Amount != 7 || decoded.IsNative != nil {
		t.Fatalf("unexpected decoded account %+v", decoded)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	if _, err := MintFromData(make([]byte, 10)); err == nil {
		t.Fatalf("expected size error")
	}
	data := make([]byte, MintSize)
	data[0] = 2
	if _, err := MintFromData(data); err == nil {
		t.Fatalf("expected option tag error")
	}
	if _, err := AccountFromData(make([]byte, MintSize)); err == nil {
		t.Fatalf("expected size error")
	}
}
