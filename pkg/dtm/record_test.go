package dtm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/associated"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
)

func TestRecordLayout(t *testing.T) {
	asset := types.NewAccount().PublicKey
	authority := types.NewAccount().PublicKey
	payer := types.NewAccount().PublicKey
	record := Record{
		Authority:          authority,
		Asset:              asset,
		IssuancePerCall:    0x0102030405060708,
		PayerAuthority:     payer,
		TotalIssuanceCount: 3,
		Bump:               254,
	}

	data, err := record.Data()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != RecordSize || RecordSize != 121 {
		t.Fatalf("expected 121 byte record, got %d", len(data))
	}
	if !bytes.Equal(data[:8], recordDiscriminator[:]) {
		t.Fatalf("expected record discriminator prefix, got %x", data[:8])
	}
	if !bytes.Equal(data[8:40], authority.Bytes()) || !bytes.Equal(data[40:72], asset.Bytes()) {
		t.Fatal("expected authority then asset after the discriminator")
	}
	if data[72] != 0x08 || data[79] != 0x01 {
		t.Fatalf("expected little-endian issuance, got %x", data[72:80])
	}
	if !bytes.Equal(data[80:112], payer.Bytes()) || data[112] != 3 || data[120] != 254 {
		t.Fatalf("unexpected tail layout %x", data[80:])
	}

	decoded, err := RecordFromData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != record {
		t.Fatalf("expected %+v, got %+v", record, decoded)
	}
}

func TestRecordFromDataRejectsMalformed(t *testing.T) {
	if _, err := RecordFromData(make([]byte, RecordSize-1)); !errors.Is(err, ledger.ErrInvalidAccountData) {
		t.Fatalf("expected ErrInvalidAccountData for short data, got %v", err)
	}
	if _, err := RecordFromData(make([]byte, RecordSize)); !errors.Is(err, ledger.ErrInvalidAccountData) {
		t.Fatalf("expected ErrInvalidAccountData for wrong discriminator, got %v", err)
	}
}

func TestFindManagerAddressIsDeterministic(t *testing.T) {
	asset := types.NewAccount().PublicKey
	authority := types.NewAccount().PublicKey

	first, firstBump, err := FindManagerAddress(ProgramID, asset, authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, secondBump, err := FindManagerAddress(ProgramID, asset, authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second || firstBump != secondBump {
		t.Fatalf("expected identical derivations, got %s/%d and %s/%d", first.ToBase58(), firstBump, second.ToBase58(), secondBump)
	}

	swapped, _, err := FindManagerAddress(ProgramID, authority, asset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swapped == first {
		t.Fatal("expected seed order to matter")
	}
	otherProgram, _, err := FindManagerAddress(common.TokenProgramID, asset, authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otherProgram == first {
		t.Fatal("expected program id to matter")
	}

	record := Record{Asset: asset, Authority: authority, Bump: firstBump}
	if err := VerifyRecord(record, first, ProgramID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record.Authority = asset
	var mismatch pda.AddressMismatchError
	if err := VerifyRecord(record, first, ProgramID); !errors.As(err, &mismatch) && !errors.Is(err, pda.ErrInvalidSeeds) {
		t.Fatalf("expected mismatch for altered authority, got %v", err)
	}
}

func TestBuildCreateManagerInstructionValidation(t *testing.T) {
	_, err := BuildCreateManagerInstruction(CreateManagerParams{IssuancePerCall: 1})
	var validation ManagerValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ManagerValidationError, got %v", err)
	}
	if len(validation.ValidationErrors) != 3 {
		t.Fatalf("expected 3 validation errors, got %v", validation.ValidationErrors)
	}

	key := types.NewAccount().PublicKey
	_, err = BuildCreateManagerInstruction(CreateManagerParams{
		Mint:            key,
		Payer:           key,
		Authority:       types.NewAccount().PublicKey,
		IssuancePerCall: 1,
	})
	if !errors.As(err, &validation) {
		t.Fatalf("expected ManagerValidationError for shared mint and payer, got %v", err)
	}
}

func TestBuildIssueInstructionAccounts(t *testing.T) {
	mint := types.NewAccount().PublicKey
	authority := types.NewAccount().PublicKey
	recipient := types.NewAccount().PublicKey
	payer := types.NewAccount().PublicKey

	instruction, err := BuildIssueInstruction(IssueParams{
		Mint:      mint,
		Authority: authority,
		Recipient: recipient,
		Payer:     payer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instruction.ProgramID != ProgramID {
		t.Fatalf("expected default program id, got %s", instruction.ProgramID.ToBase58())
	}
	manager, _, _ := FindManagerAddress(ProgramID, mint, authority)
	balance, _, _ := associated.Address(recipient, mint)
	expected := []types.AccountMeta{
		{PubKey: balance, IsWritable: true},
		{PubKey: mint, IsWritable: true},
		{PubKey: manager, IsWritable: true},
		{PubKey: recipient},
		{PubKey: payer, IsSigner: true, IsWritable: true},
		{PubKey: common.SysVarRentPubkey},
		{PubKey: common.SPLAssociatedTokenAccountProgramID},
		{PubKey: common.TokenProgramID},
		{PubKey: common.SystemProgramID},
	}
	if len(instruction.Accounts) != len(expected) {
		t.Fatalf("expected %d accounts, got %d", len(expected), len(instruction.Accounts))
	}
	for index, meta := range expected {
		if instruction.Accounts[index] != meta {
			t.Fatalf("account %d: expected %+v, got %+v", index, meta, instruction.Accounts[index])
		}
	}
	if !bytes.Equal(instruction.Data, issueDiscriminator[:]) {
		t.Fatalf("expected bare discriminator data, got %x", instruction.Data)
	}

	if _, err := BuildIssueInstruction(IssueParams{Mint: mint}); err == nil {
		t.Fatal("expected validation error")
	}
}
