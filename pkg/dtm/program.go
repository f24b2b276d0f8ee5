package dtm

import (
	"fmt"
	"math"

	"github.com/blocto/solana-go-sdk/common"
	systemprogram "github.com/blocto/solana-go-sdk/program/system"
	tokenprogram "github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/associated"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/system"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/token"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
)

// Program is the registry program as registered into a ledger.
type Program struct {
	programID common.PublicKey
}

// NewProgram creates the registry under programID, or ProgramID when zero.
func NewProgram(programID common.PublicKey) Program {
	return Program{programID: resolveProgramID(programID)}
}

func (program Program) ID() common.PublicKey {
	return program.programID
}

func (Program) Name() string {
	return ProgramName
}

func (program Program) Process(invoke *ledger.InvokeContext, accounts []types.AccountMeta, data []byte) error {
	switch {
	case wire.Match(createManagerDiscriminator, data):
		var args createManagerArgs
		if err := wire.Decode(createManagerDiscriminator, data, &args); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
		}
		return program.createManager(invoke, accounts, args)
	case wire.Match(issueDiscriminator, data):
		return program.issue(invoke, accounts)
	}
	return ErrUnknownInstruction
}

func (program Program) createManager(invoke *ledger.InvokeContext, accounts []types.AccountMeta, args createManagerArgs) error {
	if len(accounts) < 6 {
		return ledger.ErrNotEnoughAccountKeys
	}
	mint := accounts[0].PubKey
	manager := accounts[1].PubKey
	payer := accounts[2].PubKey
	if err := expectAccounts(accounts[3:6], common.SysVarRentPubkey, common.TokenProgramID, common.SystemProgramID); err != nil {
		return err
	}

	if args.IssuancePerCall == 0 {
		return ErrInvalidIssuanceAmount
	}
	expected, bump, err := FindManagerAddress(program.programID, mint, args.Authority)
	if err != nil {
		return err
	}
	if expected != manager {
		return pda.NewAddressMismatchError(expected, manager)
	}
	existing, err := invoke.Load(manager)
	if err != nil {
		return err
	}
	// lamports alone do not make a record; the address is adopted below
	if existing.Owner == program.programID || len(existing.Data) != 0 {
		return NewManagerAlreadyExistsError(manager)
	}

	record := Record{
		Authority:       args.Authority,
		Asset:           mint,
		IssuancePerCall: args.IssuancePerCall,
		PayerAuthority:  payer,
		Bump:            bump,
	}
	signer := record.Signer()

	invoke.Log("1. Creating mint account %s", mint.ToBase58())
	createMint := systemprogram.CreateAccount(systemprogram.CreateAccountParam{
		From:     payer,
		New:      mint,
		Owner:    common.TokenProgramID,
		Lamports: MintAccountLamports,
		Space:    token.MintSize,
	})
	if err := invoke.Invoke(createMint); err != nil {
		return err
	}

	invoke.Log("2. Creating manager record %s", manager.ToBase58())
	createRecord, err := system.CreateOrAdopt(payer, manager, existing, ledger.MinimumBalance(RecordSize), RecordSize, program.programID)
	if err != nil {
		return err
	}
	for _, instruction := range createRecord {
		if err := invoke.Invoke(instruction, signer); err != nil {
			return err
		}
	}
	if err := program.saveRecord(invoke, manager, record); err != nil {
		return err
	}

	invoke.Log("3. Initializing mint with manager as mint and freeze authority")
	initializeMint := tokenprogram.InitializeMint(tokenprogram.InitializeMintParam{
		Decimals:   MintDecimals,
		Mint:       mint,
		MintAuth:   manager,
		FreezeAuth: &manager,
	})
	if err := invoke.Invoke(initializeMint, signer); err != nil {
		return err
	}

	return emit(invoke, EventManagerCreated, managerCreatedDiscriminator, ManagerCreatedEvent{
		Manager:         manager,
		Asset:           mint,
		Authority:       args.Authority,
		PayerAuthority:  payer,
		IssuancePerCall: args.IssuancePerCall,
	})
}

func (program Program) issue(invoke *ledger.InvokeContext, accounts []types.AccountMeta) error {
	if len(accounts) < 9 {
		return ledger.ErrNotEnoughAccountKeys
	}
	balanceAccount := accounts[0].PubKey
	mint := accounts[1].PubKey
	manager := accounts[2].PubKey
	recipient := accounts[3].PubKey
	payer := accounts[4].PubKey
	if err := expectAccounts(
		accounts[5:9],
		common.SysVarRentPubkey,
		common.SPLAssociatedTokenAccountProgramID,
		common.TokenProgramID,
		common.SystemProgramID,
	); err != nil {
		return err
	}

	record, err := program.loadRecord(invoke, manager)
	if err != nil {
		return err
	}
	if err := program.checkIssuance(invoke, manager, record, mint); err != nil {
		return err
	}
	expectedBalance, _, err := associated.Address(recipient, mint)
	if err != nil {
		return err
	}
	if expectedBalance != balanceAccount {
		return pda.NewAddressMismatchError(expectedBalance, balanceAccount)
	}
	if record.TotalIssuanceCount == math.MaxUint64 {
		return ErrIssuanceCountOverflow
	}

	createBalance, err := associated.CreateIdempotent(payer, recipient, mint)
	if err != nil {
		return err
	}
	if err := invoke.Invoke(createBalance); err != nil {
		return err
	}

	invoke.Log("1. Minting %d to %s (signing via manager %s)", record.IssuancePerCall, balanceAccount.ToBase58(), manager.ToBase58())
	mintTo := tokenprogram.MintTo(tokenprogram.MintToParam{
		Mint:   mint,
		To:     balanceAccount,
		Auth:   manager,
		Amount: record.IssuancePerCall,
	})
	if err := invoke.Invoke(mintTo, record.Signer()); err != nil {
		return err
	}

	record.TotalIssuanceCount++
	if err := program.saveRecord(invoke, manager, record); err != nil {
		return err
	}

	return emit(invoke, EventSupplyIssued, supplyIssuedDiscriminator, SupplyIssuedEvent{
		Manager:            manager,
		Asset:              mint,
		Recipient:          recipient,
		BalanceAccount:     balanceAccount,
		Amount:             record.IssuancePerCall,
		TotalIssuanceCount: record.TotalIssuanceCount,
	})
}

// checkIssuance verifies the record still controls the supplied mint.
func (program Program) checkIssuance(invoke *ledger.InvokeContext, manager common.PublicKey, record Record, mint common.PublicKey) error {
	if record.Asset != mint {
		return NewAssetMismatchError(record.Asset, mint)
	}
	derived, err := record.Address(program.programID)
	if err != nil {
		return err
	}
	if derived != manager {
		return pda.NewAddressMismatchError(derived, manager)
	}

	mintAccount, err := invoke.Load(mint)
	if err != nil {
		return err
	}
	decoded, err := token.ReadMint(mintAccount)
	if err != nil {
		return fmt.Errorf("invalid mint %s: %w", mint.ToBase58(), err)
	}
	if decoded.MintAuthority == nil || *decoded.MintAuthority != manager ||
		decoded.FreezeAuthority == nil || *decoded.FreezeAuthority != manager {
		return NewAuthorityMismatchError(manager, decoded.MintAuthority, decoded.FreezeAuthority)
	}
	return nil
}

func (program Program) loadRecord(invoke *ledger.InvokeContext, manager common.PublicKey) (Record, error) {
	account, err := invoke.Load(manager)
	if err != nil {
		return Record{}, err
	}
	if account.Owner != program.programID {
		return Record{}, fmt.Errorf("%w: manager %s is not owned by the registry", ledger.ErrInvalidAccountData, manager.ToBase58())
	}
	return RecordFromData(account.Data)
}

func (program Program) saveRecord(invoke *ledger.InvokeContext, manager common.PublicKey, record Record) error {
	account, err := invoke.Load(manager)
	if err != nil {
		return err
	}
	data, err := record.Data()
	if err != nil {
		return err
	}
	account.Data = data
	return invoke.Store(manager, account)
}

func emit(invoke *ledger.InvokeContext, name string, tag wire.Discriminator, event any) error {
	data, err := wire.Encode(tag, event)
	if err != nil {
		return err
	}
	invoke.Emit(name, data)
	return nil
}

func expectAccounts(metas []types.AccountMeta, expected ...common.PublicKey) error {
	for index, key := range expected {
		if metas[index].PubKey != key {
			return fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedAccount, key.ToBase58(), metas[index].PubKey.ToBase58())
		}
	}
	return nil
}
