package dtm

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/associated"
)

type CreateManagerInstructionAccounts struct {
	Mint    common.PublicKey
	Manager common.PublicKey
	Payer   common.PublicKey
}

type CreateManagerInstructionArgs struct {
	Authority       common.PublicKey
	IssuancePerCall uint64
}

// NewCreateManagerInstruction builds create_dapp_token_manager for accounts
// the caller already derived.
func NewCreateManagerInstruction(
	programID common.PublicKey,
	accounts CreateManagerInstructionAccounts,
	args CreateManagerInstructionArgs,
) (types.Instruction, error) {
	data, err := wire.Encode(createManagerDiscriminator, createManagerArgs(args))
	if err != nil {
		return types.Instruction{}, err
	}

	return types.Instruction{
		ProgramID: programID,
		Accounts: []types.AccountMeta{
			{PubKey: accounts.Mint, IsSigner: true, IsWritable: true},
			{PubKey: accounts.Manager, IsSigner: false, IsWritable: true},
			{PubKey: accounts.Payer, IsSigner: true, IsWritable: true},
			{PubKey: common.SysVarRentPubkey, IsSigner: false, IsWritable: false},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		},
		Data: data,
	}, nil
}

type CreateManagerParams struct {
	ProgramID       common.PublicKey
	Mint            common.PublicKey
	Payer           common.PublicKey
	Authority       common.PublicKey
	IssuancePerCall uint64
}

// BuildCreateManagerInstruction derives the record address and builds
// create_dapp_token_manager.
func BuildCreateManagerInstruction(params CreateManagerParams) (types.Instruction, error) {
	if err := ValidateCreateManagerParams(params); err != nil {
		return types.Instruction{}, err
	}
	programID := resolveProgramID(params.ProgramID)

	manager, _, err := FindManagerAddress(programID, params.Mint, params.Authority)
	if err != nil {
		return types.Instruction{}, err
	}
	return NewCreateManagerInstruction(programID, CreateManagerInstructionAccounts{
		Mint:    params.Mint,
		Manager: manager,
		Payer:   params.Payer,
	}, CreateManagerInstructionArgs{
		Authority:       params.Authority,
		IssuancePerCall: params.IssuancePerCall,
	})
}

type IssueInstructionAccounts struct {
	BalanceAccount common.PublicKey
	Mint           common.PublicKey
	Manager        common.PublicKey
	Recipient      common.PublicKey
	Payer          common.PublicKey
}

// NewIssueInstruction builds mint_dapp_token_supply for accounts the caller
// already derived.
func NewIssueInstruction(programID common.PublicKey, accounts IssueInstructionAccounts) types.Instruction {
	return types.Instruction{
		ProgramID: programID,
		Accounts: []types.AccountMeta{
			{PubKey: accounts.BalanceAccount, IsSigner: false, IsWritable: true},
			{PubKey: accounts.Mint, IsSigner: false, IsWritable: true},
			{PubKey: accounts.Manager, IsSigner: false, IsWritable: true},
			{PubKey: accounts.Recipient, IsSigner: false, IsWritable: false},
			{PubKey: accounts.Payer, IsSigner: true, IsWritable: true},
			{PubKey: common.SysVarRentPubkey, IsSigner: false, IsWritable: false},
			{PubKey: common.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		},
		Data: append([]byte(nil), issueDiscriminator[:]...),
	}
}

type IssueParams struct {
	ProgramID common.PublicKey
	Mint      common.PublicKey
	Authority common.PublicKey
	Recipient common.PublicKey
	Payer     common.PublicKey
}

// BuildIssueInstruction derives the record and recipient balance account
// and builds mint_dapp_token_supply.
func BuildIssueInstruction(params IssueParams) (types.Instruction, error) {
	if err := ValidateIssueParams(params); err != nil {
		return types.Instruction{}, err
	}
	programID := resolveProgramID(params.ProgramID)

	manager, _, err := FindManagerAddress(programID, params.Mint, params.Authority)
	if err != nil {
		return types.Instruction{}, err
	}
	balanceAccount, _, err := associated.Address(params.Recipient, params.Mint)
	if err != nil {
		return types.Instruction{}, err
	}
	return NewIssueInstruction(programID, IssueInstructionAccounts{
		BalanceAccount: balanceAccount,
		Mint:           params.Mint,
		Manager:        manager,
		Recipient:      params.Recipient,
		Payer:          params.Payer,
	}), nil
}

func resolveProgramID(programID common.PublicKey) common.PublicKey {
	if programID == (common.PublicKey{}) {
		return ProgramID
	}
	return programID
}
