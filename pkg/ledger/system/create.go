package system

import (
	"github.com/blocto/solana-go-sdk/common"
	systemprogram "github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

// CreateOrAdopt returns the instructions leaving address with space zeroed
// bytes, owned by owner and holding at least lamports. An untouched address
// is created in one step. An address that only holds lamports is topped up
// from payer, then allocated and assigned. Anything else is in use.
//
// address must sign every returned instruction; payer funds the difference.
func CreateOrAdopt(
	payer common.PublicKey,
	address common.PublicKey,
	current ledger.Account,
	lamports uint64,
	space uint64,
	owner common.PublicKey,
) ([]types.Instruction, error) {
	if current.IsEmpty() {
		return []types.Instruction{systemprogram.CreateAccount(systemprogram.CreateAccountParam{
			From:     payer,
			New:      address,
			Owner:    owner,
			Lamports: lamports,
			Space:    space,
		})}, nil
	}
	if current.Owner != common.SystemProgramID || len(current.Data) != 0 || current.Executable {
		return nil, ledger.NewAccountInUseError(address)
	}

	instructions := make([]types.Instruction, 0, 3)
	if current.Lamports < lamports {
		instructions = append(instructions, systemprogram.Transfer(systemprogram.TransferParam{
			From:   payer,
			To:     address,
			Amount: lamports - current.Lamports,
		}))
	}
	instructions = append(instructions,
		systemprogram.Allocate(systemprogram.AllocateParam{Account: address, Space: space}),
		systemprogram.Assign(systemprogram.AssignParam{From: address, Owner: owner}),
	)
	return instructions, nil
}
