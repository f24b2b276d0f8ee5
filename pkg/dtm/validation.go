package dtm

import (
	"github.com/blocto/solana-go-sdk/common"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
)

// ValidateCreateManagerParams validates create_dapp_token_manager inputs.
func ValidateCreateManagerParams(params CreateManagerParams) error {
	validationErrors := make([]string, 0)
	if params.IssuancePerCall == 0 {
		return ErrInvalidIssuanceAmount
	}
	if isZeroKey(params.Mint) {
		validationErrors = append(validationErrors, "mint is required")
	}
	if isZeroKey(params.Payer) {
		validationErrors = append(validationErrors, "payer is required")
	}
	if isZeroKey(params.Authority) {
		validationErrors = append(validationErrors, "authority is required")
	}
	if params.Mint == params.Payer && !isZeroKey(params.Mint) {
		validationErrors = append(validationErrors, "mint and payer must differ")
	}
	if len(validationErrors) > 0 {
		return NewManagerValidationError("invalid create manager parameters", validationErrors)
	}
	return nil
}

// ValidateIssueParams validates mint_dapp_token_supply inputs.
func ValidateIssueParams(params IssueParams) error {
	validationErrors := make([]string, 0)
	if isZeroKey(params.Mint) {
		validationErrors = append(validationErrors, "mint is required")
	}
	if isZeroKey(params.Authority) {
		validationErrors = append(validationErrors, "authority is required")
	}
	if isZeroKey(params.Recipient) {
		validationErrors = append(validationErrors, "recipient is required")
	}
	if isZeroKey(params.Payer) {
		validationErrors = append(validationErrors, "payer is required")
	}
	if len(validationErrors) > 0 {
		return NewManagerValidationError("invalid issue parameters", validationErrors)
	}
	return nil
}

func isZeroKey(key common.PublicKey) bool {
	return key == (common.PublicKey{})
}

// VerifyRecord checks that record re-derives to address under programID.
func VerifyRecord(record Record, address common.PublicKey, programID common.PublicKey) error {
	return pda.Verify(address, ManagerSeeds(record.Asset, record.Authority), record.Bump, programID)
}
