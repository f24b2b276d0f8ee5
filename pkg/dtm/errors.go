package dtm

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

var (
	ErrInvalidIssuanceAmount = errors.New("dtm: issuance per call must be greater than zero")
	ErrIssuanceCountOverflow = errors.New("dtm: total issuance count overflows")
	ErrUnexpectedAccount     = errors.New("dtm: unexpected account")
	ErrUnknownInstruction    = errors.New("dtm: unknown instruction")
	ErrEventNotFound         = errors.New("dtm: transaction did not emit the expected event")
)

type DTMError struct {
	Message string
}

func (errorValue DTMError) Error() string {
	return errorValue.Message
}

type ManagerAlreadyExistsError struct {
	DTMError
	Address common.PublicKey
}

func NewManagerAlreadyExistsError(address common.PublicKey) error {
	return ManagerAlreadyExistsError{
		DTMError: DTMError{Message: fmt.Sprintf("manager %s already exists", address.ToBase58())},
		Address:  address,
	}
}

func (errorValue ManagerAlreadyExistsError) Is(target error) bool {
	return target == ledger.ErrAccountExists
}

type ManagerNotFoundError struct {
	DTMError
	Address common.PublicKey
}

func NewManagerNotFoundError(address common.PublicKey) error {
	return ManagerNotFoundError{
		DTMError: DTMError{Message: fmt.Sprintf("manager %s not found", address.ToBase58())},
		Address:  address,
	}
}

// AssetMismatchError reports a supplied mint that is not the record's asset.
type AssetMismatchError struct {
	DTMError
	Expected common.PublicKey
	Actual   common.PublicKey
}

func NewAssetMismatchError(expected common.PublicKey, actual common.PublicKey) error {
	return AssetMismatchError{
		DTMError: DTMError{Message: fmt.Sprintf(
			"asset mismatch: record holds %s, supplied %s",
			expected.ToBase58(),
			actual.ToBase58(),
		)},
		Expected: expected,
		Actual:   actual,
	}
}

// AuthorityMismatchError reports a mint whose mint or freeze authority is no
// longer the manager record.
type AuthorityMismatchError struct {
	DTMError
	Manager         common.PublicKey
	MintAuthority   *common.PublicKey
	FreezeAuthority *common.PublicKey
}

func NewAuthorityMismatchError(manager common.PublicKey, mintAuthority *common.PublicKey, freezeAuthority *common.PublicKey) error {
	return AuthorityMismatchError{
		DTMError: DTMError{Message: fmt.Sprintf(
			"mint authorities (%s, %s) do not match manager %s",
			describeKey(mintAuthority),
			describeKey(freezeAuthority),
			manager.ToBase58(),
		)},
		Manager:         manager,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}
}

type ManagerValidationError struct {
	DTMError
	ValidationErrors []string
}

func NewManagerValidationError(message string, validationErrors []string) error {
	if len(validationErrors) == 0 {
		return ManagerValidationError{
			DTMError: DTMError{Message: message},
		}
	}
	return ManagerValidationError{
		DTMError:         DTMError{Message: fmt.Sprintf("%s: %v", message, validationErrors)},
		ValidationErrors: append([]string{}, validationErrors...),
	}
}

func describeKey(key *common.PublicKey) string {
	if key == nil {
		return "none"
	}
	return key.ToBase58()
}
