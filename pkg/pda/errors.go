package pda

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

var (
	ErrDerivationExhausted   = errors.New("pda: unable to find a viable bump for the given seeds")
	ErrMaxSeedLengthExceeded = errors.New("pda: max seed length exceeded")
	ErrInvalidSeeds          = errors.New("pda: seeds produce an on-curve address")
)

type PDAError struct {
	Message string
}

func (errorValue PDAError) Error() string {
	return errorValue.Message
}

// AddressMismatchError reports that a supplied address does not match the
// address re-derived from its seeds.
type AddressMismatchError struct {
	PDAError
	Expected common.PublicKey
	Actual   common.PublicKey
}

func NewAddressMismatchError(expected common.PublicKey, actual common.PublicKey) error {
	return AddressMismatchError{
		PDAError: PDAError{Message: fmt.Sprintf(
			"address mismatch: derived %s, supplied %s",
			expected.ToBase58(),
			actual.ToBase58(),
		)},
		Expected: expected,
		Actual:   actual,
	}
}
