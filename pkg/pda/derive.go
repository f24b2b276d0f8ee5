package pda

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// CreateAddress hashes the seeds (bump included) under programID and returns
// the address when it falls off the curve.
func CreateAddress(seeds [][]byte, programID common.PublicKey) (common.PublicKey, error) {
	if err := validateSeeds(seeds, 0); err != nil {
		return common.PublicKey{}, err
	}

	address, err := common.CreateProgramAddress(seeds, programID)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
	}
	return address, nil
}

// FindAddress tries bumps from 255 down to 0 and returns the first viable
// address together with the bump that produced it.
func FindAddress(seeds [][]byte, programID common.PublicKey) (common.PublicKey, uint8, error) {
	if err := validateSeeds(seeds, 1); err != nil {
		return common.PublicKey{}, 0, err
	}

	candidate := make([][]byte, len(seeds)+1)
	copy(candidate, seeds)
	for bump := 255; bump >= 0; bump-- {
		candidate[len(seeds)] = []byte{uint8(bump)}
		address, err := common.CreateProgramAddress(candidate, programID)
		if err == nil {
			return address, uint8(bump), nil
		}
	}

	return common.PublicKey{}, 0, ErrDerivationExhausted
}

// Verify re-derives the address for seeds and bump and compares it with the
// supplied address.
func Verify(address common.PublicKey, seeds [][]byte, bump uint8, programID common.PublicKey) error {
	derived, err := CreateAddress(WithBump(seeds, bump), programID)
	if err != nil {
		return err
	}
	if derived != address {
		return NewAddressMismatchError(derived, address)
	}
	return nil
}

// WithBump returns a copy of seeds with the bump appended as the final seed.
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	withBump := make([][]byte, 0, len(seeds)+1)
	withBump = append(withBump, seeds...)
	return append(withBump, []byte{bump})
}

func validateSeeds(seeds [][]byte, reserved int) error {
	if len(seeds)+reserved > MaxSeeds {
		return fmt.Errorf("%w: %d seeds, limit %d", ErrMaxSeedLengthExceeded, len(seeds)+reserved, MaxSeeds)
	}
	for index, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes, limit %d", ErrMaxSeedLengthExceeded, index, len(seed), MaxSeedLength)
		}
	}
	return nil
}
