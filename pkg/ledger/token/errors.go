package token

import "errors"

var (
	ErrAlreadyInitialized = errors.New("token: account or mint already initialized")
	ErrUninitialized      = errors.New("token: account or mint is not initialized")
	ErrNotRentExempt      = errors.New("token: account is not rent exempt")
	ErrInvalidAccountSize = errors.New("token: invalid account size")
	ErrMintMismatch       = errors.New("token: account does not belong to mint")
	ErrOwnerMismatch      = errors.New("token: authority does not match")
	ErrFixedSupply        = errors.New("token: mint has no mint authority")
	ErrAccountFrozen      = errors.New("token: account is frozen")
	ErrOverflow           = errors.New("token: amount overflows")
	ErrInvalidRentSysvar  = errors.New("token: rent sysvar expected")
)
