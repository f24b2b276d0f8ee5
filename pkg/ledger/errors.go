package ledger

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

var (
	// ErrAuthorization is matched by every signer or privilege failure.
	ErrAuthorization = errors.New("ledger: authorization failed")

	ErrNoInstructions          = errors.New("ledger: transaction has no instructions")
	ErrBlockhashNotFound       = errors.New("ledger: blockhash not found")
	ErrAlreadyProcessed        = errors.New("ledger: transaction already processed")
	ErrInvalidSignature        = errors.New("ledger: invalid transaction signature")
	ErrCallDepthExceeded       = errors.New("ledger: invocation stack height exceeded")
	ErrDerivedSignerAtTopLevel = errors.New("ledger: derived signers are only valid inside a program invocation")
	ErrKeypairInInvocation     = errors.New("ledger: keypair signers are only valid at the transaction level")
	ErrUnbalancedInstruction   = errors.New("ledger: sum of account balances changed")
	ErrAccountExists           = errors.New("ledger: account already exists")
	ErrNotEnoughAccountKeys    = errors.New("ledger: not enough account keys for instruction")
	ErrInvalidInstructionData  = errors.New("ledger: invalid instruction data")
	ErrInvalidAccountData      = errors.New("ledger: invalid account data")
	ErrIllegalOwner            = errors.New("ledger: account is not owned by the expected program")
)

type LedgerError struct {
	Message string
}

func (errorValue LedgerError) Error() string {
	return errorValue.Message
}

// TransactionError wraps the failure of one top-level instruction.
type TransactionError struct {
	LedgerError
	Index     int
	ProgramID common.PublicKey
	Err       error
}

func NewTransactionError(index int, programID common.PublicKey, err error) error {
	return TransactionError{
		LedgerError: LedgerError{Message: fmt.Sprintf(
			"instruction %d (program %s) failed: %v",
			index,
			programID.ToBase58(),
			err,
		)},
		Index:     index,
		ProgramID: programID,
		Err:       err,
	}
}

func (errorValue TransactionError) Unwrap() error {
	return errorValue.Err
}

type MissingSignatureError struct {
	LedgerError
	Account common.PublicKey
}

func NewMissingSignatureError(account common.PublicKey) error {
	return MissingSignatureError{
		LedgerError: LedgerError{Message: fmt.Sprintf("missing required signature for %s", account.ToBase58())},
		Account:     account,
	}
}

func (errorValue MissingSignatureError) Is(target error) bool {
	return target == ErrAuthorization
}

// PrivilegeEscalationError reports a nested invocation that asked for a
// signer or writable flag its caller did not hold.
type PrivilegeEscalationError struct {
	LedgerError
	Account   common.PublicKey
	Privilege string
}

func NewPrivilegeEscalationError(account common.PublicKey, privilege string) error {
	return PrivilegeEscalationError{
		LedgerError: LedgerError{Message: fmt.Sprintf("%s privilege escalated for %s", privilege, account.ToBase58())},
		Account:     account,
		Privilege:   privilege,
	}
}

func (errorValue PrivilegeEscalationError) Is(target error) bool {
	return target == ErrAuthorization
}

type InsufficientFundsError struct {
	LedgerError
	Account   common.PublicKey
	Required  uint64
	Available uint64
}

func NewInsufficientFundsError(account common.PublicKey, required uint64, available uint64) error {
	return InsufficientFundsError{
		LedgerError: LedgerError{Message: fmt.Sprintf(
			"insufficient funds in %s: need %d lamports, have %d",
			account.ToBase58(),
			required,
			available,
		)},
		Account:   account,
		Required:  required,
		Available: available,
	}
}

type AccountInUseError struct {
	LedgerError
	Account common.PublicKey
}

func NewAccountInUseError(account common.PublicKey) error {
	return AccountInUseError{
		LedgerError: LedgerError{Message: fmt.Sprintf("account %s already in use", account.ToBase58())},
		Account:     account,
	}
}

func (errorValue AccountInUseError) Is(target error) bool {
	return target == ErrAccountExists
}

type UnknownAccountError struct {
	LedgerError
	Account common.PublicKey
}

func NewUnknownAccountError(account common.PublicKey) error {
	return UnknownAccountError{
		LedgerError: LedgerError{Message: fmt.Sprintf("account %s is not referenced by the transaction", account.ToBase58())},
		Account:     account,
	}
}

type UnknownProgramError struct {
	LedgerError
	ProgramID common.PublicKey
}

func NewUnknownProgramError(programID common.PublicKey) error {
	return UnknownProgramError{
		LedgerError: LedgerError{Message: fmt.Sprintf("program %s is not registered", programID.ToBase58())},
		ProgramID:   programID,
	}
}

// AccountModificationError reports a write the invoking program is not
// allowed to make.
type AccountModificationError struct {
	LedgerError
	Account common.PublicKey
	Reason  string
}

func NewAccountModificationError(account common.PublicKey, reason string) error {
	return AccountModificationError{
		LedgerError: LedgerError{Message: fmt.Sprintf("illegal modification of %s: %s", account.ToBase58(), reason)},
		Account:     account,
		Reason:      reason,
	}
}
