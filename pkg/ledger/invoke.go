package ledger

import (
	"fmt"
	"math/bits"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// execution is the working state of one transaction.
type execution struct {
	ledger   *Ledger
	accounts map[common.PublicKey]*Account
	original map[common.PublicKey]Account
	existed  map[common.PublicKey]bool
	logs     []string
	events   []Event
}

// InvokeContext is the privilege context of one program invocation: which
// program is running, at what depth, and which signer and writable flags
// each of its accounts carries.
type InvokeContext struct {
	execution  *execution
	programID  common.PublicKey
	accounts   []types.AccountMeta
	privileges map[common.PublicKey]Privilege
	height     int
}

func (invoke *InvokeContext) ProgramID() common.PublicKey {
	return invoke.programID
}

// StackHeight is 1 for a top-level instruction.
func (invoke *InvokeContext) StackHeight() int {
	return invoke.height
}

// Accounts returns the account metas the current instruction was invoked with.
func (invoke *InvokeContext) Accounts() []types.AccountMeta {
	return append([]types.AccountMeta(nil), invoke.accounts...)
}

func (invoke *InvokeContext) Privilege(key common.PublicKey) (Privilege, bool) {
	privilege, ok := invoke.privileges[key]
	return privilege, ok
}

func (invoke *InvokeContext) IsSigner(key common.PublicKey) bool {
	return invoke.privileges[key].Signer
}

func (invoke *InvokeContext) IsWritable(key common.PublicKey) bool {
	return invoke.privileges[key].Writable
}

// Load returns a copy of an account passed to the current instruction.
// Addresses that hold nothing load as empty system accounts.
func (invoke *InvokeContext) Load(key common.PublicKey) (Account, error) {
	if _, ok := invoke.privileges[key]; !ok {
		return Account{}, NewUnknownAccountError(key)
	}
	account, ok := invoke.execution.accounts[key]
	if !ok {
		return Account{}, NewUnknownAccountError(key)
	}
	return account.Clone(), nil
}

// Store replaces the working copy of key. The running program may credit
// any writable account, but only the owner may debit it, change its data,
// or assign it a new owner, and a new owner only while its data is zeroed.
func (invoke *InvokeContext) Store(key common.PublicKey, updated Account) error {
	current, err := invoke.Load(key)
	if err != nil {
		return err
	}
	if current.equal(updated) {
		return nil
	}
	if !invoke.IsWritable(key) {
		return NewAccountModificationError(key, "account is not writable")
	}
	if current.Executable || updated.Executable {
		return NewAccountModificationError(key, "executable accounts are immutable")
	}

	owned := current.Owner == invoke.programID
	if updated.Lamports < current.Lamports && !owned {
		return NewAccountModificationError(key, "only the owner may debit lamports")
	}
	dataChanged := len(updated.Data) != len(current.Data) || string(updated.Data) != string(current.Data)
	if dataChanged && !owned {
		return NewAccountModificationError(key, "only the owner may modify data")
	}
	if updated.Owner != current.Owner {
		if !owned {
			return NewAccountModificationError(key, "only the owner may assign a new owner")
		}
		if !zeroed(updated.Data) {
			return NewAccountModificationError(key, "owner may only change while data is zeroed")
		}
	}

	stored := updated.Clone()
	invoke.execution.accounts[key] = &stored
	return nil
}

// Invoke runs instruction in the program it names. Each account keeps in the
// callee only the privileges the caller holds: writable if the caller holds
// it writable, signer if the caller holds it as signer or one of the Derived
// signers resolves to it under the caller's program id.
func (invoke *InvokeContext) Invoke(instruction types.Instruction, signers ...Signer) error {
	if invoke.height+1 > MaxStackHeight {
		return fmt.Errorf("%w: %d", ErrCallDepthExceeded, invoke.height+1)
	}

	derived := map[common.PublicKey]bool{}
	for _, signer := range signers {
		switch typed := signer.(type) {
		case Derived:
			address, err := typed.Address(invoke.programID)
			if err != nil {
				return fmt.Errorf("%w: derived signer does not resolve: %v", ErrAuthorization, err)
			}
			derived[address] = true
		case Keypair:
			return ErrKeypairInInvocation
		default:
			return fmt.Errorf("unsupported signer type %T", signer)
		}
	}

	if _, loaded := invoke.execution.accounts[instruction.ProgramID]; !loaded {
		return NewUnknownAccountError(instruction.ProgramID)
	}

	privileges := map[common.PublicKey]Privilege{}
	for _, meta := range instruction.Accounts {
		caller, ok := invoke.privileges[meta.PubKey]
		if !ok {
			return NewUnknownAccountError(meta.PubKey)
		}
		if meta.IsWritable && !caller.Writable {
			return NewPrivilegeEscalationError(meta.PubKey, "writable")
		}
		if meta.IsSigner && !caller.Signer && !derived[meta.PubKey] {
			return NewPrivilegeEscalationError(meta.PubKey, "signer")
		}
		privilege := privileges[meta.PubKey]
		privilege.Signer = privilege.Signer || meta.IsSigner
		privilege.Writable = privilege.Writable || meta.IsWritable
		privileges[meta.PubKey] = privilege
	}

	callee := &InvokeContext{
		execution:  invoke.execution,
		programID:  instruction.ProgramID,
		accounts:   instruction.Accounts,
		privileges: privileges,
		height:     invoke.height + 1,
	}
	return invoke.execution.run(callee, instruction)
}

// Log appends a program log line to the transaction's receipt.
func (invoke *InvokeContext) Log(format string, args ...any) {
	invoke.execution.log("Program log: " + fmt.Sprintf(format, args...))
}

// Emit records an event for the transaction's receipt. Events of failed
// transactions are discarded.
func (invoke *InvokeContext) Emit(name string, data []byte) {
	invoke.execution.events = append(invoke.execution.events, Event{
		ProgramID: invoke.programID,
		Name:      name,
		Data:      append([]byte(nil), data...),
	})
}

func (execution *execution) log(line string) {
	execution.logs = append(execution.logs, line)
	execution.ledger.logger.Debug().Msg(line)
}

func (execution *execution) run(invoke *InvokeContext, instruction types.Instruction) error {
	programID := instruction.ProgramID.ToBase58()
	program, ok := execution.ledger.program(instruction.ProgramID)
	if !ok {
		return NewUnknownProgramError(instruction.ProgramID)
	}
	account, loaded := execution.accounts[instruction.ProgramID]
	if !loaded || !account.Executable {
		return NewUnknownProgramError(instruction.ProgramID)
	}

	execution.log(fmt.Sprintf("Program %s invoke [%d]", programID, invoke.height))
	execution.ledger.metrics.IncrementInstruction(program.Name())

	keys := instructionAccounts(instruction.Accounts)
	before, err := execution.balance(keys)
	if err != nil {
		return err
	}
	if err := program.Process(invoke, instruction.Accounts, instruction.Data); err != nil {
		execution.log(fmt.Sprintf("Program %s failed: %v", programID, err))
		return err
	}
	after, err := execution.balance(keys)
	if err != nil {
		return err
	}
	if before != after {
		execution.log(fmt.Sprintf("Program %s failed: %v", programID, ErrUnbalancedInstruction))
		return ErrUnbalancedInstruction
	}

	execution.log(fmt.Sprintf("Program %s success", programID))
	return nil
}

// balance sums lamports over keys as a 128-bit value.
func (execution *execution) balance(keys []common.PublicKey) ([2]uint64, error) {
	var high, low uint64
	for _, key := range keys {
		account, ok := execution.accounts[key]
		if !ok {
			return [2]uint64{}, NewUnknownAccountError(key)
		}
		var carry uint64
		low, carry = bits.Add64(low, account.Lamports, 0)
		high += carry
	}
	return [2]uint64{high, low}, nil
}

// changes lists the writable accounts that differ from what was loaded.
func (execution *execution) changes(writable []common.PublicKey) []Change {
	changes := make([]Change, 0, len(writable))
	for _, key := range writable {
		account := *execution.accounts[key]
		if account.equal(execution.original[key]) {
			continue
		}
		changes = append(changes, Change{
			Key:     key,
			Account: account.Clone(),
			Create:  !execution.existed[key],
		})
	}
	return changes
}

func zeroed(data []byte) bool {
	for _, value := range data {
		if value != 0 {
			return false
		}
	}
	return true
}
