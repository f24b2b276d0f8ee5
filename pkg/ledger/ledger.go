package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

var (
	NativeLoaderID  = common.PublicKeyFromString("NativeLoader1111111111111111111111111111111")
	SysvarProgramID = common.PublicKeyFromString("Sysvar1111111111111111111111111111111111111")
)

// AccountReader is the read side shared by the ledger and remote RPC clients.
type AccountReader interface {
	GetAccount(ctx context.Context, key common.PublicKey) (Account, bool, error)
}

// Ledger executes transactions against an AccountStore.
type Ledger struct {
	logger  zerolog.Logger
	metrics *Metrics
	store   AccountStore
	locks   *lockTable

	mu          sync.RWMutex
	programs    map[common.PublicKey]Program
	slot        uint64
	blockhashes []string
	processed   map[string]string
	history     []TransactionRecord
	recentLimit int
}

// New creates a Ledger holding the rent sysvar and no programs.
func New(config Config) (*Ledger, error) {
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	recentLimit := config.RecentBlockhashes
	if recentLimit <= 0 {
		recentLimit = DefaultRecentBlockhashes
	}

	genesis := sha256.Sum256([]byte("dapp-token-manager-genesis"))
	ledger := &Ledger{
		logger:      logger.With().Str("component", "ledger").Logger(),
		metrics:     config.Metrics,
		store:       store,
		locks:       newLockTable(),
		programs:    map[common.PublicKey]Program{},
		blockhashes: []string{base58.Encode(genesis[:])},
		processed:   map[string]string{},
		recentLimit: recentLimit,
	}

	rent := Account{Lamports: 1, Data: encodeRentSysvar(), Owner: SysvarProgramID}
	if err := store.CreateIfAbsent(common.SysVarRentPubkey, rent); err != nil && !errors.Is(err, ErrAccountExists) {
		return nil, fmt.Errorf("failed to create rent sysvar: %w", err)
	}
	return ledger, nil
}

func encodeRentSysvar() []byte {
	data := make([]byte, 17)
	binary.LittleEndian.PutUint64(data[0:8], lamportsPerByteYear)
	binary.LittleEndian.PutUint64(data[8:16], math.Float64bits(exemptionThreshold))
	data[16] = 50
	return data
}

// RegisterProgram makes program invocable and stores its executable account.
func (ledger *Ledger) RegisterProgram(program Program) error {
	programID := program.ID()

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if _, exists := ledger.programs[programID]; exists {
		return fmt.Errorf("program %s already registered: %w", programID.ToBase58(), ErrAccountExists)
	}

	account := Account{
		Lamports:   MinimumBalance(uint64(len(program.Name()))),
		Data:       []byte(program.Name()),
		Owner:      NativeLoaderID,
		Executable: true,
	}
	if err := ledger.store.CreateIfAbsent(programID, account); err != nil {
		return fmt.Errorf("failed to store program %s: %w", programID.ToBase58(), err)
	}
	ledger.programs[programID] = program
	ledger.logger.Debug().Str("program", program.Name()).Str("id", programID.ToBase58()).Msg("program registered")
	return nil
}

func (ledger *Ledger) program(programID common.PublicKey) (Program, bool) {
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()
	program, ok := ledger.programs[programID]
	return program, ok
}

// Airdrop credits lamports to key, creating a system account if needed.
func (ledger *Ledger) Airdrop(ctx context.Context, key common.PublicKey, lamports uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	writable := []common.PublicKey{key}
	ledger.locks.acquire(writable, nil)
	defer ledger.locks.release(writable, nil)

	account, exists, err := ledger.store.Get(key)
	if err != nil {
		return err
	}
	if !exists {
		account = Account{Owner: common.SystemProgramID}
	}
	if account.Executable {
		return NewAccountModificationError(key, "cannot airdrop to an executable account")
	}
	total, carry := bits.Add64(account.Lamports, lamports, 0)
	if carry != 0 {
		return fmt.Errorf("airdrop to %s overflows balance", key.ToBase58())
	}
	account.Lamports = total
	return ledger.store.Commit([]Change{{Key: key, Account: account, Create: !exists}})
}

func (ledger *Ledger) GetAccount(ctx context.Context, key common.PublicKey) (Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, false, err
	}
	return ledger.store.Get(key)
}

// LatestBlockhash returns the blockhash new transactions should reference.
func (ledger *Ledger) LatestBlockhash(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()
	return ledger.blockhashes[len(ledger.blockhashes)-1], nil
}

func (ledger *Ledger) Slot() uint64 {
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()
	return ledger.slot
}

// Transactions returns every executed transaction with a slot greater than
// afterSlot, committed or failed, in execution order.
func (ledger *Ledger) Transactions(afterSlot uint64) []TransactionRecord {
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()

	records := make([]TransactionRecord, 0)
	for _, record := range ledger.history {
		if record.Slot > afterSlot {
			records = append(records, record)
		}
	}
	return records
}

// SendTransaction verifies and executes transaction atomically. The receipt
// is returned only when every instruction succeeded and the changes were
// committed; failed transactions leave no state behind but are kept in the
// history with their logs.
func (ledger *Ledger) SendTransaction(ctx context.Context, transaction Transaction) (Receipt, error) {
	started := time.Now()
	defer func() { ledger.metrics.ObserveTransactionDuration(time.Since(started)) }()

	if err := ctx.Err(); err != nil {
		ledger.metrics.IncrementTransaction("rejected")
		return Receipt{}, err
	}
	if err := transaction.Verify(); err != nil {
		ledger.metrics.IncrementTransaction("rejected")
		return Receipt{}, err
	}
	signature := transaction.ID()
	if err := ledger.reserve(signature, transaction.RecentBlockhash); err != nil {
		ledger.metrics.IncrementTransaction("rejected")
		return Receipt{}, err
	}

	writable, readonly := transaction.lockSet()
	ledger.locks.acquire(writable, readonly)
	defer ledger.locks.release(writable, readonly)

	if err := ctx.Err(); err != nil {
		ledger.release(signature)
		ledger.metrics.IncrementTransaction("rejected")
		return Receipt{}, err
	}

	execution, err := ledger.load(append(append([]common.PublicKey{}, writable...), readonly...))
	if err != nil {
		ledger.release(signature)
		ledger.metrics.IncrementTransaction("rejected")
		return Receipt{}, err
	}

	runErr := ledger.execute(execution, transaction)
	if runErr == nil {
		runErr = ledger.store.Commit(execution.changes(writable))
	}

	record := TransactionRecord{
		Signature: signature,
		Logs:      execution.logs,
		Events:    execution.events,
	}
	if runErr != nil {
		record.Events = nil
		record.Err = runErr.Error()
	}
	record.Slot = ledger.advance(record)
	if runErr != nil {
		ledger.metrics.IncrementTransaction("failed")
		ledger.logger.Debug().Str("signature", signature).Err(runErr).Msg("transaction failed")
		return Receipt{}, runErr
	}

	ledger.metrics.IncrementTransaction("committed")
	ledger.logger.Debug().Str("signature", signature).Uint64("slot", record.Slot).Msg("transaction committed")
	return Receipt{
		Signature: signature,
		Slot:      record.Slot,
		Logs:      record.Logs,
		Events:    record.Events,
	}, nil
}

func (ledger *Ledger) execute(execution *execution, transaction Transaction) error {
	signed := transaction.signedBy()
	for index, instruction := range transaction.Instructions {
		privileges := map[common.PublicKey]Privilege{}
		for _, meta := range instruction.Accounts {
			if meta.IsSigner && !signed[meta.PubKey] {
				return NewTransactionError(index, instruction.ProgramID, NewMissingSignatureError(meta.PubKey))
			}
			privilege := privileges[meta.PubKey]
			privilege.Signer = privilege.Signer || meta.IsSigner
			privilege.Writable = privilege.Writable || meta.IsWritable
			privileges[meta.PubKey] = privilege
		}

		invoke := &InvokeContext{
			execution:  execution,
			programID:  instruction.ProgramID,
			accounts:   instruction.Accounts,
			privileges: privileges,
			height:     1,
		}
		if err := execution.run(invoke, instruction); err != nil {
			return NewTransactionError(index, instruction.ProgramID, err)
		}
	}
	return nil
}

func (ledger *Ledger) load(keys []common.PublicKey) (*execution, error) {
	execution := &execution{
		ledger:   ledger,
		accounts: make(map[common.PublicKey]*Account, len(keys)),
		original: make(map[common.PublicKey]Account, len(keys)),
		existed:  make(map[common.PublicKey]bool, len(keys)),
	}
	for _, key := range keys {
		account, exists, err := ledger.store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load account %s: %w", key.ToBase58(), err)
		}
		if !exists {
			account = Account{Owner: common.SystemProgramID}
		}
		working := account.Clone()
		execution.accounts[key] = &working
		execution.original[key] = account
		execution.existed[key] = exists
	}
	return execution, nil
}

func (ledger *Ledger) reserve(signature string, blockhash string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	recent := false
	for _, candidate := range ledger.blockhashes {
		if candidate == blockhash {
			recent = true
			break
		}
	}
	if !recent {
		return fmt.Errorf("%w: %s", ErrBlockhashNotFound, blockhash)
	}
	if _, seen := ledger.processed[signature]; seen {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, signature)
	}
	ledger.processed[signature] = blockhash
	return nil
}

func (ledger *Ledger) release(signature string) {
	ledger.mu.Lock()
	delete(ledger.processed, signature)
	ledger.mu.Unlock()
}

// advance closes a slot for record and appends it to the history. History
// order matches slot order. Signatures whose blockhash expired are forgotten.
func (ledger *Ledger) advance(record TransactionRecord) uint64 {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	ledger.slot++
	previous := ledger.blockhashes[len(ledger.blockhashes)-1]
	next := sha256.Sum256([]byte(previous + record.Signature))
	ledger.blockhashes = append(ledger.blockhashes, base58.Encode(next[:]))

	for len(ledger.blockhashes) > ledger.recentLimit {
		expired := ledger.blockhashes[0]
		ledger.blockhashes = ledger.blockhashes[1:]
		for processed, blockhash := range ledger.processed {
			if blockhash == expired {
				delete(ledger.processed, processed)
			}
		}
	}

	record.Slot = ledger.slot
	ledger.history = append(ledger.history, record)
	return ledger.slot
}

func (transaction Transaction) lockSet() ([]common.PublicKey, []common.PublicKey) {
	writableSet := map[common.PublicKey]bool{transaction.FeePayer: true}
	order := []common.PublicKey{transaction.FeePayer}
	add := func(key common.PublicKey, isWritable bool) {
		if _, seen := writableSet[key]; !seen {
			order = append(order, key)
		}
		writableSet[key] = writableSet[key] || isWritable
	}
	for _, instruction := range transaction.Instructions {
		add(instruction.ProgramID, false)
		for _, meta := range instruction.Accounts {
			add(meta.PubKey, meta.IsWritable)
		}
	}

	writable := make([]common.PublicKey, 0, len(order))
	readonly := make([]common.PublicKey, 0, len(order))
	for _, key := range order {
		if writableSet[key] {
			writable = append(writable, key)
		} else {
			readonly = append(readonly, key)
		}
	}
	return writable, readonly
}

var _ AccountReader = (*Ledger)(nil)

// instructionAccounts returns the distinct keys of an instruction's metas.
func instructionAccounts(metas []types.AccountMeta) []common.PublicKey {
	seen := make(map[common.PublicKey]bool, len(metas))
	keys := make([]common.PublicKey, 0, len(metas))
	for _, meta := range metas {
		if seen[meta.PubKey] {
			continue
		}
		seen[meta.PubKey] = true
		keys = append(keys, meta.PubKey)
	}
	return keys
}
