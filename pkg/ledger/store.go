package ledger

import (
	"sync"

	"github.com/blocto/solana-go-sdk/common"
)

// AccountStore is the keyed account state behind a Ledger.
type AccountStore interface {
	Get(key common.PublicKey) (Account, bool, error)
	// CreateIfAbsent stores account only when key holds nothing yet.
	CreateIfAbsent(key common.PublicKey, account Account) error
	// Commit applies every change or none of them.
	Commit(changes []Change) error
}

// Change is one account write produced by a transaction. Create marks an
// address the transaction found empty; the commit fails with
// ErrAccountExists if it has been populated since.
type Change struct {
	Key     common.PublicKey
	Account Account
	Create  bool
}

type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[common.PublicKey]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[common.PublicKey]Account{}}
}

func (store *MemoryStore) Get(key common.PublicKey) (Account, bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	account, ok := store.accounts[key]
	if !ok {
		return Account{}, false, nil
	}
	return account.Clone(), true, nil
}

func (store *MemoryStore) CreateIfAbsent(key common.PublicKey, account Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.accounts[key]; exists {
		return ErrAccountExists
	}
	store.accounts[key] = account.Clone()
	return nil
}

func (store *MemoryStore) Commit(changes []Change) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, change := range changes {
		if !change.Create {
			continue
		}
		if _, exists := store.accounts[change.Key]; exists {
			return NewAccountInUseError(change.Key)
		}
	}
	for _, change := range changes {
		if change.Account.IsEmpty() {
			delete(store.accounts, change.Key)
			continue
		}
		store.accounts[change.Key] = change.Account.Clone()
	}
	return nil
}

// Len reports how many accounts are stored.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.accounts)
}
