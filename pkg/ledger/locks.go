package ledger

import (
	"sync"

	"github.com/blocto/solana-go-sdk/common"
)

// lockTable hands out per-account locks. A transaction takes its whole set
// at once or waits, so there is no acquisition order to get wrong.
type lockTable struct {
	mu      sync.Mutex
	cond    *sync.Cond
	writers map[common.PublicKey]bool
	readers map[common.PublicKey]int
}

func newLockTable() *lockTable {
	table := &lockTable{
		writers: map[common.PublicKey]bool{},
		readers: map[common.PublicKey]int{},
	}
	table.cond = sync.NewCond(&table.mu)
	return table
}

// acquire blocks until every writable key is free of readers and writers and
// every read-only key is free of writers. A key in both sets is taken as
// writable.
func (table *lockTable) acquire(writable []common.PublicKey, readonly []common.PublicKey) {
	table.mu.Lock()
	defer table.mu.Unlock()

	for !table.available(writable, readonly) {
		table.cond.Wait()
	}
	for _, key := range writable {
		table.writers[key] = true
	}
	for _, key := range readonly {
		table.readers[key]++
	}
}

func (table *lockTable) release(writable []common.PublicKey, readonly []common.PublicKey) {
	table.mu.Lock()
	for _, key := range writable {
		delete(table.writers, key)
	}
	for _, key := range readonly {
		table.readers[key]--
		if table.readers[key] <= 0 {
			delete(table.readers, key)
		}
	}
	table.mu.Unlock()
	table.cond.Broadcast()
}

func (table *lockTable) available(writable []common.PublicKey, readonly []common.PublicKey) bool {
	for _, key := range writable {
		if table.writers[key] || table.readers[key] > 0 {
			return false
		}
	}
	for _, key := range readonly {
		if table.writers[key] {
			return false
		}
	}
	return true
}
