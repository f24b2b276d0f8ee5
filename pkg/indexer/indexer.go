package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/bits"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/rs/zerolog"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
)

type ManagerIndexer struct {
	source    Source
	programID common.PublicKey
	logger    zerolog.Logger

	mutex sync.RWMutex
	state State

	pollStopChannel chan struct{}
	pollDoneChannel chan struct{}
}

// New creates an indexer over source.
func New(config Config) (*ManagerIndexer, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("indexer source is required")
	}
	programID := config.ProgramID
	if programID == (common.PublicKey{}) {
		programID = dtm.ProgramID
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &ManagerIndexer{
		source:    config.Source,
		programID: programID,
		logger:    logger.With().Str("component", "indexer").Logger(),
		state:     newEmptyState(),
	}, nil
}

// StateSnapshot returns a deep copy of the current index state.
func (indexer *ManagerIndexer) StateSnapshot() State {
	indexer.mutex.RLock()
	defer indexer.mutex.RUnlock()
	return cloneState(indexer.state)
}

func cloneState(state State) State {
	managers := make(map[string]Manager, len(state.Managers))
	for key, value := range state.Managers {
		managers[key] = value
	}

	balances := make(map[string]map[string]Balance, len(state.Balances))
	for asset, assetBalances := range state.Balances {
		clone := make(map[string]Balance, len(assetBalances))
		for owner, balance := range assetBalances {
			clone[owner] = balance
		}
		balances[asset] = clone
	}

	issuances := make([]Issuance, len(state.Issuances))
	copy(issuances, state.Issuances)

	return State{
		Managers:          managers,
		Balances:          balances,
		Issuances:         issuances,
		LastProcessedSlot: state.LastProcessedSlot,
	}
}

// GetManager returns the indexed manager at address.
func (indexer *ManagerIndexer) GetManager(address common.PublicKey) (Manager, bool) {
	indexer.mutex.RLock()
	defer indexer.mutex.RUnlock()
	manager, ok := indexer.state.Managers[address.ToBase58()]
	return manager, ok
}

// ManagersByAuthority lists the managers recorded under authority.
func (indexer *ManagerIndexer) ManagersByAuthority(authority common.PublicKey) []Manager {
	key := authority.ToBase58()
	indexer.mutex.RLock()
	defer indexer.mutex.RUnlock()

	managers := make([]Manager, 0)
	for _, manager := range indexer.state.Managers {
		if manager.Authority == key {
			managers = append(managers, manager)
		}
	}
	return managers
}

// GetBalance returns the indexed amount issued to owner for asset.
func (indexer *ManagerIndexer) GetBalance(asset common.PublicKey, owner common.PublicKey) uint64 {
	indexer.mutex.RLock()
	defer indexer.mutex.RUnlock()

	assetBalances, exists := indexer.state.Balances[asset.ToBase58()]
	if !exists {
		return 0
	}
	return assetBalances[owner.ToBase58()].Amount
}

// IndexOnce processes every transaction newer than the last indexed slot.
func (indexer *ManagerIndexer) IndexOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	indexer.mutex.RLock()
	lastSlot := indexer.state.LastProcessedSlot
	indexer.mutex.RUnlock()

	for _, record := range indexer.source.Transactions(lastSlot) {
		if err := ctx.Err(); err != nil {
			return err
		}
		indexer.processTransaction(record)
	}
	return nil
}

// StartPolling starts periodic indexing until StopPolling is called.
func (indexer *ManagerIndexer) StartPolling(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	indexer.mutex.Lock()
	if indexer.pollStopChannel != nil {
		indexer.mutex.Unlock()
		return fmt.Errorf("indexer polling already running")
	}
	stopChannel := make(chan struct{})
	doneChannel := make(chan struct{})
	indexer.pollStopChannel = stopChannel
	indexer.pollDoneChannel = doneChannel
	indexer.mutex.Unlock()

	go func() {
		defer close(doneChannel)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		indexer.pollOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopChannel:
				return
			case <-ticker.C:
				indexer.pollOnce(ctx)
			}
		}
	}()

	return nil
}

// StopPolling stops an active polling loop.
func (indexer *ManagerIndexer) StopPolling() {
	indexer.mutex.Lock()
	stopChannel := indexer.pollStopChannel
	doneChannel := indexer.pollDoneChannel
	indexer.pollStopChannel = nil
	indexer.pollDoneChannel = nil
	indexer.mutex.Unlock()

	if stopChannel != nil {
		close(stopChannel)
	}
	if doneChannel != nil {
		<-doneChannel
	}
}

func (indexer *ManagerIndexer) pollOnce(ctx context.Context) {
	if err := indexer.IndexOnce(ctx); err != nil {
		indexer.logger.Warn().Err(err).Msg("indexing cycle failed")
	}
}

// ExportSnapshot writes the state as brotli-compressed JSON.
func (indexer *ManagerIndexer) ExportSnapshot(writer io.Writer) error {
	state := indexer.StateSnapshot()
	compressor := brotli.NewWriterLevel(writer, brotli.DefaultCompression)
	if err := json.NewEncoder(compressor).Encode(state); err != nil {
		_ = compressor.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return nil
}

// ImportSnapshot replaces the state with one written by ExportSnapshot.
func (indexer *ManagerIndexer) ImportSnapshot(reader io.Reader) error {
	state := newEmptyState()
	if err := json.NewDecoder(brotli.NewReader(reader)).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if state.Managers == nil {
		state.Managers = map[string]Manager{}
	}
	if state.Balances == nil {
		state.Balances = map[string]map[string]Balance{}
	}
	if state.Issuances == nil {
		state.Issuances = make([]Issuance, 0)
	}

	indexer.mutex.Lock()
	indexer.state = state
	indexer.mutex.Unlock()
	return nil
}

func (indexer *ManagerIndexer) processTransaction(record ledger.TransactionRecord) {
	indexer.mutex.Lock()
	defer indexer.mutex.Unlock()

	if record.Slot <= indexer.state.LastProcessedSlot {
		return
	}
	indexer.state.LastProcessedSlot = record.Slot
	if record.Err != "" {
		return
	}

	for _, event := range record.Events {
		if event.ProgramID != indexer.programID {
			continue
		}
		switch event.Name {
		case dtm.EventManagerCreated:
			created, err := dtm.DecodeManagerCreated(event.Data)
			if err != nil {
				indexer.logger.Warn().Err(err).Str("signature", record.Signature).Msg("skipping malformed event")
				continue
			}
			indexer.processManagerCreatedLocked(record, created)
		case dtm.EventSupplyIssued:
			issued, err := dtm.DecodeSupplyIssued(event.Data)
			if err != nil {
				indexer.logger.Warn().Err(err).Str("signature", record.Signature).Msg("skipping malformed event")
				continue
			}
			indexer.processSupplyIssuedLocked(record, issued)
		}
	}
}

func (indexer *ManagerIndexer) processManagerCreatedLocked(record ledger.TransactionRecord, event dtm.ManagerCreatedEvent) {
	address := event.Manager.ToBase58()
	if _, exists := indexer.state.Managers[address]; exists {
		return
	}
	indexer.state.Managers[address] = Manager{
		Address:          address,
		Asset:            event.Asset.ToBase58(),
		Authority:        event.Authority.ToBase58(),
		PayerAuthority:   event.PayerAuthority.ToBase58(),
		IssuancePerCall:  event.IssuancePerCall,
		CreatedSlot:      record.Slot,
		CreatedSignature: record.Signature,
	}
}

func (indexer *ManagerIndexer) processSupplyIssuedLocked(record ledger.TransactionRecord, event dtm.SupplyIssuedEvent) {
	address := event.Manager.ToBase58()
	manager, exists := indexer.state.Managers[address]
	if !exists {
		indexer.logger.Debug().Str("manager", address).Msg("issuance for unindexed manager")
		return
	}
	supply, carry := bits.Add64(manager.CurrentSupply, event.Amount, 0)
	if carry != 0 {
		return
	}
	manager.CurrentSupply = supply
	manager.TotalIssuanceCount = event.TotalIssuanceCount
	indexer.state.Managers[address] = manager

	asset := event.Asset.ToBase58()
	owner := event.Recipient.ToBase58()
	assetBalances, exists := indexer.state.Balances[asset]
	if !exists {
		assetBalances = map[string]Balance{}
		indexer.state.Balances[asset] = assetBalances
	}
	balance := assetBalances[owner]
	balance.Asset = asset
	balance.Owner = owner
	balance.BalanceAccount = event.BalanceAccount.ToBase58()
	balance.Amount += event.Amount
	balance.LastUpdatedSlot = record.Slot
	assetBalances[owner] = balance

	indexer.state.Issuances = append(indexer.state.Issuances, Issuance{
		Signature:          record.Signature,
		Slot:               record.Slot,
		Manager:            address,
		Asset:              asset,
		Recipient:          owner,
		BalanceAccount:     balance.BalanceAccount,
		Amount:             event.Amount,
		TotalIssuanceCount: event.TotalIssuanceCount,
	})
}
