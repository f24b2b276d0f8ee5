package indexer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/localnet"
)

type indexerFixture struct {
	chain  *ledger.Ledger
	client *dtm.Client
}

func newIndexerFixture(t *testing.T) indexerFixture {
	t.Helper()
	chain, err := localnet.New(localnet.Config{})
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	payer := types.NewAccount()
	if err := localnet.Fund(t.Context(), chain, 10*ledger.LamportsPerSOL, payer.PublicKey); err != nil {
		t.Fatalf("failed to fund payer: %v", err)
	}
	client, err := dtm.NewClient(dtm.ClientConfig{Ledger: chain, PayerPrivateKey: base58.Encode(payer.PrivateKey)})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return indexerFixture{chain: chain, client: client}
}

func (fixture indexerFixture) issue(t *testing.T, info dtm.ManagerInfo, recipient common.PublicKey) {
	t.Helper()
	if _, err := fixture.client.Issue(t.Context(), dtm.IssueOptions{
		Mint:      info.Record.Asset,
		Authority: info.Record.Authority,
		Recipient: recipient,
	}); err != nil {
		t.Fatalf("failed to issue: %v", err)
	}
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestIndexOnceTracksManagersAndBalances(t *testing.T) {
	fixture := newIndexerFixture(t)
	authority := types.NewAccount().PublicKey
	info, err := fixture.client.CreateManager(t.Context(), dtm.CreateManagerOptions{Authority: authority, IssuancePerCall: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alice := types.NewAccount().PublicKey
	bob := types.NewAccount().PublicKey
	fixture.issue(t, info, alice)
	fixture.issue(t, info, alice)
	fixture.issue(t, info, bob)

	managerIndexer, err := New(Config{Source: fixture.chain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := managerIndexer.IndexOnce(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manager, exists := managerIndexer.GetManager(info.Address)
	if !exists {
		t.Fatal("expected indexed manager")
	}
	if manager.TotalIssuanceCount != 3 || manager.CurrentSupply != 75 || manager.IssuancePerCall != 25 {
		t.Fatalf("unexpected manager: %+v", manager)
	}
	if manager.Authority != authority.ToBase58() || manager.CreatedSignature != info.Signature {
		t.Fatalf("unexpected manager identity: %+v", manager)
	}
	if balance := managerIndexer.GetBalance(info.Record.Asset, alice); balance != 50 {
		t.Fatalf("expected alice balance 50, got %d", balance)
	}
	if balance := managerIndexer.GetBalance(info.Record.Asset, bob); balance != 25 {
		t.Fatalf("expected bob balance 25, got %d", balance)
	}
	if balance := managerIndexer.GetBalance(types.NewAccount().PublicKey, bob); balance != 0 {
		t.Fatalf("expected zero balance for unknown asset, got %d", balance)
	}
	if managers := managerIndexer.ManagersByAuthority(authority); len(managers) != 1 {
		t.Fatalf("expected 1 manager for authority, got %d", len(managers))
	}

	snapshot := managerIndexer.StateSnapshot()
	if len(snapshot.Issuances) != 3 || snapshot.Issuances[2].TotalIssuanceCount != 3 {
		t.Fatalf("unexpected issuance history: %+v", snapshot.Issuances)
	}
	if snapshot.LastProcessedSlot != fixture.chain.Slot() {
		t.Fatalf("expected last slot %d, got %d", fixture.chain.Slot(), snapshot.LastProcessedSlot)
	}
}

func TestIndexOnceIsIncremental(t *testing.T) {
	fixture := newIndexerFixture(t)
	info, err := fixture.client.CreateManager(t.Context(), dtm.CreateManagerOptions{Authority: types.NewAccount().PublicKey, IssuancePerCall: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recipient := types.NewAccount().PublicKey
	fixture.issue(t, info, recipient)

	managerIndexer, err := New(Config{Source: fixture.chain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for round := 0; round < 2; round++ {
		if err := managerIndexer.IndexOnce(t.Context()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	fixture.issue(t, info, recipient)
	if err := managerIndexer.IndexOnce(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balance := managerIndexer.GetBalance(info.Record.Asset, recipient); balance != 2 {
		t.Fatalf("expected balance 2 without double counting, got %d", balance)
	}
}

func TestIndexOnceSkipsFailedTransactions(t *testing.T) {
	created := dtm.ManagerCreatedEvent{Manager: types.NewAccount().PublicKey, IssuancePerCall: 1}
	data, err := wire.Encode(wire.EventDiscriminator(dtm.EventManagerCreated), created)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source := staticSource{records: []ledger.TransactionRecord{
		{Signature: "failed", Slot: 1, Err: "boom", Events: []ledger.Event{{ProgramID: dtm.ProgramID, Name: dtm.EventManagerCreated, Data: data}}},
		{Signature: "foreign", Slot: 2, Events: []ledger.Event{{ProgramID: common.TokenProgramID, Name: dtm.EventManagerCreated, Data: data}}},
		{Signature: "malformed", Slot: 3, Events: []ledger.Event{{ProgramID: dtm.ProgramID, Name: dtm.EventManagerCreated, Data: []byte{1}}}},
	}}

	managerIndexer, err := New(Config{Source: source})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := managerIndexer.IndexOnce(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot := managerIndexer.StateSnapshot()
	if len(snapshot.Managers) != 0 {
		t.Fatalf("expected no managers, got %+v", snapshot.Managers)
	}
	if snapshot.LastProcessedSlot != 3 {
		t.Fatalf("expected last slot 3, got %d", snapshot.LastProcessedSlot)
	}
}

func TestIndexOnceCanceled(t *testing.T) {
	managerIndexer, err := New(Config{Source: staticSource{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := managerIndexer.IndexOnce(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	fixture := newIndexerFixture(t)
	info, err := fixture.client.CreateManager(t.Context(), dtm.CreateManagerOptions{Authority: types.NewAccount().PublicKey, IssuancePerCall: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recipient := types.NewAccount().PublicKey
	fixture.issue(t, info, recipient)

	source, err := New(Config{Source: fixture.chain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := source.IndexOnce(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buffer bytes.Buffer
	if err := source.ExportSnapshot(&buffer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := New(Config{Source: fixture.chain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := restored.ImportSnapshot(&buffer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance := restored.GetBalance(info.Record.Asset, recipient); balance != 3 {
		t.Fatalf("expected restored balance 3, got %d", balance)
	}
	if err := restored.IndexOnce(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance := restored.GetBalance(info.Record.Asset, recipient); balance != 3 {
		t.Fatalf("expected no reprocessing after import, got %d", balance)
	}

	if err := restored.ImportSnapshot(bytes.NewReader([]byte("not brotli"))); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}

func TestStartPollingIndexesInBackground(t *testing.T) {
	fixture := newIndexerFixture(t)
	managerIndexer, err := New(Config{Source: fixture.chain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := managerIndexer.StartPolling(t.Context(), 5*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer managerIndexer.StopPolling()
	if err := managerIndexer.StartPolling(t.Context(), time.Millisecond); err == nil {
		t.Fatal("expected error when polling twice")
	}

	info, err := fixture.client.CreateManager(t.Context(), dtm.CreateManagerOptions{Authority: types.NewAccount().PublicKey, IssuancePerCall: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, exists := managerIndexer.GetManager(info.Address); exists {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected polling to index the new manager")
}

type staticSource struct {
	records []ledger.TransactionRecord
}

func (source staticSource) Transactions(afterSlot uint64) []ledger.TransactionRecord {
	records := make([]ledger.TransactionRecord, 0)
	for _, record := range source.records {
		if record.Slot > afterSlot {
			records = append(records, record)
		}
	}
	return records
}
