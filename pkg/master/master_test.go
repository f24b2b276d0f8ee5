package master_test

import (
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/token"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/localnet"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/master"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/puppet"
)

type pullStringsData struct {
	Bump uint8
	Data uint64
}

type masterHarness struct {
	chain *ledger.Ledger
	payer ledger.Keypair
}

func newMasterHarness(t *testing.T) masterHarness {
	t.Helper()
	chain, err := localnet.New(localnet.Config{})
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	payer := ledger.GenerateKeypair()
	if err := localnet.Fund(t.Context(), chain, 10*ledger.LamportsPerSOL, payer.PublicKey()); err != nil {
		t.Fatalf("failed to fund payer: %v", err)
	}
	return masterHarness{chain: chain, payer: payer}
}

func (harness masterHarness) send(t *testing.T, instruction types.Instruction, signers ...ledger.Signer) error {
	t.Helper()
	_, err := localnet.Send(t.Context(), harness.chain, harness.payer, []types.Instruction{instruction}, signers...)
	return err
}

func (harness masterHarness) puppetControlledBy(t *testing.T, authority common.PublicKey) ledger.Keypair {
	t.Helper()
	account := ledger.GenerateKeypair()
	initialize, err := puppet.Initialize(account.PublicKey(), harness.payer.PublicKey(), authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.send(t, initialize, account); err != nil {
		t.Fatalf("failed to initialize puppet: %v", err)
	}
	return account
}

func (harness masterHarness) puppetData(t *testing.T, account ledger.Keypair) uint64 {
	t.Helper()
	stored, _, err := harness.chain.GetAccount(t.Context(), account.PublicKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := puppet.Read(stored)
	if err != nil {
		t.Fatalf("failed to decode puppet: %v", err)
	}
	return state.Data
}

func TestAuthorityIsDerivedFromEmptySeeds(t *testing.T) {
	authority, bump, err := master.Authority()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	derived, err := ledger.NewDerived(bump).Address(master.ProgramID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if derived != authority {
		t.Fatalf("expected %s, got %s", authority.ToBase58(), derived.ToBase58())
	}
}

func TestPullStringsSignsWithDerivedAuthority(t *testing.T) {
	harness := newMasterHarness(t)
	authority, bump, err := master.Authority()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account := harness.puppetControlledBy(t, authority)

	pull, err := master.PullStrings(account.PublicKey(), bump, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.send(t, pull); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data := harness.puppetData(t, account); data != 42 {
		t.Fatalf("expected data 42, got %d", data)
	}
}

func TestPullStringsWrongBumpIsUnauthorized(t *testing.T) {
	harness := newMasterHarness(t)
	authority, bump, err := master.Authority()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account := harness.puppetControlledBy(t, authority)

	pull, err := master.PullStrings(account.PublicKey(), bump, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pull.Data, err = wire.Encode(wire.InstructionDiscriminator(master.InstructionPullStrings), pullStringsData{Bump: bump - 1, Data: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = harness.send(t, pull)
	if !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if data := harness.puppetData(t, account); data != 0 {
		t.Fatalf("expected data unchanged, got %d", data)
	}
}

func TestPullStringsForeignPuppet(t *testing.T) {
	harness := newMasterHarness(t)
	_, bump, err := master.Authority()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account := harness.puppetControlledBy(t, types.NewAccount().PublicKey)

	pull, err := master.PullStrings(account.PublicKey(), bump, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.send(t, pull); !errors.Is(err, puppet.ErrAuthorityMismatch) {
		t.Fatalf("expected ErrAuthorityMismatch, got %v", err)
	}
}

func TestMasterCreatesAndIssues(t *testing.T) {
	harness := newMasterHarness(t)
	authority, _, err := master.Authority()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mint := ledger.GenerateKeypair()

	create, err := master.CreateManager(mint.PublicKey(), harness.payer.PublicKey(), 100_000_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.send(t, create, mint); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := dtm.FetchManager(t.Context(), harness.chain, dtm.ProgramID, mint.PublicKey(), authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Record.Authority != authority || info.Record.TotalIssuanceCount != 0 {
		t.Fatalf("unexpected record: %+v", info.Record)
	}

	recipient := types.NewAccount().PublicKey
	for round := 1; round <= 2; round++ {
		issue, err := master.IssueViaMaster(mint.PublicKey(), recipient, harness.payer.PublicKey())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := harness.send(t, issue); err != nil {
			t.Fatalf("issue %d failed: %v", round, err)
		}
	}

	info, err = dtm.FetchManager(t.Context(), harness.chain, dtm.ProgramID, mint.PublicKey(), authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Record.TotalIssuanceCount != 2 {
		t.Fatalf("expected count 2, got %d", info.Record.TotalIssuanceCount)
	}
	issue, _ := master.IssueViaMaster(mint.PublicKey(), recipient, harness.payer.PublicKey())
	balanceKey := issue.Accounts[1].PubKey
	stored, _, _ := harness.chain.GetAccount(t.Context(), balanceKey)
	balance, err := token.ReadAccount(stored)
	if err != nil {
		t.Fatalf("failed to decode balance account: %v", err)
	}
	if balance.Amount != 200_000_000_000 {
		t.Fatalf("expected balance 200000000000, got %d", balance.Amount)
	}
}

func TestMasterCreateRequiresMintSignature(t *testing.T) {
	harness := newMasterHarness(t)
	mint := ledger.GenerateKeypair()
	create, err := master.CreateManager(mint.PublicKey(), harness.payer.PublicKey(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.send(t, create); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestIssueViaMasterRejectsForeignManager(t *testing.T) {
	harness := newMasterHarness(t)
	mint := ledger.GenerateKeypair()
	foreignAuthority := types.NewAccount().PublicKey
	create, err := dtm.BuildCreateManagerInstruction(dtm.CreateManagerParams{
		Mint:            mint.PublicKey(),
		Payer:           harness.payer.PublicKey(),
		Authority:       foreignAuthority,
		IssuancePerCall: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.send(t, create, mint); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issue, err := dtm.BuildIssueInstruction(dtm.IssueParams{
		Mint:      mint.PublicKey(),
		Authority: foreignAuthority,
		Recipient: types.NewAccount().PublicKey,
		Payer:     harness.payer.PublicKey(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	viaMaster, err := master.IssueViaMaster(mint.PublicKey(), types.NewAccount().PublicKey, harness.payer.PublicKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	viaMaster.Accounts = append([]types.AccountMeta{{PubKey: dtm.ProgramID}}, issue.Accounts...)

	if err := harness.send(t, viaMaster); !errors.Is(err, master.ErrForeignManager) {
		t.Fatalf("expected ErrForeignManager, got %v", err)
	}
}

func TestMasterRejectsSubstitutedRegistry(t *testing.T) {
	harness := newMasterHarness(t)
	mint := ledger.GenerateKeypair()

	create, err := master.CreateManager(mint.PublicKey(), harness.payer.PublicKey(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	substituted := create
	substituted.Accounts = append([]types.AccountMeta{{PubKey: puppet.ProgramID}}, create.Accounts[1:]...)
	if err := harness.send(t, substituted, mint); !errors.Is(err, master.ErrUnexpectedRegistry) {
		t.Fatalf("expected ErrUnexpectedRegistry on create, got %v", err)
	}
	if err := harness.send(t, create, mint); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issue, err := master.IssueViaMaster(mint.PublicKey(), types.NewAccount().PublicKey, harness.payer.PublicKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	issue.Accounts = append([]types.AccountMeta{{PubKey: puppet.ProgramID}}, issue.Accounts[1:]...)
	if err := harness.send(t, issue); !errors.Is(err, master.ErrUnexpectedRegistry) {
		t.Fatalf("expected ErrUnexpectedRegistry on issue, got %v", err)
	}
}
