// Package localnet assembles an in-process ledger with the system, token and
// associated token programs, the token manager registry, and the master and
// puppet programs registered.
package localnet

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/associated"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/system"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/token"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/master"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/puppet"
)

type Config struct {
	Ledger ledger.Config
	// RegistryProgramID overrides dtm.ProgramID. The master program always
	// targets dtm.ProgramID.
	RegistryProgramID common.PublicKey
}

// New creates a ledger with every built-in program registered.
func New(config Config) (*ledger.Ledger, error) {
	chain, err := ledger.New(config.Ledger)
	if err != nil {
		return nil, err
	}
	programs := []ledger.Program{
		system.New(),
		token.New(),
		associated.New(),
		dtm.NewProgram(config.RegistryProgramID),
		master.New(),
		puppet.New(),
	}
	for _, program := range programs {
		if err := chain.RegisterProgram(program); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", program.Name(), err)
		}
	}
	return chain, nil
}

// Fund airdrops lamports to each key.
func Fund(ctx context.Context, chain *ledger.Ledger, lamports uint64, keys ...common.PublicKey) error {
	for _, key := range keys {
		if err := chain.Airdrop(ctx, key, lamports); err != nil {
			return fmt.Errorf("failed to fund %s: %w", key.ToBase58(), err)
		}
	}
	return nil
}

// Send signs instructions with payer and signers against the latest
// blockhash and submits them as one transaction.
func Send(
	ctx context.Context,
	chain *ledger.Ledger,
	payer ledger.Keypair,
	instructions []types.Instruction,
	signers ...ledger.Signer,
) (ledger.Receipt, error) {
	blockhash, err := chain.LatestBlockhash(ctx)
	if err != nil {
		return ledger.Receipt{}, err
	}
	transaction, err := ledger.NewTransaction(ledger.NewTransactionParams{
		FeePayer:        payer.PublicKey(),
		RecentBlockhash: blockhash,
		Instructions:    instructions,
		Signers:         append([]ledger.Signer{payer}, signers...),
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	return chain.SendTransaction(ctx, transaction)
}
