package dtm

import (
	"context"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger/token"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

type Client struct {
	ledger    Submitter
	payer     ledger.Keypair
	programID common.PublicKey
	logger    zerolog.Logger
}

// NewClient creates a new registry client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	trimmedPayerKey := strings.TrimSpace(config.PayerPrivateKey)
	if trimmedPayerKey == "" {
		return nil, fmt.Errorf("payer private key is required")
	}
	payer, err := shared.ParseKeypair(trimmedPayerKey)
	if err != nil {
		return nil, err
	}

	programID := ProgramID
	if trimmedProgramID := strings.TrimSpace(config.ProgramID); trimmedProgramID != "" {
		programID, err = shared.ParsePublicKey(trimmedProgramID)
		if err != nil {
			return nil, fmt.Errorf("invalid program ID: %w", err)
		}
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Client{
		ledger:    config.Ledger,
		payer:     ledger.NewKeypair(payer),
		programID: programID,
		logger:    logger.With().Str("component", "dtm").Logger(),
	}, nil
}

// ProgramID returns the registry program the client targets.
func (client *Client) ProgramID() common.PublicKey {
	return client.programID
}

// Payer returns the fee payer and funding account.
func (client *Client) Payer() common.PublicKey {
	return client.payer.PublicKey()
}

// CreateManager creates a fresh mint and the manager record that controls it.
func (client *Client) CreateManager(
	ctx context.Context,
	options CreateManagerOptions,
) (ManagerInfo, error) {
	reportCreateManagerProgress(options.ProgressCallback, CreateManagerProgress{
		Stage:      "validating",
		Percentage: 10,
	})

	mint := ledger.GenerateKeypair()
	if options.Mint != nil {
		mint = *options.Mint
	}

	instruction, err := BuildCreateManagerInstruction(CreateManagerParams{
		ProgramID:       client.programID,
		Mint:            mint.PublicKey(),
		Payer:           client.payer.PublicKey(),
		Authority:       options.Authority,
		IssuancePerCall: options.IssuancePerCall,
	})
	if err != nil {
		reportCreateManagerProgress(options.ProgressCallback, CreateManagerProgress{
			Stage:      "failed",
			Percentage: 100,
			Error:      err.Error(),
		})
		return ManagerInfo{}, err
	}
	manager := instruction.Accounts[1].PubKey

	reportCreateManagerProgress(options.ProgressCallback, CreateManagerProgress{
		Stage:      "submitting",
		Percentage: 50,
		Manager:    manager.ToBase58(),
	})

	receipt, err := client.SendInstructions(ctx, []types.Instruction{instruction}, mint)
	if err != nil {
		reportCreateManagerProgress(options.ProgressCallback, CreateManagerProgress{
			Stage:      "failed",
			Percentage: 100,
			Manager:    manager.ToBase58(),
			Error:      err.Error(),
		})
		return ManagerInfo{}, err
	}

	reportCreateManagerProgress(options.ProgressCallback, CreateManagerProgress{
		Stage:      "confirming",
		Percentage: 80,
		Manager:    manager.ToBase58(),
		Signature:  receipt.Signature,
	})

	info, err := client.FetchManager(ctx, mint.PublicKey(), options.Authority)
	if err != nil {
		return ManagerInfo{}, err
	}
	info.Signature = receipt.Signature
	info.Slot = receipt.Slot

	reportCreateManagerProgress(options.ProgressCallback, CreateManagerProgress{
		Stage:      "complete",
		Percentage: 100,
		Manager:    manager.ToBase58(),
		Signature:  receipt.Signature,
	})
	client.logger.Info().
		Str("manager", manager.ToBase58()).
		Str("mint", mint.PublicKey().ToBase58()).
		Uint64("issuancePerCall", options.IssuancePerCall).
		Msg("manager created")
	return info, nil
}

// Issue mints the record's fixed amount to the recipient's associated
// balance account, creating it when needed.
func (client *Client) Issue(
	ctx context.Context,
	options IssueOptions,
) (IssueResult, error) {
	reportIssueProgress(options.ProgressCallback, IssueProgress{
		Stage:      "validating",
		Percentage: 20,
	})

	instruction, err := BuildIssueInstruction(IssueParams{
		ProgramID: client.programID,
		Mint:      options.Mint,
		Authority: options.Authority,
		Recipient: options.Recipient,
		Payer:     client.payer.PublicKey(),
	})
	if err != nil {
		reportIssueProgress(options.ProgressCallback, IssueProgress{
			Stage:      "failed",
			Percentage: 100,
			Error:      err.Error(),
		})
		return IssueResult{}, err
	}
	balanceAccount := instruction.Accounts[0].PubKey
	manager := instruction.Accounts[2].PubKey

	reportIssueProgress(options.ProgressCallback, IssueProgress{
		Stage:      "submitting",
		Percentage: 50,
	})

	receipt, err := client.SendInstructions(ctx, []types.Instruction{instruction})
	if err != nil {
		reportIssueProgress(options.ProgressCallback, IssueProgress{
			Stage:      "failed",
			Percentage: 100,
			Error:      err.Error(),
		})
		return IssueResult{}, err
	}

	reportIssueProgress(options.ProgressCallback, IssueProgress{
		Stage:      "confirming",
		Percentage: 80,
		Signature:  receipt.Signature,
	})

	event, err := SupplyIssuedFromReceipt(receipt, client.programID, manager)
	if err != nil {
		return IssueResult{}, err
	}
	// the balance may already include later issues to the same recipient
	balance, err := client.balance(ctx, balanceAccount)
	if err != nil {
		return IssueResult{}, err
	}

	reportIssueProgress(options.ProgressCallback, IssueProgress{
		Stage:      "complete",
		Percentage: 100,
		Signature:  receipt.Signature,
	})
	client.logger.Debug().
		Str("manager", manager.ToBase58()).
		Str("recipient", options.Recipient.ToBase58()).
		Uint64("count", event.TotalIssuanceCount).
		Msg("supply issued")

	return IssueResult{
		Manager:            manager,
		BalanceAccount:     balanceAccount,
		Amount:             event.Amount,
		Balance:            balance,
		TotalIssuanceCount: event.TotalIssuanceCount,
		Signature:          receipt.Signature,
		Slot:               receipt.Slot,
	}, nil
}

// SupplyIssuedFromReceipt returns the SupplyIssued event the registry emitted
// for manager in receipt.
func SupplyIssuedFromReceipt(receipt ledger.Receipt, programID common.PublicKey, manager common.PublicKey) (SupplyIssuedEvent, error) {
	programID = resolveProgramID(programID)
	for _, event := range receipt.Events {
		if event.ProgramID != programID || event.Name != EventSupplyIssued {
			continue
		}
		decoded, err := DecodeSupplyIssued(event.Data)
		if err != nil {
			return SupplyIssuedEvent{}, fmt.Errorf("%w: %v", ledger.ErrInvalidAccountData, err)
		}
		if decoded.Manager == manager {
			return decoded, nil
		}
	}
	return SupplyIssuedEvent{}, fmt.Errorf("%w: %s for %s in %s", ErrEventNotFound, EventSupplyIssued, manager.ToBase58(), receipt.Signature)
}

// FetchManager reads and verifies the record for asset and authority.
func (client *Client) FetchManager(
	ctx context.Context,
	asset common.PublicKey,
	authority common.PublicKey,
) (ManagerInfo, error) {
	return FetchManager(ctx, client.ledger, client.programID, asset, authority)
}

// FetchManager reads the record for asset and authority from reader. The
// address is re-derived and the decoded record must reproduce it.
func FetchManager(
	ctx context.Context,
	reader ledger.AccountReader,
	programID common.PublicKey,
	asset common.PublicKey,
	authority common.PublicKey,
) (ManagerInfo, error) {
	programID = resolveProgramID(programID)
	address, _, err := FindManagerAddress(programID, asset, authority)
	if err != nil {
		return ManagerInfo{}, err
	}

	account, exists, err := reader.GetAccount(ctx, address)
	if err != nil {
		return ManagerInfo{}, fmt.Errorf("failed to read manager %s: %w", address.ToBase58(), err)
	}
	if !exists {
		return ManagerInfo{}, NewManagerNotFoundError(address)
	}
	if account.Owner != programID {
		return ManagerInfo{}, fmt.Errorf("%w: manager %s is not owned by the registry", ledger.ErrInvalidAccountData, address.ToBase58())
	}
	record, err := RecordFromData(account.Data)
	if err != nil {
		return ManagerInfo{}, err
	}
	if record.Asset != asset || record.Authority != authority {
		return ManagerInfo{}, NewAssetMismatchError(asset, record.Asset)
	}
	if err := VerifyRecord(record, address, programID); err != nil {
		return ManagerInfo{}, err
	}
	return ManagerInfo{Address: address, Record: record}, nil
}

// SendInstructions signs instructions with the payer and any extra keypairs
// and submits them as one transaction.
func (client *Client) SendInstructions(
	ctx context.Context,
	instructions []types.Instruction,
	signers ...ledger.Signer,
) (ledger.Receipt, error) {
	blockhash, err := client.ledger.LatestBlockhash(ctx)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	transaction, err := ledger.NewTransaction(ledger.NewTransactionParams{
		FeePayer:        client.payer.PublicKey(),
		RecentBlockhash: blockhash,
		Instructions:    instructions,
		Signers:         append([]ledger.Signer{client.payer}, signers...),
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	return client.ledger.SendTransaction(ctx, transaction)
}

func (client *Client) balance(ctx context.Context, balanceAccount common.PublicKey) (uint64, error) {
	account, exists, err := client.ledger.GetAccount(ctx, balanceAccount)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	decoded, err := token.ReadAccount(account)
	if err != nil {
		return 0, err
	}
	return decoded.Amount, nil
}

func reportCreateManagerProgress(callback func(CreateManagerProgress), progress CreateManagerProgress) {
	if callback != nil {
		callback(progress)
	}
}

func reportIssueProgress(callback func(IssueProgress), progress IssueProgress) {
	if callback != nil {
		callback(progress)
	}
}
