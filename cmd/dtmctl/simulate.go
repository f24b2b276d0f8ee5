package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/config"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/indexer"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/localnet"
)

type simulateReport struct {
	Payer        string             `json:"payer"`
	Slot         uint64             `json:"slot"`
	Managers     []simulatedManager `json:"managers"`
	Transactions map[string]float64 `json:"transactions"`
	Instructions map[string]float64 `json:"instructions"`
	Index        *indexer.State     `json:"index,omitempty"`
}

type simulatedManager struct {
	Address            string            `json:"address"`
	Asset              string            `json:"asset"`
	Authority          string            `json:"authority"`
	IssuancePerCall    uint64            `json:"issuancePerCall"`
	TotalIssuanceCount uint64            `json:"totalIssuanceCount"`
	Balances           map[string]uint64 `json:"balances"`
}

func runSimulate(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	var configPath string
	var managers, issues, recipients, parallel int
	var issuancePerCall uint64
	var index bool
	var snapshotPath string

	flagSet := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&configPath, "config", "", "path to a dtmctl TOML config")
	flagSet.IntVar(&managers, "managers", config.DefaultManagers, "managers to create")
	flagSet.Uint64Var(&issuancePerCall, "issuance", config.DefaultIssuancePerCall, "base units minted per issuance")
	flagSet.IntVar(&issues, "issues", config.DefaultIssues, "issuances per manager")
	flagSet.IntVar(&recipients, "recipients", config.DefaultRecipients, "distinct recipients per manager")
	flagSet.IntVar(&parallel, "parallel", config.DefaultParallel, "concurrent issuance transactions")
	flagSet.BoolVar(&index, "index", false, "index the resulting history and include it in the report")
	flagSet.StringVar(&snapshotPath, "snapshot", "", "write the index as a brotli snapshot to this path")
	if err := parseFlags(flagSet, args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	simulate := cfg.Simulate
	if flagSet.Changed("managers") {
		simulate.Managers = managers
	}
	if flagSet.Changed("issuance") {
		simulate.IssuancePerCall = issuancePerCall
	}
	if flagSet.Changed("issues") {
		simulate.Issues = issues
	}
	if flagSet.Changed("recipients") {
		simulate.Recipients = recipients
	}
	if flagSet.Changed("parallel") {
		simulate.Parallel = parallel
	}
	if err := config.ValidateSimulate(simulate); err != nil {
		return usageError{err: err}
	}
	if !flagSet.Changed("snapshot") {
		snapshotPath = cfg.Indexer.SnapshotPath
	}
	index = index || cfg.Indexer.Enabled || snapshotPath != ""

	logger := newLogger(stderr, cfg.Log)
	registry := prometheus.NewRegistry()
	chain, err := localnet.New(localnet.Config{
		Ledger: ledger.Config{Logger: &logger, Metrics: ledger.NewMetrics(registry)},
	})
	if err != nil {
		return err
	}

	payer := types.NewAccount()
	if err := localnet.Fund(ctx, chain, cfg.Simulate.AirdropLamports, payer.PublicKey); err != nil {
		return err
	}
	client, err := dtm.NewClient(dtm.ClientConfig{
		Ledger:          chain,
		PayerPrivateKey: base58.Encode(payer.PrivateKey),
		Logger:          &logger,
	})
	if err != nil {
		return err
	}

	created := make([]dtm.ManagerInfo, 0, simulate.Managers)
	for range simulate.Managers {
		info, err := client.CreateManager(ctx, dtm.CreateManagerOptions{
			Authority:       types.NewAccount().PublicKey,
			IssuancePerCall: simulate.IssuancePerCall,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}
		created = append(created, info)
	}

	owners := make([]common.PublicKey, simulate.Recipients)
	for position := range owners {
		owners[position] = types.NewAccount().PublicKey
	}

	var mutex sync.Mutex
	balances := make([]map[string]uint64, len(created))
	for position := range balances {
		balances[position] = map[string]uint64{}
	}

	// Identical issues against one blockhash share a signature. Each
	// (manager, recipient) pair issues serially; pairs run in parallel.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(simulate.Parallel)
	for position, info := range created {
		for ordinal, recipient := range owners {
			calls := simulate.Issues / len(owners)
			if ordinal < simulate.Issues%len(owners) {
				calls++
			}
			if calls == 0 {
				continue
			}
			group.Go(func() error {
				for range calls {
					result, err := client.Issue(groupCtx, dtm.IssueOptions{
						Mint:      info.Record.Asset,
						Authority: info.Record.Authority,
						Recipient: recipient,
					})
					if err != nil {
						return fmt.Errorf("failed to issue from %s: %w", info.Address.ToBase58(), err)
					}
					mutex.Lock()
					balances[position][recipient.ToBase58()] += result.Amount
					mutex.Unlock()
				}
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return err
	}

	report := simulateReport{
		Payer:    payer.PublicKey.ToBase58(),
		Slot:     chain.Slot(),
		Managers: make([]simulatedManager, 0, len(created)),
	}
	for position, info := range created {
		current, err := client.FetchManager(ctx, info.Record.Asset, info.Record.Authority)
		if err != nil {
			return err
		}
		if current.Record.TotalIssuanceCount != uint64(simulate.Issues) {
			return fmt.Errorf("manager %s recorded %d issuances, expected %d",
				info.Address.ToBase58(), current.Record.TotalIssuanceCount, simulate.Issues)
		}
		report.Managers = append(report.Managers, simulatedManager{
			Address:            current.Address.ToBase58(),
			Asset:              current.Record.Asset.ToBase58(),
			Authority:          current.Record.Authority.ToBase58(),
			IssuancePerCall:    current.Record.IssuancePerCall,
			TotalIssuanceCount: current.Record.TotalIssuanceCount,
			Balances:           balances[position],
		})
	}

	report.Transactions, report.Instructions, err = gatherCounts(registry)
	if err != nil {
		return err
	}

	if index {
		state, err := indexHistory(ctx, chain, &logger, snapshotPath)
		if err != nil {
			return err
		}
		report.Index = &state
	}

	logger.Info().Int("managers", len(created)).Int("issues", simulate.Issues*len(created)).Msg("simulation complete")
	return writeJSON(stdout, report)
}

func indexHistory(ctx context.Context, chain *ledger.Ledger, logger *zerolog.Logger, snapshotPath string) (indexer.State, error) {
	managerIndexer, err := indexer.New(indexer.Config{Source: chain, Logger: logger})
	if err != nil {
		return indexer.State{}, err
	}
	if err := managerIndexer.IndexOnce(ctx); err != nil {
		return indexer.State{}, err
	}
	if snapshotPath != "" {
		file, err := os.Create(snapshotPath)
		if err != nil {
			return indexer.State{}, fmt.Errorf("failed to create snapshot: %w", err)
		}
		if err := managerIndexer.ExportSnapshot(file); err != nil {
			_ = file.Close()
			return indexer.State{}, err
		}
		if err := file.Close(); err != nil {
			return indexer.State{}, err
		}
	}
	return managerIndexer.StateSnapshot(), nil
}

// gatherCounts reads the ledger counters back out of registry, keyed by
// their single label value.
func gatherCounts(registry *prometheus.Registry) (map[string]float64, map[string]float64, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, nil, err
	}
	transactions := map[string]float64{}
	instructions := map[string]float64{}
	for _, family := range families {
		var target map[string]float64
		switch family.GetName() {
		case "dtm_ledger_transactions_total":
			target = transactions
		case "dtm_ledger_instructions_total":
			target = instructions
		default:
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := metric.GetLabel()
			if len(labels) != 1 {
				continue
			}
			target[labels[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	return transactions, instructions, nil
}
