package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/pflag"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/rpc"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

type inspectReport struct {
	Manager            string `json:"manager"`
	Asset              string `json:"asset"`
	Authority          string `json:"authority"`
	PayerAuthority     string `json:"payerAuthority"`
	IssuancePerCall    uint64 `json:"issuancePerCall"`
	TotalIssuanceCount uint64 `json:"totalIssuanceCount"`
	Bump               uint8  `json:"bump"`
}

func runInspect(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	var configPath, network, rpcURL, programIDFlag, assetFlag, authorityFlag, apiKey string

	flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&configPath, "config", "", "path to a dtmctl TOML config")
	flagSet.StringVar(&network, "network", "", "cluster name (overrides config)")
	flagSet.StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint (overrides network)")
	flagSet.StringVar(&programIDFlag, "program-id", "", "registry program id (overrides config)")
	flagSet.StringVar(&assetFlag, "asset", "", "mint address")
	flagSet.StringVar(&authorityFlag, "authority", "", "delegating authority")
	flagSet.StringVar(&apiKey, "api-key", "", "bearer token for the RPC endpoint")
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
	logger := newLogger(stderr, cfg.Log)

	if assetFlag == "" || authorityFlag == "" {
		return usagef("--asset and --authority are required")
	}
	asset, err := shared.ParsePublicKey(assetFlag)
	if err != nil {
		return usageError{err: err}
	}
	authority, err := shared.ParsePublicKey(authorityFlag)
	if err != nil {
		return usageError{err: err}
	}

	programID := dtm.ProgramID
	if programIDFlag == "" {
		programIDFlag = cfg.ProgramID
	}
	if programIDFlag != "" {
		programID, err = shared.ParsePublicKey(programIDFlag)
		if err != nil {
			return usageError{err: err}
		}
	}

	endpoint := rpcURL
	if endpoint == "" && network == "" {
		endpoint = cfg.RPCURL
	}
	client, err := rpc.NewClient(rpc.Config{Network: network, BaseURL: endpoint, APIKey: apiKey})
	if err != nil {
		return err
	}
	logger.Debug().Str("rpc", client.BaseURL()).Str("program", programID.ToBase58()).Msg("inspecting manager")

	info, err := dtm.FetchManager(ctx, client, programID, asset, authority)
	if err != nil {
		return err
	}
	return writeJSON(stdout, inspectReport{
		Manager:            info.Address.ToBase58(),
		Asset:              info.Record.Asset.ToBase58(),
		Authority:          info.Record.Authority.ToBase58(),
		PayerAuthority:     info.Record.PayerAuthority.ToBase58(),
		IssuancePerCall:    info.Record.IssuancePerCall,
		TotalIssuanceCount: info.Record.TotalIssuanceCount,
		Bump:               info.Record.Bump,
	})
}
