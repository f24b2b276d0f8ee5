package main

import (
	"errors"
	"io"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/spf13/pflag"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/master"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

type deriveReport struct {
	ProgramID string `json:"programId"`
	Asset     string `json:"asset"`
	Authority string `json:"authority"`
	Manager   string `json:"manager"`
	Bump      uint8  `json:"bump"`
}

func runDerive(args []string, stdout io.Writer) error {
	var assetFlag, authorityFlag, programIDFlag string
	var viaMaster bool

	flagSet := pflag.NewFlagSet("derive", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&assetFlag, "asset", "", "mint address")
	flagSet.StringVar(&authorityFlag, "authority", "", "delegating authority")
	flagSet.StringVar(&programIDFlag, "program-id", "", "registry program id (default: built-in)")
	flagSet.BoolVar(&viaMaster, "via-master", false, "use the master program's derived authority")
	if err := parseFlags(flagSet, args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if assetFlag == "" {
		return usagef("--asset is required")
	}
	asset, err := shared.ParsePublicKey(assetFlag)
	if err != nil {
		return usageError{err: err}
	}

	var authority common.PublicKey
	switch {
	case viaMaster && authorityFlag != "":
		return usagef("--authority and --via-master are mutually exclusive")
	case viaMaster:
		authority, _, err = master.Authority()
		if err != nil {
			return err
		}
	case authorityFlag == "":
		return usagef("--authority or --via-master is required")
	default:
		authority, err = shared.ParsePublicKey(authorityFlag)
		if err != nil {
			return usageError{err: err}
		}
	}

	programID := dtm.ProgramID
	if programIDFlag != "" {
		programID, err = shared.ParsePublicKey(programIDFlag)
		if err != nil {
			return usageError{err: err}
		}
	}

	manager, bump, err := dtm.FindManagerAddress(programID, asset, authority)
	if err != nil {
		return err
	}
	return writeJSON(stdout, deriveReport{
		ProgramID: programID.ToBase58(),
		Asset:     asset.ToBase58(),
		Authority: authority.ToBase58(),
		Manager:   manager.ToBase58(),
		Bump:      bump,
	})
}
