package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/config"
	"github.com/dapp-token-manager/token-manager-sdk-go/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// usageError marks failures caused by bad arguments.
type usageError struct {
	err error
}

func (u usageError) Error() string { return u.err.Error() }

func (u usageError) Unwrap() error { return u.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	if len(args) == 0 {
		return usagef("a command is required")
	}
	command, rest := args[0], args[1:]
	switch command {
	case "derive":
		return runDerive(rest, stdout)
	case "simulate":
		return runSimulate(ctx, rest, stdout, stderr)
	case "inspect":
		return runInspect(ctx, rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		return usagef("unknown command %q", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `Usage: dtmctl <command> [flags]

Commands:
  derive     print the manager address for an asset and authority
  simulate   run create and issue against an in-process ledger
  inspect    read and verify a manager record over JSON-RPC

Run "dtmctl <command> --help" for command flags.
`)
}

// parseFlags parses args into flagSet. A help request is reported as
// pflag.ErrHelp so callers can return nil.
func parseFlags(flagSet *pflag.FlagSet, args []string) error {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err: err}
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return usagef("unexpected argument: %s", extra[0])
	}
	return nil
}

// loadConfig reads path when set and returns defaults otherwise.
func loadConfig(path string) (config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}

func newLogger(stderr io.Writer, cfg config.LogConfig) zerolog.Logger {
	logConfig := logging.DefaultConfig(logging.ProfileRuntime)
	if level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
		logConfig.Level = level
	}
	if strings.EqualFold(cfg.Format, string(logging.FormatJSON)) {
		logConfig.Format = logging.FormatJSON
	}
	logging.ApplyEnvOverrides(&logConfig)
	return logging.New(stderr, logConfig)
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
