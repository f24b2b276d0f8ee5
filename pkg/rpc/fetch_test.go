package rpc_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/dtm"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/localnet"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/rpc"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

// serveLedger answers getAccountInfo from chain.
func serveLedger(t *testing.T, chain *ledger.Ledger) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var decoded struct {
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(request.Body).Decode(&decoded); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		var address string
		_ = json.Unmarshal(decoded.Params[0], &address)
		key, err := shared.ParsePublicKey(address)
		if err != nil {
			t.Errorf("invalid address: %v", err)
		}

		var value any
		account, exists, _ := chain.GetAccount(request.Context(), key)
		if exists {
			value = map[string]any{
				"data":       []string{base64.StdEncoding.EncodeToString(account.Data), "base64"},
				"executable": account.Executable,
				"lamports":   account.Lamports,
				"owner":      account.Owner.ToBase58(),
				"rentEpoch":  0,
				"space":      len(account.Data),
			}
		}
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]any{"context": map[string]any{"slot": chain.Slot()}, "value": value},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchManagerOverRPC(t *testing.T) {
	chain, err := localnet.New(localnet.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payer := types.NewAccount()
	if err := localnet.Fund(t.Context(), chain, ledger.LamportsPerSOL, payer.PublicKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client, err := dtm.NewClient(dtm.ClientConfig{Ledger: chain, PayerPrivateKey: base58.Encode(payer.PrivateKey)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	authority := types.NewAccount().PublicKey
	created, err := client.CreateManager(t.Context(), dtm.CreateManagerOptions{Authority: authority, IssuancePerCall: 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remote, err := rpc.NewClient(rpc.Config{BaseURL: serveLedger(t, chain).URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetched, err := dtm.FetchManager(t.Context(), remote, dtm.ProgramID, created.Record.Asset, authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.Address != created.Address || fetched.Record != created.Record {
		t.Fatalf("expected %+v, got %+v", created, fetched)
	}

	_, err = dtm.FetchManager(t.Context(), remote, dtm.ProgramID, created.Record.Asset, types.NewAccount().PublicKey)
	var notFound dtm.ManagerNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ManagerNotFoundError, got %v", err)
	}
}
