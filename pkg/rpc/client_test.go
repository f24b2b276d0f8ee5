package rpc

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

type recordedRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newRPCServer(t *testing.T, handler func(request recordedRequest) any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", request.Method)
		}
		body, _ := io.ReadAll(request.Body)
		var decoded recordedRequest
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(handler(decoded))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClientDefaultsToDevnet(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL() != "https://api.devnet.solana.com" {
		t.Fatalf("unexpected baseURL: %s", client.BaseURL())
	}
	if client.commitment != CommitmentConfirmed {
		t.Fatalf("expected confirmed commitment, got %q", client.commitment)
	}
}

func TestNewClientCustomBaseURL(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:8899/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL() != "http://127.0.0.1:8899" {
		t.Fatalf("unexpected baseURL: %s", client.BaseURL())
	}
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	cases := []Config{
		{Network: "badnet"},
		{BaseURL: "ftp://example.com"},
		{BaseURL: "http://"},
		{Commitment: "eventually"},
	}
	for _, config := range cases {
		if _, err := NewClient(config); err == nil {
			t.Fatalf("expected error for %+v", config)
		}
	}
}

func TestGetAccountDecodesBase64(t *testing.T) {
	owner := types.NewAccount().PublicKey
	key := types.NewAccount().PublicKey
	server := newRPCServer(t, func(request recordedRequest) any {
		if request.Method != "getAccountInfo" {
			t.Errorf("unexpected method %s", request.Method)
		}
		var address string
		_ = json.Unmarshal(request.Params[0], &address)
		if address != key.ToBase58() {
			t.Errorf("expected address %s, got %s", key.ToBase58(), address)
		}
		var config accountInfoConfig
		_ = json.Unmarshal(request.Params[1], &config)
		if config.Encoding != "base64" || config.Commitment != CommitmentFinalized {
			t.Errorf("unexpected config %+v", config)
		}
		return map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]any{
				"context": map[string]any{"slot": 10},
				"value": map[string]any{
					"data":       []string{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"},
					"executable": false,
					"lamports":   42,
					"owner":      owner.ToBase58(),
					"rentEpoch":  0,
					"space":      3,
				},
			},
		}
	})

	client, err := NewClient(Config{BaseURL: server.URL, Commitment: "finalized"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account, exists, err := client.GetAccount(t.Context(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists || account.Lamports != 42 || account.Owner != owner || string(account.Data) != "\x01\x02\x03" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestGetAccountMissing(t *testing.T) {
	server := newRPCServer(t, func(recordedRequest) any {
		return map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]any{"context": map[string]any{"slot": 1}, "value": nil},
		}
	})
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, exists, err := client.GetAccount(t.Context(), common.SystemProgramID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("expected missing account")
	}
}

func TestCallReturnsRPCError(t *testing.T) {
	server := newRPCServer(t, func(recordedRequest) any {
		return map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32602, "message": "Invalid param"},
		}
	})
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = client.GetBalance(t.Context(), common.SystemProgramID)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32602 {
		t.Fatalf("expected rpc error -32602, got %v", err)
	}
}

func TestCallHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = client.GetSlot(t.Context())
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status 429 error, got %v", err)
	}
}

func TestBalanceSlotAndBlockhash(t *testing.T) {
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		authorization = request.Header.Get("Authorization")
		var decoded recordedRequest
		_ = json.NewDecoder(request.Body).Decode(&decoded)
		var result any
		switch decoded.Method {
		case "getBalance":
			result = map[string]any{"context": map[string]any{"slot": 5}, "value": 1500}
		case "getSlot":
			result = 77
		case "getLatestBlockhash":
			result = map[string]any{
				"context": map[string]any{"slot": 5},
				"value":   map[string]any{"blockhash": "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", "lastValidBlockHeight": 300},
			}
		}
		_ = json.NewEncoder(writer).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, err := client.GetBalance(t.Context(), common.SystemProgramID)
	if err != nil || balance != 1500 {
		t.Fatalf("expected balance 1500, got %d (%v)", balance, err)
	}
	if authorization != "Bearer secret" {
		t.Fatalf("expected bearer authorization, got %q", authorization)
	}
	slot, err := client.GetSlot(t.Context())
	if err != nil || slot != 77 {
		t.Fatalf("expected slot 77, got %d (%v)", slot, err)
	}
	blockhash, err := client.GetLatestBlockhash(t.Context())
	if err != nil || blockhash.LastValidBlockHeight != 300 {
		t.Fatalf("unexpected blockhash %+v (%v)", blockhash, err)
	}
}

func TestDecodeAccountRejectsOtherEncodings(t *testing.T) {
	if _, err := decodeAccount(AccountInfo{Data: []string{"AQID", "base58"}, Owner: common.SystemProgramID.ToBase58()}); err == nil {
		t.Fatal("expected error for base58 data")
	}
	if _, err := decodeAccount(AccountInfo{Data: []string{"!!", "base64"}, Owner: common.SystemProgramID.ToBase58()}); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
