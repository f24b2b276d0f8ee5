package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/shared"
)

type Config struct {
	Network    string
	BaseURL    string
	HTTPClient *http.Client
	APIKey     string
	Headers    map[string]string
	// Commitment defaults to confirmed.
	Commitment string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	headers    map[string]string
	commitment string
	nextID     atomic.Uint64
}

// NewClient creates a new Client.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		endpoint, err := shared.RPCEndpoint(config.Network)
		if err != nil {
			return nil, err
		}
		baseURL = endpoint
	}
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid RPC base URL: %w", err)
	}
	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid RPC base URL: scheme must be http or https")
	}
	if strings.TrimSpace(parsedBaseURL.Host) == "" {
		return nil, fmt.Errorf("invalid RPC base URL: host is required")
	}

	commitment := strings.ToLower(strings.TrimSpace(config.Commitment))
	switch commitment {
	case "":
		commitment = CommitmentConfirmed
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
	default:
		return nil, fmt.Errorf("unsupported commitment %q", config.Commitment)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	headers := map[string]string{}
	for key, value := range config.Headers {
		headers[key] = value
	}

	return &Client{
		baseURL:    strings.TrimRight(parsedBaseURL.String(), "/"),
		httpClient: httpClient,
		apiKey:     strings.TrimSpace(config.APIKey),
		headers:    headers,
		commitment: commitment,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetAccount fetches an account. The boolean is false when the address holds
// nothing.
func (c *Client) GetAccount(ctx context.Context, key common.PublicKey) (ledger.Account, bool, error) {
	var result accountInfoResult
	err := c.call(ctx, "getAccountInfo", &result, key.ToBase58(), accountInfoConfig{
		Encoding:   "base64",
		Commitment: c.commitment,
	})
	if err != nil {
		return ledger.Account{}, false, err
	}
	if result.Value == nil {
		return ledger.Account{}, false, nil
	}
	account, err := decodeAccount(*result.Value)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("failed to decode account %s: %w", key.ToBase58(), err)
	}
	return account, true, nil
}

// GetBalance returns the lamports held by key.
func (c *Client) GetBalance(ctx context.Context, key common.PublicKey) (uint64, error) {
	var result balanceResult
	if err := c.call(ctx, "getBalance", &result, key.ToBase58(), commitmentConfig{Commitment: c.commitment}); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetLatestBlockhash returns the blockhash new transactions should reference.
func (c *Client) GetLatestBlockhash(ctx context.Context) (LatestBlockhash, error) {
	var result latestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", &result, commitmentConfig{Commitment: c.commitment}); err != nil {
		return LatestBlockhash{}, err
	}
	if result.Value.Blockhash == "" {
		return LatestBlockhash{}, fmt.Errorf("node returned an empty blockhash")
	}
	return result.Value, nil
}

func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.call(ctx, "getSlot", &slot, commitmentConfig{Commitment: c.commitment}); err != nil {
		return 0, err
	}
	return slot, nil
}

func decodeAccount(info AccountInfo) (ledger.Account, error) {
	if len(info.Data) != 2 || info.Data[1] != "base64" {
		return ledger.Account{}, fmt.Errorf("expected base64 encoded data, got %v", info.Data)
	}
	data, err := base64.StdEncoding.DecodeString(info.Data[0])
	if err != nil {
		return ledger.Account{}, err
	}
	owner, err := shared.ParsePublicKey(info.Owner)
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{
		Lamports:   info.Lamports,
		Data:       data,
		Owner:      owner,
		Executable: info.Executable,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, target any, params ...any) error {
	payload, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpRequest.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	for key, value := range c.headers {
		httpRequest.Header.Set(key, value)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return fmt.Errorf("failed to read rpc response: %w", err)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return fmt.Errorf(
			"rpc request failed with status %d: %s",
			httpResponse.StatusCode,
			strings.TrimSpace(string(body)),
		)
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if err := json.Unmarshal(decoded.Result, target); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
