package rpc

import (
	"encoding/json"
	"fmt"
)

const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (errorValue *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", errorValue.Code, errorValue.Message)
}

type Context struct {
	Slot uint64 `json:"slot"`
}

// AccountInfo is the wire form of an account in base64 encoding.
type AccountInfo struct {
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      uint64   `json:"space"`
}

type accountInfoResult struct {
	Context Context      `json:"context"`
	Value   *AccountInfo `json:"value"`
}

type balanceResult struct {
	Context Context `json:"context"`
	Value   uint64  `json:"value"`
}

type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type latestBlockhashResult struct {
	Context Context         `json:"context"`
	Value   LatestBlockhash `json:"value"`
}

type commitmentConfig struct {
	Commitment string `json:"commitment,omitempty"`
}

type accountInfoConfig struct {
	Encoding   string `json:"encoding"`
	Commitment string `json:"commitment,omitempty"`
}
