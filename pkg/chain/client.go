// Package chain declares the Chain Client contract the Sync Engine drives.
// It exposes the four reads the sync pipeline needs (head, block, logs,
// total difficulty) plus Close; batch RPC and finalized/safe tags are
// teacher-era surface that nothing downstream consumes.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// RawLog is eth_getLogs's entry shape before any validation: every field
// is whatever hex string the remote sent, unvalidated. Fetching logs at
// this shape (rather than go-ethereum's typed types.Log, whose Topics and
// Address fields cannot represent a malformed value once decoded) is what
// lets a single corrupt log be validated and dropped without going through
// typed JSON decoding first.
type RawLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	BlockHash        string   `json:"blockHash"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// EthClient is the upstream JSON-RPC surface the Sync Engine depends on.
// Implementations must translate transport failures, empty responses, and
// malformed payloads into the sentinel errors in internal/chain/errors.go
// so callers can tell "try again" from "this height doesn't exist yet"
// from "the remote is speaking nonsense".
type EthClient interface {
	// FetchHead returns the current chain tip height.
	FetchHead(ctx context.Context) (uint64, error)

	// FetchBlock returns the block at height. When includeTransactions is
	// true the returned block carries full transaction bodies; otherwise
	// only the header-derived fields are populated.
	FetchBlock(ctx context.Context, height uint64, includeTransactions bool) (*types.Block, error)

	// FetchLogs returns every log emitted in [fromHeight, toHeight], in
	// its raw, pre-validation shape.
	FetchLogs(ctx context.Context, fromHeight, toHeight uint64) ([]RawLog, error)

	// FetchTotalDifficulty returns the chain's cumulative difficulty at
	// height, a value go-ethereum's *types.Block does not carry.
	FetchTotalDifficulty(ctx context.Context, height uint64) (*big.Int, error)

	// Close releases the underlying connection.
	Close()
}
