// Package chain implements the Chain Client: the component that turns
// upstream JSON-RPC calls into the three operations the Sync Engine drives
// (fetch_head, fetch_block, fetch_logs), retrying unconditionally on any
// failure with exponential backoff.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	gethhexutil "github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	pkgchain "github.com/nyx-chain/evmsync/pkg/chain"
	"github.com/nyx-chain/evmsync/pkg/config"
)

var _ pkgchain.EthClient = (*Client)(nil)

// Client is the concrete pkgchain.EthClient backed by go-ethereum's
// ethclient/rpc pair.
type Client struct {
	eth         *ethclient.Client
	rpc         *gethrpc.Client
	retryConfig *config.RetryConfig
}

// NewClient dials endpoint and returns a Client ready to serve fetch_head,
// fetch_block, and fetch_logs.
func NewClient(ctx context.Context, endpoint string, retryConfig *config.RetryConfig) (*Client, error) {
	rpcClient, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, classify(err)
	}

	return &Client{
		eth:         ethclient.NewClient(rpcClient),
		rpc:         rpcClient,
		retryConfig: retryConfig,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}

// FetchHead returns the current chain tip height.
func (c *Client) FetchHead(ctx context.Context) (uint64, error) {
	const method = "eth_blockNumber"

	start := time.Now()
	RPCMethodInc(method)
	defer func() { RPCMethodDuration(method, time.Since(start)) }()

	var head uint64
	err := retryWithBackoff(ctx, c.retryConfig, method, func() error {
		var fetchErr error
		head, fetchErr = c.eth.BlockNumber(ctx)
		return fetchErr
	})
	if err != nil {
		classified := classify(err)
		RPCMethodError(method, errorClass(classified))
		return 0, classified
	}

	return head, nil
}

// FetchBlock returns the block at height. When includeTransactions is
// false only the header-derived fields of the returned block are
// populated (go-ethereum has no header-only *types.Block constructor that
// preserves all header fields, so the header is wrapped as a body-less
// block rather than fetched through a separate code path).
func (c *Client) FetchBlock(ctx context.Context, height uint64, includeTransactions bool) (*types.Block, error) {
	method := "eth_getBlockByNumber"

	start := time.Now()
	RPCMethodInc(method)
	defer func() { RPCMethodDuration(method, time.Since(start)) }()

	var block *types.Block
	err := retryWithBackoff(ctx, c.retryConfig, method, func() error {
		if includeTransactions {
			b, fetchErr := c.eth.BlockByNumber(ctx, big.NewInt(int64(height)))
			block = b
			return fetchErr
		}

		header, fetchErr := c.eth.HeaderByNumber(ctx, big.NewInt(int64(height)))
		if fetchErr != nil {
			return fetchErr
		}
		block = types.NewBlockWithHeader(header)
		return nil
	})
	if err != nil {
		classified := classify(err)
		RPCMethodError(method, errorClass(classified))
		return nil, classified
	}

	if block == nil {
		RPCMethodError(method, errorClass(NotFound))
		return nil, NotFound
	}

	return block, nil
}

// rawBlockHeader is the subset of eth_getBlockByNumber's response this
// client reads outside of what ethclient.BlockByNumber already exposes.
// totalDifficulty is cumulative chain work and, unlike Difficulty, isn't
// carried on go-ethereum's *types.Header, so it needs its own raw call.
type rawBlockHeader struct {
	TotalDifficulty *gethhexutil.Big `json:"totalDifficulty"`
}

// FetchTotalDifficulty returns the cumulative chain work at height. Post-
// merge chains report a constant terminal value here; pre-merge chains
// report the true running total.
func (c *Client) FetchTotalDifficulty(ctx context.Context, height uint64) (*big.Int, error) {
	const method = "eth_getBlockByNumber"

	start := time.Now()
	RPCMethodInc(method)
	defer func() { RPCMethodDuration(method, time.Since(start)) }()

	var raw rawBlockHeader
	err := retryWithBackoff(ctx, c.retryConfig, method, func() error {
		return c.rpc.CallContext(ctx, &raw, method, fmt.Sprintf("0x%x", height), false)
	})
	if err != nil {
		classified := classify(err)
		RPCMethodError(method, errorClass(classified))
		return nil, classified
	}

	if raw.TotalDifficulty == nil {
		return big.NewInt(0), nil
	}
	return (*big.Int)(raw.TotalDifficulty), nil
}

// FetchLogs returns every log emitted in [fromHeight, toHeight], in its
// raw, pre-validation shape. This deliberately bypasses ethclient.FilterLogs:
// that call unmarshals into go-ethereum's typed types.Log, whose Hash/
// Address/Topics fields reject a malformed value during JSON decoding and
// would fail the entire range on one corrupt entry. A raw CallContext into
// pkgchain.RawLog keeps every field a string, so fetch-and-validate can drop
// a single bad log instead of losing the whole batch.
func (c *Client) FetchLogs(ctx context.Context, fromHeight, toHeight uint64) ([]pkgchain.RawLog, error) {
	const method = "eth_getLogs"

	start := time.Now()
	RPCMethodInc(method)
	defer func() { RPCMethodDuration(method, time.Since(start)) }()

	filter := ethGetLogsFilter(fromHeight, toHeight)

	var logs []pkgchain.RawLog
	err := retryWithBackoff(ctx, c.retryConfig, method, func() error {
		return c.rpc.CallContext(ctx, &logs, method, filter)
	})
	if err != nil {
		classified := classify(err)
		RPCMethodError(method, errorClass(classified))
		return nil, classified
	}

	return logs, nil
}
