// Package model holds the persisted shapes of the chain data mirrored by
// the store: blocks, transactions, and logs.
package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is the canonical header record for one height.
type Block struct {
	Number          uint64         `meddler:"number,pk"`
	Hash            common.Hash    `meddler:"hash,hash"`
	ParentHash      common.Hash    `meddler:"parent_hash,hash"`
	Timestamp       time.Time      `meddler:"timestamp,unixtime"`
	Miner           common.Address `meddler:"miner,address"`
	Difficulty      *big.Int       `meddler:"difficulty,bigint"`
	TotalDifficulty *big.Int       `meddler:"total_difficulty,bigint"`
	Size            uint32         `meddler:"size"`
	ExtraData       string         `meddler:"extra_data"`
	GasLimit        *big.Int       `meddler:"gas_limit,bigint"`
	GasUsed         *big.Int       `meddler:"gas_used,bigint"`
	BaseFeePerGas   *big.Int       `meddler:"base_fee_per_gas,bigint"`
}
