package model

import "github.com/ethereum/go-ethereum/common"

// Log belongs to exactly one transaction and one block.
type Log struct {
	ID              int64         `meddler:"id,pk"`
	LogIndex        uint32        `meddler:"log_index"`
	TransactionHash common.Hash   `meddler:"transaction_hash,hash"`
	Address         common.Address `meddler:"address,address"`
	Data            string        `meddler:"data"`
	Topics          []common.Hash `meddler:"topics,topics"`
	BlockNumber     uint64        `meddler:"block_number"`
	BlockHash       common.Hash   `meddler:"block_hash,hash"`
}
