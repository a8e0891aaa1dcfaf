package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction belongs to exactly one block, addressed by BlockHash/BlockNumber.
type Transaction struct {
	Hash             common.Hash     `meddler:"hash,hash,pk"`
	Nonce            uint64          `meddler:"nonce"`
	BlockHash        common.Hash     `meddler:"block_hash,hash"`
	BlockNumber      uint64          `meddler:"block_number"`
	TransactionIndex uint32          `meddler:"transaction_index"`
	FromAddress      common.Address  `meddler:"from_address,address"`
	ToAddress        *common.Address `meddler:"to_address,address"`
	Value            *big.Int        `meddler:"value,bigint"`
	GasPrice         *big.Int        `meddler:"gas_price,bigint"`
	Gas              *big.Int        `meddler:"gas,bigint"`
	Input            string          `meddler:"input"`
}
