package sync

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	evmcommon "github.com/nyx-chain/evmsync/internal/common"
	"github.com/nyx-chain/evmsync/internal/hexutil"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/nyx-chain/evmsync/internal/prefetch"
	"github.com/nyx-chain/evmsync/pkg/chain"
)

// ValidationFailed wraps a field-level validation error raised while
// turning a raw RPC response into the store's Block/Transaction/Log
// shapes. Per spec §4.5 it is treated as transient by the engine: a
// malformed response is refetched on the next iteration rather than
// aborting the process.
type ValidationFailed struct {
	Height uint64
	Reason string
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("sync: validation failed at height %d: %s", e.Height, e.Reason)
}

// convertBlock turns a fetched *types.Block into the store's Block shape.
// Every hash/address field is round-tripped through internal/hexutil so
// the persisted value matches the hex discipline the store expects; a
// failing field aborts the whole block.
func convertBlock(raw *types.Block, totalDifficulty *big.Int) (*model.Block, error) {
	header := raw.Header()
	height := header.Number.Uint64()

	hash, err := hexutil.ValidateHash(raw.Hash().Hex())
	if err != nil {
		return nil, &ValidationFailed{Height: height, Reason: "block hash: " + err.Error()}
	}
	parentHash, err := hexutil.ValidateHash(header.ParentHash.Hex())
	if err != nil {
		return nil, &ValidationFailed{Height: height, Reason: "parent hash: " + err.Error()}
	}
	miner, err := hexutil.ValidateAddress(header.Coinbase.Hex())
	if err != nil {
		return nil, &ValidationFailed{Height: height, Reason: "miner address: " + err.Error()}
	}

	extraData := "0x"
	if len(header.Extra) > 0 {
		extraData = fmt.Sprintf("0x%x", header.Extra)
	}

	block := &model.Block{
		Number:          height,
		Hash:            common.HexToHash(hash),
		ParentHash:      common.HexToHash(parentHash),
		Timestamp:       time.Unix(int64(header.Time), 0).UTC(),
		Miner:           common.HexToAddress(miner),
		Difficulty:      nonNilBigInt(header.Difficulty),
		TotalDifficulty: nonNilBigInt(totalDifficulty),
		GasLimit:        big.NewInt(int64(header.GasLimit)),
		GasUsed:         big.NewInt(int64(header.GasUsed)),
		Size:            uint32(raw.Size()),
		ExtraData:       extraData,
	}
	if header.BaseFee != nil {
		block.BaseFeePerGas = new(big.Int).Set(header.BaseFee)
	}

	return block, nil
}

// convertTransactions validates every transaction in raw, preserving
// block-local order. A single unvalidatable transaction aborts the whole
// block: a block with a malformed transaction is corrupt, per spec §4.5.
func convertTransactions(raw *types.Block) ([]*model.Transaction, error) {
	height := raw.NumberU64()

	blockHash, err := hexutil.ValidateHash(raw.Hash().Hex())
	if err != nil {
		return nil, &ValidationFailed{Height: height, Reason: "block hash: " + err.Error()}
	}

	txs := make([]*model.Transaction, 0, len(raw.Transactions()))
	for i, tx := range raw.Transactions() {
		// The sender is recovered from the transaction's signature, with a
		// signer for the chain ID the transaction itself carries.
		signer := types.LatestSignerForChainID(tx.ChainId())
		from, err := types.Sender(signer, tx)
		if err != nil {
			return nil, &ValidationFailed{Height: height, Reason: fmt.Sprintf("tx %d sender: %s", i, err.Error())}
		}

		fromHex, err := hexutil.ValidateAddress(from.Hex())
		if err != nil {
			return nil, &ValidationFailed{Height: height, Reason: fmt.Sprintf("tx %d from address: %s", i, err.Error())}
		}

		hashHex, err := hexutil.ValidateHash(tx.Hash().Hex())
		if err != nil {
			return nil, &ValidationFailed{Height: height, Reason: fmt.Sprintf("tx %d hash: %s", i, err.Error())}
		}

		converted := &model.Transaction{
			Hash:             common.HexToHash(hashHex),
			Nonce:            tx.Nonce(),
			BlockHash:        common.HexToHash(blockHash),
			BlockNumber:      height,
			TransactionIndex: uint32(i),
			FromAddress:      common.HexToAddress(fromHex),
			Value:            nonNilBigInt(tx.Value()),
			GasPrice:         nonNilBigInt(tx.GasPrice()),
			Gas:              big.NewInt(int64(tx.Gas())),
			Input:            fmt.Sprintf("0x%x", tx.Data()),
		}

		if to := tx.To(); to != nil {
			toHex, err := hexutil.ValidateAddress(to.Hex())
			if err != nil {
				return nil, &ValidationFailed{Height: height, Reason: fmt.Sprintf("tx %d to address: %s", i, err.Error())}
			}
			toAddr := common.HexToAddress(toHex)
			converted.ToAddress = &toAddr
		}

		txs = append(txs, converted)
	}

	return txs, nil
}

// convertLogs validates every raw log. Unlike transactions, a single
// unvalidatable log is silently dropped: logs come from a separate RPC
// call and are not structurally load-bearing for the chain, per spec §4.5.
// Each field arrives as an unvalidated string (see pkgchain.RawLog), so a
// single malformed hash, address, or topic drops only that log rather than
// the whole batch. Logs belonging to a different height than the one being
// fetched (a stale response from a prior range) are also dropped.
func convertLogs(height uint64, raw []chain.RawLog) []*model.Log {
	logs := make([]*model.Log, 0, len(raw))
	for _, l := range raw {
		blockNumber, err := evmcommon.ParseUint64orHex(&l.BlockNumber)
		if err != nil || blockNumber != height {
			continue
		}

		logIndex, err := evmcommon.ParseUint64orHex(&l.LogIndex)
		if err != nil {
			continue
		}

		txHash, err := hexutil.ValidateHash(l.TransactionHash)
		if err != nil {
			continue
		}
		address, err := hexutil.ValidateAddress(l.Address)
		if err != nil {
			continue
		}
		blockHash, err := hexutil.ValidateHash(l.BlockHash)
		if err != nil {
			continue
		}
		data, err := hexutil.ValidateData(l.Data)
		if err != nil {
			continue
		}

		topics := make([]common.Hash, 0, len(l.Topics))
		valid := true
		for _, t := range l.Topics {
			topicHex, err := hexutil.ValidateHash(t)
			if err != nil {
				valid = false
				break
			}
			topics = append(topics, common.HexToHash(topicHex))
		}
		if !valid {
			continue
		}

		logs = append(logs, &model.Log{
			LogIndex:        uint32(logIndex),
			TransactionHash: common.HexToHash(txHash),
			Address:         common.HexToAddress(address),
			Data:            data,
			Topics:          topics,
			BlockNumber:     height,
			BlockHash:       common.HexToHash(blockHash),
		})
	}
	return logs
}

func nonNilBigInt(n *big.Int) *big.Int {
	if n == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(n)
}

// buildPayload assembles the validated tuple a fetch-and-validate call
// hands to the Prefetch Buffer or applies directly.
func buildPayload(block *model.Block, txs []*model.Transaction, logs []*model.Log) prefetch.Payload {
	return prefetch.Payload{Block: block, Transactions: txs, Logs: logs}
}
