// Package repository is the persistence gateway over the store: idempotent
// bulk inserts for blocks/transactions/logs, point and latest-block lookup,
// and the single bulk delete-from-height operation the reorg handler uses.
//
// The repository owns no transaction boundary. Every method accepts a
// meddler.DB, which both *sql.DB and *sql.Tx satisfy; callers open and
// commit.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/metrics"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/russross/meddler"
)

// ErrNotFound is returned by point lookups that find no matching row.
var ErrNotFound = errors.New("repository: not found")

// Repository is the persistence gateway described in the package doc.
type Repository struct {
	log *logger.Logger
}

// New creates a Repository.
func New(log *logger.Logger) *Repository {
	return &Repository{log: log.WithComponent("repository")}
}

// InsertBlocks idempotently inserts a batch of blocks. Rows whose primary
// key already exists are silently skipped.
func (r *Repository) InsertBlocks(db meddler.DB, blocks []*model.Block) error {
	const query = `INSERT OR IGNORE INTO blocks
		(number, hash, parent_hash, timestamp, miner, difficulty, total_difficulty,
		 size, extra_data, gas_limit, gas_used, base_fee_per_gas)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, b := range blocks {
		_, err := db.Exec(query,
			b.Number,
			b.Hash.Hex(),
			b.ParentHash.Hex(),
			b.Timestamp.Unix(),
			lowerHex(b.Miner.Hex()),
			b.Difficulty.String(),
			b.TotalDifficulty.String(),
			b.Size,
			b.ExtraData,
			b.GasLimit.String(),
			b.GasUsed.String(),
			bigIntOrNil(b.BaseFeePerGas),
		)
		if err != nil {
			metrics.DBErrorsInc("sqlite", "insert_block")
			return fmt.Errorf("repository: insert block %d: %w", b.Number, err)
		}
	}

	metrics.DBQueryInc("sqlite", "insert_blocks")
	return nil
}

// InsertTransactions idempotently inserts a batch of transactions.
func (r *Repository) InsertTransactions(db meddler.DB, txs []*model.Transaction) error {
	const query = `INSERT OR IGNORE INTO transactions
		(hash, nonce, block_hash, block_number, transaction_index, from_address,
		 to_address, value, gas_price, gas, input)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, t := range txs {
		_, err := db.Exec(query,
			t.Hash.Hex(),
			t.Nonce,
			t.BlockHash.Hex(),
			t.BlockNumber,
			t.TransactionIndex,
			lowerHex(t.FromAddress.Hex()),
			addressOrNil(t.ToAddress),
			t.Value.String(),
			t.GasPrice.String(),
			t.Gas.String(),
			t.Input,
		)
		if err != nil {
			metrics.DBErrorsInc("sqlite", "insert_transaction")
			return fmt.Errorf("repository: insert transaction %s: %w", t.Hash.Hex(), err)
		}
	}

	metrics.DBQueryInc("sqlite", "insert_transactions")
	return nil
}

// InsertLogs idempotently inserts a batch of logs. Topics are serialized
// as a JSON array.
func (r *Repository) InsertLogs(db meddler.DB, logs []*model.Log) error {
	const query = `INSERT OR IGNORE INTO logs
		(log_index, transaction_hash, address, data, topics, block_number, block_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, l := range logs {
		topicsJSON, err := marshalTopics(l.Topics)
		if err != nil {
			return fmt.Errorf("repository: marshal topics for log %d: %w", l.LogIndex, err)
		}

		_, err = db.Exec(query,
			l.LogIndex,
			l.TransactionHash.Hex(),
			lowerHex(l.Address.Hex()),
			l.Data,
			topicsJSON,
			l.BlockNumber,
			l.BlockHash.Hex(),
		)
		if err != nil {
			metrics.DBErrorsInc("sqlite", "insert_log")
			return fmt.Errorf("repository: insert log %d for block %d: %w", l.LogIndex, l.BlockNumber, err)
		}
	}

	metrics.DBQueryInc("sqlite", "insert_logs")
	return nil
}

// LatestBlock returns the block with the greatest number, or ErrNotFound
// if the store is empty.
func (r *Repository) LatestBlock(db meddler.DB) (*model.Block, error) {
	var block model.Block
	err := meddler.QueryRow(db, &block, "SELECT * FROM blocks ORDER BY number DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBErrorsInc("sqlite", "latest_block")
		return nil, fmt.Errorf("repository: latest block: %w", err)
	}

	metrics.DBQueryInc("sqlite", "latest_block")
	return &block, nil
}

// BlockAt returns the block at the given height, or ErrNotFound.
func (r *Repository) BlockAt(db meddler.DB, height uint64) (*model.Block, error) {
	var block model.Block
	err := meddler.QueryRow(db, &block, "SELECT * FROM blocks WHERE number = ?", height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBErrorsInc("sqlite", "block_at")
		return nil, fmt.Errorf("repository: block at %d: %w", height, err)
	}

	metrics.DBQueryInc("sqlite", "block_at")
	return &block, nil
}

// DeleteFrom deletes all logs, then transactions, then blocks with a
// block number/height >= the given height, in that order so foreign-key
// direction is always respected regardless of whether the schema enforces
// cascade delete.
func (r *Repository) DeleteFrom(db meddler.DB, height uint64) error {
	if _, err := db.Exec("DELETE FROM logs WHERE block_number >= ?", height); err != nil {
		metrics.DBErrorsInc("sqlite", "delete_logs")
		return fmt.Errorf("repository: delete logs from %d: %w", height, err)
	}

	if _, err := db.Exec("DELETE FROM transactions WHERE block_number >= ?", height); err != nil {
		metrics.DBErrorsInc("sqlite", "delete_transactions")
		return fmt.Errorf("repository: delete transactions from %d: %w", height, err)
	}

	if _, err := db.Exec("DELETE FROM blocks WHERE number >= ?", height); err != nil {
		metrics.DBErrorsInc("sqlite", "delete_blocks")
		return fmt.Errorf("repository: delete blocks from %d: %w", height, err)
	}

	metrics.DBQueryInc("sqlite", "delete_from")
	return nil
}

func lowerHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}

func bigIntOrNil(n *big.Int) interface{} {
	if n == nil {
		return nil
	}
	return n.String()
}

func addressOrNil(a *common.Address) interface{} {
	if a == nil {
		return nil
	}
	return lowerHex(a.Hex())
}

func marshalTopics(topics []common.Hash) (string, error) {
	hexTopics := make([]string, len(topics))
	for i, h := range topics {
		hexTopics[i] = h.Hex()
	}

	encoded, err := json.Marshal(hexTopics)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
