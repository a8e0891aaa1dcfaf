package repository_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/nyx-chain/evmsync/internal/repository"
	"github.com/nyx-chain/evmsync/tests/helpers"
	"github.com/stretchr/testify/require"
)

func testBlock(number uint64, hash, parent string) *model.Block {
	return &model.Block{
		Number:          number,
		Hash:            common.HexToHash(hash),
		ParentHash:      common.HexToHash(parent),
		Timestamp:       time.Unix(1_700_000_000+int64(number), 0).UTC(),
		Miner:           common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Difficulty:      big.NewInt(0),
		TotalDifficulty: big.NewInt(0),
		Size:            1000,
		ExtraData:       "0x",
		GasLimit:        big.NewInt(30_000_000),
		GasUsed:         big.NewInt(21_000),
	}
}

func testTransaction(blockNumber uint64, blockHash string, index uint32) *model.Transaction {
	return &model.Transaction{
		Hash:             common.HexToHash("0xaa00000000000000000000000000000000000000000000000000000000" + itoaPad(index)),
		Nonce:            uint64(index),
		BlockHash:        common.HexToHash(blockHash),
		BlockNumber:      blockNumber,
		TransactionIndex: index,
		FromAddress:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:            big.NewInt(1_000_000_000_000_000_000),
		GasPrice:         big.NewInt(1_000_000_000),
		Gas:              big.NewInt(21_000),
		Input:            "0x",
	}
}

func itoaPad(n uint32) string {
	digits := []byte{byte('0' + n/10), byte('0' + n%10)}
	return string(digits)
}

func TestInsertBlocksIdempotent(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "repo_test.db")
	repo := repository.New(logger.NewNopLogger())

	block := testBlock(100, "0xaa0000000000000000000000000000000000000000000000000000000000aa", "0x0000000000000000000000000000000000000000000000000000000000000")

	require.NoError(t, repo.InsertBlocks(db, []*model.Block{block}))
	require.NoError(t, repo.InsertBlocks(db, []*model.Block{block}))

	got, err := repo.BlockAt(db, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got.Number)
}

func TestLatestBlockEmpty(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "repo_test_empty.db")
	repo := repository.New(logger.NewNopLogger())

	_, err := repo.LatestBlock(db)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLatestBlock(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "repo_test_latest.db")
	repo := repository.New(logger.NewNopLogger())

	b100 := testBlock(100, "0xaa0000000000000000000000000000000000000000000000000000000000aa", "0x00")
	b101 := testBlock(101, "0xbb0000000000000000000000000000000000000000000000000000000000bb", b100.Hash.Hex())

	require.NoError(t, repo.InsertBlocks(db, []*model.Block{b100, b101}))

	latest, err := repo.LatestBlock(db)
	require.NoError(t, err)
	require.Equal(t, uint64(101), latest.Number)
}

func TestDeleteFromRemovesDependents(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "repo_test_delete.db")
	repo := repository.New(logger.NewNopLogger())

	b100 := testBlock(100, "0xaa0000000000000000000000000000000000000000000000000000000000aa", "0x00")
	b101 := testBlock(101, "0xbb0000000000000000000000000000000000000000000000000000000000bb", b100.Hash.Hex())

	tx100 := testTransaction(100, b100.Hash.Hex(), 0)
	tx101 := testTransaction(101, b101.Hash.Hex(), 0)

	require.NoError(t, repo.InsertBlocks(db, []*model.Block{b100, b101}))
	require.NoError(t, repo.InsertTransactions(db, []*model.Transaction{tx100, tx101}))

	require.NoError(t, repo.DeleteFrom(db, 101))

	latest, err := repo.LatestBlock(db)
	require.NoError(t, err)
	require.Equal(t, uint64(100), latest.Number)

	_, err = repo.BlockAt(db, 101)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteFromIdempotentWhenNothingMatches(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "repo_test_delete_noop.db")
	repo := repository.New(logger.NewNopLogger())

	b100 := testBlock(100, "0xaa0000000000000000000000000000000000000000000000000000000000aa", "0x00")
	require.NoError(t, repo.InsertBlocks(db, []*model.Block{b100}))

	require.NoError(t, repo.DeleteFrom(db, 200))

	latest, err := repo.LatestBlock(db)
	require.NoError(t, err)
	require.Equal(t, uint64(100), latest.Number)
}

func TestInsertLogsSerializesTopics(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "repo_test_logs.db")
	repo := repository.New(logger.NewNopLogger())

	b100 := testBlock(100, "0xaa0000000000000000000000000000000000000000000000000000000000aa", "0x00")
	tx := testTransaction(100, b100.Hash.Hex(), 0)

	require.NoError(t, repo.InsertBlocks(db, []*model.Block{b100}))
	require.NoError(t, repo.InsertTransactions(db, []*model.Transaction{tx}))

	log := &model.Log{
		LogIndex:        0,
		TransactionHash: tx.Hash,
		Address:         tx.FromAddress,
		Data:            "0xdead",
		Topics:          []common.Hash{common.HexToHash("0xcc"), common.HexToHash("0xdd")},
		BlockNumber:     100,
		BlockHash:       b100.Hash,
	}

	require.NoError(t, repo.InsertLogs(db, []*model.Log{log}))
}
