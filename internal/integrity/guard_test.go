package integrity_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nyx-chain/evmsync/internal/integrity"
	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/nyx-chain/evmsync/internal/repository"
	"github.com/nyx-chain/evmsync/tests/helpers"
	"github.com/stretchr/testify/require"
)

func block(number uint64, hash, parent common.Hash) *model.Block {
	return &model.Block{
		Number:          number,
		Hash:            hash,
		ParentHash:      parent,
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

func TestCheckContinuousWhenStoreEmpty(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "guard_empty.db")
	repo := repository.New(logger.NewNopLogger())
	guard := integrity.New(repo)

	candidate := block(100, common.HexToHash("0xaa"), common.HexToHash("0x99"))
	require.NoError(t, guard.Check(db, candidate))
}

func TestCheckContinuousWhenParentMatches(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "guard_match.db")
	repo := repository.New(logger.NewNopLogger())
	guard := integrity.New(repo)

	prev := block(100, common.HexToHash("0xaa"), common.HexToHash("0x99"))
	require.NoError(t, repo.InsertBlocks(db, []*model.Block{prev}))

	candidate := block(101, common.HexToHash("0xbb"), prev.Hash)
	require.NoError(t, guard.Check(db, candidate))
}

func TestCheckReorgDetectedWhenParentMismatches(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "guard_mismatch.db")
	repo := repository.New(logger.NewNopLogger())
	guard := integrity.New(repo)

	prev := block(102, common.HexToHash("0xaa"), common.HexToHash("0x99"))
	require.NoError(t, repo.InsertBlocks(db, []*model.Block{prev}))

	candidate := block(103, common.HexToHash("0xcc"), common.HexToHash("0xbb"))
	err := guard.Check(db, candidate)

	var reorg *integrity.ReorgDetected
	require.True(t, errors.As(err, &reorg))
	require.Equal(t, uint64(103), reorg.Height)
	require.Equal(t, prev.Hash, reorg.ExpectedParent)
	require.Equal(t, candidate.ParentHash, reorg.ActualParent)
}
