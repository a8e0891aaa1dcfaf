// Package integrity implements the single-ancestor parent-hash continuity
// check the Sync Engine relies on to detect chain reorganizations.
package integrity

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nyx-chain/evmsync/internal/metrics"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/nyx-chain/evmsync/internal/repository"
	"github.com/russross/meddler"
)

// ReorgDetected is raised when a candidate block's parent hash disagrees
// with the persisted predecessor at height-1.
type ReorgDetected struct {
	Height         uint64
	ExpectedParent common.Hash
	ActualParent   common.Hash
}

func (e *ReorgDetected) Error() string {
	return fmt.Sprintf("integrity: reorg detected at height %d: expected parent %s, got %s",
		e.Height, e.ExpectedParent.Hex(), e.ActualParent.Hex())
}

// Guard is the stateless predicate described in the package doc. It reads
// through the repository and performs no writes.
type Guard struct {
	repo *repository.Repository
}

// New creates a Guard backed by repo.
func New(repo *repository.Repository) *Guard {
	return &Guard{repo: repo}
}

// Check looks up the persisted predecessor of candidate and decides
// "continuous" (nil) or returns a *ReorgDetected. A missing predecessor
// (empty store, or the block right after a rollback) is treated as
// continuous; the caller decides whether a deeper check is warranted.
func (g *Guard) Check(db meddler.DB, candidate *model.Block) error {
	if candidate.Number == 0 {
		return nil
	}

	prev, err := g.repo.BlockAt(db, candidate.Number-1)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("integrity: lookup predecessor of %d: %w", candidate.Number, err)
	}

	if prev.Hash == candidate.ParentHash {
		return nil
	}

	metrics.ReorgsDetectedInc()

	return &ReorgDetected{
		Height:         candidate.Number,
		ExpectedParent: prev.Hash,
		ActualParent:   candidate.ParentHash,
	}
}
