// Package sync implements the Sync Engine: the single-writer control loop
// that drives the Chain Client, Integrity Guard, Prefetch Buffer, and
// Repository to keep the store caught up with the chain tip.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nyx-chain/evmsync/internal/db"
	"github.com/nyx-chain/evmsync/internal/integrity"
	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/metrics"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/nyx-chain/evmsync/internal/prefetch"
	"github.com/nyx-chain/evmsync/internal/repository"
	"github.com/nyx-chain/evmsync/pkg/chain"
	"github.com/nyx-chain/evmsync/pkg/config"
	"golang.org/x/sync/errgroup"
)

// drainTimeout is how long the engine waits on the Prefetch Buffer before
// falling back to a synchronous fetch, per spec §4.5 step 2a.
const drainTimeout = 100 * time.Millisecond

// Engine is the writer loop described in the package doc. It owns the
// store's write path; background prefetch workers only read through the
// Repository and never hold a transaction.
type Engine struct {
	client      chain.EthClient
	db          *sql.DB
	repo        *repository.Repository
	guard       *integrity.Guard
	buffer      *prefetch.Buffer
	maintenance db.Maintenance
	cfg         config.SyncConfig
	log         *logger.Logger

	// refilling guards against dispatching a second overlapping prefetch
	// pool while one is still draining the same [current+1, head] range.
	refilling atomic.Bool
}

// New wires the Sync Engine's dependencies. maintenance is consulted on
// every write (commit, rollback) via AcquireOperationLock so a running
// VACUUM gets exclusive access instead of racing the writer; pass
// &db.NoOpMaintenance{} where no coordinator is configured.
func New(client chain.EthClient, sqlDB *sql.DB, repo *repository.Repository, guard *integrity.Guard, buffer *prefetch.Buffer, maintenance db.Maintenance, cfg config.SyncConfig, log *logger.Logger) *Engine {
	return &Engine{
		client:      client,
		db:          sqlDB,
		repo:        repo,
		guard:       guard,
		buffer:      buffer,
		maintenance: maintenance,
		cfg:         cfg,
		log:         log.WithComponent("sync"),
	}
}

// StartingHeight resolves the height the main loop should begin at, per
// spec §4.5: resume from the store if non-empty, else honor an explicit
// backfill-from-genesis request, else catch up from head minus the tip
// margin.
func (e *Engine) StartingHeight(ctx context.Context) (uint64, error) {
	latest, err := e.repo.LatestBlock(e.db)
	if err == nil {
		return latest.Number + 1, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("sync: resolve starting height: %w", err)
	}

	if e.cfg.BackfillFromGenesis {
		return e.cfg.StartHeight, nil
	}

	head, err := e.client.FetchHead(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync: resolve starting height: %w", err)
	}
	if head < e.cfg.TipMargin {
		return 0, nil
	}
	return head - e.cfg.TipMargin, nil
}

// Run drives the main loop described in spec §4.5 until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	current, err := e.StartingHeight(ctx)
	if err != nil {
		return err
	}
	e.log.Infow("starting sync engine", "start_height", current)

	for {
		if ctx.Err() != nil {
			e.log.Info("sync engine shutting down")
			return ctx.Err()
		}

		head, err := e.client.FetchHead(ctx)
		if err != nil {
			e.log.Errorw("failed to read chain head", "error", err)
			current = e.recoverAfterError(ctx, current)
			continue
		}

		if current > head {
			metrics.SyncLagSet(0)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.cfg.PollInterval.Duration):
			}
			continue
		}

		metrics.SyncLagSet(int64(head - current))

		next, err := e.applyHeight(ctx, current, head)
		if err != nil {
			var reorg *integrity.ReorgDetected
			if errors.As(err, &reorg) {
				current, err = e.handleReorg(ctx, reorg)
				if err != nil {
					e.log.Errorw("failed to handle reorg", "error", err)
					current = e.recoverAfterError(ctx, current)
				}
				continue
			}

			e.log.Errorw("failed to apply height", "height", current, "error", err)
			current = e.recoverAfterError(ctx, current)
			continue
		}

		current = next
	}
}

// applyHeight performs one drain-phase iteration (spec §4.5 step 2):
// try the prefetch buffer, fall back to a synchronous fetch-and-validate,
// refill the buffer in the background, validate continuity, and commit.
func (e *Engine) applyHeight(ctx context.Context, current, head uint64) (uint64, error) {
	payload, ok := e.takeFromBuffer(current)
	if !ok {
		fetched, err := e.fetchAndValidate(ctx, current)
		if err != nil {
			return 0, err
		}
		payload = fetched
	}

	go e.refillBuffer(ctx, current+1, head)

	if err := e.guard.Check(e.db, payload.Block); err != nil {
		return 0, err
	}

	if err := e.commit(payload); err != nil {
		return 0, fmt.Errorf("sync: commit height %d: %w", current, err)
	}

	metrics.LastIndexedBlockSet(current)
	metrics.BlocksProcessedInc()

	return current + 1, nil
}

// takeFromBuffer drains the buffer per step 2a/2b: a hit at the wrong
// height means the buffer is stale (a reorg elsewhere invalidated it), so
// the whole thing is discarded rather than trusted piecemeal.
func (e *Engine) takeFromBuffer(current uint64) (prefetch.Payload, bool) {
	height, payload, ok := e.buffer.TryGet(drainTimeout)
	if !ok {
		return prefetch.Payload{}, false
	}
	if height != current {
		e.log.Warnw("discarding stale prefetch buffer", "expected", current, "got", height)
		e.buffer.Clear()
		return prefetch.Payload{}, false
	}
	return payload, true
}

// refillBuffer dispatches the background task of spec §4.5 step 2d/§5:
// fill the buffer with heights up to head using up to PrefetchWorkers
// concurrent fetchers, skipping anything already buffered or in flight.
// It runs without a store transaction, reading only.
//
// Only one refillBuffer can be in flight at a time: applyHeight calls it
// once per iteration, and without this guard each call would spin up a
// fresh worker pool over a range largely already covered by the previous
// call's still-running pool.
func (e *Engine) refillBuffer(ctx context.Context, from, head uint64) {
	if !e.refilling.CompareAndSwap(false, true) {
		return
	}
	defer e.refilling.Store(false)

	workers := e.cfg.PrefetchWorkers
	if workers < 1 {
		workers = 1
	}

	inFlight := e.buffer.PeekHeights()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for h := from; h <= head; h++ {
		if _, exists := inFlight[h]; exists {
			continue
		}

		height := h
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			payload, err := e.fetchAndValidate(gctx, height)
			if err != nil {
				e.log.Debugw("prefetch worker failed, will retry from main loop", "height", height, "error", err)
				return nil
			}
			e.buffer.Put(height, payload)
			return nil
		})
	}

	_ = g.Wait()
}

// fetchAndValidate is the sub-operation of spec §4.5: fetch the block, its
// logs and its total difficulty concurrently, then validate them into the
// store's shapes.
func (e *Engine) fetchAndValidate(ctx context.Context, height uint64) (prefetch.Payload, error) {
	g, gctx := errgroup.WithContext(ctx)

	var rawBlock *types.Block
	g.Go(func() error {
		b, err := e.client.FetchBlock(gctx, height, true)
		if err != nil {
			return err
		}
		rawBlock = b
		return nil
	})

	var rawLogs []chain.RawLog
	g.Go(func() error {
		logs, err := e.client.FetchLogs(gctx, height, height)
		if err != nil {
			return err
		}
		rawLogs = logs
		return nil
	})

	var totalDifficulty *big.Int
	g.Go(func() error {
		td, err := e.client.FetchTotalDifficulty(gctx, height)
		if err != nil {
			return err
		}
		totalDifficulty = td
		return nil
	})

	if err := g.Wait(); err != nil {
		return prefetch.Payload{}, err
	}

	blockModel, err := convertBlock(rawBlock, totalDifficulty)
	if err != nil {
		return prefetch.Payload{}, err
	}

	txs, err := convertTransactions(rawBlock)
	if err != nil {
		return prefetch.Payload{}, err
	}

	logs := convertLogs(height, rawLogs)

	return buildPayload(blockModel, txs, logs), nil
}

// commit opens a store transaction and inserts the block, its
// transactions, and its logs in that order, per spec §4.5 step 2f. It
// holds the maintenance coordinator's operation lock for the duration so
// a concurrent VACUUM cannot run against a half-written transaction.
func (e *Engine) commit(payload prefetch.Payload) error {
	unlock := e.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := e.db.Begin()
	if err != nil {
		return err
	}

	if err := e.repo.InsertBlocks(tx, []*model.Block{payload.Block}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := e.repo.InsertTransactions(tx, payload.Transactions); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := e.repo.InsertLogs(tx, payload.Logs); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// handleReorg implements spec §4.5's reorg handler: delete from height-1
// onward (removing the disagreeing predecessor too), drain the buffer,
// and resume from the new store head.
func (e *Engine) handleReorg(ctx context.Context, reorg *integrity.ReorgDetected) (uint64, error) {
	e.log.Warnw("reorg detected", "height", reorg.Height, "expected_parent", reorg.ExpectedParent.Hex(), "actual_parent", reorg.ActualParent.Hex())

	rollbackTo := reorg.Height - 1

	unlock := e.maintenance.AcquireOperationLock()
	err := e.repo.DeleteFrom(e.db, rollbackTo)
	unlock()
	if err != nil {
		return 0, fmt.Errorf("sync: rollback to %d: %w", rollbackTo, err)
	}

	e.buffer.Clear()

	return e.StartingHeight(ctx)
}

// recoverAfterError implements spec §4.5/§7's error handler: log, sleep
// error_backoff, and recompute the starting height from the store so a
// partially-applied iteration is never silently skipped.
func (e *Engine) recoverAfterError(ctx context.Context, current uint64) uint64 {
	select {
	case <-ctx.Done():
		return current
	case <-time.After(e.cfg.ErrorBackoff.Duration):
	}

	height, err := e.StartingHeight(ctx)
	if err != nil {
		return current
	}
	return height
}
