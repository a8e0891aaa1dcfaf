package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/model"
	"github.com/nyx-chain/evmsync/internal/repository"
)

// ChainHead is the read-only surface the API needs from the Chain Client:
// just enough to report reachability and the current tip on the health
// endpoint, never used to drive indexing.
type ChainHead interface {
	FetchHead(ctx context.Context) (uint64, error)
}

// Handler handles HTTP requests for the read-only query surface.
type Handler struct {
	db    *sql.DB
	repo  *repository.Repository
	chain ChainHead
	log   *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(db *sql.DB, repo *repository.Repository, chain ChainHead, log *logger.Logger) *Handler {
	return &Handler{db: db, repo: repo, chain: chain, log: log}
}

// Health reports indexing lag and chain-client reachability.
// @Summary Health check
// @Description Report indexing lag and chain-client reachability
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}

	latest, err := h.repo.LatestBlock(h.db)
	if err != nil && err != repository.ErrNotFound {
		h.log.Errorw("health check: failed to read latest block", "error", err)
	}
	if err == nil {
		resp.LatestIndexed = latest.Number
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	head, err := h.chain.FetchHead(ctx)
	if err != nil {
		h.log.Warnw("health check: chain client unreachable", "error", err)
		resp.ChainReachable = false
	} else {
		resp.ChainReachable = true
		resp.ChainHead = head
		if head > resp.LatestIndexed {
			resp.Lag = head - resp.LatestIndexed
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// LatestBlock returns the most recently indexed block.
// @Summary Latest indexed block
// @Description Return the block with the greatest persisted height
// @Produce json
// @Success 200 {object} BlockResponse
// @Failure 404 {object} ErrorResponse "store is empty"
// @Router /blocks/latest [get]
func (h *Handler) LatestBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.repo.LatestBlock(h.db)
	if err == repository.ErrNotFound {
		respondError(w, http.StatusNotFound, "no blocks indexed yet")
		return
	}
	if err != nil {
		h.log.Errorw("failed to read latest block", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read latest block")
		return
	}

	respondJSON(w, http.StatusOK, blockResponseFrom(block))
}

func blockResponseFrom(b *model.Block) BlockResponse {
	resp := BlockResponse{
		Number:          b.Number,
		Hash:            b.Hash.Hex(),
		ParentHash:      b.ParentHash.Hex(),
		Timestamp:       b.Timestamp.Unix(),
		Miner:           b.Miner.Hex(),
		Difficulty:      b.Difficulty.String(),
		TotalDifficulty: b.TotalDifficulty.String(),
		Size:            b.Size,
		ExtraData:       b.ExtraData,
		GasLimit:        b.GasLimit.String(),
		GasUsed:         b.GasUsed.String(),
	}
	if b.BaseFeePerGas != nil {
		resp.BaseFeePerGas = b.BaseFeePerGas.String()
	}
	return resp
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
