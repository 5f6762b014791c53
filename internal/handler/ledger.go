// Package handler exposes the vote ledger over HTTP with Gin.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/semre57/sengchain/internal/auth"
	"github.com/semre57/sengchain/internal/canonical"
	"github.com/semre57/sengchain/internal/ledger"
	"github.com/semre57/sengchain/internal/webhooks"
	"go.uber.org/zap"
)

// ledgerSvc is the interface expected by LedgerHandler, satisfied by
// *ledger.Ledger.
type ledgerSvc interface {
	Len() int
	HeadHash() (string, bool)
	StorageKey() string
	SnapshotChain() []*ledger.Block
	Verify() ledger.VerifyResult
	Inspect(hash string) ledger.InspectResult
	FindByTx(txID string) (*ledger.Block, bool)
	Tally() map[string]int
	Append(ctx context.Context, voterID, candidateID string, extra map[string]canonical.Value) (*ledger.Receipt, error)
	Export() *ledger.Snapshot
	Import(ctx context.Context, data []byte) (ledger.VerifyResult, error)
}

// NotifyFunc is an optional callback for ledger events, e.g. webhook dispatch.
type NotifyFunc func(ctx context.Context, eventType string, payload map[string]string)

// LedgerHandler serves the ledger routes.
type LedgerHandler struct {
	ledger ledgerSvc
	tokens *auth.TokenIssuer // nil = mutating routes are open
	notify NotifyFunc
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler. tokens may be nil to disable
// operator auth on mutating routes.
func NewLedgerHandler(l ledgerSvc, tokens *auth.TokenIssuer, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: l, tokens: tokens, logger: logger}
}

// SetNotifier configures the event callback.
func (h *LedgerHandler) SetNotifier(fn NotifyFunc) {
	h.notify = fn
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/chain", h.Chain)
		l.GET("/blocks/:hash", h.Inspect)
		l.GET("/tx/:txId", h.GetTx)
		l.GET("/tally", h.Tally)
		l.GET("/export", h.Export)
		l.POST("/votes", auth.RequireOperator(h.tokens), h.CastVote)
		l.POST("/import", auth.RequireOperator(h.tokens), h.Import)
	}
}

// Overview handles GET /ledger: chain length, height and head hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	n := h.ledger.Len()
	head, _ := h.ledger.HeadHash()
	setBlocksGauge(n)

	c.JSON(http.StatusOK, gin.H{
		"length":     n,
		"height":     n - 1,
		"headHash":   head,
		"storageKey": h.ledger.StorageKey(),
	})
}

// Verify handles GET /ledger/verify: walks the full chain and reports integrity.
func (h *LedgerHandler) Verify(c *gin.Context) {
	res := h.ledger.Verify()
	recordVerify(res.Valid)
	if !res.Valid {
		h.logger.Warn("ledger integrity check failed",
			zap.Int("index", res.Index),
			zap.String("reason", string(res.Reason)),
			zap.String("message", res.Message),
		)
	}
	c.JSON(http.StatusOK, res)
}

// Chain handles GET /ledger/chain: the full chain.
func (h *LedgerHandler) Chain(c *gin.Context) {
	chain := h.ledger.SnapshotChain()
	c.JSON(http.StatusOK, gin.H{"length": len(chain), "chain": chain})
}

// Inspect handles GET /ledger/blocks/:hash: a block and its consistency checks.
func (h *LedgerHandler) Inspect(c *gin.Context) {
	res := h.ledger.Inspect(c.Param("hash"))
	if !res.Found {
		c.JSON(http.StatusNotFound, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetTx handles GET /ledger/tx/:txId: the block holding a transaction.
func (h *LedgerHandler) GetTx(c *gin.Context) {
	b, ok := h.ledger.FindByTx(c.Param("txId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// Tally handles GET /ledger/tally: votes per candidate.
func (h *LedgerHandler) Tally(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tally": h.ledger.Tally()})
}

type castVoteRequest struct {
	VoterID     string                     `json:"voterId"`
	CandidateID string                     `json:"candidateId"`
	Extra       map[string]canonical.Value `json:"extra,omitempty"`
}

// CastVote handles POST /ledger/votes: appends a vote block.
func (h *LedgerHandler) CastVote(c *gin.Context) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(c, err) {
			recordVote(voteTooLarge)
			return
		}
		recordVote(voteInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	receipt, err := h.ledger.Append(c.Request.Context(), req.VoterID, req.CandidateID, req.Extra)
	if err != nil {
		var ie *ledger.IntegrityError
		switch {
		case errors.Is(err, ledger.ErrInvalidVote):
			recordVote(voteInvalid)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrDuplicateSubmission):
			recordVote(voteDuplicate)
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &ie):
			recordVote(voteRefused)
			h.logger.Error("vote refused, chain is broken",
				zap.Int("index", ie.Result.Index),
				zap.String("reason", string(ie.Result.Reason)),
			)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "verification": ie.Result})
		default:
			recordVote(voteError)
			h.logger.Error("append vote", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record vote"})
		}
		return
	}

	recordVote(voteAccepted)
	setBlocksGauge(receipt.Index + 1)
	h.logger.Info("vote recorded",
		zap.Int("index", receipt.Index),
		zap.String("tx_id", receipt.TxID),
		zap.String("operator", operatorName(c)),
	)
	c.JSON(http.StatusCreated, receipt)
}

// Export handles GET /ledger/export: the snapshot document as a download.
func (h *LedgerHandler) Export(c *gin.Context) {
	doc := h.ledger.Export()
	filename := fmt.Sprintf("seng-chain-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, doc)
}

// Import handles POST /ledger/import: replaces the chain with a verified
// snapshot or bare chain array.
func (h *LedgerHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if tooLarge(c, err) {
			recordImport("too_large")
			return
		}
		recordImport("malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body: " + err.Error()})
		return
	}

	res, err := h.ledger.Import(c.Request.Context(), body)
	switch {
	case errors.Is(err, ledger.ErrMalformedInput):
		recordImport("malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		recordImport("error")
		h.logger.Error("import chain", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import chain"})
		return
	case !res.Valid:
		recordImport("rejected")
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}

	recordImport("accepted")
	setBlocksGauge(res.Height)
	h.logger.Info("chain imported",
		zap.Int("height", res.Height),
		zap.String("head", res.HeadHash),
		zap.String("operator", operatorName(c)),
	)
	if h.notify != nil {
		h.notify(c.Request.Context(), webhooks.EventChainImported, map[string]string{
			"height":   strconv.Itoa(res.Height),
			"headHash": res.HeadHash,
			"operator": operatorName(c),
		})
	}
	c.JSON(http.StatusOK, res)
}

// tooLarge answers 413 when err comes from the BodyLimit reader.
func tooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("request body exceeds %d bytes", mbe.Limit),
	})
	return true
}

func operatorName(c *gin.Context) string {
	if claims := auth.ClaimsFromCtx(c); claims != nil {
		return claims.Subject
	}
	return strings.TrimSpace(c.ClientIP())
}
