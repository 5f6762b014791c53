// Package health runs periodic full-chain verification and reports the
// ledger's integrity status.
package health

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/semre57/sengchain/internal/ledger"
	"go.uber.org/zap"
)

// Status values reported by Checker.
const (
	StatusUnknown  = "unknown"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Event types passed to the alert callback.
const (
	EventIntegrityFailed   = "ledger.integrity_failed"
	EventIntegrityRestored = "ledger.integrity_restored"
)

// Config holds integrity check configuration.
type Config struct {
	CheckInterval time.Duration
}

// Verifier is the part of *ledger.Ledger the checker needs.
type Verifier interface {
	Verify() ledger.VerifyResult
}

// AlertFunc is an optional callback fired on healthy/degraded transitions.
type AlertFunc func(ctx context.Context, eventType string, payload map[string]string)

// MetricsRecordFunc is an optional callback for recording check results.
type MetricsRecordFunc func(valid bool)

// Report is the latest check outcome.
type Report struct {
	Status    string               `json:"status"`
	CheckedAt time.Time            `json:"checkedAt"`
	Result    *ledger.VerifyResult `json:"result,omitempty"`
}

// Checker verifies the ledger on a fixed interval.
type Checker struct {
	ledger    Verifier
	cfg       Config
	onAlert   AlertFunc
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu   sync.RWMutex
	last Report
}

// New creates a new Checker.
func New(l Verifier, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		ledger: l,
		cfg:    cfg,
		logger: logger,
		last:   Report{Status: StatusUnknown},
	}
}

// SetAlert configures the transition callback.
func (h *Checker) SetAlert(fn AlertFunc) {
	h.onAlert = fn
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs Check immediately and then on every tick until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check verifies the full chain once, updates the report and fires the
// alert callback when the status flips.
func (h *Checker) Check(ctx context.Context) Report {
	res := h.ledger.Verify()
	if h.onMetrics != nil {
		h.onMetrics(res.Valid)
	}

	status := StatusHealthy
	if !res.Valid {
		status = StatusDegraded
	}
	rep := Report{Status: status, CheckedAt: time.Now().UTC(), Result: &res}

	h.mu.Lock()
	prev := h.last.Status
	h.last = rep
	h.mu.Unlock()

	switch {
	case status == StatusDegraded && prev != StatusDegraded:
		h.logger.Warn("health: ledger integrity failed",
			zap.Int("index", res.Index),
			zap.String("reason", string(res.Reason)),
			zap.String("message", res.Message),
		)
		h.alert(ctx, EventIntegrityFailed, map[string]string{
			"index":   strconv.Itoa(res.Index),
			"reason":  string(res.Reason),
			"message": res.Message,
		})
	case status == StatusHealthy && prev == StatusDegraded:
		h.logger.Info("health: ledger integrity restored", zap.String("head", res.HeadHash))
		h.alert(ctx, EventIntegrityRestored, map[string]string{
			"height":   strconv.Itoa(res.Height),
			"headHash": res.HeadHash,
		})
	}
	return rep
}

// Last returns the most recent report.
func (h *Checker) Last() Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

func (h *Checker) alert(ctx context.Context, eventType string, payload map[string]string) {
	if h.onAlert != nil {
		h.onAlert(ctx, eventType, payload)
	}
}
