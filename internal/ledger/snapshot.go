package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// SnapshotSchema identifies the snapshot document format and revision.
const SnapshotSchema = "SENG_CHAIN_V1"

// Snapshot is the portable export document.
type Snapshot struct {
	Schema     string   `json:"schema"`
	ExportedAt string   `json:"exportedAt"`
	StorageKey string   `json:"storageKey"`
	Chain      []*Block `json:"chain"`
}

// Export returns a snapshot document holding a copy of the chain.
func (l *Ledger) Export() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Snapshot{
		Schema:     SnapshotSchema,
		ExportedAt: l.now(),
		StorageKey: l.key,
		Chain:      cloneChain(l.chain),
	}
}

// Import replaces the chain with the one carried by data, which is either a
// bare JSON array of blocks or a snapshot document. The candidate is fully
// verified before any state changes. A candidate that fails verification is
// reported through the returned result with a nil error and the ledger is
// left untouched. ErrMalformedInput is returned when data has neither shape.
func (l *Ledger) Import(ctx context.Context, data []byte) (VerifyResult, error) {
	chain, err := parseImport(data)
	if err != nil {
		return VerifyResult{}, err
	}
	return l.ImportChain(ctx, chain)
}

// ImportChain is Import for an already decoded chain. The blocks are copied;
// the caller keeps ownership of its slice.
func (l *Ledger) ImportChain(ctx context.Context, chain []*Block) (VerifyResult, error) {
	for i, b := range chain {
		if b == nil {
			return VerifyResult{}, fmt.Errorf("%w: block %d is null", ErrMalformedInput, i)
		}
		if !b.Data.ValidUTF8() {
			return VerifyResult{}, fmt.Errorf("%w: block %d payload is not valid UTF-8", ErrMalformedInput, i)
		}
	}
	candidate := cloneChain(chain)

	res := verifyChain(candidate, l.digest)
	if !res.Valid {
		l.logger.Warn("import rejected",
			zap.Int("index", res.Index),
			zap.String("reason", string(res.Reason)),
		)
		return res, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.persist(ctx, candidate); err != nil {
		return VerifyResult{}, err
	}
	l.chain = candidate
	l.ready = true

	l.logger.Info("chain imported",
		zap.Int("blocks", res.Height),
		zap.String("head", res.HeadHash),
	)
	return res, nil
}

// parseImport extracts the candidate chain from a bare array or a snapshot
// document.
func parseImport(data []byte) ([]*Block, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
	}

	raw := trimmed
	switch trimmed[0] {
	case '[':
	case '{':
		var doc struct {
			Schema string          `json:"schema"`
			Chain  json.RawMessage `json:"chain"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if doc.Schema != "" && doc.Schema != SnapshotSchema {
			return nil, fmt.Errorf("%w: unsupported schema %q", ErrMalformedInput, doc.Schema)
		}
		raw = bytes.TrimSpace(doc.Chain)
		if len(raw) == 0 || raw[0] != '[' {
			return nil, fmt.Errorf("%w: document has no chain array", ErrMalformedInput)
		}
	default:
		return nil, fmt.Errorf("%w: expected a chain array or snapshot document", ErrMalformedInput)
	}

	var chain []*Block
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	for i, b := range chain {
		if b == nil {
			return nil, fmt.Errorf("%w: block %d is null", ErrMalformedInput, i)
		}
	}
	return chain, nil
}
