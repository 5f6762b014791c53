package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/semre57/sengchain/internal/canonical"
	"go.uber.org/zap"
)

// DefaultStorageKey is the store key used when none is configured.
const DefaultStorageKey = "seng_chain_v1"

// DefaultGenesisMessage is the payload message of a fresh genesis block.
const DefaultGenesisMessage = "Genesis Block"

// Receipt is returned by a successful Append.
type Receipt struct {
	TxID      string `json:"txId"`
	BlockHash string `json:"blockHash"`
	Index     int    `json:"index"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDigester replaces the SHA-256 digester.
func WithDigester(d Digester) Option {
	return func(l *Ledger) { l.digest = d }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithGenesisMessage sets the message stored in a freshly created genesis
// block. It has no effect on a chain loaded from the store.
func WithGenesisMessage(msg string) Option {
	return func(l *Ledger) { l.genesisMessage = msg }
}

// Ledger is the single-writer, hash-linked vote ledger. All methods are safe
// for concurrent use; each runs to completion before the next starts.
type Ledger struct {
	mu    sync.Mutex
	chain []*Block
	ready bool

	store          Store
	key            string
	digest         Digester
	clock          Clock
	genesisMessage string
	logger         *zap.Logger
}

// New creates a Ledger persisted under key in store. The chain is not loaded
// until Initialize (or the first Append) runs.
func New(store Store, key string, opts ...Option) *Ledger {
	if key == "" {
		key = DefaultStorageKey
	}
	l := &Ledger{
		store:          store,
		key:            key,
		digest:         SHA256{},
		clock:          SystemClock{},
		genesisMessage: DefaultGenesisMessage,
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Open creates a Ledger and initializes it.
func Open(ctx context.Context, store Store, key string, opts ...Option) *Ledger {
	l := New(store, key, opts...)
	l.Initialize(ctx)
	return l
}

// Initialize loads the persisted chain. When the stored data is absent, empty
// or cannot be parsed, the ledger resets itself to a fresh genesis block and
// persists it. Initialize never fails; calling it again is a no-op.
func (l *Ledger) Initialize(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.initLocked(ctx)
}

func (l *Ledger) initLocked(ctx context.Context) {
	if l.ready {
		return
	}
	l.ready = true

	raw, found, err := l.store.Get(ctx, l.key)
	switch {
	case err != nil:
		l.logger.Warn("ledger load failed, starting from genesis",
			zap.String("key", l.key), zap.Error(err))
	case !found || strings.TrimSpace(raw) == "":
		l.logger.Info("no persisted chain, creating genesis", zap.String("key", l.key))
	default:
		chain, perr := decodeChain([]byte(raw))
		if perr == nil {
			l.chain = chain
			if res := verifyChain(chain, l.digest); !res.Valid {
				l.logger.Warn("persisted chain failed verification",
					zap.String("key", l.key),
					zap.Int("index", res.Index),
					zap.String("reason", string(res.Reason)),
				)
			} else {
				l.logger.Info("ledger loaded",
					zap.String("key", l.key),
					zap.Int("blocks", len(chain)),
					zap.String("head", res.HeadHash),
				)
			}
			return
		}
		l.logger.Warn("persisted chain is corrupt, resetting to genesis",
			zap.String("key", l.key), zap.Error(perr))
	}

	genesis := &Block{
		Index:        0,
		Timestamp:    l.now(),
		Data:         canonical.Map(map[string]canonical.Value{FieldMessage: canonical.String(l.genesisMessage)}),
		PreviousHash: GenesisPrevHash,
	}
	genesis.Hash = genesis.ComputeHash(l.digest)
	l.chain = []*Block{genesis}

	if err := l.persist(ctx, l.chain); err != nil {
		l.logger.Warn("persist genesis failed", zap.String("key", l.key), zap.Error(err))
	}
}

// Initialized reports whether the chain has been loaded.
func (l *Ledger) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// StorageKey returns the key the chain is persisted under.
func (l *Ledger) StorageKey() string { return l.key }

// HeadHash returns the hash of the last block. ok is false before the ledger
// has been initialized.
func (l *Ledger) HeadHash() (hash string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready || len(l.chain) == 0 {
		return "", false
	}
	return l.chain[len(l.chain)-1].Hash, true
}

// Len returns the number of blocks, genesis included.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chain)
}

// SnapshotChain returns a deep copy of the chain. Mutating the result does
// not affect the ledger.
func (l *Ledger) SnapshotChain() []*Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneChain(l.chain)
}

// Verify re-validates the whole chain from genesis to tail.
func (l *Ledger) Verify() VerifyResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return verifyChain(l.chain, l.digest)
}

// Append records a vote. It refuses to write onto a chain that fails
// verification and rejects a second vote from the same voter. Either the
// chain grows by exactly one persisted block or nothing changes.
//
// extra fields are merged into the payload; the voterHash, candidateId and
// txId keys always carry the values computed here.
func (l *Ledger) Append(ctx context.Context, voterID, candidateID string, extra map[string]canonical.Value) (*Receipt, error) {
	if strings.TrimSpace(voterID) == "" {
		return nil, fmt.Errorf("%w: voter id is required", ErrInvalidVote)
	}
	if strings.TrimSpace(candidateID) == "" {
		return nil, fmt.Errorf("%w: candidate id is required", ErrInvalidVote)
	}
	if !utf8.ValidString(voterID) || !utf8.ValidString(candidateID) {
		return nil, fmt.Errorf("%w: ids must be valid UTF-8", ErrInvalidVote)
	}
	for k, v := range extra {
		if !utf8.ValidString(k) || !v.ValidUTF8() {
			return nil, fmt.Errorf("%w: extra field %q is not valid UTF-8", ErrInvalidVote, k)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.initLocked(ctx)

	if res := verifyChain(l.chain, l.digest); !res.Valid {
		return nil, &IntegrityError{Result: res}
	}

	voterHash := l.digest.Digest(voterID)
	for _, b := range l.chain {
		if b.VoterHash() == voterHash {
			return nil, fmt.Errorf("%w (block %d)", ErrDuplicateSubmission, b.Index)
		}
	}

	prev := l.chain[len(l.chain)-1]
	ts := l.now()
	txID := l.digest.Digest("TX|" + ts + "|" + voterHash + "|" + candidateID + "|" + prev.Hash)

	fields := make(map[string]canonical.Value, len(extra)+3)
	for k, v := range extra {
		fields[k] = v
	}
	fields[FieldVoterHash] = canonical.String(voterHash)
	fields[FieldCandidateID] = canonical.String(candidateID)
	fields[FieldTxID] = canonical.String(txID)

	block := &Block{
		Index:        len(l.chain),
		Timestamp:    ts,
		Data:         canonical.Map(fields),
		PreviousHash: prev.Hash,
	}
	block.Hash = block.ComputeHash(l.digest)

	// Build the successor chain from copies so a failed write leaves the
	// current chain untouched.
	linked := prev.Clone()
	linked.NextHash = block.Hash
	next := make([]*Block, 0, len(l.chain)+1)
	next = append(next, l.chain[:len(l.chain)-1]...)
	next = append(next, linked, block)

	if err := l.persist(ctx, next); err != nil {
		return nil, err
	}
	l.chain = next

	l.logger.Debug("vote appended",
		zap.Int("index", block.Index),
		zap.String("hash", block.Hash),
		zap.String("tx_id", txID),
	)
	return &Receipt{TxID: txID, BlockHash: block.Hash, Index: block.Index}, nil
}

func (l *Ledger) now() string {
	return l.clock.Now().UTC().Format(TimestampLayout)
}

// persist writes chain to the store as a JSON array of block records.
func (l *Ledger) persist(ctx context.Context, chain []*Block) error {
	data, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	if err := l.store.Set(ctx, l.key, string(data)); err != nil {
		return fmt.Errorf("persist chain: %w", err)
	}
	return nil
}

// decodeChain parses a JSON array of block records. A non-array, an empty
// array or a null entry is a structural failure.
func decodeChain(data []byte) ([]*Block, error) {
	var chain []*Block
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("decode chain: no blocks")
	}
	for i, b := range chain {
		if b == nil {
			return nil, fmt.Errorf("decode chain: block %d is null", i)
		}
	}
	return chain, nil
}
