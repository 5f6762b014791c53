package ledger

import "strings"

// InspectChecks reports the self-consistency of one block. PrevOK is nil for
// the genesis block and NextOK is nil for the tail, since there is nothing
// to compare against.
type InspectChecks struct {
	HashOK bool  `json:"hashOk"`
	PrevOK *bool `json:"prevOk"`
	NextOK *bool `json:"nextOk"`
}

// InspectResult describes a block located by hash.
type InspectResult struct {
	Found       bool          `json:"found"`
	Block       *Block        `json:"block,omitempty"`
	Checks      InspectChecks `json:"checks"`
	Length      int           `json:"length"`
	Height      int           `json:"height"`
	BlockHeight int           `json:"blockHeight"`
	HeadHash    string        `json:"headHash"`
}

// Inspect locates the block whose hash equals the trimmed input and reports
// whether its stored hash, backward link and forward pointer are consistent.
// It never mutates the ledger.
func (l *Ledger) Inspect(hash string) InspectResult {
	hash = strings.TrimSpace(hash)

	l.mu.Lock()
	defer l.mu.Unlock()

	res := InspectResult{Length: len(l.chain), Height: len(l.chain) - 1}
	if len(l.chain) > 0 {
		res.HeadHash = l.chain[len(l.chain)-1].Hash
	}
	if hash == "" {
		return res
	}

	idx := -1
	for i, b := range l.chain {
		if b.Hash == hash {
			idx = i
			break
		}
	}
	if idx < 0 {
		return res
	}

	b := l.chain[idx]
	res.Found = true
	res.Block = b.Clone()
	res.BlockHeight = b.Index
	res.Checks.HashOK = b.ComputeHash(l.digest) == b.Hash

	if idx > 0 {
		ok := b.PreviousHash == l.chain[idx-1].Hash
		res.Checks.PrevOK = &ok
	}
	if idx < len(l.chain)-1 {
		next := l.chain[idx+1]
		ok := next.PreviousHash == b.Hash && b.NextHash == next.Hash
		res.Checks.NextOK = &ok
	}
	return res
}

// FindByTx returns a copy of the block carrying txID.
func (l *Ledger) FindByTx(txID string) (*Block, bool) {
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.chain {
		if b.TxID() == txID {
			return b.Clone(), true
		}
	}
	return nil, false
}

// FindByVoter returns a copy of the block holding the commitment of voterID.
func (l *Ledger) FindByVoter(voterID string) (*Block, bool) {
	if voterID == "" {
		return nil, false
	}
	voterHash := l.digest.Digest(voterID)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.chain {
		if b.VoterHash() == voterHash {
			return b.Clone(), true
		}
	}
	return nil, false
}

// Tally counts votes per candidate. The genesis block and blocks without a
// candidate are skipped.
func (l *Ledger) Tally() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int)
	for _, b := range l.chain {
		if b.Index == 0 {
			continue
		}
		if c := b.CandidateID(); c != "" {
			out[c]++
		}
	}
	return out
}
