package ledger

import (
	"fmt"

	"github.com/semre57/sengchain/internal/canonical"
)

// GenesisPrevHash is the sentinel previous hash of the genesis block.
const GenesisPrevHash = "0"

// Payload keys written by Append.
const (
	FieldVoterHash   = "voterHash"
	FieldCandidateID = "candidateId"
	FieldTxID        = "txId"
	FieldMessage     = "message"
)

// Block is a single ledger entry.
type Block struct {
	Index        int             `json:"index"`
	Timestamp    string          `json:"timestamp"`
	Data         canonical.Value `json:"data"`
	PreviousHash string          `json:"previousHash"`
	Hash         string          `json:"hash"`
	NextHash     string          `json:"nextHash,omitempty"` // advisory, not hashed
}

// ComputeHash returns the digest of index|timestamp|canonical(data)|previousHash.
// NextHash is deliberately excluded.
func (b *Block) ComputeHash(d Digester) string {
	return d.Digest(fmt.Sprintf("%d|%s|%s|%s",
		b.Index, b.Timestamp, canonical.Encode(b.Data), b.PreviousHash,
	))
}

// Clone returns an independent copy of b. Payload values are immutable, so
// copying the struct is enough.
func (b *Block) Clone() *Block {
	cp := *b
	return &cp
}

// VoterHash returns the voter commitment carried by the block, if any.
func (b *Block) VoterHash() string { return b.Data.StringField(FieldVoterHash) }

// CandidateID returns the candidate the block votes for, if any.
func (b *Block) CandidateID() string { return b.Data.StringField(FieldCandidateID) }

// TxID returns the transaction identifier of the block, if any.
func (b *Block) TxID() string { return b.Data.StringField(FieldTxID) }

func cloneChain(chain []*Block) []*Block {
	out := make([]*Block, len(chain))
	for i, b := range chain {
		out[i] = b.Clone()
	}
	return out
}
