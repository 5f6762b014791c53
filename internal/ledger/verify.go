package ledger

import "fmt"

// Reason tags a verification failure.
type Reason string

const (
	ReasonEmptyChain          Reason = "empty_chain"
	ReasonGenesisInvalid      Reason = "genesis_invalid"
	ReasonGenesisHashMismatch Reason = "genesis_hash_mismatch"
	ReasonIndexMismatch       Reason = "index_mismatch"
	ReasonPrevHashMismatch    Reason = "prev_hash_mismatch"
	ReasonPointerMismatch     Reason = "pointer_mismatch"
	ReasonHashMismatch        Reason = "hash_mismatch"
)

// VerifyResult is the outcome of a full-chain verification.
// On success Height is the chain length and HeadHash the last block's hash.
// On failure Index names the offending block and Reason the failed check.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Height   int    `json:"height,omitempty"`
	HeadHash string `json:"headHash,omitempty"`
	Index    int    `json:"index"`
	Reason   Reason `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

func failure(index int, reason Reason, format string, args ...any) VerifyResult {
	return VerifyResult{
		Index:   index,
		Reason:  reason,
		Message: fmt.Sprintf("block %d: ", index) + fmt.Sprintf(format, args...),
	}
}

// verifyChain checks genesis, indices and both hash links and stops at the first
// failure. Hashes are always recomputed; stored hash and pointer fields are
// only compared, never trusted.
func verifyChain(chain []*Block, d Digester) VerifyResult {
	if len(chain) == 0 {
		return VerifyResult{Index: -1, Reason: ReasonEmptyChain, Message: "chain is empty"}
	}

	for i, curr := range chain {
		if curr == nil {
			return failure(i, ReasonIndexMismatch, "missing block")
		}

		if i == 0 {
			if curr.Index != 0 || curr.PreviousHash != GenesisPrevHash {
				return failure(0, ReasonGenesisInvalid,
					"genesis must have index 0 and previous hash %q, got index %d and %q",
					GenesisPrevHash, curr.Index, curr.PreviousHash)
			}
			if want := curr.ComputeHash(d); curr.Hash != want {
				return failure(0, ReasonGenesisHashMismatch, "genesis hash mismatch: stored %q, computed %q", curr.Hash, want)
			}
			continue
		}

		prev := chain[i-1]
		if curr.Index != i {
			return failure(i, ReasonIndexMismatch, "index mismatch: stored %d", curr.Index)
		}
		if curr.PreviousHash != prev.Hash {
			return failure(i, ReasonPrevHashMismatch, "previous hash %q does not match block %d hash %q", curr.PreviousHash, i-1, prev.Hash)
		}
		if want := curr.ComputeHash(d); curr.Hash != want {
			return failure(i, ReasonHashMismatch, "hash mismatch: stored %q, computed %q", curr.Hash, want)
		}
		if prev.NextHash != curr.Hash {
			return failure(i-1, ReasonPointerMismatch, "next hash %q does not match block %d hash %q", prev.NextHash, i, curr.Hash)
		}
	}

	return VerifyResult{
		Valid:    true,
		Height:   len(chain),
		HeadHash: chain[len(chain)-1].Hash,
	}
}
