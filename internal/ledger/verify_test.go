package ledger_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/semre57/sengchain/internal/canonical"
	"github.com/semre57/sengchain/internal/ledger"
	"github.com/semre57/sengchain/internal/storage"
)

// tamperedLedger builds genesis + 3 votes, applies mutate to a copy of the
// chain, writes the result straight into a fresh store and reopens a ledger
// from it. Loading never re-verifies, so the ledger holds the tampered chain.
func tamperedLedger(t *testing.T, mutate func(chain []*ledger.Block)) *ledger.Ledger {
	t.Helper()
	src, _ := newLedger(t)
	mustAppend(t, src, "v1", "c1")
	mustAppend(t, src, "v2", "c2")
	mustAppend(t, src, "v3", "c1")

	chain := src.SnapshotChain()
	mutate(chain)

	raw, err := json.Marshal(chain)
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewMemoryStore()
	if err := store.Set(ctx, testKey, string(raw)); err != nil {
		t.Fatal(err)
	}
	return ledger.Open(ctx, store, testKey)
}

func TestVerify_genesisOnly(t *testing.T) {
	l, _ := newLedger(t)
	res := l.Verify()
	if !res.Valid {
		t.Fatalf("genesis-only chain should verify: %s", res.Message)
	}
	if res.Height != 1 {
		t.Errorf("height: got %d, want 1", res.Height)
	}
}

func TestVerify_detectsTampering(t *testing.T) {
	otherPayload := canonical.MustFromAny(map[string]any{"voterHash": "x", "candidateId": "evil"})

	tests := []struct {
		name       string
		mutate     func(chain []*ledger.Block)
		wantIndex  int
		wantReason ledger.Reason
	}{
		{
			name:       "genesis payload",
			mutate:     func(c []*ledger.Block) { c[0].Data = canonical.MustFromAny(map[string]any{"message": "forged"}) },
			wantIndex:  0,
			wantReason: ledger.ReasonGenesisHashMismatch,
		},
		{
			name:       "genesis timestamp",
			mutate:     func(c []*ledger.Block) { c[0].Timestamp = "1999-01-01T00:00:00.000Z" },
			wantIndex:  0,
			wantReason: ledger.ReasonGenesisHashMismatch,
		},
		{
			name:       "genesis previous hash",
			mutate:     func(c []*ledger.Block) { c[0].PreviousHash = "1" },
			wantIndex:  0,
			wantReason: ledger.ReasonGenesisInvalid,
		},
		{
			name:       "genesis index",
			mutate:     func(c []*ledger.Block) { c[0].Index = 7 },
			wantIndex:  0,
			wantReason: ledger.ReasonGenesisInvalid,
		},
		{
			name:       "genesis hash",
			mutate:     func(c []*ledger.Block) { c[0].Hash = "deadbeef" },
			wantIndex:  0,
			wantReason: ledger.ReasonGenesisHashMismatch,
		},
		{
			name:       "middle payload",
			mutate:     func(c []*ledger.Block) { c[2].Data = otherPayload },
			wantIndex:  2,
			wantReason: ledger.ReasonHashMismatch,
		},
		{
			name:       "middle timestamp",
			mutate:     func(c []*ledger.Block) { c[1].Timestamp = "2030-01-01T00:00:00.000Z" },
			wantIndex:  1,
			wantReason: ledger.ReasonHashMismatch,
		},
		{
			name:       "middle previous hash",
			mutate:     func(c []*ledger.Block) { c[2].PreviousHash = c[0].Hash },
			wantIndex:  2,
			wantReason: ledger.ReasonPrevHashMismatch,
		},
		{
			name:       "middle hash",
			mutate:     func(c []*ledger.Block) { c[1].Hash = "deadbeef" },
			wantIndex:  1,
			wantReason: ledger.ReasonHashMismatch,
		},
		{
			name:       "middle index",
			mutate:     func(c []*ledger.Block) { c[2].Index = 5 },
			wantIndex:  2,
			wantReason: ledger.ReasonIndexMismatch,
		},
		{
			name:       "forward pointer",
			mutate:     func(c []*ledger.Block) { c[1].NextHash = c[3].Hash },
			wantIndex:  1,
			wantReason: ledger.ReasonPointerMismatch,
		},
		{
			name:       "tail payload",
			mutate:     func(c []*ledger.Block) { c[3].Data = otherPayload },
			wantIndex:  3,
			wantReason: ledger.ReasonHashMismatch,
		},
		{
			name:       "tail hash",
			mutate:     func(c []*ledger.Block) { c[3].Hash = "deadbeef" },
			wantIndex:  3,
			wantReason: ledger.ReasonHashMismatch,
		},
		{
			name: "rehashed block without relinking successor",
			mutate: func(c []*ledger.Block) {
				c[1].Data = otherPayload
				c[1].Hash = c[1].ComputeHash(ledger.SHA256{})
				c[0].NextHash = c[1].Hash
			},
			wantIndex:  2,
			wantReason: ledger.ReasonPrevHashMismatch,
		},
		{
			name:       "reordered blocks",
			mutate:     func(c []*ledger.Block) { c[1], c[2] = c[2], c[1] },
			wantIndex:  1,
			wantReason: ledger.ReasonIndexMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := tamperedLedger(t, tc.mutate)
			res := l.Verify()
			if res.Valid {
				t.Fatal("Verify() should fail on a tampered chain")
			}
			if res.Index != tc.wantIndex || res.Reason != tc.wantReason {
				t.Errorf("Verify() = index %d reason %q, want index %d reason %q (%s)",
					res.Index, res.Reason, tc.wantIndex, tc.wantReason, res.Message)
			}
			if res.Message == "" {
				t.Error("failure should carry a human-readable message")
			}
		})
	}
}

func TestAppend_refusedOnBrokenChain(t *testing.T) {
	l := tamperedLedger(t, func(c []*ledger.Block) { c[2].Timestamp = "forged" })
	head, _ := l.HeadHash()
	n := l.Len()

	_, err := l.Append(ctx, "v9", "c9", nil)
	if !errors.Is(err, ledger.ErrChainIntegrity) {
		t.Fatalf("expected ErrChainIntegrity, got %v", err)
	}
	var ie *ledger.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *IntegrityError, got %T", err)
	}
	if ie.Result.Index != 2 || ie.Result.Reason != ledger.ReasonHashMismatch {
		t.Errorf("integrity error carries %d/%q", ie.Result.Index, ie.Result.Reason)
	}
	if l.Len() != n {
		t.Errorf("length changed: got %d, want %d", l.Len(), n)
	}
	if h, _ := l.HeadHash(); h != head {
		t.Errorf("head changed")
	}
}

func TestBlock_computeHashIgnoresNextHash(t *testing.T) {
	b := &ledger.Block{
		Index:        3,
		Timestamp:    "2024-05-01T12:00:00.000Z",
		Data:         canonical.MustFromAny(map[string]any{"b": 2, "a": 1}),
		PreviousHash: "abc",
	}
	d := ledger.SHA256{}
	h1 := b.ComputeHash(d)
	b.NextHash = "something"
	if h2 := b.ComputeHash(d); h1 != h2 {
		t.Error("NextHash must not affect the block hash")
	}

	want := d.Digest(`3|2024-05-01T12:00:00.000Z|{"a":1,"b":2}|abc`)
	if h1 != want {
		t.Errorf("ComputeHash() = %q, want %q", h1, want)
	}
}

func TestSHA256_knownVector(t *testing.T) {
	got := ledger.SHA256{}.Digest("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Digest(abc) = %q, want %q", got, want)
	}
}

func TestBlake2b256_knownVector(t *testing.T) {
	got := ledger.Blake2b256{}.Digest("")
	want := "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	if got != want {
		t.Errorf("Digest(\"\") = %q, want %q", got, want)
	}
}

func TestDigesterByName(t *testing.T) {
	for name, want := range map[string]ledger.Digester{
		"":        ledger.SHA256{},
		"SHA256":  ledger.SHA256{},
		"blake2b": ledger.Blake2b256{},
	} {
		got, err := ledger.DigesterByName(name)
		if err != nil || got != want {
			t.Errorf("DigesterByName(%q) = %T, %v", name, got, err)
		}
	}
	if _, err := ledger.DigesterByName("md5"); err == nil {
		t.Error("unknown digest should fail")
	}
}

func TestAlternateDigester_chainVerifiesOnlyWithSameDigest(t *testing.T) {
	store := storage.NewMemoryStore()
	l := ledger.Open(ctx, store, testKey, ledger.WithDigester(ledger.Blake2b256{}))
	mustAppend(t, l, "v1", "c1")
	if res := l.Verify(); !res.Valid {
		t.Fatalf("blake2b chain should verify: %s", res.Message)
	}

	other := ledger.Open(ctx, store, testKey)
	if res := other.Verify(); res.Valid || res.Reason != ledger.ReasonGenesisHashMismatch {
		t.Errorf("sha256 ledger over a blake2b chain: %+v", res)
	}
}
