package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digester computes a one-way digest of a string, rendered as lowercase hex.
type Digester interface {
	Digest(s string) string
}

// SHA256 is the default Digester.
type SHA256 struct{}

// Digest implements Digester.
func (SHA256) Digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Blake2b256 digests with BLAKE2b-256. Chains hashed with it only verify
// on ledgers configured with the same digester.
type Blake2b256 struct{}

// Digest implements Digester.
func (Blake2b256) Digest(s string) string {
	h := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// DigesterByName maps a config value to a Digester. Empty selects SHA-256.
func DigesterByName(name string) (Digester, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256", "sha-256":
		return SHA256{}, nil
	case "blake2b", "blake2b-256":
		return Blake2b256{}, nil
	default:
		return nil, fmt.Errorf("unknown digest %q", name)
	}
}
