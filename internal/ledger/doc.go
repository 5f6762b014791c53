// Package ledger implements the hash-linked vote ledger.
//
// The chain begins with a genesis block whose previous hash is the sentinel
// "0". Every later block records the hash of its predecessor, and every hash
// is computed over the block's index, timestamp, canonical payload and
// previous hash, so any tampering is detectable via Verify.
//
// The serialized chain lives in a single key of an injected Store and is
// rewritten wholesale after each append or import. The forward pointer
// NextHash is a convenience field: it is checked for consistency but never
// covered by a hash.
package ledger
