package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrChainIntegrity is returned by Append when the current chain fails
	// verification. Appends onto a broken chain are refused.
	ErrChainIntegrity = errors.New("chain integrity check failed")

	// ErrDuplicateSubmission is returned by Append when a block already
	// carries the voter's commitment.
	ErrDuplicateSubmission = errors.New("voter has already submitted a vote")

	// ErrMalformedInput is returned by Import when the data is neither a
	// chain nor a snapshot document.
	ErrMalformedInput = errors.New("malformed chain data")

	// ErrInvalidVote is returned by Append when the voter or candidate id
	// is empty or any id or extra field is not valid UTF-8.
	ErrInvalidVote = errors.New("invalid vote")
)

// IntegrityError carries the verifier's failure result. It matches
// ErrChainIntegrity with errors.Is.
type IntegrityError struct {
	Result VerifyResult
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", ErrChainIntegrity, e.Result.Message)
}

// Is reports whether target is ErrChainIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrChainIntegrity }
