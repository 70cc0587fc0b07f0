// Package errors provides error classification for the prime generator.
//
// The package distinguishes the error kinds the generation engine reacts to:
//   - InvalidInput: caller broke a local contract, not retried
//   - Corruption: an on-disk checkpoint is structurally inconsistent
//   - Conflict: a storage write would clobber or overfill existing data
//   - ResourceExhaustion: the prime cache budget is spent (the only handled
//     condition, converted into a state transition by the engine)
//   - Unsupported: the disk-backed generation path was reached
package errors

import (
	"errors"
	"fmt"
	"math/big"
)

// Kind classifies how an error should be handled.
type Kind int

const (
	// KindUnknown is any error the generator does not classify.
	KindUnknown Kind = iota

	// KindInvalidInput indicates a broken caller contract.
	// Example: an empty known-primes basis where factors are needed.
	KindInvalidInput

	// KindCorruption indicates a structurally inconsistent checkpoint.
	// Examples: too many lines in a file, out-of-order primes.
	KindCorruption

	// KindConflict indicates a storage write refused to proceed.
	// Examples: a new file that already has content, an overfilled file.
	KindConflict

	// KindResourceExhaustion indicates the cache budget is spent.
	// This is the only expected, handled condition.
	KindResourceExhaustion

	// KindUnsupported indicates the disk-backed generation path.
	KindUnsupported
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindCorruption:
		return "corruption"
	case KindConflict:
		return "conflict"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ErrBudgetExhausted is the sentinel for prime-cache budget exhaustion.
// It replaces allocation-failure detection with a deterministic check:
// the cache refuses growth past its configured element budget.
var ErrBudgetExhausted = errors.New("prime cache budget exhausted")

// CorruptionError indicates a checkpoint file that cannot be trusted.
type CorruptionError struct {
	FileIndex int
	Path      string
	Reason    string
}

// Error implements the error interface.
func (e *CorruptionError) Error() string {
	return fmt.Sprintf("checkpoint file %d (%s) is corrupt: %s", e.FileIndex, e.Path, e.Reason)
}

// ConflictError indicates a storage write that refused to proceed.
type ConflictError struct {
	FileIndex int
	Path      string
	Reason    string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("checkpoint file %d (%s): %s", e.FileIndex, e.Path, e.Reason)
}

// UnsupportedError indicates an unimplemented generation path.
type UnsupportedError struct {
	Op     string
	Detail string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s is not supported: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s is not supported", e.Op)
}

// InvalidInputError indicates a broken caller contract.
type InvalidInputError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// CandidateError attaches the in-flight candidate to a fatal error so the
// caller can log which value the run died on.
type CandidateError struct {
	Candidate *big.Int
	Err       error
}

// Error implements the error interface.
func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %s: %s", e.Candidate, e.Err)
}

// Unwrap returns the underlying error.
func (e *CandidateError) Unwrap() error {
	return e.Err
}

// WithCandidate wraps err with the in-flight candidate value.
// The candidate is copied so later mutation by the caller is safe.
func WithCandidate(candidate *big.Int, err error) error {
	if err == nil {
		return nil
	}
	return &CandidateError{Candidate: new(big.Int).Set(candidate), Err: err}
}

// CandidateOf extracts the candidate attached to err, if any.
func CandidateOf(err error) (*big.Int, bool) {
	var ce *CandidateError
	if errors.As(err, &ce) {
		return ce.Candidate, true
	}
	return nil, false
}

// KindOf classifies an error.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrBudgetExhausted) {
		return KindResourceExhaustion
	}

	var corrupt *CorruptionError
	if errors.As(err, &corrupt) {
		return KindCorruption
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return KindConflict
	}

	var unsupported *UnsupportedError
	if errors.As(err, &unsupported) {
		return KindUnsupported
	}

	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return KindInvalidInput
	}

	return KindUnknown
}
