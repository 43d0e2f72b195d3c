package escrow

import "errors"

// Every failure of the state machine is scoped to a single operation and
// leaves ledger and custody balances consistent. Callers match with errors.Is.
var (
	ErrNotFound        = errors.New("escrow not found")
	ErrAlreadyResolved = errors.New("escrow already resolved")
	ErrExpired         = errors.New("escrow expired")
	ErrStillActive     = errors.New("escrow not yet expired")
	ErrProofMismatch   = errors.New("claim proof mismatch")
)
