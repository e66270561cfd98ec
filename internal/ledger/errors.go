package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrCorrupt indicates the ledger file exists but cannot be
	// decoded. The process must not silently start from empty state.
	ErrCorrupt = errors.New("ledger file corrupt")
	// ErrLockTimeout indicates another process holds the ledger lock.
	ErrLockTimeout = errors.New("timeout acquiring ledger lock")
)

// PersistError indicates the ledger could not be durably saved. It is
// fatal: the process must abort rather than continue believing state
// was recorded.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("ledger: persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
