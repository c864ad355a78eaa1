package lockmgr

import (
	"fmt"

	"github.com/coredb/coredb/internal/record"
)

// AbortReason names why the lock manager aborted a transaction,
// mirroring spec.md §7's error-kind taxonomy.
type AbortReason uint8

const (
	AbortLockOnShrinking AbortReason = iota
	AbortUnlockOnShrinking
	AbortLockSharedOnReadUncommitted
	AbortUpgradeConflict
	AbortDeadlock
)

func (r AbortReason) String() string {
	switch r {
	case AbortLockOnShrinking:
		return "LOCK_ON_SHRINKING"
	case AbortUnlockOnShrinking:
		return "UNLOCK_ON_SHRINKING"
	case AbortLockSharedOnReadUncommitted:
		return "LOCK_SHARED_ON_READ_UNCOMMITTED"
	case AbortUpgradeConflict:
		return "UPGRADE_CONFLICT"
	case AbortDeadlock:
		return "DEADLOCK"
	default:
		return "UNKNOWN_ABORT_REASON"
	}
}

// TransactionAbortedError is raised (never silently returned) whenever
// the lock manager aborts a transaction, carrying the txn id and the
// reason (spec.md §7).
type TransactionAbortedError struct {
	TxnID  record.TxnID
	Reason AbortReason
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("lockmgr: txn %d aborted: %s", e.TxnID, e.Reason)
}

func newAbort(txn *Transaction, reason AbortReason) *TransactionAbortedError {
	return &TransactionAbortedError{TxnID: txn.ID, Reason: reason}
}
