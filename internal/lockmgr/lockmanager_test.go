package lockmgr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/record"
)

func newHarness() (*TransactionManager, *LockManager) {
	tm := NewTransactionManager()
	return tm, NewLockManager(tm)
}

func TestLockManager_SharedLockIsIdempotent(t *testing.T) {
	tm, lm := newHarness()
	txn := tm.Begin(RepeatableRead)
	rid := record.RID{PageID: 1, Slot: 0}

	require.NoError(t, lm.LockShared(txn, rid))
	require.NoError(t, lm.LockShared(txn, rid))
	require.True(t, txn.IsShared(rid))
}

func TestLockManager_ReadUncommittedRejectsSharedLock(t *testing.T) {
	tm, lm := newHarness()
	txn := tm.Begin(ReadUncommitted)
	rid := record.RID{PageID: 1, Slot: 0}

	err := lm.LockShared(txn, rid)
	require.Error(t, err)
	var abortErr *TransactionAbortedError
	require.True(t, errors.As(err, &abortErr))
	require.Equal(t, AbortLockSharedOnReadUncommitted, abortErr.Reason)
	require.Equal(t, Aborted, txn.State())
}

func TestLockManager_UpgradeThenUnlockEntersShrinking(t *testing.T) {
	tm, lm := newHarness()
	txn := tm.Begin(RepeatableRead)
	rid := record.RID{PageID: 2, Slot: 0}

	require.NoError(t, lm.LockShared(txn, rid))
	require.NoError(t, lm.LockUpgrade(txn, rid))
	require.True(t, txn.IsExclusive(rid))
	require.False(t, txn.IsShared(rid))

	require.NoError(t, lm.Unlock(txn, rid))
	require.Equal(t, Shrinking, txn.State())

	err := lm.LockShared(txn, rid)
	require.Error(t, err)
	var abortErr *TransactionAbortedError
	require.True(t, errors.As(err, &abortErr))
	require.Equal(t, AbortLockOnShrinking, abortErr.Reason)
}

func TestLockManager_ConcurrentUpgradeConflict(t *testing.T) {
	tm, lm := newHarness()
	oldTxn := tm.Begin(RepeatableRead) // id 1
	newTxn := tm.Begin(RepeatableRead) // id 2
	rid := record.RID{PageID: 3, Slot: 0}

	require.NoError(t, lm.LockShared(oldTxn, rid))
	require.NoError(t, lm.LockShared(newTxn, rid))

	// newTxn (younger) tries to upgrade first: it blocks behind oldTxn's
	// older granted shared lock rather than being wounded (a younger
	// upgrader never wounds an older co-holder).
	done := make(chan error, 1)
	go func() { done <- lm.LockUpgrade(newTxn, rid) }()
	time.Sleep(20 * time.Millisecond)

	// oldTxn's own concurrent upgrade attempt hits the one-upgrader-per-
	// queue rule and aborts immediately.
	err := lm.LockUpgrade(oldTxn, rid)
	require.Error(t, err)
	var abortErr *TransactionAbortedError
	require.True(t, errors.As(err, &abortErr))
	require.Equal(t, AbortUpgradeConflict, abortErr.Reason)

	require.NoError(t, lm.Unlock(oldTxn, rid))
	select {
	case err := <-done:
		require.NoError(t, err, "newTxn's upgrade completes once oldTxn releases")
	case <-time.After(time.Second):
		t.Fatal("newTxn's upgrade never completed after oldTxn released")
	}
}

// Wound-wait: an older waiter wounds a younger later arrival that
// conflicts with it, even though the younger arrival initially just
// queues behind everyone (grounded on original_source's
// lock_manager.cpp id-priority comparison, generalized to resolve once
// the queue is re-evaluated rather than only at arrival).
func TestLockManager_WoundWaitAbortsYoungerConflictingWaiter(t *testing.T) {
	tm, lm := newHarness()
	t1 := tm.Begin(RepeatableRead) // id 1, oldest
	t2 := tm.Begin(RepeatableRead) // id 2
	t3 := tm.Begin(RepeatableRead) // id 3, youngest
	rid := record.RID{PageID: 4, Slot: 0}

	require.NoError(t, lm.LockExclusive(t1, rid))

	// t2 requests S on R (held exclusively by t1): must wait.
	t2wait := make(chan error, 1)
	go func() { t2wait <- lm.LockShared(t2, rid) }()
	time.Sleep(20 * time.Millisecond)

	// t3 requests X on R: conflicts with both t1 (older, granted) and t2
	// (older, waiting) - t3 itself cannot wound either, so it queues too.
	t3wait := make(chan error, 1)
	go func() { t3wait <- lm.LockExclusive(t3, rid) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, lm.Unlock(t1, rid))

	select {
	case err := <-t2wait:
		require.NoError(t, err, "t2 (older) should acquire S once t1 releases")
	case <-time.After(time.Second):
		t.Fatal("t2 never acquired its shared lock")
	}

	select {
	case err := <-t3wait:
		require.Error(t, err, "t3 (younger) must be wounded by t2 once t2 re-evaluates the queue")
		var abortErr *TransactionAbortedError
		require.True(t, errors.As(err, &abortErr))
		require.Equal(t, AbortDeadlock, abortErr.Reason)
	case <-time.After(time.Second):
		t.Fatal("t3 never observed its wound")
	}
}
