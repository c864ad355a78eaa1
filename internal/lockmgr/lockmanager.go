package lockmgr

import (
	"sync"

	"github.com/coredb/coredb/internal/record"
)

type lockRequest struct {
	txnID   record.TxnID
	mode    LockMode
	granted bool
}

type requestQueue struct {
	cond      *sync.Cond
	requests  []*lockRequest
	upgrading record.TxnID // record.InvalidTxnID if nobody is upgrading
}

func newRequestQueue(mu *sync.Mutex) *requestQueue {
	return &requestQueue{cond: sync.NewCond(mu), upgrading: record.InvalidTxnID}
}

// LockManager is the wound-wait two-phase lock manager: one FIFO
// request queue per RID, guarded by a single global mutex, with a
// condition variable per queue (spec.md §4.5).
type LockManager struct {
	mu     sync.Mutex
	queues map[record.RID]*requestQueue
	txnMgr *TransactionManager
}

func NewLockManager(txnMgr *TransactionManager) *LockManager {
	return &LockManager{queues: make(map[record.RID]*requestQueue), txnMgr: txnMgr}
}

func (lm *LockManager) queueFor(rid record.RID) *requestQueue {
	q, ok := lm.queues[rid]
	if !ok {
		q = newRequestQueue(&lm.mu)
		lm.queues[rid] = q
	}
	return q
}

// LockShared acquires a SHARED lock on rid for txn.
func (lm *LockManager) LockShared(txn *Transaction, rid record.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.State() == Aborted {
		return newAbort(txn, txn.AbortReason())
	}
	if txn.Isolation == ReadUncommitted {
		txn.abort(AbortLockSharedOnReadUncommitted)
		return newAbort(txn, AbortLockSharedOnReadUncommitted)
	}
	if txn.State() == Shrinking {
		txn.abort(AbortLockOnShrinking)
		return newAbort(txn, AbortLockOnShrinking)
	}
	if txn.IsShared(rid) || txn.IsExclusive(rid) {
		return nil
	}

	txn.setState(Growing)
	q := lm.queueFor(rid)
	req := &lockRequest{txnID: txn.ID, mode: Shared}
	q.requests = append(q.requests, req)

	for {
		if txn.State() == Aborted {
			lm.removeRequestLocked(q, req)
			return newAbort(txn, AbortDeadlock)
		}

		if !lm.woundLocked(q, req, Shared) {
			req.granted = true
			txn.addShared(rid)
			return nil
		}
		q.cond.Wait()
	}
}

// LockExclusive acquires an EXCLUSIVE lock on rid for txn.
func (lm *LockManager) LockExclusive(txn *Transaction, rid record.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.State() == Aborted {
		return newAbort(txn, txn.AbortReason())
	}
	if txn.State() == Shrinking {
		txn.abort(AbortLockOnShrinking)
		return newAbort(txn, AbortLockOnShrinking)
	}
	if txn.IsExclusive(rid) {
		return nil
	}

	txn.setState(Growing)
	q := lm.queueFor(rid)
	req := &lockRequest{txnID: txn.ID, mode: Exclusive}
	q.requests = append(q.requests, req)

	for {
		if txn.State() == Aborted {
			lm.removeRequestLocked(q, req)
			return newAbort(txn, AbortDeadlock)
		}

		if !lm.woundLocked(q, req, Exclusive) {
			req.granted = true
			txn.addExclusive(rid)
			return nil
		}
		q.cond.Wait()
	}
}

// woundLocked scans every other request against req: a conflicting
// younger request is wounded (aborted) and dropped from the queue; a
// conflicting older request blocks req, which must wait. Returns true
// iff req must wait.
func (lm *LockManager) woundLocked(q *requestQueue, req *lockRequest, mode LockMode) bool {
	blocked := false
	kept := q.requests[:0]
	for _, other := range q.requests {
		if other == req || !modeConflicts(other.mode, mode) {
			kept = append(kept, other)
			continue
		}
		if other.txnID > req.txnID {
			if victim, ok := lm.txnMgr.GetTransaction(other.txnID); ok {
				lm.txnMgr.Abort(victim, AbortDeadlock)
			}
			q.cond.Broadcast()
			continue // wounded: drop from queue
		}
		kept = append(kept, other)
		blocked = true
	}
	q.requests = kept
	return blocked
}

func modeConflicts(a, b LockMode) bool {
	return a == Exclusive || b == Exclusive
}

func (lm *LockManager) removeRequestLocked(q *requestQueue, req *lockRequest) {
	for i, r := range q.requests {
		if r == req {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			break
		}
	}
	q.cond.Broadcast()
}

// LockUpgrade promotes txn's SHARED lock on rid to EXCLUSIVE.
func (lm *LockManager) LockUpgrade(txn *Transaction, rid record.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.State() == Aborted {
		return newAbort(txn, txn.AbortReason())
	}
	if txn.State() == Shrinking {
		txn.abort(AbortLockOnShrinking)
		return newAbort(txn, AbortLockOnShrinking)
	}
	if txn.IsExclusive(rid) {
		return nil
	}

	q := lm.queueFor(rid)
	if q.upgrading != record.InvalidTxnID && q.upgrading != txn.ID {
		txn.abort(AbortUpgradeConflict)
		return newAbort(txn, AbortUpgradeConflict)
	}
	q.upgrading = txn.ID

	var own *lockRequest
	for _, r := range q.requests {
		if r.txnID == txn.ID {
			own = r
			break
		}
	}
	if own == nil {
		// Not already holding a shared lock: treat as a fresh exclusive request.
		q.upgrading = record.InvalidTxnID
		lm.mu.Unlock()
		err := lm.LockExclusive(txn, rid)
		lm.mu.Lock()
		return err
	}

	for {
		if txn.State() == Aborted {
			q.upgrading = record.InvalidTxnID
			lm.removeRequestLocked(q, own)
			return newAbort(txn, AbortDeadlock)
		}

		blockedByOlder := false
		for _, other := range q.requests {
			if other == own {
				continue
			}
			if !other.granted {
				continue
			}
			if other.txnID > txn.ID {
				if victim, ok := lm.txnMgr.GetTransaction(other.txnID); ok {
					lm.txnMgr.Abort(victim, AbortDeadlock)
				}
				q.cond.Broadcast()
				continue
			}
			blockedByOlder = true
		}
		if !blockedByOlder {
			own.mode = Exclusive
			q.upgrading = record.InvalidTxnID
			txn.removeShared(rid)
			txn.addExclusive(rid)
			return nil
		}
		q.cond.Wait()
	}
}

// Unlock releases txn's lock on rid. Under REPEATABLE_READ, the first
// Unlock call transitions GROWING to SHRINKING (strict 2PL).
func (lm *LockManager) Unlock(txn *Transaction, rid record.RID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.Isolation == RepeatableRead && txn.State() == Growing {
		txn.setState(Shrinking)
	}

	q := lm.queueFor(rid)
	for i, r := range q.requests {
		if r.txnID == txn.ID {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			break
		}
	}
	q.cond.Broadcast()

	txn.removeShared(rid)
	txn.removeExclusive(rid)
	return nil
}
