// Package lockmgr implements the wound-wait two-phase lock manager:
// per-RID request queues, a global mutex and per-queue condition
// variable, transitioning transactions through GROWING/SHRINKING and
// aborting the loser of a wound (spec.md §4.5).
package lockmgr

import (
	"sync"

	"github.com/coredb/coredb/internal/record"
)

// IsolationLevel controls which locks SeqScan acquires and when it
// releases them (spec.md §4.6).
type IsolationLevel uint8

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// TxnState is a transaction's two-phase-locking phase.
type TxnState uint8

const (
	Growing TxnState = iota
	Shrinking
	Committed
	Aborted
)

// LockMode distinguishes shared from exclusive row locks.
type LockMode uint8

const (
	Shared LockMode = iota
	Exclusive
)

// Transaction tracks one transaction's isolation level, phase, and the
// row locks and write sets it has accumulated.
type Transaction struct {
	ID        record.TxnID
	Isolation IsolationLevel

	mu           sync.Mutex
	state        TxnState
	abortReason  AbortReason
	sharedSet    map[record.RID]struct{}
	exclSet      map[record.RID]struct{}
	writeSet     []WriteRecord
	indexWrite   []IndexWriteRecord
}

// WriteRecord captures a table mutation for the transaction's write set
// (spec.md §4.6 mentions append-only write-set registration; undo is out
// of scope, so this is bookkeeping only).
type WriteRecord struct {
	Table string
	RID   record.RID
	Kind  WriteKind
}

type WriteKind uint8

const (
	WriteInsert WriteKind = iota
	WriteDelete
	WriteUpdate
)

// IndexWriteRecord captures an index mutation for the transaction's
// index write set.
type IndexWriteRecord struct {
	Index string
	RID   record.RID
	Kind  WriteKind
}

func NewTransaction(id record.TxnID, isolation IsolationLevel) *Transaction {
	return &Transaction{
		ID:        id,
		Isolation: isolation,
		state:     Growing,
		sharedSet: make(map[record.RID]struct{}),
		exclSet:   make(map[record.RID]struct{}),
	}
}

func (t *Transaction) State() TxnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s TxnState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// abort transitions to ABORTED and records why, if not already aborted.
func (t *Transaction) abort(reason AbortReason) {
	t.mu.Lock()
	if t.state != Aborted {
		t.state = Aborted
		t.abortReason = reason
	}
	t.mu.Unlock()
}

func (t *Transaction) AbortReason() AbortReason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.abortReason
}

func (t *Transaction) IsShared(rid record.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sharedSet[rid]
	return ok
}

func (t *Transaction) IsExclusive(rid record.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.exclSet[rid]
	return ok
}

func (t *Transaction) addShared(rid record.RID) {
	t.mu.Lock()
	t.sharedSet[rid] = struct{}{}
	t.mu.Unlock()
}

func (t *Transaction) addExclusive(rid record.RID) {
	t.mu.Lock()
	t.exclSet[rid] = struct{}{}
	t.mu.Unlock()
}

func (t *Transaction) removeShared(rid record.RID) {
	t.mu.Lock()
	delete(t.sharedSet, rid)
	t.mu.Unlock()
}

func (t *Transaction) removeExclusive(rid record.RID) {
	t.mu.Lock()
	delete(t.exclSet, rid)
	t.mu.Unlock()
}

// RecordWrite appends to the transaction's table write set.
func (t *Transaction) RecordWrite(table string, rid record.RID, kind WriteKind) {
	t.mu.Lock()
	t.writeSet = append(t.writeSet, WriteRecord{Table: table, RID: rid, Kind: kind})
	t.mu.Unlock()
}

// RecordIndexWrite appends to the transaction's index write set.
func (t *Transaction) RecordIndexWrite(index string, rid record.RID, kind WriteKind) {
	t.mu.Lock()
	t.indexWrite = append(t.indexWrite, IndexWriteRecord{Index: index, RID: rid, Kind: kind})
	t.mu.Unlock()
}

func (t *Transaction) WriteSet() []WriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]WriteRecord(nil), t.writeSet...)
}

func (t *Transaction) IndexWriteSet() []IndexWriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]IndexWriteRecord(nil), t.indexWrite...)
}

// TransactionManager is the lock manager's collaborator for resolving
// txn ids to Transaction objects and aborting them (spec.md §6).
type TransactionManager struct {
	mu    sync.Mutex
	byID  map[record.TxnID]*Transaction
	nextID int64
}

func NewTransactionManager() *TransactionManager {
	return &TransactionManager{byID: make(map[record.TxnID]*Transaction)}
}

// Begin creates and registers a new transaction.
func (tm *TransactionManager) Begin(isolation IsolationLevel) *Transaction {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.nextID++
	txn := NewTransaction(record.TxnID(tm.nextID), isolation)
	tm.byID[txn.ID] = txn
	return txn
}

func (tm *TransactionManager) GetTransaction(id record.TxnID) (*Transaction, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	txn, ok := tm.byID[id]
	return txn, ok
}

// Abort transitions txn to ABORTED. Used both by the user and by
// wound-wait's wounder.
func (tm *TransactionManager) Abort(txn *Transaction, reason AbortReason) {
	txn.abort(reason)
}

// Commit transitions txn to COMMITTED, releasing nothing itself — the
// caller is expected to have already released all locks.
func (tm *TransactionManager) Commit(txn *Transaction) {
	txn.setState(Committed)
}
