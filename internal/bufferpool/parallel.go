package bufferpool

import (
	"fmt"

	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

// ParallelBufferPoolManager stripes pages across numInstances independent
// BufferPoolManager shards: page id p is owned by shard p mod
// numInstances (spec.md §3). Each shard keeps its own DiskManager so
// AllocatePage naturally hands out ids in that shard's residue class.
type ParallelBufferPoolManager struct {
	instances []*BufferPoolManager
	next      int // round-robin instance for NewPage
}

// NewParallelBufferPoolManager builds numInstances shards of poolSize
// frames each, one disk manager per shard via newDisk(instanceIndex).
func NewParallelBufferPoolManager(
	numInstances, poolSize int,
	newDisk func(instance int) (storage.DiskManager, error),
) (*ParallelBufferPoolManager, error) {
	if numInstances <= 0 {
		numInstances = 1
	}
	pbp := &ParallelBufferPoolManager{instances: make([]*BufferPoolManager, numInstances)}
	for i := 0; i < numInstances; i++ {
		disk, err := newDisk(i)
		if err != nil {
			return nil, fmt.Errorf("bufferpool: instance %d: %w", i, err)
		}
		pbp.instances[i] = NewBufferPoolManager(poolSize, disk)
	}
	return pbp, nil
}

func (pbp *ParallelBufferPoolManager) NumInstances() int { return len(pbp.instances) }

// instanceFor returns the shard owning id, per the striping rule.
func (pbp *ParallelBufferPoolManager) instanceFor(id record.PageID) *BufferPoolManager {
	n := len(pbp.instances)
	idx := int(id) % n
	if idx < 0 {
		idx += n
	}
	return pbp.instances[idx]
}

func (pbp *ParallelBufferPoolManager) FetchPage(id record.PageID) (*Frame, error) {
	return pbp.instanceFor(id).FetchPage(id)
}

// NewPage round-robins across shards so allocation doesn't pile up on
// instance 0, then delegates to that shard's own AllocatePage (which is
// responsible for returning an id in its residue class).
func (pbp *ParallelBufferPoolManager) NewPage() (*Frame, record.PageID, error) {
	n := len(pbp.instances)
	start := pbp.next
	pbp.next = (pbp.next + 1) % n
	for i := 0; i < n; i++ {
		inst := pbp.instances[(start+i)%n]
		frame, id, err := inst.NewPage()
		if err == nil {
			return frame, id, nil
		}
	}
	return nil, record.InvalidPageID, fmt.Errorf("bufferpool: no free frame in any instance")
}

func (pbp *ParallelBufferPoolManager) UnpinPage(id record.PageID, isDirty bool) bool {
	return pbp.instanceFor(id).UnpinPage(id, isDirty)
}

func (pbp *ParallelBufferPoolManager) FlushPage(id record.PageID) bool {
	return pbp.instanceFor(id).FlushPage(id)
}

func (pbp *ParallelBufferPoolManager) DeletePage(id record.PageID) bool {
	return pbp.instanceFor(id).DeletePage(id)
}

func (pbp *ParallelBufferPoolManager) FlushAllPages() {
	for _, inst := range pbp.instances {
		inst.FlushAllPages()
	}
}
