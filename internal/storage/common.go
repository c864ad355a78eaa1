package storage

import "errors"

const (
	OneKB = 1024
	OneMB = OneKB * 1024
)

// PageSize is the fixed size of every page handled by the buffer pool,
// the disk manager, and all on-page codecs (spec.md §3: "typically 4096").
const PageSize = 4 * OneKB

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// Common errors surfaced by the storage layer. The slotted page returns
// ErrNoSpace and ErrBadSlot, which the table heap checks or passes on.
var (
	ErrPageCorrupted    = errors.New("storage: page is corrupted")
	ErrNoSpace          = errors.New("storage: page has no free space for tuple")
	ErrBadSlot          = errors.New("storage: slot is empty or out of range")
	ErrInvalidOperation = errors.New("storage: invalid operation")
)
