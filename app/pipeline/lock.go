package pipeline

import "sync/atomic"

// Locker guards the pipeline against concurrent runs. TryLock never
// blocks: a held lock means a run is in progress and the caller should
// skip, not wait.
type Locker interface {
	TryLock() bool
	Unlock()
}

// MemoryLocker is a process-local lock. The pipeline runs inside a
// single process, so no distributed coordination is needed.
type MemoryLocker struct {
	held atomic.Bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{}
}

func (l *MemoryLocker) TryLock() bool {
	return l.held.CompareAndSwap(false, true)
}

func (l *MemoryLocker) Unlock() {
	l.held.Store(false)
}

var _ Locker = (*MemoryLocker)(nil)
