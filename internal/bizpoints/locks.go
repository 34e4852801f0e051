package bizpoints

import "sync"

// userLocks serializes ledger writes per target user within this process.
// The database row lock covers multi-replica deployments; this covers
// backends without row locks (sqlite) and keeps the read-compute-write
// window closed either way.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
