package httpapi

import "sync"

// #region session-locks

// sessionLocks serializes chat turns per conversation. The engine requires
// at most one in-flight turn per conversation; concurrent turns on stale
// snapshots would silently lose updates.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for a conversation ID, creating it on first use.
// The returned func releases the lock.
func (s *sessionLocks) acquire(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// #endregion
