package services

import "sync"

// planLocks hands out one mutex per plan, dropped once no goroutine holds or
// waits for it.
type planLocks struct {
	mu    sync.Mutex
	locks map[int64]*planLock
}

type planLock struct {
	mu   sync.Mutex
	refs int
}

func newPlanLocks() *planLocks {
	return &planLocks{locks: make(map[int64]*planLock)}
}

// lock blocks until the plan's lock is held and returns its release func.
func (l *planLocks) lock(planID int64) func() {
	l.mu.Lock()
	pl, ok := l.locks[planID]
	if !ok {
		pl = &planLock{}
		l.locks[planID] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, planID)
		}
		l.mu.Unlock()
	}
}

func (l *planLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
