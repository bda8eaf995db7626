package clientdata

import "sync"

// unitLocks serializes every operation on the same cache unit.
type unitLocks struct {
	mu    sync.Mutex
	locks map[string]*unitLock
}

type unitLock struct {
	sync.Mutex
	refs int
}

func newUnitLocks() *unitLocks {
	return &unitLocks{locks: make(map[string]*unitLock)}
}

// lock acquires the lock for dir and returns its release function.
func (u *unitLocks) lock(dir string) func() {
	u.mu.Lock()
	l, ok := u.locks[dir]
	if !ok {
		l = &unitLock{}
		u.locks[dir] = l
	}
	l.refs++
	u.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, dir)
		}
		u.mu.Unlock()
	}
}
