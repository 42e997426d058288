package pool

import "sync"

// poolLocks hands out one mutex per pool id. Entries are dropped when the
// last holder releases them.
type poolLocks struct {
	mu    sync.Mutex
	locks map[string]*poolLock
}

type poolLock struct {
	mu   sync.Mutex
	refs int
}

func newPoolLocks() *poolLocks {
	return &poolLocks{locks: make(map[string]*poolLock)}
}

// acquire blocks until the caller is the only writer of poolID and returns
// the release func.
func (p *poolLocks) acquire(poolID string) func() {
	p.mu.Lock()
	l, ok := p.locks[poolID]
	if !ok {
		l = &poolLock{}
		p.locks[poolID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, poolID)
		}
		p.mu.Unlock()
	}
}

func (p *poolLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
