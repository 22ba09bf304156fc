// Package accountlock serializes work per account while letting different
// accounts proceed in parallel.
package accountlock

import "sync"

// Locker is a keyed mutex. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the account's lock is held and returns its release
// function.
func (l *Locker) Lock(accountID string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*entry)
	}
	e, ok := l.locks[accountID]
	if !ok {
		e = &entry{}
		l.locks[accountID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, accountID)
			}
			l.mu.Unlock()
		})
	}
}

// Held returns how many callers hold or wait for account locks.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.locks {
		n += e.refs
	}
	return n
}
