// Package lock provides scope-level locking so each write operation runs its
// read-mutate-commit sequence without interleaving with another call against
// the same tournament or escrow entry.
package lock

import "sync"

// scopeMutex wraps a mutex with reference counting for cleanup.
type scopeMutex struct {
	mu       sync.Mutex
	refCount int
}

// ScopeLock provides per-scope locking keyed by an arbitrary string, e.g. a
// tournament id or an escrow (account, token) pair.
type ScopeLock struct {
	locks sync.Map // map[string]*scopeMutex
	pool  sync.Pool
}

// NewScopeLock creates a new ScopeLock instance.
func NewScopeLock() *ScopeLock {
	return &ScopeLock{
		pool: sync.Pool{
			New: func() any {
				return &scopeMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given scope.
func (sl *ScopeLock) getLock(scope string) *scopeMutex {
	if v, ok := sl.locks.Load(scope); ok {
		return v.(*scopeMutex)
	}

	newLock := sl.pool.Get().(*scopeMutex)
	newLock.refCount = 0

	actual, loaded := sl.locks.LoadOrStore(scope, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool.
		sl.pool.Put(newLock)
	}
	return actual.(*scopeMutex)
}

// Lock acquires the lock for a scope.
func (sl *ScopeLock) Lock(scope string) {
	lock := sl.getLock(scope)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a scope.
func (sl *ScopeLock) Unlock(scope string) {
	if v, ok := sl.locks.Load(scope); ok {
		lock := v.(*scopeMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (sl *ScopeLock) TryLock(scope string) bool {
	lock := sl.getLock(scope)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the scope's lock.
func (sl *ScopeLock) WithLock(scope string, fn func() error) error {
	sl.Lock(scope)
	defer sl.Unlock(scope)
	return fn()
}
