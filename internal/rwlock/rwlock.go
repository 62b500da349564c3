// Package rwlock provides a writer-preferring reader/writer lock whose
// release operations report misuse instead of crashing.
//
// Any number of readers may hold the lock while no writer holds it or is
// waiting for it. Once a writer has asked for the lock, new readers queue
// behind it, so a steady stream of readers cannot starve the writer.
//
// Releasing a lock that is not held returns [ErrNotReadLocked] or
// [ErrNotWriteLocked] and leaves the lock untouched. sync.RWMutex treats
// the same mistake as an unrecoverable fatal error.
package rwlock

import (
	"errors"
	"sync"
)

var (
	// ErrNotReadLocked is returned by ReleaseRead when no reader holds the lock.
	ErrNotReadLocked = errors.New("rwlock: release of unheld read lock")

	// ErrNotWriteLocked is returned by ReleaseWrite when no writer holds the lock.
	ErrNotWriteLocked = errors.New("rwlock: release of unheld write lock")
)

// RWLock is a reader/writer lock. The zero value is an unlocked lock.
type RWLock struct {
	mu             sync.Mutex
	cond           sync.Cond
	readers        int
	writer         bool
	waitingWriters int
}

// init must be called with mu held.
func (l *RWLock) init() {
	if l.cond.L == nil {
		l.cond.L = &l.mu
	}
}

// AcquireRead blocks until no writer holds or waits for the lock.
func (l *RWLock) AcquireRead() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.init()

	for l.writer || l.waitingWriters > 0 {
		l.cond.Wait()
	}
	l.readers++
}

func (l *RWLock) ReleaseRead() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.init()

	if l.readers == 0 {
		return ErrNotReadLocked
	}
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	return nil
}

// AcquireWrite blocks until the caller has exclusive access. Readers that
// arrive after this call wait until the write lock has been released.
func (l *RWLock) AcquireWrite() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.init()

	l.waitingWriters++
	for l.writer || l.readers > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.writer = true
}

func (l *RWLock) ReleaseWrite() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.init()

	if !l.writer {
		return ErrNotWriteLocked
	}
	l.writer = false
	l.cond.Broadcast()
	return nil
}

// Readers reports the number of readers currently holding the lock.
func (l *RWLock) Readers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readers
}

// Writing reports whether a writer currently holds the lock.
func (l *RWLock) Writing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer
}

// PendingWriters reports how many writers are blocked in AcquireWrite.
func (l *RWLock) PendingWriters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitingWriters
}
