package attention

import (
	"context"
	"sync"
)

// Locker is implemented by stores that can serialize a session across every
// Manager sharing them, including Managers in other processes.
type Locker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds or waits on.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sessionLock)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sessionLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
