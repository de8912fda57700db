package store

import "sync"

// KeyedMutex serializes operations per key. The room coordinator locks the
// room id around its find/mutate/upsert sequence so concurrent joins to the
// same room cannot lose updates or overfill it, and locks the user id around
// user-record writes so overlapping sessions for one user cannot clobber each
// other. Scope is process-local, which matches the process-local session
// registry.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the lock for key and returns the matching unlock func.
// Entries are reference counted so the map does not grow with dead keys.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
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
