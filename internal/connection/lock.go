package connection

import "sync"

// KeyMutex serializes work per key. The connection service and the lead
// ledger share one instance so a termination cannot interleave with a
// lead submission on the same connection.
type KeyMutex struct {
	mu      sync.Mutex
	entries map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex returns an empty KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{entries: make(map[string]*keyLock)}
}

// Lock acquires the lock for key and returns the matching unlock. Entries
// are dropped once the last holder releases, so the map only ever holds
// in-flight keys.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyLock{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
