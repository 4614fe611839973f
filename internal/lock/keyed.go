package lock

import "sync"

// Keyed is an in-process try-lock table keyed by message id. It guarantees
// at most one in-flight send attempt per message: a second acquire for the
// same key fails immediately instead of blocking.
type Keyed struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for key, reporting false when it is already held.
func (k *Keyed) TryAcquire(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.held[key]; ok {
		return false
	}
	k.held[key] = struct{}{}
	return true
}

// Release frees the lock for key. Releasing an unheld key is a no-op.
func (k *Keyed) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, key)
}
