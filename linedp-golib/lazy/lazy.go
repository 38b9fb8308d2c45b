package lazy

import (
	"sync"
)

// Loader manages a resource that is expensive to load. The resource is loaded
// on first use and may be unloaded and later reloaded.
type Loader struct {
	load   func() error
	unload func()

	mu      sync.RWMutex
	once    sync.Once
	loadErr error
}

// NewLoader creates a Loader around the given load and unload functions.
func NewLoader(load func() error, unload func()) *Loader {
	return &Loader{
		load:   load,
		unload: unload,
	}
}

// LoadAndLock runs load if it has not run since the last Unload, and on
// success holds a read lock that blocks Unload until Unlock is called.
// Callers must defer l.Unlock() if and only if LoadAndLock returned nil.
func (l *Loader) LoadAndLock() error {
	l.mu.RLock()
	keep := false
	defer func() {
		// release the read lock on error, and if load panics
		if !keep {
			l.mu.RUnlock()
		}
	}()

	l.once.Do(func() { l.loadErr = l.load() })
	keep = l.loadErr == nil
	return l.loadErr
}

// Unlock releases the read lock taken by a successful LoadAndLock.
func (l *Loader) Unlock() {
	l.mu.RUnlock()
}

// Unload releases the resource once all readers have unlocked. The next
// LoadAndLock will run load again.
func (l *Loader) Unload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.once = sync.Once{}
	l.unload()
	l.loadErr = nil
}
