package minter

import "sync"

// This process holds one state instance behind a scoped mutate/read API.
// Callers cannot observe the state as nil after initialization —
// InitGlobal/ReplaceGlobal install a new instance atomically.
var (
	globalMu    sync.RWMutex
	globalState *State
)

// InitGlobal installs a fresh state built from args as the process-wide
// singleton.
func InitGlobal(args InitArgs) error {
	s, err := Init(args)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalState = s
	globalMu.Unlock()
	return nil
}

// ReplaceGlobal atomically swaps in a state built elsewhere (e.g. by
// replaying an event log during upgrade). Used by eventstore.Replay's
// caller rather than by the core itself.
func ReplaceGlobal(s *State) {
	globalMu.Lock()
	globalState = s
	globalMu.Unlock()
}

// WithState calls fn with read/write access to the global state. fn must
// not retain the pointer past the call: the single-threaded cooperative
// model only guarantees consistency for the duration of one
// call.
func WithState(fn func(s *State)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	fn(globalState)
}

// WithStateRead calls fn with read-only access to the global state,
// allowing concurrent readers to overlap (the query surface in
// internal/api uses this so status lookups never block on a slow
// transition elsewhere — ).
func WithStateRead(fn func(s *State)) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	fn(globalState)
}

// Global returns the current global state pointer for callers (such as
// eventstore) that need to read outside the WithState/WithStateRead
// helpers, e.g. to serialize it whole. The returned pointer must only be
// used for the duration of the immediate operation.
func Global() *State {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalState
}
