package reconcile

import (
	"sync"

	"github.com/google/uuid"
)

// Token is an opaque handle for one in-flight structural operation.
type Token string

// OpLock gates authoritative snapshot rebuilds while structural mutations
// are in flight. Each operation acquires its own token, so overlapping
// short-lived operations compose instead of racing on a shared boolean.
//
// The lock is advisory single-operation mutual exclusion, not a queue: a
// refetch forced by a failed operation can still land after a later
// operation has begun. Callers must treat it accordingly.
type OpLock struct {
	mu   sync.Mutex
	live map[Token]string
}

// NewOpLock creates an idle lock.
func NewOpLock() *OpLock {
	return &OpLock{live: make(map[Token]string)}
}

// Acquire registers a new in-flight operation of the given kind and returns
// its token.
func (l *OpLock) Acquire(kind string) Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	tok := Token(uuid.New().String())
	l.live[tok] = kind
	return tok
}

// Release ends the operation for the token. Releasing an unknown or
// already-released token is a no-op.
func (l *OpLock) Release(tok Token) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.live, tok)
}

// Active reports whether any operation is currently in flight. Snapshots
// arriving while Active must be dropped rather than applied.
func (l *OpLock) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live) > 0
}
