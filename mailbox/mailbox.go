// Package mailbox provides a single-slot handoff between one producer
// and one consumer with overwrite-latest semantics: there is no queue,
// a slow consumer only ever sees the newest value.
package mailbox

import "sync"

// Mailbox is a mutex-guarded single slot. The zero value is empty and
// ready to use.
type Mailbox[T any] struct {
	mu    sync.Mutex
	value T
	fresh bool
}

// Put stores a value, replacing any unconsumed one.
func (m *Mailbox[T]) Put(value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.fresh = true
}

// Take returns the newest value not yet consumed. ok is false when
// nothing new arrived since the last Take.
func (m *Mailbox[T]) Take() (value T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		var zero T
		return zero, false
	}
	m.fresh = false
	return m.value, true
}
