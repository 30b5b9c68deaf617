// Package requeststate tracks the outcome of one asynchronous operation kind at a time.
package requeststate

import "sync"

// Status is the lifecycle of a tracked request.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Token identifies one Start call. Tokens grow monotonically per State.
type Token uint64

// Snapshot is a copy of the tracked state at one instant.
type Snapshot[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data"`
	Error  string `json:"error,omitempty"`
}

// HasError reports whether an error message is set.
func (s Snapshot[T]) HasError() bool {
	return s.Error != ""
}

// State holds loading, error and result for one operation kind. A new Start overwrites the
// tracked state of the previous one; it does not cancel the underlying call.
//
// Succeed and Fail apply whenever they are called, so with two requests in flight the state
// reflects whichever settles last. Callers that want the most recently started request to win
// use the token-guarded SucceedIfCurrent and FailIfCurrent instead.
type State[T any] struct {
	mu     sync.RWMutex
	status Status
	data   *T
	err    string
	latest Token
}

// New returns an idle State.
func New[T any]() *State[T] {
	return &State[T]{status: StatusIdle}
}

// Start marks the state loading, clears the previous error and returns the token of this request.
// Data from an earlier success stays visible.
func (s *State[T]) Start() Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	s.status = StatusLoading
	s.err = ""
	return s.latest
}

// Succeed stores data and clears any error.
func (s *State[T]) Succeed(data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeedLocked(data)
}

// Fail stores message and leaves data untouched, so stale data can be shown next to the error.
func (s *State[T]) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocked(message)
}

// Reset returns to idle with no data and no error. Tokens issued before Reset are no longer current.
func (s *State[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	s.status = StatusIdle
	s.data = nil
	s.err = ""
}

// SucceedIfCurrent applies Succeed only if tok is the most recently started request.
func (s *State[T]) SucceedIfCurrent(tok Token, data T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok != s.latest {
		return false
	}
	s.succeedLocked(data)
	return true
}

// FailIfCurrent applies Fail only if tok is the most recently started request.
func (s *State[T]) FailIfCurrent(tok Token, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok != s.latest {
		return false
	}
	s.failLocked(message)
	return true
}

// Update replaces the data of a settled success with edit(data), atomically with respect to Start
// and the other setters. It does nothing and returns false while a request is loading, after an
// error, or before any data exists. edit runs under the lock and must not call back into s.
func (s *State[T]) Update(edit func(data T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusSuccess || s.data == nil {
		return false
	}
	next := edit(*s.data)
	s.data = &next
	return true
}

// IsCurrent reports whether tok belongs to the most recent Start.
func (s *State[T]) IsCurrent(tok Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tok == s.latest
}

// Snapshot returns a copy of the current state. The Data pointer is a fresh copy of the stored value.
func (s *State[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot[T]{Status: s.status, Error: s.err}
	if s.data != nil {
		d := *s.data
		snap.Data = &d
	}
	return snap
}

func (s *State[T]) succeedLocked(data T) {
	s.status = StatusSuccess
	s.data = &data
	s.err = ""
}

func (s *State[T]) failLocked(message string) {
	s.status = StatusError
	s.err = message
}
