// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package task

import "sync"

// Scope is the cooperative stop signal shared by one logical group of
// supervised tasks (for example, all chunk fetches of one metric in one
// sync pass).
//
// Cancellation is a one-way latch: Cancel is idempotent and thread-safe,
// and there is no way to un-cancel a scope. In-flight attempts observe the
// flag at loop checkpoints, not via preemption.
//
// The scope is owned by the orchestrator invocation that created it; other
// components only ever request cancellation or read the flag.
type Scope struct {
	once sync.Once
	done chan struct{}
}

// NewScope creates a fresh, uncancelled scope.
func NewScope() *Scope {
	return &Scope{done: make(chan struct{})}
}

// Cancel requests cancellation of every task sharing this scope.
// Idempotent and safe for concurrent use.
func (s *Scope) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// Cancelled reports whether cancellation has been requested.
func (s *Scope) Cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when cancellation is requested.
// Use it in select statements alongside attempt results.
func (s *Scope) Done() <-chan struct{} {
	return s.done
}
