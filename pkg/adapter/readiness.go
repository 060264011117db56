// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"sync"
)

// Readiness is a one-shot signal that a client finished logging in, or
// failed to. Waiters block until it is signalled or their context ends.
type Readiness struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewReadiness returns an unsignalled Readiness.
func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// Signal marks the client ready (err == nil) or failed. Only the first call
// has an effect.
func (r *Readiness) Signal(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed once Signal has been called.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the signal or ctx ends and returns the signalled error
// or ctx.Err().
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
