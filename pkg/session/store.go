// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session keeps one adapter instance per session key for the life of
// the process and coordinates their construction.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

// DefaultConstructTimeout bounds the construction of one instance.
const DefaultConstructTimeout = 30 * time.Second

// ErrStoreClosed is returned by GetOrCreate after Close.
var ErrStoreClosed = errors.New("session store is closed")

// ConstructFunc builds the instance for key. ctx carries the construction
// deadline.
type ConstructFunc func(ctx context.Context, key Key) (*Instance, error)

// Store maps session keys to instances. Instances are never evicted.
type Store struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	closed    bool

	group   singleflight.Group
	timeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithConstructTimeout overrides DefaultConstructTimeout.
func WithConstructTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		instances: make(map[string]*Instance),
		timeout:   DefaultConstructTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored instance for key.
func (s *Store) Get(key Key) (*Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[key.String()]
	return inst, ok
}

// GetOrCreate returns the instance for key, running construct at most once
// per key however many callers race. Construction is bounded by the store's
// timeout and does not stop when one waiter gives up; a failed or timed out
// construction stores nothing, so a later call tries again.
func (s *Store) GetOrCreate(ctx context.Context, key Key, construct ConstructFunc) (*Instance, error) {
	if inst, ok := s.Get(key); ok {
		return inst, nil
	}

	ch := s.group.DoChan(key.String(), func() (any, error) {
		if inst, ok := s.Get(key); ok {
			return inst, nil
		}
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		inst, err := s.build(buildCtx, key, construct)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = inst.Close()
			return nil, ErrStoreClosed
		}
		s.instances[key.String()] = inst
		s.mu.Unlock()

		logger.Infow("session instance created", "session", key.Redacted())
		return inst, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Instance), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("stopped waiting for session %s: %w", key.Redacted(), ctx.Err())
	}
}

type buildResult struct {
	inst *Instance
	err  error
}

func (s *Store) build(ctx context.Context, key Key, construct ConstructFunc) (*Instance, error) {
	done := make(chan buildResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- buildResult{err: mcperrors.NewInternalError(
					fmt.Sprintf("constructing session %s panicked: %v", key.Redacted(), r), nil)}
			}
		}()
		inst, err := construct(ctx, key)
		done <- buildResult{inst: inst, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			logger.Warnw("session construction failed", "session", key.Redacted(), "error", r.err)
			return nil, r.err
		}
		if r.inst == nil {
			return nil, mcperrors.NewInternalError("construction returned no instance", nil)
		}
		return r.inst, nil
	case <-ctx.Done():
		go discardLate(key, done)
		return nil, mcperrors.NewTimeoutError(
			fmt.Sprintf("constructing session %s did not finish within %s", key.Redacted(), s.timeout), ctx.Err())
	}
}

// discardLate closes an instance that finished after its deadline.
func discardLate(key Key, done <-chan buildResult) {
	r := <-done
	if r.inst == nil {
		return
	}
	logger.Warnw("discarding session instance that finished after the deadline", "session", key.Redacted())
	if err := r.inst.Close(); err != nil {
		logger.Warnw("failed to close discarded instance", "session", key.Redacted(), "error", err)
	}
}

// Len returns the number of stored instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// Keys returns the stored keys ordered by their string form.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.instances))
	for _, inst := range s.instances {
		keys = append(keys, inst.Key)
	}
	s.mu.RUnlock()
	slices.SortFunc(keys, func(a, b Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// Close closes every instance. Later GetOrCreate calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	instances := s.instances
	s.instances = make(map[string]*Instance)
	s.mu.Unlock()

	var errs []error
	for _, inst := range instances {
		if err := inst.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", inst.Key.Redacted(), err))
		}
	}
	return errors.Join(errs...)
}
