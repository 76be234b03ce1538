// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workerpool runs fire-and-forget background tasks on an
// elastic set of goroutines.
//
// The pool keeps a floor of standing workers and grows on demand up to
// a cap. There is no queue: a submission is handed directly to an idle
// worker, or starts a new worker, or (at the cap) blocks the submitter
// until a worker frees up or the submitter's context ends. Workers
// above the floor retire after sitting idle for the idle timeout.
//
// Every task receives the pool's context, which Shutdown cancels.
// Results come back through a Future.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/trackersync/lib/clock"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultMinWorkers  = 2
	DefaultMaxWorkers  = 64
	DefaultIdleTimeout = 60 * time.Second
)

// ErrClosed is returned for submissions after Shutdown has begun.
var ErrClosed = errors.New("workerpool: pool is shut down")

// Config configures a Pool.
type Config struct {
	// MinWorkers is the number of standing workers that never retire.
	MinWorkers int

	// MaxWorkers caps concurrent workers. Must be at least MinWorkers.
	MaxWorkers int

	// IdleTimeout is how long a worker above the floor waits for work
	// before exiting.
	IdleTimeout time.Duration

	// Clock drives idle retirement. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives task failures and panics. Required.
	Logger *slog.Logger
}

// Pool is an elastic goroutine pool. Create one with New.
type Pool struct {
	minWorkers  int
	maxWorkers  int
	idleTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	// ctx is handed to every task; cancel interrupts them on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// handoff is unbuffered: a send succeeds only when a worker is
	// parked waiting for work.
	handoff chan func(context.Context)

	// quit is closed when Shutdown begins.
	quit chan struct{}

	mu      sync.Mutex
	workers int
	closed  bool
	group   sync.WaitGroup
}

// New starts a pool with MinWorkers standing workers.
func New(config Config) *Pool {
	if config.Logger == nil {
		panic("workerpool: Logger is required")
	}
	if config.MinWorkers <= 0 {
		config.MinWorkers = DefaultMinWorkers
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultMaxWorkers
	}
	if config.MaxWorkers < config.MinWorkers {
		panic(fmt.Sprintf("workerpool: MaxWorkers (%d) < MinWorkers (%d)", config.MaxWorkers, config.MinWorkers))
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := &Pool{
		minWorkers:  config.MinWorkers,
		maxWorkers:  config.MaxWorkers,
		idleTimeout: config.IdleTimeout,
		clock:       config.Clock,
		logger:      config.Logger,
		ctx:         ctx,
		cancel:      cancel,
		handoff:     make(chan func(context.Context)),
		quit:        make(chan struct{}),
	}

	pool.mu.Lock()
	for range pool.minWorkers {
		pool.startLocked(nil)
	}
	pool.mu.Unlock()
	return pool
}

// Submit runs task on a worker. It returns once a worker has accepted
// the task, which at the cap means waiting for one to free up. It
// fails with ctx's error if ctx ends first, or ErrClosed if the pool is
// shutting down.
func (pool *Pool) Submit(ctx context.Context, task func(context.Context)) error {
	pool.mu.Lock()
	closed := pool.closed
	pool.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case pool.handoff <- task:
		return nil
	default:
	}

	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()
		return ErrClosed
	}
	if pool.workers < pool.maxWorkers {
		pool.startLocked(task)
		pool.mu.Unlock()
		return nil
	}
	pool.mu.Unlock()

	select {
	case pool.handoff <- task:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for a free worker: %w", ctx.Err())
	case <-pool.quit:
		return ErrClosed
	}
}

// Workers returns the current number of live workers.
func (pool *Pool) Workers() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return pool.workers
}

// Shutdown stops accepting work, cancels the context handed to running
// tasks, and waits for every worker to exit or ctx to end. Calling it
// more than once is safe.
func (pool *Pool) Shutdown(ctx context.Context) error {
	pool.mu.Lock()
	if !pool.closed {
		pool.closed = true
		close(pool.quit)
		pool.cancel()
	}
	pool.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		pool.group.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining worker pool: %w", ctx.Err())
	}
}

// startLocked must be called with pool.mu held.
func (pool *Pool) startLocked(first func(context.Context)) {
	pool.workers++
	pool.group.Add(1)
	go pool.work(first)
}

func (pool *Pool) work(first func(context.Context)) {
	defer pool.group.Done()
	if first != nil {
		pool.run(first)
	}
	for {
		timer := pool.clock.NewTimer(pool.idleTimeout)
		select {
		case task := <-pool.handoff:
			timer.Stop()
			pool.run(task)
		case <-timer.C:
			if pool.retire() {
				return
			}
		case <-pool.quit:
			timer.Stop()
			pool.mu.Lock()
			pool.workers--
			pool.mu.Unlock()
			return
		}
	}
}

// retire reports whether an idle worker may exit, and if so accounts
// for its exit.
func (pool *Pool) retire() bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.workers <= pool.minWorkers {
		return false
	}
	pool.workers--
	return true
}

func (pool *Pool) run(task func(context.Context)) {
	defer func() {
		if recovered := recover(); recovered != nil {
			pool.logger.Error("worker pool task panicked", "panic", recovered)
		}
	}()
	task(pool.ctx)
}
