// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Future is the eventual result of a task. A Future for which no work
// was scheduled is already complete; see Done.
type Future[T any] struct {
	// ID identifies the task in logs. Empty for futures that never ran
	// a task.
	ID string

	done  chan struct{}
	value T
	err   error
}

// Done returns a completed Future holding value.
func Done[T any](value T) *Future[T] {
	future := &Future[T]{done: make(chan struct{})}
	future.complete(value, nil)
	return future
}

// Failed returns a completed Future holding err.
func Failed[T any](err error) *Future[T] {
	future := &Future[T]{done: make(chan struct{})}
	var zero T
	future.complete(zero, err)
	return future
}

func (future *Future[T]) complete(value T, err error) {
	future.value = value
	future.err = err
	close(future.done)
}

// Ready returns a channel closed when the result is available.
func (future *Future[T]) Ready() <-chan struct{} {
	return future.done
}

// Wait blocks until the task finishes or ctx ends.
func (future *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-future.done:
		return future.value, future.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go submits fn to the pool under a fresh task ID and returns its
// Future. A failed task is logged at warn with its ID and name. If the
// pool refuses the submission no task exists: the Future has an empty
// ID and holds the refusal.
func Go[T any](ctx context.Context, pool *Pool, name string, fn func(context.Context) (T, error)) *Future[T] {
	future := &Future[T]{ID: uuid.NewString(), done: make(chan struct{})}
	logger := pool.logger.With("task_id", future.ID, "task", name)

	err := pool.Submit(ctx, func(taskCtx context.Context) {
		var value T
		var err error
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("task %s panicked: %v", name, recovered)
				logger.Error("task panicked", "panic", recovered)
			}
			if err != nil {
				logger.Warn("task failed", "error", err)
			}
			future.complete(value, err)
		}()
		value, err = fn(taskCtx)
	})
	if err != nil {
		logger.Warn("task not scheduled", "error", err)
		future.ID = ""
		var zero T
		future.complete(zero, err)
	}
	return future
}
