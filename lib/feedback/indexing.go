// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feedback

import "context"

// Indexing tracks follow-up work a store schedules after a mutation
// (search indexing, counters). Callers that need the mutation to be
// visible everywhere wait on it; everyone else drops it. A nil
// *Indexing is already complete.
type Indexing struct {
	done chan struct{}
	err  error
}

// Indexed returns a handle that is already complete with err.
func Indexed(err error) *Indexing {
	indexing := &Indexing{done: make(chan struct{}), err: err}
	close(indexing.done)
	return indexing
}

// NewIndexing returns a pending handle and the function that completes
// it. complete must be called exactly once.
func NewIndexing() (indexing *Indexing, complete func(error)) {
	indexing = &Indexing{done: make(chan struct{})}
	return indexing, func(err error) {
		indexing.err = err
		close(indexing.done)
	}
}

// Wait blocks until the work completes or ctx ends.
func (i *Indexing) Wait(ctx context.Context) error {
	if i == nil {
		return nil
	}
	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
