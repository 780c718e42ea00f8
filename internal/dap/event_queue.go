/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"sync"

	"github.com/google/go-dap"
	"github.com/smallnest/chanx"
)

const defaultEventQueueCapacity = 16

// EventQueue carries events from background producers (process watchers, output readers, etc.)
// to the dispatch loop, which is the only code allowed to use the Writer.
// Posting never blocks for long; events are buffered without limit until the loop sends them.
//
// EventQueue is goroutine-safe.
type EventQueue struct {
	ctx context.Context
	ch  *chanx.UnboundedChan[dap.EventMessage]

	mu     sync.Mutex
	closed bool
}

// NewEventQueue creates an EventQueue. The queue stops delivering events when ctx is cancelled.
// If initialCapacity is not positive, a default capacity is used.
func NewEventQueue(ctx context.Context, initialCapacity int) *EventQueue {
	if initialCapacity <= 0 {
		initialCapacity = defaultEventQueueCapacity
	}

	return &EventQueue{
		ctx: ctx,
		ch:  chanx.NewUnboundedChan[dap.EventMessage](ctx, initialCapacity),
	}
}

// Post queues an event for sending. Events are sent in the order they were posted.
func (q *EventQueue) Post(event dap.EventMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch.In <- event:
		return nil
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// Close stops accepting new events. Events already posted are still delivered.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch.In)
}

// Out returns the channel the dispatch loop receives events from.
// It is closed after Close has been called and all posted events were received.
func (q *EventQueue) Out() <-chan dap.EventMessage {
	return q.ch.Out
}

// Len returns the approximate number of events waiting to be received.
func (q *EventQueue) Len() int {
	return q.ch.Len()
}
