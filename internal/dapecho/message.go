// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dapecho

import (
	"sync"

	"github.com/google/go-dap"
)

// pendingRequest tracks a reverse request that is awaiting a response from the client.
type pendingRequest struct {
	// command is the command of the reverse request, e.g. "runInTerminal".
	command string

	// request is the original request message (for logging).
	request dap.RequestMessage
}

// pendingRequestMap is a thread-safe map of pending reverse requests keyed by sequence number.
type pendingRequestMap struct {
	mu       sync.Mutex
	requests map[int]*pendingRequest
}

func newPendingRequestMap() *pendingRequestMap {
	return &pendingRequestMap{
		requests: make(map[int]*pendingRequest),
	}
}

func (m *pendingRequestMap) Add(seq int, req *pendingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[seq] = req
}

// Take retrieves and removes a pending request from the map.
// Returns nil if no request exists for the given sequence number.
func (m *pendingRequestMap) Take(seq int) *pendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[seq]
	if !ok {
		return nil
	}

	delete(m.requests, seq)
	return req
}

func (m *pendingRequestMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// sequenceCounter provides thread-safe sequence number generation.
type sequenceCounter struct {
	mu  sync.Mutex
	seq int
}

func newSequenceCounter() *sequenceCounter {
	return &sequenceCounter{seq: 0}
}

// Next returns the next sequence number.
func (c *sequenceCounter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *sequenceCounter) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
