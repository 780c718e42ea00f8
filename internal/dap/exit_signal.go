/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import "sync/atomic"

// ExitState is the state of an ExitSignal.
type ExitState int

const (
	// ExitStateNormal means no exit has been requested.
	ExitStateNormal ExitState = iota
	// ExitStateRequested means the dispatch loop should stop after the current cycle.
	ExitStateRequested
)

func (s ExitState) String() string {
	switch s {
	case ExitStateNormal:
		return "normal"
	case ExitStateRequested:
		return "exitRequested"
	default:
		return "unknown"
	}
}

// ExitSignal tells the dispatch loop to stop accepting input once the current processing cycle ends.
//
// The loop consults the signal after every cycle. CancelExit therefore only undoes a RequestExit
// made earlier in the same cycle; once the loop has seen the request it is already shutting down.
// The zero value is ready to use and is in the ExitStateNormal state.
type ExitSignal struct {
	requested atomic.Bool
}

// RequestExit asks the dispatch loop to stop after the current cycle.
// It is recommended to send a terminated and/or exited event to the client first.
func (e *ExitSignal) RequestExit() {
	e.requested.Store(true)
}

// CancelExit clears an exit request made during the current cycle.
func (e *ExitSignal) CancelExit() {
	e.requested.Store(false)
}

// ExitRequested returns true if an exit has been requested and not cancelled.
func (e *ExitSignal) ExitRequested() bool {
	return e.requested.Load()
}

// ExitState returns the current state of the signal.
func (e *ExitSignal) ExitState() ExitState {
	if e.requested.Load() {
		return ExitStateRequested
	}
	return ExitStateNormal
}
