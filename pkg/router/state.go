// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

// State is the lifecycle position of one connection.
type State int32

// Connection states, in order. A connection that fails before BOUND goes
// straight to StateClosed.
const (
	StateConnecting State = iota
	StateBound
	StateStreaming
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateBound:
		return "BOUND"
	case StateStreaming:
		return "STREAMING"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// StateObserver is notified of every state a connection enters. It is called
// synchronously and must not block.
type StateObserver func(connID string, state State)
