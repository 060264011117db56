// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"strings"
)

const (
	// EventEndpoint announces the URL the client posts messages to.
	EventEndpoint = "endpoint"
	// EventMessage carries one JSON-RPC message.
	EventMessage = "message"

	keepAliveComment = ": keep-alive\n\n"
)

// SSEMessage represents a Server-Sent Event message
type SSEMessage struct {
	// EventType is the type of event (e.g., "message", "endpoint")
	EventType string
	// Data is the event data
	Data string
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(eventType, data string) *SSEMessage {
	return &SSEMessage{EventType: eventType, Data: data}
}

// ToSSEString converts the message to an SSE-formatted string
func (m *SSEMessage) ToSSEString() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "event: %s\n", m.EventType)

	// every line of a multi-line payload needs its own data field
	for _, line := range strings.Split(m.Data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}

	sb.WriteString("\n")
	return sb.String()
}
