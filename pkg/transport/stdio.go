// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/stacklok/mcpbridge/pkg/logger"
)

// maxStdioLine bounds one newline-delimited message read from the client.
const maxStdioLine = 10 * 1024 * 1024

// Stdio is a Transport over newline-delimited JSON-RPC, typically the
// process's stdin and stdout for a single local client.
//
// Messages read before end of input are still returned by Receive after the
// reader hits EOF; Receive reports ErrClosed only once they are drained.
type Stdio struct {
	id string
	queue
	eof chan struct{}

	mu        sync.Mutex
	w         io.Writer
	closeOnce sync.Once
}

// NewStdio starts reading messages from r and writes replies to w. The
// reader goroutine exits at end of input or on a read error.
func NewStdio(id string, r io.Reader, w io.Writer) *Stdio {
	s := &Stdio{
		id:    id,
		queue: newQueue(defaultQueueSize),
		eof:   make(chan struct{}),
		w:     w,
	}
	go s.read(r)
	return s
}

func (s *Stdio) read(r io.Reader) {
	defer close(s.eof)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxStdioLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			logger.Warnw("ignoring malformed stdio message", "transport", s.id, "bytes", len(line))
			continue
		}
		// the scanner reuses its buffer
		msg := make(json.RawMessage, len(line))
		copy(msg, line)
		if err := s.deliver(context.Background(), msg); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warnw("stdio read failed", "transport", s.id, "error", err)
	}
}

// ID returns the transport id.
func (s *Stdio) ID() string { return s.id }

// Receive returns the next message read from the input.
func (s *Stdio) Receive(ctx context.Context) (json.RawMessage, error) {
	select {
	case msg := <-s.in:
		return msg, nil
	default:
	}
	select {
	case msg := <-s.in:
		return msg, nil
	case <-s.eof:
		// the reader delivers everything before closing eof
		select {
		case msg := <-s.in:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send writes msg as a single line.
func (s *Stdio) Send(_ context.Context, msg json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, msg); err != nil {
		return fmt.Errorf("invalid outbound message: %w", err)
	}
	buf.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Done is closed by Close.
func (s *Stdio) Done() <-chan struct{} { return s.done }

// Close stops accepting and sending messages. It does not close the
// underlying reader or writer.
func (s *Stdio) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
