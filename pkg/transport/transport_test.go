// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEMessage_ToSSEString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		eventType string
		data      string
		expected  string
	}{
		{"simple message", "message", "Hello, World!", "event: message\ndata: Hello, World!\n\n"},
		{"multiline data", "multiline", "Line 1\nLine 2", "event: multiline\ndata: Line 1\ndata: Line 2\n\n"},
		{"empty data", "empty", "", "event: empty\ndata: \n\n"},
		{"endpoint", EventEndpoint, "/discord/alice/messages/?session_id=abc",
			"event: endpoint\ndata: /discord/alice/messages/?session_id=abc\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NewSSEMessage(tt.eventType, tt.data).ToSSEString())
		})
	}
}

func TestPipe_OrderAndClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewPipe("p1")
	assert.Equal(t, "p1", p.ID())

	for _, m := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		require.NoError(t, p.Deliver(ctx, json.RawMessage(m)))
	}
	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		got, err := p.Receive(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(got))
	}

	require.NoError(t, p.Send(ctx, json.RawMessage(`{"ok":true}`)))
	assert.JSONEq(t, `{"ok":true}`, string(<-p.Outbound()))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	<-p.Done()

	_, err := p.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Send(ctx, json.RawMessage(`{}`)), ErrClosed)
	assert.ErrorIs(t, p.Deliver(ctx, json.RawMessage(`{}`)), ErrClosed)
}

func TestPipe_ReceiveHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewPipe("p").Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipe_DeliverFullQueue(t *testing.T) {
	t.Parallel()

	p := NewPipe("p")
	for range defaultQueueSize {
		require.NoError(t, p.Deliver(context.Background(), json.RawMessage(`{}`)))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Deliver(ctx, json.RawMessage(`{}`)), ErrQueueFull)
}

func TestSSE_Stream(t *testing.T) {
	t.Parallel()

	sse := NewSSE("s1", "/simple-tools/alice/messages/?session_id=s1", WithKeepAlive(20*time.Millisecond))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = sse.Stream(r.Context(), w)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test-only request
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimRight(line, "\n")
	}

	assert.Equal(t, "event: endpoint", readLine())
	assert.Equal(t, "data: /simple-tools/alice/messages/?session_id=s1", readLine())
	assert.Empty(t, readLine())

	require.NoError(t, sse.Send(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"result":{}}`)))

	// keep-alive comments may interleave; skip to the message event
	for {
		line := readLine()
		if line == "event: message" {
			break
		}
		assert.True(t, line == "" || line == ": keep-alive", "unexpected line %q", line)
	}
	assert.Equal(t, `data: {"jsonrpc":"2.0","id":1,"result":{}}`, readLine())

	require.NoError(t, sse.Close())
	assert.ErrorIs(t, sse.Send(context.Background(), json.RawMessage(`{}`)), ErrClosed)
}

func TestHub(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	a := NewSSE("a", "/x")
	require.NoError(t, hub.Add(a))
	require.Error(t, hub.Add(NewSSE("a", "/y")))
	require.Error(t, hub.Add(NewSSE("", "/z")))

	got, ok := hub.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 1, hub.Len())

	hub.CloseAll()
	select {
	case <-a.Done():
	default:
		t.Fatal("transport not closed")
	}

	hub.Delete("a")
	_, ok = hub.Get("a")
	assert.False(t, ok)
}

func TestStdio_ReadWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := NewStdio("stdio", inR, outW)
	t.Cleanup(func() {
		_ = s.Close()
		_ = inW.Close()
		_ = outR.Close()
	})
	assert.Equal(t, "stdio", s.ID())

	go func() {
		_, _ = io.WriteString(inW, "{\"n\":1}\n\nnot json\n  {\"n\":2}  \n")
	}()
	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		got, err := s.Receive(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(got))
	}

	lines := bufio.NewScanner(outR)
	go func() {
		assert.NoError(t, s.Send(ctx, json.RawMessage("{\n  \"ok\": true\n}")))
	}()
	require.True(t, lines.Scan())
	assert.Equal(t, `{"ok":true}`, lines.Text())

	assert.Error(t, s.Send(ctx, json.RawMessage(`{broken`)))
}

func TestStdio_DrainsAfterEOF(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	in := strings.NewReader("{\"n\":1}\n{\"n\":2}\n{\"n\":3}")
	s := NewStdio("stdio", in, io.Discard)

	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		got, err := s.Receive(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(got))
	}
	_, err := s.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, s.Close())
	<-s.Done()
	assert.ErrorIs(t, s.Send(ctx, json.RawMessage(`{}`)), ErrClosed)
}

func TestStdio_ReceiveAfterClose(t *testing.T) {
	t.Parallel()

	inR, inW := io.Pipe()
	t.Cleanup(func() { _ = inW.Close() })
	s := NewStdio("stdio", inR, io.Discard)
	require.NoError(t, s.Close())

	_, err := s.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
