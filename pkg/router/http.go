// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/exp/jsonrpc2"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/session"
	"github.com/stacklok/mcpbridge/pkg/transport"
)

const (
	// MaxMessageBytes caps one POSTed JSON-RPC message.
	MaxMessageBytes = 4 << 20

	// deliverTimeout bounds how long a POST waits for room in a full queue.
	deliverTimeout = 5 * time.Second
)

// Handler returns the HTTP surface:
//
//	GET  /, /health, /health_check          health
//	GET  /metrics                           Prometheus metrics
//	GET  /{service}/{sessionKey}            SSE stream
//	POST /{service}/{sessionKey}/messages/  JSON-RPC message for a stream
func (r *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Get("/", r.handleHealth)
	mux.Get("/health", r.handleHealth)
	mux.Get("/health_check", r.handleHealth)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics.Handler())
	}

	mux.Get("/{service}/{sessionKey}", r.handleStream)
	mux.Post("/{service}/{sessionKey}/messages", r.handleMessage)
	mux.Post("/{service}/{sessionKey}/messages/", r.handleMessage)
	return mux
}

type healthResponse struct {
	Status  string   `json:"status"`
	Servers []string `json:"servers"`
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Servers: r.registry.Names()}); err != nil {
		r.log.Error("failed to encode health response", "error", err)
	}
}

func messagesPath(service, encodedKey string) string {
	return fmt.Sprintf("/%s/%s/messages/", service, encodedKey)
}

func (r *Router) handleStream(w http.ResponseWriter, req *http.Request) {
	service := chi.URLParam(req, "service")
	encodedKey := chi.URLParam(req, "sessionKey")

	id := uuid.NewString()
	endpoint := messagesPath(service, encodedKey) + "?session_id=" + id
	sse := transport.NewSSE(id, endpoint, transport.WithKeepAlive(r.keepAlive))

	conn, err := r.Bind(req.Context(), service, encodedKey, sse)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.hub.Add(sse); err != nil {
		r.log.Error("failed to register stream", "error", err)
		conn.Instance().Detach(id)
		conn.fail()
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	defer r.hub.Delete(id)

	go conn.Serve(req.Context())

	if err := sse.Stream(req.Context(), w); err != nil {
		r.log.Debug("stream ended", "connection", id, "error", err)
	}
	_ = sse.Close()
	<-conn.Closed()
}

func (r *Router) handleMessage(w http.ResponseWriter, req *http.Request) {
	service := chi.URLParam(req, "service")
	encodedKey := chi.URLParam(req, "sessionKey")

	sessionID := req.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if _, ok := r.registry.Get(service); !ok {
		http.Error(w, fmt.Sprintf("Unknown service: %s", service), http.StatusNotFound)
		return
	}
	key, err := session.ParseKey(service, encodedKey)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, ok := r.store.Get(key); !ok {
		http.Error(w, "Could not find session", http.StatusNotFound)
		return
	}
	sse, ok := r.hub.Get(sessionID)
	if !ok || !strings.HasPrefix(sse.Endpoint(), messagesPath(service, encodedKey)+"?") {
		http.Error(w, "Could not find session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxMessageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Message too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("Error reading request body: %v", err), http.StatusBadRequest)
		return
	}
	if _, err := jsonrpc2.DecodeMessage(body); err != nil {
		http.Error(w, fmt.Sprintf("Error parsing JSON-RPC message: %v", err), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), deliverTimeout)
	defer cancel()
	if err := sse.Deliver(ctx, body); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			http.Error(w, "Could not find session", http.StatusNotFound)
			return
		}
		http.Error(w, "Session is busy", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	if _, err := w.Write([]byte("Accepted")); err != nil {
		r.log.Warn("failed to write response", "error", err)
	}
}

// writeError reports a bind or request failure with the status its type maps to.
func writeError(w http.ResponseWriter, err error) {
	status := mcperrors.HTTPStatus(err)
	msg := err.Error()
	var typed *mcperrors.Error
	if errors.As(err, &typed) {
		msg = typed.Message
	}
	http.Error(w, msg, status)
}
