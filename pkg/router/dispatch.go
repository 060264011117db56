// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/session"
)

const (
	methodListResources = "resources/list"
	methodReadResource  = "resources/read"
)

type listResourcesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type listResourcesResult struct {
	Resources  []mcp.Resource `json:"resources"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

type readResourceParams struct {
	URI string `json:"uri"`
}

type readResourceResult struct {
	Contents []mcp.ResourceContents `json:"contents"`
}

// dispatch handles one inbound message and returns the encoded reply, or nil
// when none is due (notifications and client responses).
func dispatch(ctx context.Context, inst *session.Instance, raw json.RawMessage, m *Metrics) (json.RawMessage, error) {
	msg, err := jsonrpc2.DecodeMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JSON-RPC message: %w", err)
	}
	req, ok := msg.(*jsonrpc2.Request)
	if !ok {
		return nil, nil
	}
	m.message(inst.Key.Service, req.Method)

	var (
		result any
		rpcErr error
	)
	switch req.Method {
	case methodListResources:
		result, rpcErr = listResources(ctx, inst.Adapter, req.Params)
	case methodReadResource:
		result, rpcErr = readResource(ctx, inst.Adapter, req.Params)
	default:
		reply := inst.Server.HandleMessage(ctx, raw)
		if reply == nil {
			return nil, nil
		}
		return json.Marshal(reply)
	}

	if !req.IsCall() {
		return nil, nil
	}
	if rpcErr != nil {
		return jsonrpc2.EncodeMessage(&jsonrpc2.Response{ID: req.ID, Error: rpcErr})
	}
	resp, err := jsonrpc2.NewResponse(req.ID, result, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build response: %w", err)
	}
	return jsonrpc2.EncodeMessage(resp)
}

func listResources(ctx context.Context, a adapter.Adapter, raw json.RawMessage) (any, error) {
	var params listResourcesParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, jsonrpc2.NewError(mcp.INVALID_PARAMS, "invalid resources/list params: "+err.Error())
		}
	}
	page, err := a.ListResources(ctx, params.Cursor)
	if err != nil {
		return nil, toRPCError(err)
	}
	result := listResourcesResult{Resources: page.Resources, NextCursor: page.NextCursor}
	if result.Resources == nil {
		result.Resources = []mcp.Resource{}
	}
	return result, nil
}

func readResource(ctx context.Context, a adapter.Adapter, raw json.RawMessage) (any, error) {
	var params readResourceParams
	if err := json.Unmarshal(raw, &params); err != nil || params.URI == "" {
		return nil, jsonrpc2.NewError(mcp.INVALID_PARAMS, "resources/read requires a uri")
	}
	contents, err := a.ReadResource(ctx, params.URI)
	if err != nil {
		return nil, toRPCError(err)
	}
	if contents == nil {
		contents = []mcp.ResourceContents{}
	}
	return readResourceResult{Contents: contents}, nil
}

// toRPCError maps adapter failures onto JSON-RPC error codes.
func toRPCError(err error) error {
	code := int64(mcp.INTERNAL_ERROR)
	switch {
	case errors.Is(err, adapter.ErrInvalidArgument), mcperrors.IsInvalidArgument(err):
		code = mcp.INVALID_PARAMS
	case errors.Is(err, adapter.ErrUnknownTool), mcperrors.IsUnknownTool(err):
		code = mcp.METHOD_NOT_FOUND
	}
	return jsonrpc2.NewError(code, err.Error())
}
