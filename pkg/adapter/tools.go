// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonschema"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

// ToolHandler implements one tool. args have already been checked against
// the tool's input schema.
type ToolHandler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

type registeredTool struct {
	tool    mcp.Tool
	handler ToolHandler
	schema  *gojsonschema.Schema
}

// ToolSet is an ordered, immutable-after-construction table of tools that
// validates arguments before dispatching.
type ToolSet struct {
	order []string
	tools map[string]*registeredTool
}

// NewToolSet creates an empty ToolSet.
func NewToolSet() *ToolSet {
	return &ToolSet{tools: make(map[string]*registeredTool)}
}

// Add registers tool with its handler. Registering a name twice replaces the
// earlier entry.
func (s *ToolSet) Add(tool mcp.Tool, handler ToolHandler) *ToolSet {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
	if err != nil {
		// required-key checks still apply without a compiled schema
		logger.Warnw("tool input schema does not compile", "tool", tool.Name, "error", err)
		schema = nil
	}
	if _, exists := s.tools[tool.Name]; !exists {
		s.order = append(s.order, tool.Name)
	}
	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler, schema: schema}
	return s
}

// Tools returns the descriptors in registration order.
func (s *ToolSet) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].tool)
	}
	return out
}

// Call validates args against the named tool and runs its handler.
func (s *ToolSet) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	rt, ok := s.tools[name]
	if !ok {
		return nil, UnknownToolError(name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := RequireArgs(args, rt.tool.InputSchema.Required...); err != nil {
		return nil, err
	}
	if err := validateSchema(rt.schema, args); err != nil {
		return nil, err
	}
	return rt.handler(ctx, args)
}

func validateSchema(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return InvalidArgumentError(fmt.Sprintf("arguments could not be validated: %v", err))
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, re.String())
	}
	return InvalidArgumentError(strings.Join(msgs, "; "))
}

// UnknownToolError reports a tool name that is not offered.
func UnknownToolError(name string) error {
	return mcperrors.NewUnknownToolError("Unknown tool: "+name, ErrUnknownTool)
}

// InvalidArgumentError reports a malformed tool request.
func InvalidArgumentError(msg string) error {
	return mcperrors.NewInvalidArgumentError(msg, ErrInvalidArgument)
}

// RequireArgs fails with ErrInvalidArgument when any key is absent or null.
func RequireArgs(args map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if v, ok := args[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return InvalidArgumentError("Missing required parameters: " + strings.Join(missing, ", "))
}

// StringArg returns args[key] as a string, or "".
func StringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// IntArg returns args[key] as an int, or def when absent or not numeric.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return FloatToInt(v, def)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return FloatToInt(f, def)
		}
	}
	return def
}

// FloatToInt truncates v, saturating at the int range. NaN yields def.
func FloatToInt(v float64, def int) int {
	switch {
	case math.IsNaN(v):
		return def
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(v)
}

// BoolArg returns args[key] as a bool, or def.
func BoolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// StringSliceArg returns the string elements of args[key].
func StringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		if ss, ok := args[key].([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TextResult is a successful tool result carrying formatted text.
func TextResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf(format, args...))
}

// JSONResult is a successful tool result carrying v as indented JSON.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// TextContents wraps text as the single content of a resource read.
func TextContents(uri, mimeType, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeType, Text: text},
	}
}
