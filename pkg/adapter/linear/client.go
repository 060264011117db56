// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

const (
	// DefaultEndpoint is Linear's GraphQL API.
	DefaultEndpoint = "https://api.linear.app/graphql"

	// client-side request budget per adapter instance
	requestsPerSecond = 1
	requestBurst      = 20

	maxResponseBytes = 8 << 20
)

var (
	errRateLimited = errors.New("linear rate limit exceeded")
	errGraphQL     = errors.New("linear GraphQL error")
)

// Client executes GraphQL operations against Linear.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Client. httpClient must add the Authorization header,
// typically an oauth2 client.
func NewClient(httpClient *http.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		limiter:  rate.NewLimiter(requestsPerSecond, requestBurst),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Execute runs query and returns its "data" member.
//
// A 401 is a CredentialError; network failures, 429 and 5xx responses and
// GraphQL errors are UpstreamErrors.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, mcperrors.NewUpstreamError("linear request cancelled while rate limited", err)
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to encode GraphQL request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, mcperrors.NewUpstreamError("failed to read linear response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return gjson.Result{}, mcperrors.NewCredentialError(
			"linear rejected the access token; run 'mcpbridge auth linear' again", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return gjson.Result{}, mcperrors.NewUpstreamError("linear request failed", errRateLimited)
	case resp.StatusCode >= 300 && !gjson.ValidBytes(payload):
		return gjson.Result{}, mcperrors.NewUpstreamError(
			fmt.Sprintf("linear returned HTTP %d", resp.StatusCode), nil)
	}

	if !gjson.ValidBytes(payload) {
		return gjson.Result{}, mcperrors.NewUpstreamError("linear returned invalid JSON", nil)
	}
	if errs := gjson.GetBytes(payload, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		msgs := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			msgs = append(msgs, e.Get("message").String())
		}
		if gjson.GetBytes(payload, `errors.#(extensions.code=="RATELIMITED")`).Exists() {
			return gjson.Result{}, mcperrors.NewUpstreamError("linear request failed", errRateLimited)
		}
		return gjson.Result{}, mcperrors.NewUpstreamError("linear request failed",
			fmt.Errorf("%w: %s", errGraphQL, strings.Join(msgs, "; ")))
	}
	if resp.StatusCode >= 300 {
		return gjson.Result{}, mcperrors.NewUpstreamError(
			fmt.Sprintf("linear returned HTTP %d", resp.StatusCode), nil)
	}
	return gjson.GetBytes(payload, "data"), nil
}

// classifyTransportError separates token refresh failures from network errors.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mcperrors.NewUpstreamError("linear request cancelled", err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return mcperrors.NewCredentialError(
			"failed to refresh the linear access token; run 'mcpbridge auth linear' again", err)
	}
	return mcperrors.NewUpstreamError("linear is unreachable", err)
}
