// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package linear exposes a Linear workspace as MCP resources (issues) and
// tools (create, search, list teams) over Linear's GraphQL API.
package linear

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/oauth"
)

// ServiceName is the registry name of this adapter.
const ServiceName = "linear"

const (
	// DefaultAuthURL is Linear's authorization endpoint.
	DefaultAuthURL = "https://linear.app/oauth/authorize"
	// DefaultTokenURL is Linear's token endpoint.
	DefaultTokenURL = "https://api.linear.app/oauth/token"

	issueMIMEType = "application/linear.issue+json"
	uriPrefix     = "linear:///"
	pageSize      = 10
)

// Scopes requested by the auth flow.
var Scopes = []string{"read", "write", "issues:create"}

// Options override Linear's endpoints.
type Options struct {
	Endpoint string
	AuthURL  string
	TokenURL string
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.AuthURL == "" {
		o.AuthURL = DefaultAuthURL
	}
	if o.TokenURL == "" {
		o.TokenURL = DefaultTokenURL
	}
	return o
}

// InitOptions describes the MCP server a linear session is served as.
func InitOptions() adapter.InitOptions {
	return adapter.InitOptions{
		ServerName:    "linear-server",
		ServerVersion: "1.0.0",
		Instructions:  "Browse, search and create issues in a Linear workspace.",
	}
}

// Adapter serves one user's Linear workspace.
type Adapter struct {
	client *Client
	tools  *adapter.ToolSet
	log    *slog.Logger
}

// Factory builds linear adapters against the public API.
var Factory = NewFactory(Options{})

// NewFactory returns an adapter.Factory using opts.
//
// Stored tokens are refreshed shortly before they expire when a refresh
// token and the service's OAuth client registration are available; refreshed
// tokens are written back through the resolver.
func NewFactory(opts Options) adapter.Factory {
	opts = opts.withDefaults()
	return func(ctx context.Context, params adapter.Params) (adapter.Adapter, error) {
		creds, err := adapter.LoadCredentials(ctx, params)
		if err != nil {
			return nil, err
		}
		if creds.Token() == "" {
			return nil, mcperrors.NewCredentialError(
				fmt.Sprintf("stored linear credentials for user %s have no access token; run 'mcpbridge auth linear --user %s'",
					params.UserID, params.UserID),
				nil)
		}

		ts := tokenSource(ctx, params, creds, opts)
		httpClient := oauth2.NewClient(context.WithoutCancel(ctx), ts)
		return New(NewClient(httpClient, opts.Endpoint), params.UserID), nil
	}
}

func tokenSource(ctx context.Context, params adapter.Params, creds credentials.Credentials, opts Options) oauth2.TokenSource {
	tok := creds.OAuth2Token()
	if tok.RefreshToken == "" || params.OAuthConfigs == nil {
		return oauth2.StaticTokenSource(tok)
	}
	oauthCfg, err := params.OAuthConfigs.GetOAuthConfig(ctx, params.Service)
	if err != nil || oauthCfg.Validate() != nil {
		logger.Warnw("token refresh disabled: no usable OAuth client registration",
			"service", params.Service, "user", params.UserID, "error", err)
		return oauth2.StaticTokenSource(tok)
	}

	config := &oauth2.Config{
		ClientID:     oauthCfg.ClientID,
		ClientSecret: oauthCfg.ClientSecret,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	persist := func(ctx context.Context, fresh *oauth2.Token) error {
		return params.Credentials.SaveCredentials(credentials.WithAPIKey(ctx, params.APIKey),
			params.Service, params.UserID, credentials.FromOAuth2Token(fresh))
	}
	return oauth.NewRefreshingTokenSource(context.WithoutCancel(ctx), config, tok, oauth.DefaultRefreshSkew, persist)
}

// New creates an adapter over client.
func New(client *Client, userID string) *Adapter {
	a := &Adapter{
		client: client,
		log:    logger.Component("linear").With("user", userID),
	}
	a.tools = adapter.NewToolSet().
		Add(createIssueTool, a.createIssue).
		Add(searchIssuesTool, a.searchIssues).
		Add(listTeamsTool, a.listTeams)
	return a
}

const listIssuesQuery = `query($first: Int!, $cursor: String) {
  issues(first: $first, after: $cursor) {
    nodes { id title identifier state { name } }
    pageInfo { hasNextPage endCursor }
  }
}`

// ListResources lists one page of issues.
func (a *Adapter) ListResources(ctx context.Context, cursor string) (*adapter.ResourcePage, error) {
	vars := map[string]any{"first": pageSize}
	if cursor != "" {
		vars["cursor"] = cursor
	}
	data, err := a.client.Execute(ctx, listIssuesQuery, vars)
	if err != nil {
		return nil, err
	}

	page := &adapter.ResourcePage{}
	data.Get("issues.nodes").ForEach(func(_, issue gjson.Result) bool {
		page.Resources = append(page.Resources, mcp.NewResource(
			uriPrefix+issue.Get("id").String(),
			issue.Get("identifier").String()+": "+issue.Get("title").String(),
			mcp.WithMIMEType(issueMIMEType),
		))
		return true
	})
	if data.Get("issues.pageInfo.hasNextPage").Bool() {
		page.NextCursor = data.Get("issues.pageInfo.endCursor").String()
	}
	return page, nil
}

const readIssueQuery = `query($issueId: String!) {
  issue(id: $issueId) {
    id title identifier description url priority
    state { name }
    assignee { name }
    labels { nodes { name } }
    team { name }
  }
}`

type issueDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Identifier  string   `json:"identifier"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Status      string   `json:"status"`
	Assignee    string   `json:"assignee"`
	Priority    int64    `json:"priority"`
	Labels      []string `json:"labels"`
	Team        string   `json:"team"`
}

// ReadResource returns the issue at a linear:///{id} URI as JSON. Failures
// are reported as {"error": ...} documents.
func (a *Adapter) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	issueID, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok || issueID == "" || strings.Contains(issueID, "/") {
		return errorDocument(uri, fmt.Sprintf("Invalid URI format: %s", uri)), nil
	}

	data, err := a.client.Execute(ctx, readIssueQuery, map[string]any{"issueId": issueID})
	if mcperrors.IsCredential(err) {
		return nil, err
	}
	if err != nil {
		a.log.Warn("failed to read issue", "issue", issueID, "error", err)
		return errorDocument(uri, describeUpstream(err)), nil
	}
	issue := data.Get("issue")
	if !issue.IsObject() {
		return errorDocument(uri, "Issue not found: "+issueID), nil
	}

	doc := issueDocument{
		ID:          issue.Get("id").String(),
		Title:       issue.Get("title").String(),
		Identifier:  issue.Get("identifier").String(),
		Description: issue.Get("description").String(),
		URL:         issue.Get("url").String(),
		Status:      issue.Get("state.name").String(),
		Assignee:    "Unassigned",
		Priority:    issue.Get("priority").Int(),
		Labels:      []string{},
		Team:        issue.Get("team.name").String(),
	}
	if name := issue.Get("assignee.name"); name.Exists() && name.String() != "" {
		doc.Assignee = name.String()
	}
	issue.Get("labels.nodes.#.name").ForEach(func(_, name gjson.Result) bool {
		doc.Labels = append(doc.Labels, name.String())
		return true
	})

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, mcperrors.NewInternalError("failed to encode issue", err)
	}
	return adapter.TextContents(uri, "application/json", string(body)), nil
}

func errorDocument(uri, msg string) []mcp.ResourceContents {
	body, _ := json.MarshalIndent(map[string]string{"error": msg}, "", "  ")
	return adapter.TextContents(uri, "application/json", string(body))
}

// describeUpstream is the text shown to the caller for a recoverable failure.
func describeUpstream(err error) string {
	if errors.Is(err, errRateLimited) {
		return "Linear rate limit exceeded, try again later"
	}
	var typed *mcperrors.Error
	if errors.As(err, &typed) {
		if typed.Cause != nil {
			return typed.Message + ": " + typed.Cause.Error()
		}
		return typed.Message
	}
	return err.Error()
}

// ListTools returns the linear tool descriptors.
func (a *Adapter) ListTools() []mcp.Tool {
	return a.tools.Tools()
}

// CallTool runs the named tool. Upstream failures are returned as text;
// a rejected token is returned as a CredentialError.
func (a *Adapter) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	a.log.Debug("calling tool", "tool", name)
	res, err := a.tools.Call(ctx, name, args)
	if err == nil || !mcperrors.IsUpstream(err) {
		return res, err
	}
	a.log.Warn("tool failed upstream", "tool", name, "error", err)
	return adapter.TextResult("Error executing %s: %s", name, describeUpstream(err)), nil
}
