// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package linear

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/stacklok/mcpbridge/pkg/adapter"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 250
	defaultPriority    = 2
)

var priorityByName = map[string]int{
	"no priority": 0,
	"low":         1,
	"medium":      2,
	"high":        3,
	"urgent":      4,
}

var (
	createIssueTool = withPriority(mcp.NewTool("create_issue",
		mcp.WithDescription("Create a new issue in Linear"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description")),
		mcp.WithString("team_id", mcp.Description("Team ID (optional)")),
		mcp.WithString("team", mcp.Description("Team name, used when team_id is not given (optional)")),
		mcp.WithString("assignee_id", mcp.Description("Assignee ID (optional)")),
		mcp.WithArray("labels", mcp.Description("Label IDs (optional)"), mcp.WithStringItems()),
		mcp.WithString("state_id", mcp.Description("State ID (optional)")),
	))
	searchIssuesTool = mcp.NewTool("search_issues",
		mcp.WithDescription("Search for issues in Linear"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithArray("team_ids", mcp.Description("Filter by teams (optional)"), mcp.WithStringItems()),
		mcp.WithArray("statuses", mcp.Description("Filter by statuses (optional)"), mcp.WithStringItems()),
		mcp.WithArray("assignee_ids", mcp.Description("Filter by assignees (optional)"), mcp.WithStringItems()),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default: 10)")),
	)
	listTeamsTool = mcp.NewTool("list_teams",
		mcp.WithDescription("List available teams in Linear workspace"),
	)
)

// withPriority adds the priority property, which accepts a number or a name.
func withPriority(tool mcp.Tool) mcp.Tool {
	tool.InputSchema.Properties["priority"] = map[string]any{
		"type":        []string{"integer", "string"},
		"description": "Priority 0-4 or one of: no priority, low, medium, high, urgent (optional)",
	}
	return tool
}

// Tools returns the linear tool descriptors. They do not depend on a session.
func Tools() []mcp.Tool {
	return []mcp.Tool{createIssueTool, searchIssuesTool, listTeamsTool}
}

const listTeamsQuery = `query { teams { nodes { id name key } } }`

const createIssueMutation = `mutation CreateIssue($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id title identifier url }
  }
}`

func (a *Adapter) createIssue(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	input := map[string]any{
		"title":       adapter.StringArg(args, "title"),
		"description": adapter.StringArg(args, "description"),
	}

	teamID := adapter.StringArg(args, "team_id")
	if teamName := adapter.StringArg(args, "team"); teamID == "" && teamName != "" {
		data, err := a.client.Execute(ctx, listTeamsQuery, nil)
		if err != nil {
			return nil, err
		}
		teamID = findTeamID(data, teamName)
	}
	if teamID != "" {
		input["teamId"] = teamID
	}
	if v := adapter.StringArg(args, "assignee_id"); v != "" {
		input["assigneeId"] = v
	}
	if _, ok := args["priority"]; ok {
		input["priority"] = priorityArg(args["priority"])
	}
	if labels := adapter.StringSliceArg(args, "labels"); len(labels) > 0 {
		input["labelIds"] = labels
	}
	if v := adapter.StringArg(args, "state_id"); v != "" {
		input["stateId"] = v
	}

	data, err := a.client.Execute(ctx, createIssueMutation, map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	if !data.Get("issueCreate.success").Bool() {
		return adapter.TextResult("Failed to create issue: Unknown error"), nil
	}
	issue := data.Get("issueCreate.issue")
	return adapter.TextResult("Issue created successfully: %s - %s\nURL: %s",
		issue.Get("identifier").String(), issue.Get("title").String(), issue.Get("url").String()), nil
}

// findTeamID matches a team by case-insensitive name.
func findTeamID(teams gjson.Result, name string) string {
	var id string
	teams.Get("teams.nodes").ForEach(func(_, team gjson.Result) bool {
		if strings.EqualFold(team.Get("name").String(), name) {
			id = team.Get("id").String()
			return false
		}
		return true
	})
	return id
}

// priorityArg accepts a number, a numeric string or a priority name. Anything
// else falls back to medium.
func priorityArg(v any) int {
	switch p := v.(type) {
	case float64:
		return adapter.ClampInt(adapter.FloatToInt(p, defaultPriority), 0, 4)
	case string:
		if n, ok := priorityByName[strings.ToLower(strings.TrimSpace(p))]; ok {
			return n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			return adapter.ClampInt(n, 0, 4)
		}
	}
	return defaultPriority
}

const searchIssuesQuery = `query($first: Int!, $filter: IssueFilter) {
  issues(first: $first, filter: $filter) {
    nodes {
      id title identifier url
      state { name }
      assignee { name }
    }
  }
}`

func (a *Adapter) searchIssues(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	limit := adapter.ClampInt(adapter.IntArg(args, "limit", defaultSearchLimit), 1, maxSearchLimit)
	filter := map[string]any{
		"title": map[string]any{"containsIgnoreCase": adapter.StringArg(args, "query")},
	}
	if ids := adapter.StringSliceArg(args, "team_ids"); len(ids) > 0 {
		filter["team"] = map[string]any{"id": map[string]any{"in": ids}}
	}
	if ids := adapter.StringSliceArg(args, "statuses"); len(ids) > 0 {
		filter["state"] = map[string]any{"id": map[string]any{"in": ids}}
	}
	if ids := adapter.StringSliceArg(args, "assignee_ids"); len(ids) > 0 {
		filter["assignee"] = map[string]any{"id": map[string]any{"in": ids}}
	}

	data, err := a.client.Execute(ctx, searchIssuesQuery, map[string]any{"first": limit, "filter": filter})
	if err != nil {
		return nil, err
	}

	var lines []string
	data.Get("issues.nodes").ForEach(func(_, issue gjson.Result) bool {
		status := issue.Get("state.name").String()
		if status == "" {
			status = "Unknown"
		}
		assignee := issue.Get("assignee.name").String()
		if assignee == "" {
			assignee = "Unassigned"
		}
		lines = append(lines, fmt.Sprintf("%s - %s [%s] - Assigned to: %s",
			issue.Get("identifier").String(), issue.Get("title").String(), status, assignee))
		return true
	})
	if len(lines) == 0 {
		return adapter.TextResult("No issues found matching your query."), nil
	}
	return adapter.TextResult("Found %d issues:\n\n%s", len(lines), strings.Join(lines, "\n")), nil
}

func (a *Adapter) listTeams(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	data, err := a.client.Execute(ctx, listTeamsQuery, nil)
	if err != nil {
		return nil, err
	}
	var lines []string
	data.Get("teams.nodes").ForEach(func(_, team gjson.Result) bool {
		lines = append(lines, fmt.Sprintf("%s (%s) - ID: %s",
			team.Get("name").String(), team.Get("key").String(), team.Get("id").String()))
		return true
	})
	if len(lines) == 0 {
		return adapter.TextResult("No teams found in your workspace."), nil
	}
	return adapter.TextResult("Available teams:\n\n%s", strings.Join(lines, "\n")), nil
}
