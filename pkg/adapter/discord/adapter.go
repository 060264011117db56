// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package discord exposes a Discord bot account as MCP resources (guild text
// channels) and tools (messaging and moderation).
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

// ServiceName is the registry name of this adapter.
const ServiceName = "discord"

const (
	resourceMessageLimit = 25
	textMIMEType         = "text/plain"
)

// InitOptions describes the MCP server a discord session is served as.
func InitOptions() adapter.InitOptions {
	return adapter.InitOptions{
		ServerName:    "discord-server",
		ServerVersion: "1.0.0",
		Instructions:  "Read and post messages in Discord channels and moderate guild members through a bot account.",
	}
}

// Adapter serves one user's Discord bot.
type Adapter struct {
	client Client
	ready  *adapter.Readiness
	tools  *adapter.ToolSet
	cancel context.CancelFunc
	log    *slog.Logger
}

// Factory builds a discord adapter with the discordgo client.
var Factory = NewFactory(NewSessionClient)

// NewFactory returns an adapter.Factory that creates clients with newClient.
// The returned adapter is ready: the gateway login has completed.
func NewFactory(newClient ClientFactory) adapter.Factory {
	return func(ctx context.Context, params adapter.Params) (adapter.Adapter, error) {
		creds, err := adapter.LoadCredentials(ctx, params)
		if err != nil {
			return nil, err
		}
		token := creds.Token()
		if token == "" {
			return nil, mcperrors.NewCredentialError(
				fmt.Sprintf("stored discord credentials for user %s have no token; run 'mcpbridge auth discord --user %s'",
					params.UserID, params.UserID),
				nil)
		}

		client, err := newClient(token)
		if err != nil {
			return nil, mcperrors.NewInternalError("failed to create discord client", err)
		}

		a := New(client, params.UserID)
		if err := a.WaitReady(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		return a, nil
	}
}

// New wraps client and starts connecting it in the background. Operations
// block until the connection is ready.
func New(client Client, userID string) *Adapter {
	connectCtx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		client: client,
		ready:  adapter.NewReadiness(),
		cancel: cancel,
		log:    logger.Component("discord").With("user", userID),
	}
	a.tools = a.buildTools()

	go func() {
		err := client.Open(connectCtx)
		if err == nil {
			a.log.Info("discord bot connected", "bot_user", client.BotUserID())
		}
		a.ready.Signal(classifyOpenError(err))
	}()
	return a
}

// WaitReady blocks until the gateway login completed or ctx ends.
func (a *Adapter) WaitReady(ctx context.Context) error {
	err := a.ready.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		return mcperrors.NewTimeoutError("discord client did not become ready", err)
	}
	return err
}

// Close disconnects the gateway.
func (a *Adapter) Close() error {
	a.cancel()
	return a.client.Close()
}

// ListResources lists every text channel in every guild the bot is in.
func (a *Adapter) ListResources(ctx context.Context, _ string) (*adapter.ResourcePage, error) {
	if err := a.WaitReady(ctx); err != nil {
		return nil, err
	}

	var resources []mcp.Resource
	for _, guild := range a.client.Guilds() {
		channels, err := a.client.GuildChannels(ctx, guild.ID)
		if err != nil {
			return nil, mcperrors.NewUpstreamError(
				fmt.Sprintf("failed to list channels of guild %s", guild.ID), err)
		}
		for _, ch := range channels {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			resources = append(resources, mcp.NewResource(
				ChannelURI(guild.ID, ch.ID),
				guild.Name+"/"+ch.Name,
				mcp.WithMIMEType(textMIMEType),
			))
		}
	}
	return &adapter.ResourcePage{Resources: resources}, nil
}

// ReadResource returns the most recent messages of the channel at uri.
func (a *Adapter) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	if err := a.WaitReady(ctx); err != nil {
		return nil, err
	}

	_, channelID, err := ParseChannelURI(uri)
	if err != nil {
		return adapter.TextContents(uri, textMIMEType, "Error reading resource: "+err.Error()), nil
	}

	messages, err := a.client.ChannelMessages(ctx, channelID, resourceMessageLimit)
	switch {
	case isNotFound(err):
		return adapter.TextContents(uri, textMIMEType, "Channel not found: "+channelID), nil
	case isForbidden(err):
		return adapter.TextContents(uri, textMIMEType,
			"Bot does not have permission to read messages in channel "+channelID), nil
	case err != nil:
		a.log.Warn("failed to read channel", "channel", channelID, "error", err)
		return adapter.TextContents(uri, textMIMEType, "Error reading resource: "+restMessage(err)), nil
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, formatMessage(m))
	}
	return adapter.TextContents(uri, textMIMEType, strings.Join(lines, "\n")), nil
}

// ListTools returns the discord tool descriptors.
func (a *Adapter) ListTools() []mcp.Tool {
	return a.tools.Tools()
}

// CallTool runs the named tool once the client is ready.
func (a *Adapter) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if err := a.WaitReady(ctx); err != nil {
		return nil, err
	}
	a.log.Debug("calling tool", "tool", name)
	return a.tools.Call(ctx, name, args)
}

func formatMessage(m *discordgo.Message) string {
	author := "unknown"
	if m.Author != nil {
		author = m.Author.Username
	}
	return fmt.Sprintf("%s (%s): %s", author, m.Timestamp.UTC().Format("2006-01-02 15:04:05-07:00"), m.Content)
}
