// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/mcpbridge/pkg/adapter"
)

// guildPermissions is the bot's effective guild-level permission set.
type guildPermissions struct {
	value       int64
	owner       bool
	topPosition int
	roles       map[string]*discordgo.Role
}

// botPermissions computes the bot's guild permissions from its roles. A text
// result is returned when the guild or the bot's membership cannot be read.
func (a *Adapter) botPermissions(ctx context.Context, guildID string) (*guildPermissions, *mcp.CallToolResult) {
	guild, res := a.lookupGuild(ctx, guildID)
	if res != nil {
		return nil, res
	}
	botID := a.client.BotUserID()
	member, err := a.client.GuildMember(ctx, guildID, botID)
	if err != nil {
		return nil, adapter.TextResult("Failed to read bot membership in server %s: %s", guildID, restMessage(err))
	}
	roles, err := a.client.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, adapter.TextResult("Failed to read roles of server %s: %s", guildID, restMessage(err))
	}

	perms := &guildPermissions{
		owner: guild.OwnerID != "" && guild.OwnerID == botID,
		roles: make(map[string]*discordgo.Role, len(roles)),
	}
	for _, r := range roles {
		perms.roles[r.ID] = r
	}
	// @everyone shares the guild's ID
	if everyone := perms.roles[guildID]; everyone != nil {
		perms.value |= everyone.Permissions
	}
	for _, id := range member.Roles {
		r := perms.roles[id]
		if r == nil {
			continue
		}
		perms.value |= r.Permissions
		perms.topPosition = max(perms.topPosition, r.Position)
	}
	if perms.owner || perms.value&discordgo.PermissionAdministrator != 0 {
		perms.value = discordgo.PermissionAll
	}
	return perms, nil
}

// requirePermission returns a text result when the bot lacks perm.
func (a *Adapter) requirePermission(ctx context.Context, guildID string, perm int64, action string) *mcp.CallToolResult {
	perms, res := a.botPermissions(ctx, guildID)
	if res != nil {
		return res
	}
	if perms.value&perm == 0 {
		return adapter.TextResult("Bot does not have permission to %s", action)
	}
	return nil
}
