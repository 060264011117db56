// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/mcpbridge/pkg/adapter"
)

// Clamping bounds for list-style arguments.
const (
	defaultReadLimit   = 10
	maxReadLimit       = 100
	defaultMemberLimit = 50
	maxMemberLimit     = 1000
	maxBanDeleteDays   = 7
	defaultEmbedColor  = 0x3498db
)

var (
	sendMessageTool = mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to a Discord channel"),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Discord channel ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message content to send")),
	)
	readMessagesTool = mcp.NewTool("read_messages",
		mcp.WithDescription("Read recent messages from a Discord channel"),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Discord channel ID")),
		mcp.WithNumber("limit", mcp.Description("Number of messages to read (default: 10, max: 100)")),
	)
	addReactionTool = mcp.NewTool("add_reaction",
		mcp.WithDescription("Add a reaction to a message"),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Discord channel ID")),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("Message ID to react to")),
		mcp.WithString("emoji", mcp.Required(), mcp.Description("Emoji to react with")),
	)
	editMessageTool = mcp.NewTool("edit_message",
		mcp.WithDescription("Edit an existing message sent by the bot"),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Discord channel ID")),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("Message ID to edit")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New message content")),
	)
	deleteMessageTool = mcp.NewTool("delete_message",
		mcp.WithDescription("Delete a message from a channel"),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Discord channel ID")),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("Message ID to delete")),
	)
	sendEmbedTool = mcp.NewTool("send_embed",
		mcp.WithDescription("Send a rich embed message to a channel"),
		mcp.WithString("channel_id", mcp.Required(), mcp.Description("Discord channel ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Embed title")),
		mcp.WithString("description", mcp.Description("Embed description")),
		mcp.WithString("color", mcp.Description("Embed color in hex (e.g., '#FF0000')")),
		mcp.WithString("footer", mcp.Description("Embed footer text")),
		mcp.WithString("image_url", mcp.Description("URL for embed image")),
		mcp.WithString("thumbnail_url", mcp.Description("URL for embed thumbnail")),
		mcp.WithArray("fields",
			mcp.Description("List of fields (name, value, inline)"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":   map[string]any{"type": "string"},
					"value":  map[string]any{"type": "string"},
					"inline": map[string]any{"type": "boolean"},
				},
			}),
		),
	)
	getUserInfoTool = mcp.NewTool("get_user_info",
		mcp.WithDescription("Retrieve information about a user"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Discord user ID")),
	)
	sendDMTool = mcp.NewTool("send_dm",
		mcp.WithDescription("Send a direct message to a user"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Discord user ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message content to send")),
	)
	banMemberTool = mcp.NewTool("ban_member",
		mcp.WithDescription("Ban a member from a server"),
		mcp.WithString("guild_id", mcp.Required(), mcp.Description("Discord server/guild ID")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID to ban")),
		mcp.WithString("reason", mcp.Description("Reason for the ban")),
		mcp.WithNumber("delete_message_days", mcp.Description("Number of days of messages to delete (0-7)")),
	)
	kickMemberTool = mcp.NewTool("kick_member",
		mcp.WithDescription("Kick a member from a server"),
		mcp.WithString("guild_id", mcp.Required(), mcp.Description("Discord server/guild ID")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID to kick")),
		mcp.WithString("reason", mcp.Description("Reason for the kick")),
	)
	muteMemberTool = mcp.NewTool("mute_member",
		mcp.WithDescription("Mute or unmute a member in voice channels"),
		mcp.WithString("guild_id", mcp.Required(), mcp.Description("Discord server/guild ID")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID to mute/unmute")),
		mcp.WithBoolean("mute", mcp.Required(), mcp.Description("True to mute, False to unmute")),
	)
	assignRoleTool = mcp.NewTool("assign_role",
		mcp.WithDescription("Add or remove a role from a member"),
		mcp.WithString("guild_id", mcp.Required(), mcp.Description("Discord server/guild ID")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID")),
		mcp.WithString("role_id", mcp.Required(), mcp.Description("Role ID to add/remove")),
		mcp.WithBoolean("add", mcp.Required(), mcp.Description("True to add the role, False to remove it")),
	)
	listMembersTool = mcp.NewTool("list_members",
		mcp.WithDescription("Get a list of members in a server"),
		mcp.WithString("guild_id", mcp.Required(), mcp.Description("Discord server/guild ID")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of members to fetch (default: 50, max: 1000)")),
	)
)

// Tools returns the discord tool descriptors. They do not depend on a session.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		sendMessageTool, readMessagesTool, addReactionTool, editMessageTool, deleteMessageTool,
		sendEmbedTool, getUserInfoTool, sendDMTool, banMemberTool, kickMemberTool,
		muteMemberTool, assignRoleTool, listMembersTool,
	}
}

func (a *Adapter) buildTools() *adapter.ToolSet {
	return adapter.NewToolSet().
		Add(sendMessageTool, a.sendMessage).
		Add(readMessagesTool, a.readMessages).
		Add(addReactionTool, a.addReaction).
		Add(editMessageTool, a.editMessage).
		Add(deleteMessageTool, a.deleteMessage).
		Add(sendEmbedTool, a.sendEmbed).
		Add(getUserInfoTool, a.getUserInfo).
		Add(sendDMTool, a.sendDM).
		Add(banMemberTool, a.banMember).
		Add(kickMemberTool, a.kickMember).
		Add(muteMemberTool, a.muteMember).
		Add(assignRoleTool, a.assignRole).
		Add(listMembersTool, a.listMembers)
}

// snowflakes reads the named ID arguments and rejects non-numeric values.
func snowflakes(args map[string]any, keys ...string) ([]string, error) {
	out := make([]string, len(keys))
	for i, key := range keys {
		id := adapter.StringArg(args, key)
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return nil, adapter.InvalidArgumentError(fmt.Sprintf("%s must be a Discord snowflake ID, got %q", key, id))
		}
		out[i] = id
	}
	return out, nil
}

func (a *Adapter) sendMessage(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "channel_id")
	if err != nil {
		return nil, err
	}
	channelID := ids[0]

	msg, err := a.client.SendMessage(ctx, channelID, adapter.StringArg(args, "content"))
	switch {
	case isNotFound(err):
		return adapter.TextResult("Channel not found: %s", channelID), nil
	case isForbidden(err):
		return adapter.TextResult("Bot does not have permission to send messages in channel %s", channelID), nil
	case err != nil:
		return adapter.TextResult("Failed to send message: %s", restMessage(err)), nil
	}
	return adapter.TextResult("Message sent successfully. Message ID: %s", msg.ID), nil
}

func (a *Adapter) readMessages(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "channel_id")
	if err != nil {
		return nil, err
	}
	channelID := ids[0]
	limit := adapter.ClampInt(adapter.IntArg(args, "limit", defaultReadLimit), 1, maxReadLimit)

	channel, err := a.client.Channel(ctx, channelID)
	if err != nil {
		return channelFailure(channelID, err), nil
	}
	messages, err := a.client.ChannelMessages(ctx, channelID, limit)
	if err != nil {
		return channelFailure(channelID, err), nil
	}

	entries := make([]string, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, fmt.Sprintf("%s\nMessage ID: %s | Reactions: %s",
			formatMessage(m), m.ID, formatReactions(m.Reactions)))
	}
	return adapter.TextResult("Recent messages from channel %s:\n\n%s", channel.Name, strings.Join(entries, "\n\n")), nil
}

func channelFailure(channelID string, err error) *mcp.CallToolResult {
	switch {
	case isNotFound(err):
		return adapter.TextResult("Channel not found: %s", channelID)
	case isForbidden(err):
		return adapter.TextResult("Bot does not have permission to read messages in channel %s", channelID)
	default:
		return adapter.TextResult("Failed to read channel %s: %s", channelID, restMessage(err))
	}
}

func formatReactions(reactions []*discordgo.MessageReactions) string {
	if len(reactions) == 0 {
		return "No reactions"
	}
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		name := ""
		if r.Emoji != nil {
			name = r.Emoji.Name
		}
		parts = append(parts, fmt.Sprintf("%s(%d)", name, r.Count))
	}
	return strings.Join(parts, ", ")
}

func (a *Adapter) addReaction(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "channel_id", "message_id")
	if err != nil {
		return nil, err
	}
	channelID, messageID := ids[0], ids[1]
	emoji := adapter.StringArg(args, "emoji")

	if res := a.lookupMessage(ctx, channelID, messageID); res != nil {
		return res, nil
	}
	if err := a.client.AddReaction(ctx, channelID, messageID, emoji); err != nil {
		return adapter.TextResult("Failed to add reaction: %s", restMessage(err)), nil
	}
	return adapter.TextResult("Added reaction %s to message %s", emoji, messageID), nil
}

// lookupMessage returns a text result when the channel or message cannot be
// fetched, nil when it exists.
func (a *Adapter) lookupMessage(ctx context.Context, channelID, messageID string) *mcp.CallToolResult {
	_, res := a.fetchMessage(ctx, channelID, messageID)
	return res
}

func (a *Adapter) fetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, *mcp.CallToolResult) {
	if _, err := a.client.Channel(ctx, channelID); err != nil {
		return nil, channelFailure(channelID, err)
	}
	msg, err := a.client.ChannelMessage(ctx, channelID, messageID)
	switch {
	case isNotFound(err):
		return nil, adapter.TextResult("Message not found: %s", messageID)
	case err != nil:
		return nil, channelFailure(channelID, err)
	}
	return msg, nil
}

func (a *Adapter) editMessage(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "channel_id", "message_id")
	if err != nil {
		return nil, err
	}
	channelID, messageID := ids[0], ids[1]

	msg, res := a.fetchMessage(ctx, channelID, messageID)
	if res != nil {
		return res, nil
	}
	if msg.Author == nil || msg.Author.ID != a.client.BotUserID() {
		return adapter.TextResult("Cannot edit messages sent by other users"), nil
	}
	if _, err := a.client.EditMessage(ctx, channelID, messageID, adapter.StringArg(args, "content")); err != nil {
		return adapter.TextResult("Failed to edit message: %s", restMessage(err)), nil
	}
	return adapter.TextResult("Message %s edited successfully", messageID), nil
}

func (a *Adapter) deleteMessage(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "channel_id", "message_id")
	if err != nil {
		return nil, err
	}
	channelID, messageID := ids[0], ids[1]

	if res := a.lookupMessage(ctx, channelID, messageID); res != nil {
		return res, nil
	}
	err = a.client.DeleteMessage(ctx, channelID, messageID)
	switch {
	case isForbidden(err):
		return adapter.TextResult("Bot does not have permission to delete message %s", messageID), nil
	case err != nil:
		return adapter.TextResult("Failed to delete message: %s", restMessage(err)), nil
	}
	return adapter.TextResult("Message %s deleted successfully", messageID), nil
}

func (a *Adapter) sendEmbed(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "channel_id")
	if err != nil {
		return nil, err
	}
	channelID := ids[0]

	embed, err := buildEmbed(args)
	if err != nil {
		return nil, err
	}
	msg, err := a.client.SendEmbed(ctx, channelID, embed)
	switch {
	case isNotFound(err):
		return adapter.TextResult("Channel not found: %s", channelID), nil
	case isForbidden(err):
		return adapter.TextResult("Bot does not have permission to send messages in channel %s", channelID), nil
	case err != nil:
		return adapter.TextResult("Failed to send embed: %s", restMessage(err)), nil
	}
	return adapter.TextResult("Embed sent successfully. Message ID: %s", msg.ID), nil
}

func buildEmbed(args map[string]any) (*discordgo.MessageEmbed, error) {
	embed := &discordgo.MessageEmbed{
		Title:       adapter.StringArg(args, "title"),
		Description: adapter.StringArg(args, "description"),
		Color:       defaultEmbedColor,
	}
	if c := adapter.StringArg(args, "color"); c != "" {
		color, err := strconv.ParseInt(strings.TrimPrefix(c, "#"), 16, 32)
		if err != nil {
			return nil, adapter.InvalidArgumentError(fmt.Sprintf("color must be a hex value like '#FF0000', got %q", c))
		}
		embed.Color = int(color)
	}
	if footer := adapter.StringArg(args, "footer"); footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}
	if image := adapter.StringArg(args, "image_url"); image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: image}
	}
	if thumb := adapter.StringArg(args, "thumbnail_url"); thumb != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumb}
	}
	fields, _ := args["fields"].([]any)
	for _, f := range fields {
		field, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name, value := adapter.StringArg(field, "name"), adapter.StringArg(field, "value")
		if name == "" || value == "" {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  value,
			Inline: adapter.BoolArg(field, "inline", false),
		})
	}
	return embed, nil
}

type userInfo struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	DisplayName   string  `json:"display_name"`
	Discriminator string  `json:"discriminator"`
	AvatarURL     *string `json:"avatar_url"`
	Bot           bool    `json:"bot"`
	System        bool    `json:"system"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

func (a *Adapter) getUserInfo(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "user_id")
	if err != nil {
		return nil, err
	}
	userID := ids[0]

	user, err := a.client.User(ctx, userID)
	switch {
	case isNotFound(err):
		return adapter.TextResult("User not found: %s", userID), nil
	case err != nil:
		return adapter.TextResult("Failed to fetch user: %s", restMessage(err)), nil
	}

	info := userInfo{
		ID:            user.ID,
		Name:          user.Username,
		DisplayName:   displayName(user, ""),
		Discriminator: user.Discriminator,
		Bot:           user.Bot,
		System:        user.System,
	}
	if user.Avatar != "" {
		avatar := user.AvatarURL("")
		info.AvatarURL = &avatar
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		info.CreatedAt = created.UTC().Format(time.RFC3339)
	}
	return adapter.JSONResult(info)
}

func displayName(user *discordgo.User, nick string) string {
	switch {
	case nick != "":
		return nick
	case user == nil:
		return ""
	case user.GlobalName != "":
		return user.GlobalName
	default:
		return user.Username
	}
}

func (a *Adapter) sendDM(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "user_id")
	if err != nil {
		return nil, err
	}
	userID := ids[0]

	if _, err := a.client.User(ctx, userID); err != nil {
		if isNotFound(err) {
			return adapter.TextResult("User not found: %s", userID), nil
		}
		return adapter.TextResult("Failed to fetch user: %s", restMessage(err)), nil
	}
	dm, err := a.client.CreateDM(ctx, userID)
	if err != nil {
		return adapter.TextResult("Failed to open DM channel: %s", restMessage(err)), nil
	}
	msg, err := a.client.SendMessage(ctx, dm.ID, adapter.StringArg(args, "content"))
	switch {
	case isForbidden(err):
		return adapter.TextResult("Cannot send direct messages to user %s", userID), nil
	case err != nil:
		return adapter.TextResult("Failed to send DM: %s", restMessage(err)), nil
	}
	return adapter.TextResult("DM sent successfully. Message ID: %s", msg.ID), nil
}

func (a *Adapter) banMember(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "guild_id", "user_id")
	if err != nil {
		return nil, err
	}
	guildID, userID := ids[0], ids[1]
	reason := reasonArg(args)
	days := adapter.ClampInt(adapter.IntArg(args, "delete_message_days", 0), 0, maxBanDeleteDays)

	if res := a.requirePermission(ctx, guildID, discordgo.PermissionBanMembers, "ban members"); res != nil {
		return res, nil
	}
	err = a.client.Ban(ctx, guildID, userID, reason, days)
	switch {
	case isForbidden(err):
		return adapter.TextResult("Insufficient permissions to ban this user"), nil
	case isNotFound(err):
		return adapter.TextResult("User not found: %s", userID), nil
	case err != nil:
		return adapter.TextResult("Failed to ban user: %s", restMessage(err)), nil
	}
	return adapter.TextResult("User %s banned successfully", userID), nil
}

func (a *Adapter) kickMember(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "guild_id", "user_id")
	if err != nil {
		return nil, err
	}
	guildID, userID := ids[0], ids[1]

	if res := a.requirePermission(ctx, guildID, discordgo.PermissionKickMembers, "kick members"); res != nil {
		return res, nil
	}
	if _, res := a.lookupMember(ctx, guildID, userID); res != nil {
		return res, nil
	}
	err = a.client.Kick(ctx, guildID, userID, reasonArg(args))
	switch {
	case isForbidden(err):
		return adapter.TextResult("Insufficient permissions to kick this user"), nil
	case err != nil:
		return adapter.TextResult("Failed to kick user: %s", restMessage(err)), nil
	}
	return adapter.TextResult("User %s kicked successfully", userID), nil
}

func (a *Adapter) muteMember(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "guild_id", "user_id")
	if err != nil {
		return nil, err
	}
	guildID, userID := ids[0], ids[1]
	mute := adapter.BoolArg(args, "mute", true)
	verb, past := "unmute", "unmuted"
	if mute {
		verb, past = "mute", "muted"
	}

	if res := a.requirePermission(ctx, guildID, discordgo.PermissionVoiceMuteMembers, "mute members"); res != nil {
		return res, nil
	}
	if _, res := a.lookupMember(ctx, guildID, userID); res != nil {
		return res, nil
	}
	if vs, err := a.client.VoiceState(guildID, userID); err != nil || vs == nil || vs.ChannelID == "" {
		return adapter.TextResult("Member is not in a voice channel"), nil
	}
	err = a.client.Mute(ctx, guildID, userID, mute)
	switch {
	case isForbidden(err):
		return adapter.TextResult("Insufficient permissions to mute this user"), nil
	case err != nil:
		return adapter.TextResult("Failed to %s user: %s", verb, restMessage(err)), nil
	}
	return adapter.TextResult("User %s %s successfully", userID, past), nil
}

func (a *Adapter) assignRole(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "guild_id", "user_id", "role_id")
	if err != nil {
		return nil, err
	}
	guildID, userID, roleID := ids[0], ids[1], ids[2]
	add := adapter.BoolArg(args, "add", true)

	perms, res := a.botPermissions(ctx, guildID)
	if res != nil {
		return res, nil
	}
	if perms.value&discordgo.PermissionManageRoles == 0 {
		return adapter.TextResult("Bot does not have permission to manage roles"), nil
	}
	if _, res := a.lookupMember(ctx, guildID, userID); res != nil {
		return res, nil
	}
	role := perms.roles[roleID]
	if role == nil {
		return adapter.TextResult("Role not found: %s", roleID), nil
	}
	if !perms.owner && perms.topPosition <= role.Position {
		return adapter.TextResult("Bot's highest role is not high enough to assign this role"), nil
	}

	verb, outcome := "remove", "removed from"
	op := a.client.RemoveRole
	if add {
		verb, outcome = "add", "added to"
		op = a.client.AddRole
	}
	err = op(ctx, guildID, userID, roleID)
	switch {
	case isForbidden(err):
		return adapter.TextResult("Insufficient permissions to manage roles for this user"), nil
	case err != nil:
		return adapter.TextResult("Failed to %s role: %s", verb, restMessage(err)), nil
	}
	return adapter.TextResult("Role %s %s user %s successfully", role.Name, outcome, userID), nil
}

type memberInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Discriminator string   `json:"discriminator"`
	Bot           bool     `json:"bot"`
	JoinedAt      *string  `json:"joined_at"`
	Roles         []string `json:"roles"`
}

func (a *Adapter) listMembers(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ids, err := snowflakes(args, "guild_id")
	if err != nil {
		return nil, err
	}
	guildID := ids[0]
	limit := adapter.ClampInt(adapter.IntArg(args, "limit", defaultMemberLimit), 1, maxMemberLimit)

	if _, res := a.lookupGuild(ctx, guildID); res != nil {
		return res, nil
	}
	members, err := a.client.GuildMembers(ctx, guildID, limit)
	switch {
	case isForbidden(err):
		return adapter.TextResult("Bot does not have permission to list members of server %s", guildID), nil
	case err != nil:
		return adapter.TextResult("Failed to list members: %s", restMessage(err)), nil
	}
	if len(members) > limit {
		members = members[:limit]
	}

	out := make([]memberInfo, 0, len(members))
	for _, m := range members {
		info := memberInfo{
			DisplayName: displayName(m.User, m.Nick),
			Roles:       append([]string{}, m.Roles...),
		}
		if m.User != nil {
			info.ID = m.User.ID
			info.Name = m.User.Username
			info.Discriminator = m.User.Discriminator
			info.Bot = m.User.Bot
		}
		if !m.JoinedAt.IsZero() {
			joined := m.JoinedAt.UTC().Format(time.RFC3339)
			info.JoinedAt = &joined
		}
		out = append(out, info)
	}
	return adapter.JSONResult(map[string]any{"members": out})
}

func reasonArg(args map[string]any) string {
	if r := adapter.StringArg(args, "reason"); r != "" {
		return r
	}
	return "No reason provided"
}

func (a *Adapter) lookupGuild(ctx context.Context, guildID string) (*discordgo.Guild, *mcp.CallToolResult) {
	guild, err := a.client.Guild(ctx, guildID)
	switch {
	case isNotFound(err):
		return nil, adapter.TextResult("Server not found: %s", guildID)
	case isForbidden(err):
		return nil, adapter.TextResult("Bot does not have permission to view server %s", guildID)
	case err != nil:
		return nil, adapter.TextResult("Failed to fetch server %s: %s", guildID, restMessage(err))
	}
	return guild, nil
}

func (a *Adapter) lookupMember(ctx context.Context, guildID, userID string) (*discordgo.Member, *mcp.CallToolResult) {
	member, err := a.client.GuildMember(ctx, guildID, userID)
	switch {
	case isNotFound(err):
		return nil, adapter.TextResult("Member not found in server: %s", userID)
	case err != nil:
		return nil, adapter.TextResult("Failed to fetch member %s: %s", userID, restMessage(err))
	}
	return member, nil
}
