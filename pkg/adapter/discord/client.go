// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Client is the subset of the Discord API the adapter uses. The production
// implementation wraps a *discordgo.Session; tests substitute a fake.
type Client interface {
	// Open connects the gateway and returns once the Ready event arrived.
	Open(ctx context.Context) error
	Close() error

	// BotUserID is the bot's own user ID. Valid after Open.
	BotUserID() string
	// Guilds lists the guilds the bot is in, from the gateway state cache.
	Guilds() []*discordgo.Guild

	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	GuildMembers(ctx context.Context, guildID string, limit int) ([]*discordgo.Member, error)
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)

	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error)
	ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error)
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	User(ctx context.Context, userID string) (*discordgo.User, error)
	CreateDM(ctx context.Context, userID string) (*discordgo.Channel, error)

	Ban(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Mute(ctx context.Context, guildID, userID string, mute bool) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// ClientFactory creates an unopened client authenticated with a bot token.
type ClientFactory func(token string) (Client, error)

const botIntents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentMessageContent

// maxMembersPage is the largest page the list guild members endpoint accepts.
const maxMembersPage = 1000

type sessionClient struct {
	s *discordgo.Session
}

// NewSessionClient is the ClientFactory backed by discordgo.
func NewSessionClient(token string) (Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = botIntents
	s.StateEnabled = true
	return &sessionClient{s: s}, nil
}

func (c *sessionClient) Open(ctx context.Context) error {
	ready := make(chan struct{})
	remove := c.s.AddHandlerOnce(func(_ *discordgo.Session, _ *discordgo.Ready) {
		close(ready)
	})
	if err := c.s.Open(); err != nil {
		remove()
		return err
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *sessionClient) Close() error {
	return c.s.Close()
}

func (c *sessionClient) BotUserID() string {
	if c.s.State == nil || c.s.State.User == nil {
		return ""
	}
	return c.s.State.User.ID
}

func (c *sessionClient) Guilds() []*discordgo.Guild {
	c.s.State.RLock()
	defer c.s.State.RUnlock()
	out := make([]*discordgo.Guild, len(c.s.State.Guilds))
	copy(out, c.s.State.Guilds)
	return out
}

func (c *sessionClient) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := c.s.State.Guild(guildID); err == nil {
		return g, nil
	}
	return c.s.Guild(guildID, discordgo.WithContext(ctx))
}

func (c *sessionClient) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	return c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
}

func (c *sessionClient) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	return c.s.GuildRoles(guildID, discordgo.WithContext(ctx))
}

func (c *sessionClient) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := c.s.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return c.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// GuildMembers pages through the members endpoint until limit members are
// collected or the guild is exhausted.
func (c *sessionClient) GuildMembers(ctx context.Context, guildID string, limit int) ([]*discordgo.Member, error) {
	var (
		out   []*discordgo.Member
		after string
	)
	for len(out) < limit {
		page, err := c.s.GuildMembers(guildID, after, min(limit-len(out), maxMembersPage), discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) == 0 || page[len(page)-1].User == nil {
			break
		}
		after = page[len(page)-1].User.ID
	}
	return out, nil
}

func (c *sessionClient) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	return c.s.State.VoiceState(guildID, userID)
}

func (c *sessionClient) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := c.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return c.s.Channel(channelID, discordgo.WithContext(ctx))
}

func (c *sessionClient) ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	return c.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
}

func (c *sessionClient) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	return c.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
}

func (c *sessionClient) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	return c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
}

func (c *sessionClient) SendEmbed(
	ctx context.Context, channelID string, embed *discordgo.MessageEmbed,
) (*discordgo.Message, error) {
	return c.s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
}

func (c *sessionClient) EditMessage(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error) {
	return c.s.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
}

func (c *sessionClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (c *sessionClient) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return c.s.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func (c *sessionClient) User(ctx context.Context, userID string) (*discordgo.User, error) {
	return c.s.User(userID, discordgo.WithContext(ctx))
}

func (c *sessionClient) CreateDM(ctx context.Context, userID string) (*discordgo.Channel, error) {
	return c.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
}

func (c *sessionClient) Ban(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error {
	return c.s.GuildBanCreateWithReason(guildID, userID, reason, deleteMessageDays, discordgo.WithContext(ctx))
}

func (c *sessionClient) Kick(ctx context.Context, guildID, userID, reason string) error {
	return c.s.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (c *sessionClient) Mute(ctx context.Context, guildID, userID string, mute bool) error {
	return c.s.GuildMemberMute(guildID, userID, mute, discordgo.WithContext(ctx))
}

func (c *sessionClient) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (c *sessionClient) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}
