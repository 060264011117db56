// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

func restError(code int) error {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: code, Status: fmt.Sprintf("%d %s", code, http.StatusText(code))},
		ResponseBody: []byte(`{}`),
	}
}

type banCall struct {
	guildID, userID, reason string
	days                    int
}

// fakeClient is an in-memory Discord. Missing entities answer with REST 404s.
type fakeClient struct {
	mu sync.Mutex

	openGate chan struct{}
	openErr  error
	closed   bool

	botID    string
	guilds   []*discordgo.Guild
	channels map[string]*discordgo.Channel
	messages map[string][]*discordgo.Message
	users    map[string]*discordgo.User
	members  map[string][]*discordgo.Member
	roles    map[string][]*discordgo.Role
	voice    map[string]bool

	// forbidden makes the named operation fail with a REST 403.
	forbidden map[string]bool

	sent          []string
	embeds        []*discordgo.MessageEmbed
	bans          []banCall
	kicks         []string
	roleChanges   []string
	memberLimits  []int
	messageLimits []int
}

func newFakeClient() *fakeClient {
	botUser := &discordgo.User{ID: "900", Username: "bridge-bot", Bot: true}
	alice := &discordgo.User{ID: "501", Username: "alice", GlobalName: "Alice", Discriminator: "0", Avatar: "abc"}
	bob := &discordgo.User{ID: "502", Username: "bob", Discriminator: "0"}

	f := &fakeClient{
		botID: botUser.ID,
		guilds: []*discordgo.Guild{
			{ID: "100", Name: "guild-one", OwnerID: "1"},
			{ID: "200", Name: "guild-two", OwnerID: "1"},
		},
		channels: map[string]*discordgo.Channel{
			"110": {ID: "110", GuildID: "100", Name: "general", Type: discordgo.ChannelTypeGuildText},
			"111": {ID: "111", GuildID: "100", Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
			"210": {ID: "210", GuildID: "200", Name: "random", Type: discordgo.ChannelTypeGuildText},
		},
		messages: map[string][]*discordgo.Message{
			"110": {
				{ID: "1001", ChannelID: "110", Content: "hello", Author: alice,
					Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
					Reactions: []*discordgo.MessageReactions{{Count: 2, Emoji: &discordgo.Emoji{Name: "👍"}}}},
				{ID: "1002", ChannelID: "110", Content: "from the bot", Author: botUser,
					Timestamp: time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)},
			},
		},
		users: map[string]*discordgo.User{"501": alice, "502": bob, "900": botUser},
		members: map[string][]*discordgo.Member{
			"100": {
				{User: botUser, Roles: []string{"150"}},
				{User: alice, Roles: []string{"151"}, Nick: "ally", JoinedAt: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)},
				{User: bob},
			},
		},
		roles: map[string][]*discordgo.Role{
			"100": {
				{ID: "100", Name: "@everyone", Position: 0},
				{ID: "150", Name: "bot-role", Position: 5,
					Permissions: discordgo.PermissionBanMembers | discordgo.PermissionKickMembers |
						discordgo.PermissionManageRoles | discordgo.PermissionVoiceMuteMembers},
				{ID: "151", Name: "member", Position: 1},
				{ID: "152", Name: "admin", Position: 9},
			},
			"200": {
				{ID: "200", Name: "@everyone", Position: 0},
			},
		},
		voice:     map[string]bool{"100/501": true},
		forbidden: map[string]bool{},
	}
	f.members["200"] = []*discordgo.Member{{User: botUser}}
	return f
}

func (f *fakeClient) Open(ctx context.Context) error {
	if f.openGate != nil {
		select {
		case <-f.openGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.openErr
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeClient) BotUserID() string { return f.botID }

func (f *fakeClient) Guilds() []*discordgo.Guild { return f.guilds }

func (f *fakeClient) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	if f.forbidden["Guild"] {
		return nil, restError(http.StatusForbidden)
	}
	for _, g := range f.guilds {
		if g.ID == guildID {
			return g, nil
		}
	}
	return nil, restError(http.StatusNotFound)
}

func (f *fakeClient) GuildChannels(_ context.Context, guildID string) ([]*discordgo.Channel, error) {
	if f.forbidden["GuildChannels"] {
		return nil, restError(http.StatusForbidden)
	}
	var out []*discordgo.Channel
	for _, id := range []string{"110", "111", "210"} {
		if ch := f.channels[id]; ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeClient) GuildRoles(_ context.Context, guildID string) ([]*discordgo.Role, error) {
	roles, ok := f.roles[guildID]
	if !ok {
		return nil, restError(http.StatusNotFound)
	}
	return roles, nil
}

func (f *fakeClient) GuildMember(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	for _, m := range f.members[guildID] {
		if m.User != nil && m.User.ID == userID {
			return m, nil
		}
	}
	return nil, restError(http.StatusNotFound)
}

func (f *fakeClient) GuildMembers(_ context.Context, guildID string, limit int) ([]*discordgo.Member, error) {
	f.mu.Lock()
	f.memberLimits = append(f.memberLimits, limit)
	f.mu.Unlock()
	members := f.members[guildID]
	return members[:min(limit, len(members))], nil
}

func (f *fakeClient) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	if !f.voice[guildID+"/"+userID] {
		return nil, discordgo.ErrStateNotFound
	}
	return &discordgo.VoiceState{GuildID: guildID, UserID: userID, ChannelID: "111"}, nil
}

func (f *fakeClient) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, restError(http.StatusNotFound)
	}
	return ch, nil
}

func (f *fakeClient) ChannelMessages(_ context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	if _, ok := f.channels[channelID]; !ok {
		return nil, restError(http.StatusNotFound)
	}
	if f.forbidden["ChannelMessages"] {
		return nil, restError(http.StatusForbidden)
	}
	f.mu.Lock()
	f.messageLimits = append(f.messageLimits, limit)
	f.mu.Unlock()
	msgs := f.messages[channelID]
	return msgs[:min(limit, len(msgs))], nil
}

func (f *fakeClient) ChannelMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	for _, m := range f.messages[channelID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, restError(http.StatusNotFound)
}

func (f *fakeClient) SendMessage(_ context.Context, channelID, content string) (*discordgo.Message, error) {
	if f.forbidden["SendMessage"] {
		return nil, restError(http.StatusForbidden)
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, restError(http.StatusNotFound)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, channelID+":"+content)
	return &discordgo.Message{ID: "7777", ChannelID: channelID, Content: content}, nil
}

func (f *fakeClient) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	if _, ok := f.channels[channelID]; !ok {
		return nil, restError(http.StatusNotFound)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{ID: "8888", ChannelID: channelID}, nil
}

func (*fakeClient) EditMessage(_ context.Context, channelID, messageID, content string) (*discordgo.Message, error) {
	return &discordgo.Message{ID: messageID, ChannelID: channelID, Content: content}, nil
}

func (*fakeClient) DeleteMessage(context.Context, string, string) error { return nil }

func (*fakeClient) AddReaction(context.Context, string, string, string) error { return nil }

func (f *fakeClient) User(_ context.Context, userID string) (*discordgo.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, restError(http.StatusNotFound)
	}
	return u, nil
}

func (f *fakeClient) CreateDM(_ context.Context, userID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dm := &discordgo.Channel{ID: "999" + userID, Type: discordgo.ChannelTypeDM}
	f.channels[dm.ID] = dm
	return dm, nil
}

func (f *fakeClient) Ban(_ context.Context, guildID, userID, reason string, days int) error {
	if f.forbidden["Ban"] {
		return restError(http.StatusForbidden)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, banCall{guildID: guildID, userID: userID, reason: reason, days: days})
	return nil
}

func (f *fakeClient) Kick(_ context.Context, _, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, userID)
	return nil
}

func (*fakeClient) Mute(context.Context, string, string, bool) error { return nil }

func (f *fakeClient) AddRole(_ context.Context, _, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleChanges = append(f.roleChanges, "+"+roleID+"@"+userID)
	return nil
}

func (f *fakeClient) RemoveRole(_ context.Context, _, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleChanges = append(f.roleChanges, "-"+roleID+"@"+userID)
	return nil
}
