// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	"github.com/stacklok/mcpbridge/pkg/credentials/mocks"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

func readyAdapter(t *testing.T, fake *fakeClient) *Adapter {
	t.Helper()
	a := New(fake, "tester")
	require.NoError(t, a.WaitReady(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func callText(t *testing.T, a *Adapter, name string, args map[string]any) string {
	t.Helper()
	res, err := a.CallTool(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestChannelURI_RoundTrip(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"100", "110"},
		{"123456789012345678", "876543210987654321"},
		{"g", "c"},
	}
	for _, p := range pairs {
		guild, channel, err := ParseChannelURI(ChannelURI(p[0], p[1]))
		require.NoError(t, err)
		assert.Equal(t, p[0], guild)
		assert.Equal(t, p[1], channel)
	}
}

func TestParseChannelURI_Malformed(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{
		"",
		"discord://100/110",
		"slack:///100/110",
		"discord:///100",
		"discord:///100/",
		"discord:////110",
		"discord:///100/110/extra",
	} {
		_, _, err := ParseChannelURI(uri)
		assert.ErrorIs(t, err, errMalformedURI, uri)
	}
}

func TestFactory(t *testing.T) {
	t.Parallel()

	t.Run("missing credentials fail before any client is created", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().GetCredentials(gomock.Any(), ServiceName, "alice").Return(nil, credentials.ErrNotFound)

		factory := NewFactory(func(string) (Client, error) {
			t.Fatal("client must not be created")
			return nil, nil
		})
		_, err := factory(context.Background(), adapter.Params{Service: ServiceName, UserID: "alice", Credentials: resolver})
		require.Error(t, err)
		assert.True(t, mcperrors.IsCredential(err))
		assert.Contains(t, err.Error(), "mcpbridge auth discord")
	})

	t.Run("access_token is accepted and client becomes ready", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().GetCredentials(gomock.Any(), ServiceName, "alice").
			Return(credentials.Credentials{"access_token": "tok"}, nil)

		var gotToken string
		factory := NewFactory(func(token string) (Client, error) {
			gotToken = token
			return newFakeClient(), nil
		})
		a, err := factory(context.Background(), adapter.Params{Service: ServiceName, UserID: "alice", Credentials: resolver})
		require.NoError(t, err)
		t.Cleanup(func() { _ = adapter.Close(a) })
		assert.Equal(t, "tok", gotToken)
		assert.Len(t, a.ListTools(), 13)
	})

	t.Run("rejected token is a credential error and the client is closed", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().GetCredentials(gomock.Any(), ServiceName, "alice").
			Return(credentials.Credentials{"token": "bad"}, nil)

		fake := newFakeClient()
		fake.openErr = &websocket.CloseError{Code: closeAuthenticationFailed, Text: "Authentication failed."}
		factory := NewFactory(func(string) (Client, error) { return fake, nil })

		_, err := factory(context.Background(), adapter.Params{Service: ServiceName, UserID: "alice", Credentials: resolver})
		require.Error(t, err)
		assert.True(t, mcperrors.IsCredential(err))
		assert.True(t, fake.isClosed())
	})

	t.Run("login that never completes times out", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().GetCredentials(gomock.Any(), ServiceName, "alice").
			Return(credentials.Credentials{"token": "slow"}, nil)

		fake := newFakeClient()
		fake.openGate = make(chan struct{})
		factory := NewFactory(func(string) (Client, error) { return fake, nil })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := factory(ctx, adapter.Params{Service: ServiceName, UserID: "alice", Credentials: resolver})
		require.Error(t, err)
		assert.True(t, mcperrors.IsTimeout(err))
		assert.True(t, fake.isClosed())
	})

	t.Run("gateway failure is an upstream error", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().GetCredentials(gomock.Any(), ServiceName, "alice").
			Return(credentials.Credentials{"token": "t"}, nil)

		fake := newFakeClient()
		fake.openErr = errors.New("dial tcp: connection refused")
		factory := NewFactory(func(string) (Client, error) { return fake, nil })

		_, err := factory(context.Background(), adapter.Params{Service: ServiceName, UserID: "alice", Credentials: resolver})
		assert.True(t, mcperrors.IsUpstream(err))
	})
}

func TestAdapter_OperationsWaitForReadiness(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	fake.openGate = make(chan struct{})
	a := New(fake, "tester")
	t.Cleanup(func() { _ = a.Close() })

	done := make(chan string, 1)
	go func() {
		res, err := a.CallTool(context.Background(), "send_message", map[string]any{"channel_id": "110", "content": "hi"})
		if err != nil {
			done <- err.Error()
			return
		}
		done <- res.Content[0].(mcp.TextContent).Text
	}()

	select {
	case <-done:
		t.Fatal("tool call completed before the client was ready")
	case <-time.After(50 * time.Millisecond):
	}

	close(fake.openGate)
	select {
	case text := <-done:
		assert.Equal(t, "Message sent successfully. Message ID: 7777", text)
	case <-time.After(2 * time.Second):
		t.Fatal("tool call did not complete after readiness")
	}
}

func TestAdapter_ListResources(t *testing.T) {
	t.Parallel()

	a := readyAdapter(t, newFakeClient())
	page, err := a.ListResources(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	require.Len(t, page.Resources, 2)
	assert.Equal(t, "discord:///100/110", page.Resources[0].URI)
	assert.Equal(t, "guild-one/general", page.Resources[0].Name)
	assert.Equal(t, "text/plain", page.Resources[0].MIMEType)
	assert.Equal(t, "discord:///200/210", page.Resources[1].URI)
}

func TestAdapter_ListResourcesUpstreamFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	fake.forbidden["GuildChannels"] = true
	a := readyAdapter(t, fake)
	_, err := a.ListResources(context.Background(), "")
	require.Error(t, err)
	assert.True(t, mcperrors.IsUpstream(err))
}

func TestAdapter_ReadResource(t *testing.T) {
	t.Parallel()

	a := readyAdapter(t, newFakeClient())
	ctx := context.Background()

	read := func(uri string) string {
		contents, err := a.ReadResource(ctx, uri)
		require.NoError(t, err)
		require.Len(t, contents, 1)
		text, ok := contents[0].(mcp.TextResourceContents)
		require.True(t, ok)
		assert.Equal(t, uri, text.URI)
		return text.Text
	}

	assert.Equal(t,
		"alice (2024-05-01 12:00:00+00:00): hello\nbridge-bot (2024-05-01 12:01:00+00:00): from the bot",
		read(ChannelURI("100", "110")))
	assert.Equal(t, "Channel not found: 404", read(ChannelURI("100", "404")))
	assert.Contains(t, read("discord:///onlyguild"), "Error reading resource")
	assert.Contains(t, read("https://example.com"), "Error reading resource")
}

func TestAdapter_CallTool_RequestErrors(t *testing.T) {
	t.Parallel()

	a := readyAdapter(t, newFakeClient())
	ctx := context.Background()

	_, err := a.CallTool(ctx, "launch_rocket", nil)
	assert.ErrorIs(t, err, adapter.ErrUnknownTool)

	_, err = a.CallTool(ctx, "send_message", map[string]any{"channel_id": "110"})
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)

	_, err = a.CallTool(ctx, "assign_role", map[string]any{"guild_id": "100", "user_id": "501"})
	require.ErrorIs(t, err, adapter.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "add, role_id")

	_, err = a.CallTool(ctx, "send_message", map[string]any{"channel_id": "general", "content": "x"})
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)
}

func TestAdapter_ListMembersClamping(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	a := readyAdapter(t, fake)

	callText(t, a, "list_members", map[string]any{"guild_id": "100", "limit": float64(0)})
	callText(t, a, "list_members", map[string]any{"guild_id": "100", "limit": float64(100000)})
	callText(t, a, "list_members", map[string]any{"guild_id": "100"})
	callText(t, a, "list_members", map[string]any{"guild_id": "100", "limit": 1e20})
	callText(t, a, "list_members", map[string]any{"guild_id": "100", "limit": -1e20})
	assert.Equal(t, []int{1, 1000, 50, 1000, 1}, fake.memberLimits)

	text := callText(t, a, "list_members", map[string]any{"guild_id": "100", "limit": float64(2)})
	var out struct {
		Members []memberInfo `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	require.Len(t, out.Members, 2)
	assert.Equal(t, "ally", out.Members[1].DisplayName)
	assert.Equal(t, []string{"151"}, out.Members[1].Roles)
	require.NotNil(t, out.Members[1].JoinedAt)
	assert.Equal(t, "2023-01-02T03:04:05Z", *out.Members[1].JoinedAt)

	assert.Equal(t, "Server not found: 300", callText(t, a, "list_members", map[string]any{"guild_id": "300"}))
}

func TestAdapter_GuildPermissionDeniedIsText(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	fake.forbidden["Guild"] = true
	a := readyAdapter(t, fake)

	assert.Equal(t, "Bot does not have permission to view server 100",
		callText(t, a, "list_members", map[string]any{"guild_id": "100"}))
	assert.Empty(t, fake.memberLimits)
}

func TestAdapter_ReadMessagesClamping(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	a := readyAdapter(t, fake)

	text := callText(t, a, "read_messages", map[string]any{"channel_id": "110"})
	assert.Contains(t, text, "Recent messages from channel general:")
	assert.Contains(t, text, "Message ID: 1001 | Reactions: 👍(2)")
	assert.Contains(t, text, "Message ID: 1002 | Reactions: No reactions")

	callText(t, a, "read_messages", map[string]any{"channel_id": "110", "limit": float64(500)})
	callText(t, a, "read_messages", map[string]any{"channel_id": "110", "limit": float64(-1)})
	callText(t, a, "read_messages", map[string]any{"channel_id": "110", "limit": 1e20})
	assert.Equal(t, []int{10, 100, 1, 100}, fake.messageLimits)

	assert.Equal(t, "Channel not found: 404", callText(t, a, "read_messages", map[string]any{"channel_id": "404"}))
}

func TestAdapter_BanMember(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	a := readyAdapter(t, fake)

	assert.Equal(t, "User 502 banned successfully",
		callText(t, a, "ban_member", map[string]any{"guild_id": "100", "user_id": "502", "delete_message_days": float64(30)}))
	assert.Equal(t, "User 501 banned successfully",
		callText(t, a, "ban_member", map[string]any{"guild_id": "100", "user_id": "501", "delete_message_days": float64(-2), "reason": "spam"}))
	require.Len(t, fake.bans, 2)
	assert.Equal(t, banCall{guildID: "100", userID: "502", reason: "No reason provided", days: 7}, fake.bans[0])
	assert.Equal(t, banCall{guildID: "100", userID: "501", reason: "spam", days: 0}, fake.bans[1])

	// guild-two gives the bot no permissions
	assert.Equal(t, "Bot does not have permission to ban members",
		callText(t, a, "ban_member", map[string]any{"guild_id": "200", "user_id": "502"}))
	assert.Equal(t, "Server not found: 300",
		callText(t, a, "ban_member", map[string]any{"guild_id": "300", "user_id": "502"}))
}

func TestAdapter_PermissionDeniedUpstreamIsText(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	fake.forbidden["Ban"] = true
	fake.forbidden["SendMessage"] = true
	a := readyAdapter(t, fake)

	assert.Equal(t, "Insufficient permissions to ban this user",
		callText(t, a, "ban_member", map[string]any{"guild_id": "100", "user_id": "502"}))
	assert.Equal(t, "Bot does not have permission to send messages in channel 110",
		callText(t, a, "send_message", map[string]any{"channel_id": "110", "content": "x"}))
}

func TestAdapter_MessageTools(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	a := readyAdapter(t, fake)

	assert.Equal(t, "Message sent successfully. Message ID: 7777",
		callText(t, a, "send_message", map[string]any{"channel_id": "110", "content": "hi"}))
	assert.Equal(t, []string{"110:hi"}, fake.sent)
	assert.Equal(t, "Channel not found: 404",
		callText(t, a, "send_message", map[string]any{"channel_id": "404", "content": "hi"}))

	assert.Equal(t, "Added reaction 🎉 to message 1001",
		callText(t, a, "add_reaction", map[string]any{"channel_id": "110", "message_id": "1001", "emoji": "🎉"}))
	assert.Equal(t, "Message not found: 1234",
		callText(t, a, "add_reaction", map[string]any{"channel_id": "110", "message_id": "1234", "emoji": "🎉"}))

	assert.Equal(t, "Cannot edit messages sent by other users",
		callText(t, a, "edit_message", map[string]any{"channel_id": "110", "message_id": "1001", "content": "x"}))
	assert.Equal(t, "Message 1002 edited successfully",
		callText(t, a, "edit_message", map[string]any{"channel_id": "110", "message_id": "1002", "content": "x"}))

	assert.Equal(t, "Message 1001 deleted successfully",
		callText(t, a, "delete_message", map[string]any{"channel_id": "110", "message_id": "1001"}))

	assert.Equal(t, "DM sent successfully. Message ID: 7777",
		callText(t, a, "send_dm", map[string]any{"user_id": "501", "content": "psst"}))
	assert.Equal(t, "User not found: 404",
		callText(t, a, "send_dm", map[string]any{"user_id": "404", "content": "psst"}))
}

func TestAdapter_SendEmbed(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	a := readyAdapter(t, fake)

	assert.Equal(t, "Embed sent successfully. Message ID: 8888", callText(t, a, "send_embed", map[string]any{
		"channel_id": "110",
		"title":      "Release",
		"color":      "#FF0000",
		"footer":     "ci",
		"fields": []any{
			map[string]any{"name": "version", "value": "1.2.3", "inline": true},
			map[string]any{"name": "incomplete"},
		},
	}))
	require.Len(t, fake.embeds, 1)
	embed := fake.embeds[0]
	assert.Equal(t, "Release", embed.Title)
	assert.Equal(t, 0xFF0000, embed.Color)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "ci", embed.Footer.Text)
	require.Len(t, embed.Fields, 1)
	assert.True(t, embed.Fields[0].Inline)

	_, err := a.CallTool(context.Background(), "send_embed", map[string]any{"channel_id": "110", "title": "x", "color": "blue"})
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)
}

func TestAdapter_GetUserInfo(t *testing.T) {
	t.Parallel()

	a := readyAdapter(t, newFakeClient())

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(callText(t, a, "get_user_info", map[string]any{"user_id": "501"})), &info))
	assert.Equal(t, "501", info["id"])
	assert.Equal(t, "alice", info["name"])
	assert.Equal(t, "Alice", info["display_name"])
	assert.NotNil(t, info["avatar_url"])

	require.NoError(t, json.Unmarshal([]byte(callText(t, a, "get_user_info", map[string]any{"user_id": "502"})), &info))
	assert.Nil(t, info["avatar_url"])

	assert.Equal(t, "User not found: 404", callText(t, a, "get_user_info", map[string]any{"user_id": "404"}))
}

func TestAdapter_ModerationTools(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	a := readyAdapter(t, fake)

	assert.Equal(t, "User 502 kicked successfully",
		callText(t, a, "kick_member", map[string]any{"guild_id": "100", "user_id": "502"}))
	assert.Equal(t, "Member not found in server: 404",
		callText(t, a, "kick_member", map[string]any{"guild_id": "100", "user_id": "404"}))
	assert.Equal(t, "Bot does not have permission to kick members",
		callText(t, a, "kick_member", map[string]any{"guild_id": "200", "user_id": "502"}))

	assert.Equal(t, "User 501 muted successfully",
		callText(t, a, "mute_member", map[string]any{"guild_id": "100", "user_id": "501", "mute": true}))
	assert.Equal(t, "User 501 unmuted successfully",
		callText(t, a, "mute_member", map[string]any{"guild_id": "100", "user_id": "501", "mute": false}))
	assert.Equal(t, "Member is not in a voice channel",
		callText(t, a, "mute_member", map[string]any{"guild_id": "100", "user_id": "502", "mute": true}))

	assert.Equal(t, "Role member added to user 502 successfully",
		callText(t, a, "assign_role", map[string]any{"guild_id": "100", "user_id": "502", "role_id": "151", "add": true}))
	assert.Equal(t, "Role member removed from user 501 successfully",
		callText(t, a, "assign_role", map[string]any{"guild_id": "100", "user_id": "501", "role_id": "151", "add": false}))
	assert.Equal(t, []string{"+151@502", "-151@501"}, fake.roleChanges)
	assert.Equal(t, "Bot's highest role is not high enough to assign this role",
		callText(t, a, "assign_role", map[string]any{"guild_id": "100", "user_id": "502", "role_id": "152", "add": true}))
	assert.Equal(t, "Role not found: 159",
		callText(t, a, "assign_role", map[string]any{"guild_id": "100", "user_id": "502", "role_id": "159", "add": true}))
	assert.Equal(t, "Bot does not have permission to manage roles",
		callText(t, a, "assign_role", map[string]any{"guild_id": "200", "user_id": "502", "role_id": "151", "add": true}))
}

func TestAuthenticator(t *testing.T) {
	t.Parallel()

	t.Run("stores verified token", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().SaveCredentials(gomock.Any(), ServiceName, "alice", credentials.Credentials{"token": "abc"}).
			Return(nil)

		auth := NewAuthenticator(
			func() (string, error) { return "  Bot abc\n", nil },
			func(string) (Client, error) { return newFakeClient(), nil },
		)
		require.NoError(t, auth(context.Background(), adapter.AuthParams{
			Service: ServiceName, UserID: "alice", Credentials: resolver,
		}))
	})

	t.Run("rejected token is not stored", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)

		fake := newFakeClient()
		fake.openErr = &websocket.CloseError{Code: closeAuthenticationFailed}
		auth := NewAuthenticator(
			func() (string, error) { return "bad", nil },
			func(string) (Client, error) { return fake, nil },
		)
		err := auth(context.Background(), adapter.AuthParams{Service: ServiceName, UserID: "alice", Credentials: resolver})
		assert.True(t, mcperrors.IsCredential(err))
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		auth := NewAuthenticator(func() (string, error) { return "   ", nil }, nil)
		err := auth(context.Background(), adapter.AuthParams{
			Service: ServiceName, UserID: "alice", Credentials: mocks.NewMockResolver(ctrl),
		})
		assert.True(t, mcperrors.IsCredential(err))
	})
}
