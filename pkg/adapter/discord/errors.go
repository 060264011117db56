// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

// closeAuthenticationFailed is the gateway close code for a rejected token.
const closeAuthenticationFailed = 4004

// restStatus returns the HTTP status of a Discord REST failure, or 0.
func restStatus(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

func isNotFound(err error) bool {
	return restStatus(err) == http.StatusNotFound
}

func isForbidden(err error) bool {
	return restStatus(err) == http.StatusForbidden
}

// restMessage is the API's own error message when present.
func restMessage(err error) string {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Message != "" {
		return restErr.Message.Message
	}
	return err.Error()
}

// classifyOpenError maps a gateway connection failure to the error taxonomy.
func classifyOpenError(err error) error {
	if err == nil {
		return nil
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == closeAuthenticationFailed {
		return mcperrors.NewCredentialError("discord rejected the bot token; run 'mcpbridge auth discord' again", err)
	}
	if restStatus(err) == http.StatusUnauthorized {
		return mcperrors.NewCredentialError("discord rejected the bot token; run 'mcpbridge auth discord' again", err)
	}
	return mcperrors.NewUpstreamError("failed to connect to the discord gateway", err)
}
