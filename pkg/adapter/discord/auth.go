// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

// tokenCheckTimeout bounds the gateway login used to verify a new token.
const tokenCheckTimeout = 30 * time.Second

// TokenPrompt asks the operator for a bot token.
type TokenPrompt func() (string, error)

// Authenticate prompts on the terminal and verifies the token with discordgo.
var Authenticate = NewAuthenticator(TerminalPrompt, NewSessionClient)

// NewAuthenticator returns an adapter.Authenticator that reads a bot token
// with prompt, verifies it by logging in, and stores it as {"token": ...}.
func NewAuthenticator(prompt TokenPrompt, newClient ClientFactory) adapter.Authenticator {
	return func(ctx context.Context, params adapter.AuthParams) error {
		if params.Credentials == nil {
			return mcperrors.NewConfigurationError("no credential resolver configured", nil)
		}
		token, err := prompt()
		if err != nil {
			return fmt.Errorf("failed to read bot token: %w", err)
		}
		token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bot "))
		if token == "" {
			return mcperrors.NewCredentialError("bot token must not be empty", nil)
		}

		if err := verifyToken(ctx, newClient, token); err != nil {
			return err
		}

		if err := params.Credentials.SaveCredentials(ctx, params.Service, params.UserID,
			credentials.Credentials{"token": token}); err != nil {
			return fmt.Errorf("failed to save discord credentials: %w", err)
		}
		logger.Infof("Credentials validated for user %s. You can now run the server.", params.UserID)
		return nil
	}
}

func verifyToken(ctx context.Context, newClient ClientFactory, token string) error {
	if newClient == nil {
		return nil
	}
	client, err := newClient(token)
	if err != nil {
		return mcperrors.NewInternalError("failed to create discord client", err)
	}
	defer func() {
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(ctx, tokenCheckTimeout)
	defer cancel()
	err = client.Open(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return mcperrors.NewTimeoutError("discord login did not complete", err)
	}
	return classifyOpenError(err)
}

// TerminalPrompt reads a token from stdin without echoing it.
func TerminalPrompt() (string, error) {
	fmt.Fprint(os.Stderr, "Discord bot token: ")
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
