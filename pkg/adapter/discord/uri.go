// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"errors"
	"fmt"
	"strings"
)

const uriPrefix = "discord:///"

var errMalformedURI = errors.New("malformed discord resource URI")

// ChannelURI is the resource URI of a guild text channel.
func ChannelURI(guildID, channelID string) string {
	return uriPrefix + guildID + "/" + channelID
}

// ParseChannelURI is the inverse of ChannelURI.
func ParseChannelURI(uri string) (guildID, channelID string, err error) {
	path, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok {
		return "", "", fmt.Errorf("%w: unexpected URI format: %s", errMalformedURI, uri)
	}
	guildID, channelID, ok = strings.Cut(path, "/")
	if !ok || guildID == "" || channelID == "" || strings.Contains(channelID, "/") {
		return "", "", fmt.Errorf("%w: invalid URI format: %s", errMalformedURI, uri)
	}
	return guildID, channelID, nil
}
