// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/mcpbridge/pkg/logger"
)

const (
	defaultRemoteTimeout    = 10 * time.Second
	defaultRemoteMaxTries   = 3
	maxRemoteResponseBytes  = 1 << 20
	remoteInitialRetryDelay = 200 * time.Millisecond
)

// RemoteConfig configures a RemoteProvider.
type RemoteConfig struct {
	// BaseURL is the credential service root, e.g. https://api.example.com.
	BaseURL string
	// APIKey authenticates this process to the credential service. A key
	// attached to the request context with WithAPIKey takes precedence.
	APIKey string
	// MaxTries bounds attempts per call, including the first. Defaults to 3.
	MaxTries uint
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// RemoteProvider reads and writes credentials through an HTTP credential
// service at {base}/auth/{service}/{userID}/credentials.
type RemoteProvider struct {
	baseURL  *url.URL
	apiKey   string
	maxTries uint
	client   *http.Client
}

// NewRemoteProvider creates a RemoteProvider.
func NewRemoteProvider(cfg RemoteConfig) (*RemoteProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote credential provider requires a base URL")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote credential base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote credential base URL scheme: %q", base.Scheme)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = defaultRemoteMaxTries
	}

	return &RemoteProvider{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		maxTries: maxTries,
		client:   client,
	}, nil
}

// GetCredentials implements Resolver.
func (p *RemoteProvider) GetCredentials(ctx context.Context, service, userID string) (Credentials, error) {
	endpoint, err := p.endpoint(service, userID)
	if err != nil {
		return nil, err
	}

	operation := func() (Credentials, error) {
		resp, err := p.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read credential service response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			creds, err := decode(body)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			return creds, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(ErrNotFound)
		default:
			return nil, statusError(resp.StatusCode, body)
		}
	}

	return p.retry(ctx, "get", service, userID, operation)
}

// SaveCredentials implements Resolver.
func (p *RemoteProvider) SaveCredentials(ctx context.Context, service, userID string, creds Credentials) error {
	endpoint, err := p.endpoint(service, userID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	operation := func() (Credentials, error) {
		resp, err := p.do(ctx, http.MethodPost, endpoint, payload)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			return creds, nil
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
		return nil, statusError(resp.StatusCode, body)
	}

	_, err = p.retry(ctx, "save", service, userID, operation)
	return err
}

func (p *RemoteProvider) retry(
	ctx context.Context,
	op, service, userID string,
	operation func() (Credentials, error),
) (Credentials, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = remoteInitialRetryDelay
	expBackoff.Reset()

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(p.maxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Debugw("retrying credential service call",
				"op", op, "service", service, "user", userID, "delay", d, "error", err)
		}),
	)
}

func (p *RemoteProvider) do(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build credential request: %w", err))
	}

	apiKey := p.apiKey
	if key, ok := APIKeyFromContext(ctx); ok {
		apiKey = key
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credential service request failed: %w", err)
	}
	return resp, nil
}

func (p *RemoteProvider) endpoint(service, userID string) (string, error) {
	if err := validatePathElement("service", service); err != nil {
		return "", err
	}
	if err := validatePathElement("user id", userID); err != nil {
		return "", err
	}
	return p.baseURL.JoinPath("auth", service, userID, "credentials").String(), nil
}

// statusError classifies a non-success response: 5xx and 429 are retried,
// everything else is permanent.
func statusError(code int, body []byte) error {
	err := fmt.Errorf("credential service returned %d: %s", code, strings.TrimSpace(string(body)))
	if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
		return err
	}
	return backoff.Permanent(err)
}
