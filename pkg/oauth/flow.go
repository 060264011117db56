// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package oauth runs the interactive OAuth 2.0 authorization-code flow used by
// the auth command, and provides token sources that persist refreshed tokens.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/stacklok/mcpbridge/pkg/logger"
)

const (
	// DefaultRedirectURL is used when the client registration has no redirect URI.
	DefaultRedirectURL = "http://localhost:8080/callback"

	// DefaultTimeout bounds how long the flow waits for the browser callback.
	DefaultTimeout = 120 * time.Second
)

// Config contains configuration for OAuth authentication
type Config struct {
	// ClientID is the OAuth client ID
	ClientID string

	// ClientSecret is the OAuth client secret
	ClientSecret string

	// RedirectURL is where the provider sends the browser back to. Its host
	// and port are where the callback server listens; port 0 picks a free one.
	RedirectURL string

	// AuthURL is the authorization endpoint URL
	AuthURL string

	// TokenURL is the token endpoint URL
	TokenURL string

	// Scopes are the OAuth scopes to request
	Scopes []string

	// UsePKCE enables PKCE (Proof Key for Code Exchange)
	UsePKCE bool

	// Timeout bounds the wait for the callback. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Title names the service on the pages shown in the browser.
	Title string
}

// Flow handles one run of the OAuth authentication flow
type Flow struct {
	config       *Config
	oauth2Config *oauth2.Config
	redirect     *url.URL

	codeVerifier  string
	codeChallenge string
	state         string

	// openURL opens the authorization URL; tests replace it.
	openURL func(string) error
}

// Option customizes a Flow.
type Option func(*Flow)

// WithURLOpener replaces the browser launcher.
func WithURLOpener(open func(string) error) Option {
	return func(f *Flow) {
		f.openURL = open
	}
}

// NewFlow creates a new OAuth flow
func NewFlow(config *Config, opts ...Option) (*Flow, error) {
	if config == nil {
		return nil, errors.New("OAuth config cannot be nil")
	}
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.AuthURL == "" {
		return nil, errors.New("authorization URL is required")
	}
	if config.TokenURL == "" {
		return nil, errors.New("token URL is required")
	}

	redirectURL := config.RedirectURL
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	redirect, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	if redirect.Scheme != "http" || redirect.Port() == "" {
		return nil, fmt.Errorf("redirect URL must be a local http URL with a port: %s", redirectURL)
	}
	if redirect.Path == "" {
		redirect.Path = "/"
	}

	flow := &Flow{
		config:   config,
		redirect: redirect,
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		openURL: browser.OpenURL,
	}
	for _, opt := range opts {
		opt(flow)
	}

	if config.UsePKCE {
		if err := flow.generatePKCEParams(); err != nil {
			return nil, fmt.Errorf("failed to generate PKCE parameters: %w", err)
		}
	}
	if err := flow.generateState(); err != nil {
		return nil, fmt.Errorf("failed to generate state parameter: %w", err)
	}

	return flow, nil
}

func (f *Flow) generatePKCEParams() error {
	verifierBytes := make([]byte, 32)
	if _, err := rand.Read(verifierBytes); err != nil {
		return fmt.Errorf("failed to generate code verifier: %w", err)
	}
	f.codeVerifier = base64.RawURLEncoding.EncodeToString(verifierBytes)

	hash := sha256.Sum256([]byte(f.codeVerifier))
	f.codeChallenge = base64.RawURLEncoding.EncodeToString(hash[:])
	return nil
}

func (f *Flow) generateState() error {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}
	f.state = base64.RawURLEncoding.EncodeToString(stateBytes)
	return nil
}

// OAuth2Config returns the client configuration, including the redirect URL
// once Start has bound the callback listener.
func (f *Flow) OAuth2Config() *oauth2.Config {
	return f.oauth2Config
}

// Start runs the flow: it starts the callback server, opens the browser and
// waits for the provider to redirect back with a code, which it exchanges
// for a token.
func (f *Flow) Start(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", f.redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	if f.redirect.Port() == "0" {
		port := listener.Addr().(*net.TCPAddr).Port
		f.redirect.Host = net.JoinHostPort(f.redirect.Hostname(), fmt.Sprint(port))
	}
	f.oauth2Config.RedirectURL = f.redirect.String()

	tokenChan := make(chan *oauth2.Token, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(f.redirect.Path, f.handleCallback(ctx, tokenChan, errorChan))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Debugw("starting OAuth callback server", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errorChan, fmt.Errorf("callback server failed: %w", err))
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Failed to shutdown OAuth callback server: %v", err)
		}
	}()

	authURL := f.buildAuthURL()
	logger.Infof("Opening browser to: %s", authURL)
	if err := f.openURL(authURL); err != nil {
		logger.Warnf("Failed to open browser: %v", err)
		logger.Infof("Please manually open this URL in your browser: %s", authURL)
	}

	timeout := f.config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case token := <-tokenChan:
		logger.Info("OAuth flow completed successfully")
		return token, nil
	case err := <-errorChan:
		return nil, fmt.Errorf("OAuth flow failed: %w", err)
	case <-timer.C:
		return nil, errors.New("OAuth flow timed out waiting for the browser callback")
	case <-ctx.Done():
		return nil, fmt.Errorf("OAuth flow cancelled: %w", ctx.Err())
	}
}

func (f *Flow) buildAuthURL() string {
	opts := []oauth2.AuthCodeOption{}
	if f.config.UsePKCE {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", f.codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	return f.oauth2Config.AuthCodeURL(f.state, opts...)
}

func (f *Flow) handleCallback(ctx context.Context, tokenChan chan<- *oauth2.Token, errorChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()

		if errParam := query.Get("error"); errParam != "" {
			err := fmt.Errorf("OAuth error: %s - %s", errParam, query.Get("error_description"))
			f.writeErrorPage(w, err)
			sendErr(errorChan, err)
			return
		}

		if query.Get("state") != f.state {
			err := errors.New("invalid state parameter")
			f.writeErrorPage(w, err)
			sendErr(errorChan, err)
			return
		}

		code := query.Get("code")
		if code == "" {
			err := errors.New("missing authorization code")
			f.writeErrorPage(w, err)
			sendErr(errorChan, err)
			return
		}

		var opts []oauth2.AuthCodeOption
		if f.config.UsePKCE {
			opts = append(opts, oauth2.SetAuthURLParam("code_verifier", f.codeVerifier))
		}

		token, err := f.oauth2Config.Exchange(ctx, code, opts...)
		if err != nil {
			err = fmt.Errorf("failed to exchange code for token: %w", err)
			f.writeErrorPage(w, err)
			sendErr(errorChan, err)
			return
		}

		f.writeSuccessPage(w)
		select {
		case tokenChan <- token:
		default:
		}
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'; script-src 'none'; object-src 'none';")
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; text-align: center; }
        .message { max-width: 600px; margin: 20px auto; padding: 20px; border-radius: 5px; }
        .success { background-color: #e7f6e7; border: 1px solid #b3e6b3; color: #006600; }
        .error { background-color: #ffe7e7; border: 1px solid #ffb3b3; color: #cc0000; }
    </style>
</head>
<body>
    <h1>%s</h1>
    <div class="message %s"><p>%s</p></div>
</body>
</html>`

func (f *Flow) writeSuccessPage(w http.ResponseWriter) {
	setSecurityHeaders(w)
	title := "Authentication Successful"
	msg := "You can close this window and return to the terminal."
	if f.config.Title != "" {
		msg = fmt.Sprintf("You have authenticated with %s. %s", html.EscapeString(f.config.Title), msg)
	}
	if _, err := fmt.Fprintf(w, pageTemplate, title, title, "success", msg); err != nil {
		logger.Warnf("Failed to write HTML content: %v", err)
	}
}

func (*Flow) writeErrorPage(w http.ResponseWriter, err error) {
	setSecurityHeaders(w)
	w.WriteHeader(http.StatusBadRequest)
	title := "Authentication Failed"
	if _, werr := fmt.Fprintf(w, pageTemplate, title, title, "error", html.EscapeString(err.Error())); werr != nil {
		logger.Warnf("Failed to write HTML content: %v", werr)
	}
}
