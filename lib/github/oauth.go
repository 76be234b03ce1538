// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// OAuthConfig configures the user authorization code exchange of the
// GitHub App.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string

	// RedirectURL must match the callback URL registered on the app.
	RedirectURL string

	// Endpoint overrides GitHub's authorize and token URLs.
	Endpoint *oauth2.Endpoint

	// APIBaseURL is the API root for user clients. Defaults to
	// DefaultBaseURL. Must use HTTPS.
	APIBaseURL string

	// HTTPClient carries the token exchange and, as the base
	// transport, every user client request. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// OAuth exchanges user authorization codes for user-scoped clients.
type OAuth struct {
	config     oauth2.Config
	apiBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuth validates the configuration.
func NewOAuth(config OAuthConfig) (*OAuth, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("github: OAuth client ID and secret are required")
	}
	apiBaseURL, err := normalizeBaseURL(config.APIBaseURL)
	if err != nil {
		return nil, err
	}
	endpoint := githuboauth.Endpoint
	if config.Endpoint != nil {
		endpoint = *config.Endpoint
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OAuth{
		config: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
		},
		apiBaseURL: apiBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Exchange trades an authorization code for a user access token and
// returns a client acting as that user. Test the error with
// IsAuthorizationDenied to tell a rejected code from a broken token
// endpoint.
func (auth *OAuth) Exchange(ctx context.Context, code string) (*Client, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, auth.httpClient)
	token, err := auth.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return NewClient(Config{
		BaseURL:    auth.apiBaseURL,
		HTTPClient: auth.config.Client(ctx, token),
		Logger:     auth.logger,
	})
}

// IsAuthorizationDenied reports whether err is the token endpoint
// rejecting an exchange: a non-2xx response, or a 200 response
// carrying an OAuth error code such as bad_verification_code.
func IsAuthorizationDenied(err error) bool {
	var retrieveError *oauth2.RetrieveError
	return errors.As(err, &retrieveError)
}
