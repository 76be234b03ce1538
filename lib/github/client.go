// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v57/github"
)

// DefaultBaseURL is the base URL for the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// listPageSize is the page size requested from every paginated
// endpoint. 100 is GitHub's maximum.
const listPageSize = 100

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// DefaultBaseURL. Must use HTTPS.
	BaseURL string

	// HTTPClient carries authentication. Defaults to
	// http.DefaultClient (unauthenticated).
	HTTPClient *http.Client

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a GitHub REST API client. Authentication is a property of
// the HTTP client it was built with; see Provider and OAuth.
type Client struct {
	api    *gh.Client
	logger *slog.Logger
}

// NewClient creates a GitHub API client from the given configuration.
// Returns an error if the base URL is not HTTPS or cannot be parsed.
func NewClient(config Config) (*Client, error) {
	baseURL, err := normalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parsed, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("github: parsing base URL %q: %w", baseURL, err)
	}

	api := gh.NewClient(httpClient)
	api.BaseURL = parsed
	return &Client{api: api, logger: logger}, nil
}

// normalizeBaseURL applies the default and strips trailing slashes.
// go-github wants a trailing slash and ghinstallation wants none, so
// callers append one where needed.
func normalizeBaseURL(raw string) (string, error) {
	baseURL := raw
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") {
		return "", fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	return baseURL, nil
}
