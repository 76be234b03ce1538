// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bradleyfalzon/ghinstallation/v2"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "simple message",
			err: &APIError{
				StatusCode: 404,
				Message:    "Not Found",
			},
			expected: "github: HTTP 404: Not Found",
		},
		{
			name: "with validation errors using messages",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Label", Field: "name", Message: "is required"},
				},
			},
			expected: "github: HTTP 422: Validation Failed; Label.name: is required",
		},
		{
			name: "with validation errors using codes",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Label", Field: "name", Code: "already_exists"},
				},
			},
			expected: "github: HTTP 422: Validation Failed; Label.name: already_exists",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.expected {
				t.Errorf("Error() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestClassifiers(t *testing.T) {
	notFound := &APIError{StatusCode: 404, Message: "Not Found"}
	forbidden := &APIError{StatusCode: 403, Message: "Resource not accessible by integration"}
	rateLimited := &APIError{StatusCode: 403, Message: "API rate limit exceeded", RateLimited: true}
	wrapped := fmt.Errorf("getting repository 7: %w", forbidden)

	tests := []struct {
		name                             string
		err                              error
		notFound, forbidden, rateLimited bool
	}{
		{name: "not found", err: notFound, notFound: true},
		{name: "forbidden", err: forbidden, forbidden: true},
		{name: "wrapped forbidden", err: wrapped, forbidden: true},
		{name: "rate limited", err: rateLimited, rateLimited: true},
		{name: "plain error", err: errors.New("connection reset")},
		{name: "nil", err: nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsNotFound(test.err); got != test.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, test.notFound)
			}
			if got := IsForbidden(test.err); got != test.forbidden {
				t.Errorf("IsForbidden = %v, want %v", got, test.forbidden)
			}
			if got := IsRateLimited(test.err); got != test.rateLimited {
				t.Errorf("IsRateLimited = %v, want %v", got, test.rateLimited)
			}
		})
	}
}

// errorServer answers every request with the given status, headers,
// and JSON body.
func errorServer(t *testing.T, status int, headers map[string]string, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		for key, value := range headers {
			writer.Header().Set(key, value)
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)
		fmt.Fprint(writer, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConvertErrorFromResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		headers     map[string]string
		body        string
		forbidden   bool
		notFound    bool
		rateLimited bool
		validation  bool
	}{
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"message":"Not Found"}`,
			notFound: true,
		},
		{
			name:      "integration lost access",
			status:    http.StatusForbidden,
			body:      `{"message":"Resource not accessible by integration"}`,
			forbidden: true,
		},
		{
			name:   "primary rate limit",
			status: http.StatusForbidden,
			headers: map[string]string{
				"X-RateLimit-Limit":     "5000",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     "1893456000",
			},
			body:        `{"message":"API rate limit exceeded for installation ID 9."}`,
			rateLimited: true,
		},
		{
			name:        "secondary rate limit",
			status:      http.StatusTooManyRequests,
			body:        `{"message":"You have exceeded a secondary rate limit."}`,
			rateLimited: true,
		},
		{
			name:       "validation failure",
			status:     http.StatusUnprocessableEntity,
			body:       `{"message":"Validation Failed","errors":[{"resource":"Label","code":"already_exists","field":"name"}]}`,
			validation: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := errorServer(t, test.status, test.headers, test.body)
			client := newTestClient(t, server)

			_, err := client.GetRepositoryByID(context.Background(), 7)
			if err == nil {
				t.Fatal("expected an error")
			}
			var apiError *APIError
			if !errors.As(err, &apiError) {
				t.Fatalf("error %v (%T) is not an *APIError", err, err)
			}
			if apiError.StatusCode != test.status {
				t.Errorf("StatusCode = %d, want %d", apiError.StatusCode, test.status)
			}
			if got := IsForbidden(err); got != test.forbidden {
				t.Errorf("IsForbidden = %v, want %v", got, test.forbidden)
			}
			if got := IsNotFound(err); got != test.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, test.notFound)
			}
			if got := IsRateLimited(err); got != test.rateLimited {
				t.Errorf("IsRateLimited = %v, want %v", got, test.rateLimited)
			}
			if got := IsValidationFailed(err); got != test.validation {
				t.Errorf("IsValidationFailed = %v, want %v", got, test.validation)
			}
		})
	}
}

func TestConvertErrorFromTokenMint(t *testing.T) {
	mint := &ghinstallation.HTTPError{
		Message:        "received non 2xx response status \"403 Forbidden\"",
		InstallationID: 9,
		Response:       &http.Response{StatusCode: http.StatusForbidden},
	}
	err := convertError(fmt.Errorf("could not refresh installation id 9's token: %w", mint))
	if !IsForbidden(err) {
		t.Errorf("convertError(403 mint) = %v, want a forbidden APIError", err)
	}

	transportFailure := &ghinstallation.HTTPError{Message: "could not get access_tokens", RootCause: errors.New("dial tcp: refused")}
	if err := convertError(transportFailure); err != error(transportFailure) {
		t.Errorf("convertError(no response) = %v, want it unchanged", err)
	}
}
