// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v57/github"
)

// APIError represents a non-2xx response from the GitHub REST API.
// GitHub returns structured JSON error bodies with a message, optional
// documentation URL, and optional field-level validation errors.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string

	// Errors contains field-level validation failures. Present only
	// on 422 Unprocessable Entity responses.
	Errors []ValidationError

	// RateLimited is set when the response was a primary or secondary
	// rate limit rejection rather than a permission decision.
	RateLimited bool
}

// ValidationError describes a specific validation failure on a resource
// field. Returned by GitHub on 422 responses.
type ValidationError struct {
	Resource string
	Code     string
	Field    string
	Message  string
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, validationError := range err.Errors {
		if validationError.Message != "" {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Message)
		} else {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Code)
		}
	}
	return builder.String()
}

// IsNotFound reports whether err is a GitHub API 404 Not Found response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsForbidden reports whether err is a 403 that denies access, as
// opposed to a 403 issued for rate limiting. A forbidden response on a
// repository the app used to reach means the installation lost access.
func IsForbidden(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 403 && !apiError.RateLimited
}

// IsRateLimited reports whether err is a GitHub API rate limit response.
// GitHub returns 403 when the primary rate limit is exceeded and 429
// for secondary (abuse) rate limits.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.RateLimited
}

// IsValidationFailed reports whether err is a GitHub API 422 response
// with field-level validation errors.
func IsValidationFailed(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 422
}

// convertError maps go-github's error types onto *APIError. Errors
// that did not come from an HTTP response (transport failures, context
// cancellation) are returned unchanged.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var rateLimit *gh.RateLimitError
	if errors.As(err, &rateLimit) {
		return &APIError{
			StatusCode:  statusOf(rateLimit.Response),
			Message:     rateLimit.Message,
			RateLimited: true,
		}
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return &APIError{
			StatusCode:  statusOf(abuse.Response),
			Message:     abuse.Message,
			RateLimited: true,
		}
	}

	var response *gh.ErrorResponse
	if errors.As(err, &response) {
		apiError := &APIError{
			StatusCode:       statusOf(response.Response),
			Message:          response.Message,
			DocumentationURL: response.DocumentationURL,
		}
		for _, fieldError := range response.Errors {
			apiError.Errors = append(apiError.Errors, ValidationError{
				Resource: fieldError.Resource,
				Code:     fieldError.Code,
				Field:    fieldError.Field,
				Message:  fieldError.Message,
			})
		}
		apiError.RateLimited = apiError.StatusCode == 429 ||
			(apiError.StatusCode == 403 && isRateLimitMessage(apiError.Message))
		return apiError
	}

	// Installation token mints fail with ghinstallation's own type,
	// which carries the response but not GitHub's error body.
	var mint *ghinstallation.HTTPError
	if errors.As(err, &mint) && mint.Response != nil {
		status := mint.Response.StatusCode
		return &APIError{
			StatusCode:  status,
			Message:     mint.Message,
			RateLimited: status == 429,
		}
	}

	return err
}

func statusOf(response *http.Response) int {
	if response == nil {
		return 0
	}
	return response.StatusCode
}

// isRateLimitMessage checks whether a 403 error message indicates a
// rate limit rather than a permission issue. GitHub's rate limit 403
// responses contain recognizable phrases.
func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}
