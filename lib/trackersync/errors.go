// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import "errors"

// Kind classifies errors returned by user-initiated operations so the
// HTTP layer can choose a status code.
type Kind int

const (
	// KindInternal is any failure not classified below.
	KindInternal Kind = iota

	// Unavailable: the integration is disabled, or GitHub answered
	// with something unusable.
	Unavailable

	// Unauthorized: the caller's grant is missing or expired, or the
	// app installation rejected us.
	Unauthorized

	// Forbidden: GitHub refused the user's authorization.
	Forbidden

	// BadRequest: the repository cannot be reached or configured.
	BadRequest
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case BadRequest:
		return "bad request"
	default:
		return "internal"
	}
}

// Error is a classified failure. Message is safe to show to the user;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal if there is none.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindInternal
}

var errDisabled = newError(Unavailable, "GitHub integration is disabled", nil)
