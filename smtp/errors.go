// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedResponse is returned when a server reply line is not "CODE[ -]text"
	ErrMalformedResponse = errors.New("smtp: malformed server response")

	// ErrInconsistentResponse is returned when the lines of a multi-line reply carry
	// different codes
	ErrInconsistentResponse = errors.New("smtp: inconsistent codes in multi-line response")

	// ErrLineBreak is returned when a command contains a CR or LF
	ErrLineBreak = errors.New("smtp: a line must not contain CR or LF")

	// ErrNoConnection is returned when attempting to perform an operation that requires an
	// established connection but none exists.
	ErrNoConnection = errors.New("smtp: connection is not established")

	// ErrNonTLSConnection is returned when an attempt is made to retrieve TLS state on a
	// non-TLS connection.
	ErrNonTLSConnection = errors.New("smtp: connection is not using TLS")

	// ErrUnencrypted is returned by an Auth that refuses to send credentials over an
	// unencrypted connection
	ErrUnencrypted = errors.New("smtp: unencrypted connection")

	// ErrWrongHostname is returned by an Auth when the server name does not match the host
	// the Auth was created for
	ErrWrongHostname = errors.New("smtp: wrong host name")

	// ErrUnexpectedServerChallange is returned when the server sends a challenge the Auth
	// does not expect
	ErrUnexpectedServerChallange = errors.New("smtp: unexpected server challenge")

	// ErrUnexpectedServerResponse is returned when the server sends a response the Auth
	// cannot process
	ErrUnexpectedServerResponse = errors.New("smtp: unexpected server response")
)

// ProtocolError is returned when the server answers a request with a reply code outside of
// the accepted set. It carries the complete reply.
type ProtocolError struct {
	// Request is the command that was sent, with authentication data redacted
	Request string

	// Response is the complete server reply
	Response *Response

	// Accepted lists the reply codes that would have been accepted
	Accepted []int
}

// CheckResponse returns a *ProtocolError if the code of resp is not one of accepted. A
// non-empty errorCode is stored on the Response to label the failed step.
func CheckResponse(request string, resp *Response, accepted []int, errorCode string) error {
	if resp == nil {
		return fmt.Errorf("%w: no response to %q", ErrMalformedResponse, request)
	}
	if resp.Accepted(accepted...) {
		return nil
	}
	if errorCode != "" {
		resp.ErrorCode = errorCode
	}
	return &ProtocolError{Request: request, Response: resp, Accepted: accepted}
}

// Error satisfies the error interface for the ProtocolError type
func (e *ProtocolError) Error() string {
	var sb strings.Builder
	sb.WriteString("smtp: ")
	if e.Response.ErrorCode != "" {
		sb.WriteString(e.Response.ErrorCode)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%q rejected with %d", e.Request, e.Response.Code)
	if t := e.Response.Text(); t != "" {
		sb.WriteString(" ")
		sb.WriteString(strings.ReplaceAll(t, "\n", " "))
	}
	fmt.Fprintf(&sb, " (accepted: %v)", e.Accepted)
	return sb.String()
}

// Code returns the reply code of the rejected request
func (e *ProtocolError) Code() int {
	return e.Response.Code
}

// EnhancedStatusCode returns the RFC 3463 enhanced status code of the reply, if any
func (e *ProtocolError) EnhancedStatusCode() string {
	return e.Response.EnhancedStatusCode()
}

// Temporary reports whether the server signaled a transient (4xx) failure
func (e *ProtocolError) Temporary() bool {
	return e.Response.Code >= 400 && e.Response.Code < 500
}
