// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"errors"
	"fmt"
)

// Validation errors returned before a Message is rendered or sent.
var (
	// ErrNoFromAddress is returned when a Message has no sender address
	ErrNoFromAddress = errors.New("no FROM address set")

	// ErrNoRcptAddresses is returned when a Message has no "To" recipient
	ErrNoRcptAddresses = errors.New("no recipient addresses set")

	// ErrNoContentPart is returned when a Message has no part to render
	ErrNoContentPart = errors.New("no content part")

	// ErrNoSubject is returned when a Message has an empty subject
	ErrNoSubject = errors.New("no subject set")

	// ErrInvalidEncoding is returned for a transfer encoding outside of the supported set
	ErrInvalidEncoding = errors.New("invalid transfer encoding")

	// ErrInvalidFormat is returned for a content format other than fixed or flowed
	ErrInvalidFormat = errors.New("invalid content format")

	// ErrEmptyHeaderName is returned when a HeaderField is created with a blank name
	ErrEmptyHeaderName = errors.New("header name must not be empty")

	// ErrUnstructuredAttribute is returned when attributes are given for a header field other
	// than Content-Type or Content-Disposition
	ErrUnstructuredAttribute = errors.New("attributes are only supported on Content-Type and Content-Disposition")

	// ErrStructuredValue is returned when the value of a Content-Type or Content-Disposition
	// contains a ";". Parameters have to be passed as attributes.
	ErrStructuredValue = errors.New("structured header value must not contain \";\", use attributes")

	// ErrEmptyAddress is returned when an Address lacks its local part or domain
	ErrEmptyAddress = errors.New("address local part and domain must not be empty")
)

// Parse errors. They are usually wrapped in a *ParseError.
var (
	// ErrUnsupportedWordEncoding is returned for an encoded-word that is neither B nor Q encoded
	ErrUnsupportedWordEncoding = errors.New("unsupported encoded-word encoding")

	// ErrUnsupportedCharset is returned when no decoder is known for a charset
	ErrUnsupportedCharset = errors.New("unsupported charset")

	// ErrMalformedHeader is returned when a header block contains a line that is neither a
	// field nor a continuation
	ErrMalformedHeader = errors.New("malformed header block")

	// ErrBoundaryNotFound is returned when a multipart body never contains its declared boundary
	ErrBoundaryNotFound = errors.New("multipart boundary not found in body")

	// ErrMaxDepthExceeded is returned when multipart or embedded message nesting is deeper than
	// Config.MaxDepth
	ErrMaxDepthExceeded = errors.New("maximum MIME nesting depth exceeded")

	// ErrMessageTooLarge is returned when a message read from an io.Reader exceeds
	// Config.MaxMessageSize
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
)

// ParseError describes a failure while parsing a header block or a message body.
type ParseError struct {
	// Op is the parsing step that failed
	Op string

	// Line is the 1-based line of the header block, if known
	Line int

	// Err is the underlying error
	Err error
}

// Error satisfies the error interface for the ParseError type
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

// Unwrap returns the underlying error of the ParseError
func (e *ParseError) Unwrap() error {
	return e.Err
}
