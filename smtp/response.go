// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// enhancedCodeRe matches an RFC 3463 enhanced status code at the start of a reply text
var enhancedCodeRe = regexp.MustCompile(`^([245])\.(\d{1,3})\.(\d{1,3})\b`)

// Response is a complete, possibly multi-line, SMTP reply.
type Response struct {
	// Code is the three-digit reply code
	Code int

	// Message holds the text of each reply line without the code and separator
	Message []string

	// Lines holds the raw reply lines as received, without line endings
	Lines []string

	// ErrorCode is an optional label set by CheckResponse when the reply was rejected
	ErrorCode string
}

// parseResponseLine splits a reply line into its code, continuation flag and text. The
// fourth character is "-" on all but the last line of a multi-line reply.
func parseResponseLine(line string) (code int, more bool, text string, err error) {
	if len(line) < 3 {
		return 0, false, "", fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}
	code, err = strconv.Atoi(line[:3])
	if err != nil || code < 100 || code > 599 {
		return 0, false, "", fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}
	if len(line) == 3 {
		return code, false, "", nil
	}
	switch line[3] {
	case '-':
		more = true
	case ' ':
	default:
		return 0, false, "", fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}
	return code, more, line[4:], nil
}

// Text returns the reply text with lines joined by a newline
func (r *Response) Text() string {
	return strings.Join(r.Message, "\n")
}

// EnhancedStatusCode returns the RFC 3463 enhanced status code of the first reply line, or
// an empty string if the server did not send one
func (r *Response) EnhancedStatusCode() string {
	if len(r.Message) == 0 {
		return ""
	}
	return enhancedCodeRe.FindString(r.Message[0])
}

// Accepted reports whether the reply code is one of the accepted codes
func (r *Response) Accepted(accepted ...int) bool {
	for _, c := range accepted {
		if r.Code == c {
			return true
		}
	}
	return false
}

// String returns the raw reply lines joined by a newline
func (r *Response) String() string {
	return strings.Join(r.Lines, "\n")
}
