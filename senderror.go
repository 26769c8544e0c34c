// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"errors"
	"strings"

	"github.com/letterbox/go-mail/smtp"
)

// List of SendError reasons
const (
	// ErrGetSender is returned if the Message has no usable sender address
	ErrGetSender SendErrReason = iota

	// ErrGetRcpts is returned if the Message has no usable recipient addresses
	ErrGetRcpts

	// ErrRenderContent is returned if the Message could not be rendered
	ErrRenderContent

	// ErrDial is returned if the connection to the server could not be established
	ErrDial

	// ErrSMTPHello is returned if the greeting or the EHLO/HELO exchange failed
	ErrSMTPHello

	// ErrSMTPStartTLS is returned if STARTTLS was required or offered but failed
	ErrSMTPStartTLS

	// ErrSMTPAuth is returned if the SMTP authentication failed
	ErrSMTPAuth

	// ErrSMTPMailFrom is returned if the server rejected the MAIL FROM command
	ErrSMTPMailFrom

	// ErrSMTPRcptTo is returned if the server rejected a RCPT TO command
	ErrSMTPRcptTo

	// ErrSMTPData is returned if the server rejected the DATA command
	ErrSMTPData

	// ErrSMTPDataClose is returned if the server rejected the message content after the
	// terminating "." line
	ErrSMTPDataClose

	// ErrWriteContent is returned if writing the message content to the server failed
	ErrWriteContent

	// ErrAmbiguous is a generalized delivery error for the SendError type that is
	// returned if the exact reason for the delivery failure is ambiguous
	ErrAmbiguous
)

// SendError is an error wrapper for delivery errors of a Message. It names the step of the
// exchange that failed, the underlying errors and the affected recipients.
type SendError struct {
	messageID          string
	errcode            int
	enhancedStatusCode string
	errlist            []error
	isTemp             bool
	rcpt               []string
	Reason             SendErrReason
}

// SendErrReason represents a comparable reason on why the delivery failed
type SendErrReason int

// newSendError wraps errs for the given reason. Code, enhanced status code and the
// temporary flag are taken from the first *smtp.ProtocolError in errs.
func newSendError(reason SendErrReason, messageID string, rcpts []string, errs ...error) *SendError {
	e := &SendError{Reason: reason, messageID: messageID, rcpt: rcpts, errlist: errs}
	for _, err := range errs {
		var perr *smtp.ProtocolError
		if errors.As(err, &perr) {
			e.errcode = perr.Code()
			e.enhancedStatusCode = perr.EnhancedStatusCode()
			e.isTemp = perr.Temporary()
			break
		}
	}
	return e
}

// Error implements the error interface for the SendError type. The message holds the
// reason, the list of errors, the affected recipients and the message ID.
func (e *SendError) Error() string {
	if e.Reason > ErrAmbiguous || e.Reason < 0 {
		return "unknown reason"
	}

	var errMessage strings.Builder
	errMessage.WriteString(e.Reason.String())
	if len(e.errlist) > 0 {
		errMessage.WriteRune(':')
		for i := range e.errlist {
			errMessage.WriteRune(' ')
			errMessage.WriteString(e.errlist[i].Error())
			if i != len(e.errlist)-1 {
				errMessage.WriteString(",")
			}
		}
	}
	if len(e.rcpt) > 0 {
		errMessage.WriteString(", affected recipient(s): ")
		errMessage.WriteString(strings.Join(e.rcpt, ", "))
	}
	if e.messageID != "" {
		errMessage.WriteString(", affected message ID: ")
		errMessage.WriteString(e.messageID)
	}

	return errMessage.String()
}

// Is implements the errors.Is functionality and compares the SendErrReason and the
// temporary status of both errors.
func (e *SendError) Is(errType error) bool {
	var t *SendError
	if errors.As(errType, &t) && t != nil {
		return e.Reason == t.Reason && e.isTemp == t.isTemp
	}
	return false
}

// Unwrap returns the wrapped errors, so errors.Is and errors.As see the sentinel errors
// and the *smtp.ProtocolError the delivery failed with.
func (e *SendError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.errlist
}

// IsTemp returns true if the delivery error is of a temporary nature and can be retried.
func (e *SendError) IsTemp() bool {
	if e == nil {
		return false
	}
	return e.isTemp
}

// MessageID returns the Message-ID of the affected message, or an empty string if the
// message never got one.
func (e *SendError) MessageID() string {
	if e == nil {
		return ""
	}
	return e.messageID
}

// Rcpt returns the recipients the error applies to
func (e *SendError) Rcpt() []string {
	if e == nil {
		return nil
	}
	return e.rcpt
}

// EnhancedStatusCode returns the RFC 3463 enhanced status code of the server reply, if the
// server sent one (RFC 2034).
func (e *SendError) EnhancedStatusCode() string {
	if e == nil {
		return ""
	}
	return e.enhancedStatusCode
}

// ErrorCode returns the reply code of the server. It starts with 5 on permanent errors and
// with 4 on temporary errors. Errors not returned by the server have code 0.
func (e *SendError) ErrorCode() int {
	if e == nil {
		return 0
	}
	return e.errcode
}

// String satisfies the fmt.Stringer interface for the SendErrReason type.
func (r SendErrReason) String() string {
	switch r {
	case ErrGetSender:
		return "getting sender address"
	case ErrGetRcpts:
		return "getting recipient addresses"
	case ErrRenderContent:
		return "rendering message content"
	case ErrDial:
		return "connecting to SMTP server"
	case ErrSMTPHello:
		return "greeting SMTP server"
	case ErrSMTPStartTLS:
		return "sending SMTP STARTTLS command"
	case ErrSMTPAuth:
		return "authenticating with SMTP server"
	case ErrSMTPMailFrom:
		return "sending SMTP MAIL FROM command"
	case ErrSMTPRcptTo:
		return "sending SMTP RCPT TO command"
	case ErrSMTPData:
		return "sending SMTP DATA command"
	case ErrSMTPDataClose:
		return "closing SMTP DATA writer"
	case ErrWriteContent:
		return "sending message content"
	case ErrAmbiguous:
		return "ambiguous reason, check the per-recipient Results"
	}
	return "unknown reason"
}
