// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"context"
	"errors"
	"regexp"

	"github.com/letterbox/go-mail/smtp"
)

// ResultStatus is the delivery state of a single recipient
type ResultStatus int

const (
	// StatusUnknown is the state of a Result that has not been finalized yet
	StatusUnknown ResultStatus = iota

	// StatusOK means the message was accepted for the recipient
	StatusOK

	// StatusFailed means delivery failed for a reason other than a server rejection, e.g.
	// a network error
	StatusFailed

	// StatusError means the server rejected a request of the exchange
	StatusError
)

// reQueueID matches the queue id servers put into the final reply of the DATA command
var reQueueID = regexp.MustCompile(`(?i)\bqueued as ([^\s;,]+)`)

// Sender is implemented by everything that can deliver a Message
type Sender interface {
	Send(ctx context.Context, m *Message) ([]*Result, error)
}

// Result is the outcome of a delivery for one recipient. All Results of one Send call
// share the same terminal status.
type Result struct {
	// Recipient is the envelope recipient this Result belongs to
	Recipient *Address

	// Status is the delivery state
	Status ResultStatus

	// Code is the server reply code, or 0 if no reply was involved
	Code int

	// Message is the server reply text or the error message
	Message string

	// ID is the id the server or provider assigned to the message, if any
	ID string

	// Err holds the error a failed or rejected delivery ended with
	Err error
}

// String satisfies the fmt.Stringer interface for the ResultStatus type
func (s ResultStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// newResults creates a pending Result for every recipient
func newResults(rcpts []*Address) []*Result {
	results := make([]*Result, len(rcpts))
	for i, rcpt := range rcpts {
		results[i] = &Result{Recipient: rcpt}
	}
	return results
}

// OK reports whether the message was accepted for the recipient
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusOK
}

// accept finalizes the Result as delivered with the final server reply
func (r *Result) accept(code int, message, id string) {
	r.Status = StatusOK
	r.Code = code
	r.Message = message
	r.ID = id
}

// fail finalizes the Result with err. Server rejections end in StatusError, everything
// else in StatusFailed.
func (r *Result) fail(err error) {
	r.Err = err
	r.Message = err.Error()
	r.Status = StatusFailed
	var perr *smtp.ProtocolError
	if errors.As(err, &perr) {
		r.Status = StatusError
		r.Code = perr.Code()
		r.Message = perr.Response.Text()
	}
}

// queueID extracts the queue id from a final DATA reply like "250 2.0.0 Ok: queued as 4ABC12"
func queueID(text string) string {
	m := reQueueID.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
