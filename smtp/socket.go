// SPDX-FileCopyrightText: Copyright 2010 The Go Authors. All rights reserved.
// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// Original net/smtp code from the Go stdlib by the Go Authors.
// Use of this source code is governed by a BSD-style
// LICENSE file that can be found in this directory.
//
// go-mail specific modifications by the go-mail Authors.
// Licensed under the MIT License.
// See [PROJECT ROOT]/LICENSES directory for more information.
//
// SPDX-License-Identifier: BSD-3-Clause AND MIT

package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/letterbox/go-mail/log"
)

// redacted replaces authentication data in debug logs and errors
const redacted = "<SMTP auth data redacted>"

// Socket is a line-oriented SMTP connection. Every command is answered by exactly one
// reply; commands and replies strictly alternate.
type Socket struct {
	// conn is kept so it can be upgraded to TLS later
	conn net.Conn

	// text is the textproto.Conn wrapping conn
	text *textproto.Conn

	// tls indicates whether the connection is using TLS
	tls bool

	// logger receives the protocol conversation if set
	logger log.Logger

	// logAuthData disables the redaction of authentication data
	logAuthData bool

	// redact is set while authentication data is exchanged
	redact bool

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mutex     sync.Mutex
}

// NewSocket returns a Socket for an established connection
func NewSocket(conn net.Conn) *Socket {
	s := &Socket{conn: conn, text: textproto.NewConn(conn)}
	_, s.tls = conn.(*tls.Conn)
	return s
}

// SetLogger sets the log.Logger that receives the protocol conversation. A nil Logger
// disables the logging.
func (s *Socket) SetLogger(l log.Logger) {
	s.mutex.Lock()
	s.logger = l
	s.mutex.Unlock()
}

// SetLogAuthData enables logging of authentication data
func (s *Socket) SetLogAuthData(v bool) {
	s.mutex.Lock()
	s.logAuthData = v
	s.mutex.Unlock()
}

// setRedact marks the start or end of an authentication exchange
func (s *Socket) setRedact(v bool) {
	s.mutex.Lock()
	s.redact = v && !s.logAuthData
	s.mutex.Unlock()
}

// IsTLS reports whether the connection is encrypted
func (s *Socket) IsTLS() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.tls
}

// Send writes a single command line terminated by CRLF
func (s *Socket) Send(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return ErrLineBreak
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrNoConnection
	}
	s.debugLog(log.DirClientToServer, "%s", s.loggable(line))
	if err := s.text.PrintfLine("%s", line); err != nil {
		return fmt.Errorf("smtp: failed to send command: %w", err)
	}
	return nil
}

// ReadResponse reads a complete, possibly multi-line, reply
func (s *Socket) ReadResponse() (*Response, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, ErrNoConnection
	}

	resp := &Response{}
	for {
		line, err := s.text.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("smtp: failed to read response: %w", err)
		}
		code, more, text, err := parseResponseLine(line)
		if err != nil {
			return nil, err
		}
		if len(resp.Lines) > 0 && code != resp.Code {
			return nil, fmt.Errorf("%w: %d and %d", ErrInconsistentResponse, resp.Code, code)
		}
		resp.Code = code
		resp.Lines = append(resp.Lines, line)
		resp.Message = append(resp.Message, text)
		if s.redact && code == 334 {
			line = fmt.Sprintf("%d %s", code, redacted)
		}
		s.debugLog(log.DirServerToClient, "%s", line)
		if !more {
			return resp, nil
		}
	}
}

// Request sends cmd, reads the reply and checks its code against accepted. A rejected reply
// results in a *ProtocolError that is returned together with the Response.
func (s *Socket) Request(cmd string, accepted ...int) (*Response, error) {
	if err := s.Send(cmd); err != nil {
		return nil, err
	}
	resp, err := s.ReadResponse()
	if err != nil {
		return nil, err
	}
	s.mutex.Lock()
	request := s.loggable(cmd)
	s.mutex.Unlock()
	return resp, CheckResponse(request, resp, accepted, "")
}

// StartTLS upgrades the connection to TLS and performs the handshake
func (s *Socket) StartTLS(config *tls.Config) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrNoConnection
	}
	tc := tls.Client(s.conn, config)
	if err := tc.Handshake(); err != nil {
		return fmt.Errorf("smtp: TLS handshake failed: %w", err)
	}
	s.conn = tc
	s.text = textproto.NewConn(tc)
	s.tls = true
	return nil
}

// TLSConnectionState returns the TLS connection state of an encrypted Socket
func (s *Socket) TLSConnectionState() (*tls.ConnectionState, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, ErrNoConnection
	}
	tc, ok := s.conn.(*tls.Conn)
	if !ok {
		return nil, ErrNonTLSConnection
	}
	state := tc.ConnectionState()
	return &state, nil
}

// DataWriter returns a writer that dot-stuffs the message and terminates it with the
// "." line on Close
func (s *Socket) DataWriter() io.WriteCloser {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.text.DotWriter()
}

// SetDeadline sets the read and write deadline of the connection
func (s *Socket) SetDeadline(t time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.conn.SetDeadline(t); err != nil {
		return fmt.Errorf("smtp: failed to update deadline: %w", err)
	}
	return nil
}

// Close closes the connection. Only the first call closes it; all calls return the result
// of that close.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		s.closeErr = s.text.Close()
		s.mutex.Unlock()
		s.debugLog(log.DirNone, "connection closed")
	})
	return s.closeErr
}

// loggable returns line with authentication data redacted if needed
func (s *Socket) loggable(line string) string {
	if !s.redact {
		return line
	}
	if strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
		if f := strings.Fields(line); len(f) > 2 {
			return f[0] + " " + f[1] + " " + redacted
		}
		return line
	}
	return redacted
}

// debugLog logs the provided message to the log.Logger, if one is set
func (s *Socket) debugLog(d log.Direction, f string, a ...interface{}) {
	if s.logger == nil {
		return
	}
	s.logger.Debugf(log.Log{Direction: d, Component: "smtp", Format: f, Messages: a})
}
