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

// Package smtp implements the client side of the Simple Mail Transfer Protocol as defined
// in RFC 5321. It also implements the following extensions:
//
//	8BITMIME  RFC 1652
//	AUTH      RFC 4954
//	STARTTLS  RFC 3207
//	SMTPUTF8  RFC 6531
//	ENHANCEDSTATUSCODES RFC 2034
package smtp

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// A Client runs an SMTP conversation over a Socket.
type Client struct {
	sock *Socket

	// serverName is the name of the server, used by Auth to check for the right host
	serverName string

	// localName is the name to use in HELO/EHLO
	localName string

	// greeting is the 220 reply of the server
	greeting *Response

	// ext is a map of supported extensions
	ext map[string]string

	// auth supported auth mechanisms
	auth []string

	// didHello indicates whether we've said HELO/EHLO
	didHello bool
}

// NewClient reads the server greeting from sock and returns a Client. The greeting has to
// be a 220 reply; otherwise the socket is closed and a *ProtocolError is returned.
func NewClient(sock *Socket, host string) (*Client, error) {
	resp, err := sock.ReadResponse()
	if err == nil {
		err = CheckResponse("<greeting>", resp, []int{220}, "GREETING")
	}
	if err != nil {
		_ = sock.Close()
		return nil, err
	}
	return &Client{sock: sock, serverName: host, localName: "localhost", greeting: resp}, nil
}

// Greeting returns the 220 greeting of the server
func (c *Client) Greeting() *Response {
	return c.greeting
}

// Socket returns the Socket of the Client
func (c *Client) Socket() *Socket {
	return c.sock
}

// Hello sends EHLO, falling back to HELO if the server rejects EHLO with a permanent error.
// The extensions advertised in the EHLO reply are recorded.
func (c *Client) Hello(localName string) error {
	if localName != "" {
		if strings.ContainsAny(localName, "\r\n") {
			return ErrLineBreak
		}
		c.localName = localName
	}
	c.didHello = true
	resp, err := c.sock.Request("EHLO "+c.localName, 250)
	var perr *ProtocolError
	if errors.As(err, &perr) && perr.Code() >= 500 {
		c.ext, c.auth = nil, nil
		_, err = c.sock.Request("HELO "+c.localName, 250)
		return err
	}
	if err != nil {
		return err
	}
	c.parseExtensions(resp)
	return nil
}

// parseExtensions records the extensions of an EHLO reply. The first line is the server
// greeting.
func (c *Client) parseExtensions(resp *Response) {
	c.ext = make(map[string]string)
	c.auth = nil
	for _, line := range resp.Message[1:] {
		name, args, _ := strings.Cut(line, " ")
		c.ext[strings.ToUpper(name)] = args
	}
	if mechs, ok := c.ext["AUTH"]; ok {
		c.auth = strings.Fields(mechs)
	}
}

// hello runs a hello exchange if needed
func (c *Client) hello() error {
	if c.didHello {
		return nil
	}
	return c.Hello("")
}

// Extension reports whether an extension is supported by the server. The extension name is
// case-insensitive. If the extension is supported, Extension also returns a string that
// contains any parameters the server specifies for the extension.
func (c *Client) Extension(ext string) (bool, string) {
	if c.ext == nil {
		return false, ""
	}
	param, ok := c.ext[strings.ToUpper(ext)]
	return ok, param
}

// StartTLS sends the STARTTLS command, encrypts all further communication and repeats the
// EHLO exchange as required by RFC 3207.
func (c *Client) StartTLS(config *tls.Config) error {
	if err := c.hello(); err != nil {
		return err
	}
	if _, err := c.sock.Request("STARTTLS", 220); err != nil {
		return err
	}
	if err := c.sock.StartTLS(config); err != nil {
		return err
	}
	return c.Hello(c.localName)
}

// Auth authenticates the client using the provided authentication mechanism. Challenges
// arrive as 334 replies, the exchange ends with 235. If the Auth fails to answer a
// challenge, the exchange is cancelled with "*".
func (c *Client) Auth(a Auth) error {
	if err := c.hello(); err != nil {
		return err
	}
	c.sock.setRedact(true)
	defer c.sock.setRedact(false)

	mech, initial, err := a.Start(&ServerInfo{Name: c.serverName, TLS: c.sock.IsTLS(), Auth: c.auth})
	if err != nil {
		return fmt.Errorf("smtp: failed to start %s authentication: %w", mech, err)
	}
	cmd := "AUTH " + mech
	if initial != nil {
		cmd += " " + base64.StdEncoding.EncodeToString(initial)
		if len(initial) == 0 {
			// RFC 4954: an empty initial response is sent as "="
			cmd = "AUTH " + mech + " ="
		}
	}
	resp, err := c.sock.Request(cmd, 334, 235)
	for err == nil {
		var challenge []byte
		more := resp.Code == 334
		if more {
			challenge, err = base64.StdEncoding.DecodeString(strings.TrimSpace(resp.Text()))
			if err != nil {
				err = fmt.Errorf("%w: invalid base64 challenge: %w", ErrUnexpectedServerChallange, err)
			}
		}
		var answer []byte
		if err == nil {
			answer, err = a.Next(challenge, more)
		}
		if err != nil {
			if more {
				// cancel the exchange, the reply is expected to be 501
				_, _ = c.sock.Request("*", 501)
			}
			return err
		}
		if !more {
			return nil
		}
		resp, err = c.sock.Request(base64.StdEncoding.EncodeToString(answer), 334, 235)
	}
	return err
}

// Mail issues a MAIL command with the given sender address. BODY=8BITMIME and SMTPUTF8
// are added when the server advertises them.
func (c *Client) Mail(from string) error {
	if err := c.hello(); err != nil {
		return err
	}
	cmd := "MAIL FROM:<" + from + ">"
	if ok, _ := c.Extension("8BITMIME"); ok {
		cmd += " BODY=8BITMIME"
	}
	if ok, _ := c.Extension("SMTPUTF8"); ok {
		cmd += " SMTPUTF8"
	}
	_, err := c.sock.Request(cmd, 250)
	return err
}

// Rcpt issues a RCPT command for the given recipient address. 250 and 251 (user not
// local, will forward) are accepted.
func (c *Client) Rcpt(to string) (*Response, error) {
	return c.sock.Request("RCPT TO:<"+to+">", 250, 251)
}

// DataCloser writes the message content. Closing it sends the terminating "." line and
// reads the final reply of the server.
type DataCloser struct {
	c        *Client
	w        io.WriteCloser
	response *Response
	closed   bool
}

// Write writes message content, dot-stuffing lines starting with "."
func (d *DataCloser) Write(p []byte) (int, error) {
	return d.w.Write(p)
}

// Close terminates the content and checks the final reply of the server for 250
func (d *DataCloser) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.w.Close(); err != nil {
		return fmt.Errorf("smtp: failed to terminate message content: %w", err)
	}
	resp, err := d.c.sock.ReadResponse()
	if err != nil {
		return err
	}
	d.response = resp
	return CheckResponse(".", resp, []int{250}, "")
}

// Response returns the final reply of the server after Close, or nil
func (d *DataCloser) Response() *Response {
	return d.response
}

// Data issues a DATA command and returns a DataCloser for the message content. A call to
// Data must be preceded by one or more calls to [Client.Rcpt].
func (c *Client) Data() (*DataCloser, error) {
	if _, err := c.sock.Request("DATA", 354); err != nil {
		return nil, err
	}
	return &DataCloser{c: c, w: c.sock.DataWriter()}, nil
}

// Reset sends the RSET command to the server, aborting the current mail transaction.
func (c *Client) Reset() error {
	_, err := c.sock.Request("RSET", 250)
	return err
}

// Noop sends the NOOP command to the server. It does nothing but check that the connection
// to the server is okay.
func (c *Client) Noop() error {
	_, err := c.sock.Request("NOOP", 250)
	return err
}

// Quit sends the QUIT command and closes the connection to the server.
func (c *Client) Quit() error {
	_, err := c.sock.Request("QUIT", 221)
	if cerr := c.sock.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the connection without QUIT
func (c *Client) Close() error {
	return c.sock.Close()
}
