// SPDX-FileCopyrightText: Copyright 2010 The Go Authors. All rights reserved.
// SPDX-FileCopyrightText: Copyright (c) 2022-2023 The go-mail Authors
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

// plainAuth is the type that satisfies the Auth interface for the "SMTP PLAIN" auth
type plainAuth struct {
	identity, username, password string
	host                         string
	allowUnencrypted             bool
}

// PlainAuth returns an [Auth] that implements the PLAIN authentication mechanism as defined
// in RFC 4616. Usually identity should be the empty string, to act as username.
//
// PlainAuth will only send the credentials if the connection is using TLS, is connected to
// localhost or allowUnencrypted is set.
func PlainAuth(identity, username, password, host string, allowUnencrypted bool) Auth {
	return &plainAuth{identity, username, password, host, allowUnencrypted}
}

func (a *plainAuth) Start(server *ServerInfo) (string, []byte, error) {
	if !a.allowUnencrypted && !server.TLS && !isLocalhost(server.Name) {
		return "", nil, ErrUnencrypted
	}
	if server.Name != a.host {
		return "", nil, ErrWrongHostname
	}
	return "PLAIN", []byte(a.identity + "\x00" + a.username + "\x00" + a.password), nil
}

func (a *plainAuth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		// everything was sent with the initial response
		return nil, ErrUnexpectedServerChallange
	}
	return nil, nil
}
