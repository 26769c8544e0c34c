// SPDX-FileCopyrightText: Copyright (c) 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"fmt"
)

// loginAuth is the type that satisfies the Auth interface for the "SMTP LOGIN" auth
type loginAuth struct {
	username, password string
	host               string
	allowUnencrypted   bool

	// step counts the challenges answered so far
	step int
}

const (
	// LoginXUsernameChallenge represents the Username Challenge response sent by the SMTP server per the AUTH LOGIN
	// extension.
	LoginXUsernameChallenge = "Username:"

	// LoginXPasswordChallenge represents the Password Challenge response sent by the SMTP server per the AUTH LOGIN
	// extension.
	LoginXPasswordChallenge = "Password:"

	// LoginXDraftUsernameChallenge represents the Username Challenge of the expired IETF draft of AUTH LOGIN
	LoginXDraftUsernameChallenge = "User Name\x00"

	// LoginXDraftPasswordChallenge represents the Password Challenge of the expired IETF draft of AUTH LOGIN
	LoginXDraftPasswordChallenge = "Password\x00"
)

// LoginAuth returns an Auth that implements the LOGIN authentication mechanism. After
// "AUTH LOGIN" the username and the password are each sent in answer to a 334 challenge:
//
//	C: AUTH LOGIN      S: 334 VXNlcm5hbWU6
//	C: <username>      S: 334 UGFzc3dvcmQ6
//	C: <password>      S: 235 Authentication successful
//
// Known challenge texts select the answer. Servers sending other challenge texts get the
// username first and the password second.
//
// LoginAuth will only send the credentials if the connection is using TLS, is connected to
// localhost or allowUnencrypted is set.
func LoginAuth(username, password, host string, allowUnencrypted bool) Auth {
	return &loginAuth{username: username, password: password, host: host, allowUnencrypted: allowUnencrypted}
}

func (a *loginAuth) Start(server *ServerInfo) (string, []byte, error) {
	if !a.allowUnencrypted && !server.TLS && !isLocalhost(server.Name) {
		return "", nil, ErrUnencrypted
	}
	if server.Name != a.host {
		return "", nil, ErrWrongHostname
	}
	a.step = 0
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	defer func() { a.step++ }()
	switch string(fromServer) {
	case LoginXUsernameChallenge, LoginXDraftUsernameChallenge:
		return []byte(a.username), nil
	case LoginXPasswordChallenge, LoginXDraftPasswordChallenge:
		return []byte(a.password), nil
	}
	switch a.step {
	case 0:
		return []byte(a.username), nil
	case 1:
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedServerChallange, string(fromServer))
	}
}
