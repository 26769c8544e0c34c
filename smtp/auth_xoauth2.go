// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

// xoauth2Auth is the type that satisfies the Auth interface for the "XOAUTH2" auth
type xoauth2Auth struct {
	username, token string
}

// XOAuth2Auth returns an [Auth] that sends an OAuth 2.0 bearer token with the XOAUTH2
// mechanism used by Gmail and Microsoft 365.
func XOAuth2Auth(username, token string) Auth {
	return &xoauth2Auth{username: username, token: token}
}

func (a *xoauth2Auth) Start(_ *ServerInfo) (string, []byte, error) {
	return "XOAUTH2", []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01"), nil
}

// Next answers an error challenge with an empty response, after which the server sends
// the final reply
func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}
