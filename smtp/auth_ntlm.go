// SPDX-FileCopyrightText: Copyright (c) 2024 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"errors"
	"fmt"

	"github.com/Azure/go-ntlmssp"
)

// ErrNTLMChallangeEmpty is returned when the NTLMv2 ChallengeMessage received from the server is empty.
var ErrNTLMChallangeEmpty = errors.New("smtp: NTLMv2 ChallengeMessage is empty")

// ntlmAuth represents a NTLM client and satisfies the smtp.Auth interface.
type ntlmAuth struct {
	domain, password, username, workstation string
	domainNeeded                            bool
}

// NTLMv2Auth returns an [Auth] for NTLMv2. A "DOMAIN\user" or "user@domain" username is
// split into user and domain.
func NTLMv2Auth(username, password, workstation string) Auth {
	user, domain, domainNeeded := ntlmssp.GetDomain(username)
	return &ntlmAuth{
		domain:       domain,
		password:     password,
		username:     user,
		workstation:  workstation,
		domainNeeded: domainNeeded,
	}
}

// Start sends the NTLM negotiate message with the AUTH command
func (a *ntlmAuth) Start(_ *ServerInfo) (string, []byte, error) {
	negotiate, err := ntlmssp.NewNegotiateMessage(a.domain, a.workstation)
	if err != nil {
		return "", nil, fmt.Errorf("smtp: failed to create NTLM negotiate message: %w", err)
	}
	return "NTLM", negotiate, nil
}

// Next answers the server's challenge message with the authenticate message
func (a *ntlmAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	if len(fromServer) == 0 {
		return nil, ErrNTLMChallangeEmpty
	}
	return ntlmssp.ProcessChallenge(fromServer, a.username, a.password, a.domainNeeded)
}
