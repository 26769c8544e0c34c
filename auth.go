// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/letterbox/go-mail/smtp"
)

// SMTPAuthType represents a string to any SMTP AUTH type
type SMTPAuthType string

// Supported SMTP AUTH types
const (
	// SMTPAuthAutoDiscover picks the strongest mechanism the server advertises
	SMTPAuthAutoDiscover SMTPAuthType = "AUTODISCOVER"

	// SMTPAuthCramMD5 is the "CRAM-MD5" SASL authentication mechanism as described in RFC 2195
	SMTPAuthCramMD5 SMTPAuthType = "CRAM-MD5"

	// SMTPAuthLogin is the "LOGIN" SASL authentication mechanism
	SMTPAuthLogin SMTPAuthType = "LOGIN"

	// SMTPAuthNoAuth is equivalent to performing no authentication at all
	SMTPAuthNoAuth SMTPAuthType = ""

	// SMTPAuthNTLM is the Microsoft "NTLM" authentication mechanism in its NTLMv2 variant
	SMTPAuthNTLM SMTPAuthType = "NTLM"

	// SMTPAuthPlain is the "PLAIN" authentication mechanism as described in RFC 4616
	SMTPAuthPlain SMTPAuthType = "PLAIN"

	// SMTPAuthXOAUTH2 is the "XOAUTH2" SASL authentication mechanism. The password is used
	// as OAuth2 access token.
	SMTPAuthXOAUTH2 SMTPAuthType = "XOAUTH2"

	// SMTPAuthSCRAMSHA1 is the "SCRAM-SHA-1" mechanism as described in RFC 5802
	SMTPAuthSCRAMSHA1 SMTPAuthType = "SCRAM-SHA-1"

	// SMTPAuthSCRAMSHA256 is the "SCRAM-SHA-256" mechanism as described in RFC 7677
	SMTPAuthSCRAMSHA256 SMTPAuthType = "SCRAM-SHA-256"
)

// autoDiscoverOrder lists the mechanisms tried by SMTPAuthAutoDiscover, strongest first
var autoDiscoverOrder = []SMTPAuthType{
	SMTPAuthSCRAMSHA256, SMTPAuthSCRAMSHA1, SMTPAuthXOAUTH2, SMTPAuthCramMD5,
	SMTPAuthPlain, SMTPAuthLogin,
}

var (
	// ErrNoAuthSupported is returned when the server does not offer SMTP AUTH at all
	ErrNoAuthSupported = errors.New("server does not support SMTP AUTH")

	// ErrAuthNotSupported is returned when the server does not offer the selected mechanism
	ErrAuthNotSupported = errors.New("server does not support SMTP AUTH type")

	// ErrUnsupportedAuthType is returned for an SMTPAuthType this package does not implement
	ErrUnsupportedAuthType = errors.New("unsupported SMTP AUTH type")
)

// String satisfies the fmt.Stringer interface for the SMTPAuthType type
func (a SMTPAuthType) String() string {
	if a == SMTPAuthNoAuth {
		return "NOAUTH"
	}
	return string(a)
}

// smtpAuth returns the smtp.Auth for the SMTPAuthType. The server has to advertise the
// mechanism in its EHLO reply.
func (t *Transport) smtpAuth(client *smtp.Client) (smtp.Auth, error) {
	if t.smtpAuthCustom != nil {
		return t.smtpAuthCustom, nil
	}
	if t.smtpAuthType == SMTPAuthNoAuth {
		return nil, nil
	}
	ok, mechs := client.Extension("AUTH")
	if !ok {
		return nil, ErrNoAuthSupported
	}
	server := &smtp.ServerInfo{Auth: strings.Fields(mechs)}

	authType := t.smtpAuthType
	if authType == SMTPAuthAutoDiscover {
		authType = SMTPAuthNoAuth
		for _, candidate := range autoDiscoverOrder {
			if server.HasMech(string(candidate)) {
				authType = candidate
				break
			}
		}
		if authType == SMTPAuthNoAuth {
			return nil, fmt.Errorf("%w: none of %v offered", ErrAuthNotSupported, autoDiscoverOrder)
		}
	}
	if !server.HasMech(string(authType)) {
		return nil, fmt.Errorf("%w: %s", ErrAuthNotSupported, authType)
	}

	switch authType {
	case SMTPAuthPlain:
		return smtp.PlainAuth("", t.user, t.pass, t.host, t.tlspolicy == NoTLS), nil
	case SMTPAuthLogin:
		return smtp.LoginAuth(t.user, t.pass, t.host, t.tlspolicy == NoTLS), nil
	case SMTPAuthCramMD5:
		return smtp.CRAMMD5Auth(t.user, t.pass), nil
	case SMTPAuthXOAUTH2:
		return smtp.XOAuth2Auth(t.user, t.pass), nil
	case SMTPAuthSCRAMSHA1:
		return smtp.ScramSHA1Auth(t.user, t.pass), nil
	case SMTPAuthSCRAMSHA256:
		return smtp.ScramSHA256Auth(t.user, t.pass), nil
	case SMTPAuthNTLM:
		return smtp.NTLMv2Auth(t.user, t.pass, t.helo), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAuthType, authType)
	}
}
