// SPDX-FileCopyrightText: Copyright (c) 2024 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"
)

// scramAuth is a SCRAM (RFC 5802) client and satisfies the smtp.Auth interface.
type scramAuth struct {
	username, password string
	mech               string
	h                  func() hash.Hash

	nonce        string
	clientFirst  string
	authMessage  string
	saltedSecret []byte
}

// ScramSHA1Auth returns an [Auth] for SCRAM-SHA-1
func ScramSHA1Auth(username, password string) Auth {
	return &scramAuth{username: username, password: password, mech: "SCRAM-SHA-1", h: sha1.New}
}

// ScramSHA256Auth returns an [Auth] for SCRAM-SHA-256
func ScramSHA256Auth(username, password string) Auth {
	return &scramAuth{username: username, password: password, mech: "SCRAM-SHA-256", h: sha256.New}
}

// Start selects the mechanism. The client-first message is sent in answer to the server's
// empty challenge.
func (a *scramAuth) Start(_ *ServerInfo) (string, []byte, error) {
	a.reset()
	return a.mech, nil, nil
}

// Next walks through the SCRAM exchange: client-first, client-final and the verification
// of the server signature
func (a *scramAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	var (
		resp []byte
		err  error
	)
	switch {
	case len(fromServer) == 0:
		resp, err = a.clientFirstMessage()
	case bytes.HasPrefix(fromServer, []byte("r=")):
		resp, err = a.clientFinalMessage(string(fromServer))
	case bytes.HasPrefix(fromServer, []byte("v=")):
		resp, err = a.verifyServer(string(fromServer[2:]))
	default:
		err = fmt.Errorf("%w: %s", ErrUnexpectedServerResponse, string(fromServer))
	}
	if err != nil {
		a.reset()
		return nil, err
	}
	return resp, nil
}

func (a *scramAuth) reset() {
	a.nonce, a.clientFirst, a.authMessage = "", "", ""
	a.saltedSecret = nil
}

func (a *scramAuth) clientFirstMessage() ([]byte, error) {
	// RFC 5802, section 5.1: "," and "=" are escaped before SASLprep
	user, err := precis.OpaqueString.String(strings.NewReplacer("=", "=3D", ",", "=2C").Replace(a.username))
	if err != nil {
		return nil, fmt.Errorf("unable to normalize username: %w", err)
	}
	buf := make([]byte, 24)
	if _, err = rand.Read(buf); err != nil {
		return nil, fmt.Errorf("unable to generate client nonce: %w", err)
	}
	a.nonce = base64.StdEncoding.EncodeToString(buf)
	a.clientFirst = "n=" + user + ",r=" + a.nonce
	return []byte("n,," + a.clientFirst), nil
}

func (a *scramAuth) clientFinalMessage(serverFirst string) ([]byte, error) {
	attrs := strings.Split(serverFirst, ",")
	if len(attrs) < 3 || !strings.HasPrefix(attrs[1], "s=") || !strings.HasPrefix(attrs[2], "i=") {
		return nil, errors.New("malformed server-first message")
	}
	nonce := attrs[0][2:]
	if a.nonce == "" || !strings.HasPrefix(nonce, a.nonce) {
		return nil, errors.New("server nonce does not start with our nonce")
	}
	salt, err := base64.StdEncoding.DecodeString(attrs[1][2:])
	if err != nil {
		return nil, fmt.Errorf("invalid encoded salt: %w", err)
	}
	iterations, err := strconv.Atoi(attrs[2][2:])
	if err != nil || iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count: %q", attrs[2][2:])
	}
	password, err := precis.OpaqueString.String(a.password)
	if err != nil {
		return nil, fmt.Errorf("unable to normalize password: %w", err)
	}

	a.saltedSecret = pbkdf2.Key([]byte(password), salt, iterations, a.h().Size(), a.h)
	withoutProof := "c=biws,r=" + nonce
	a.authMessage = a.clientFirst + "," + serverFirst + "," + withoutProof

	clientKey := a.hmac(a.saltedSecret, "Client Key")
	stored := a.h()
	stored.Write(clientKey)
	signature := a.hmac(stored.Sum(nil), a.authMessage)
	proof := make([]byte, len(clientKey))
	for i := range clientKey {
		proof[i] = clientKey[i] ^ signature[i]
	}
	return []byte(withoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof)), nil
}

func (a *scramAuth) verifyServer(signature string) ([]byte, error) {
	if a.saltedSecret == nil {
		return nil, errors.New("server signature received before server-first message")
	}
	expected := base64.StdEncoding.EncodeToString(a.hmac(a.hmac(a.saltedSecret, "Server Key"), a.authMessage))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, errors.New("invalid server signature")
	}
	return []byte{}, nil
}

func (a *scramAuth) hmac(key []byte, msg string) []byte {
	mac := hmac.New(a.h, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}
