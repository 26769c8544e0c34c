// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Range of characters for the secure string generation
const cr = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"

// Bitmask sizes for the string generators (based on 62 chars total)
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// boundaryPrefix can never occur in base64 or quoted-printable output
const boundaryPrefix = "=_"

// boundaryHexLen keeps a quoted boundary attribute on a single header line
const boundaryHexLen = 40

// boundaryCounter makes boundaries generated within the same clock tick distinct
var boundaryCounter atomic.Uint64

// randomStringSecure returns a random, string of length characters. This method uses the
// crypto/random package and therfore is cryptographically secure
func randomStringSecure(length int) (string, error) {
	randString := strings.Builder{}
	randString.Grow(length)
	charRangeLength := len(cr)

	randPool := make([]byte, 8)
	_, err := rand.Read(randPool)
	if err != nil {
		return randString.String(), err
	}
	for idx, char, rest := length-1, binary.BigEndian.Uint64(randPool), letterIdxMax; idx >= 0; {
		if rest == 0 {
			_, err = rand.Read(randPool)
			if err != nil {
				return randString.String(), err
			}
			char, rest = binary.BigEndian.Uint64(randPool), letterIdxMax
		}
		if i := int(char & letterIdxMask); i < charRangeLength {
			randString.WriteByte(cr[i])
			idx--
		}
		char >>= letterIdxBits
		rest--
	}

	return randString.String(), nil
}

// newBoundary returns a multipart boundary. The boundary is derived from the SHA-256 of the
// current time, a process wide counter, the role of the container and random data, so two
// containers never share a boundary even within the same message.
func newBoundary(role string) (string, error) {
	rnd, err := randomStringSecure(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate boundary: %w", err)
	}
	var seed [16]byte
	binary.BigEndian.PutUint64(seed[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(seed[8:], boundaryCounter.Add(1))

	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte(role))
	h.Write([]byte(rnd))
	return boundaryPrefix + hex.EncodeToString(h.Sum(nil))[:boundaryHexLen], nil
}

// newMessageID returns a Message-ID in angle brackets for the given host
func newMessageID(hostname string) (string, error) {
	id, err := newBoundary("message-id")
	if err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}
	if hostname == "" {
		hostname = "localhost.localdomain"
	}
	return "<" + id[len(boundaryPrefix):len(boundaryPrefix)+32] + "@" + hostname + ">", nil
}
