// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// charsetReader returns a reader that transcodes input from the named charset to UTF-8. The
// MIME index is consulted first, then the full IANA index. An RFC 2231 language suffix
// ("UTF-8*en") is ignored. It satisfies the CharsetReader signature of mime.WordDecoder and
// net/mail.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if isUTF8Charset(charset) {
		return input, nil
	}
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeCharset transcodes data from the named charset to a UTF-8 string
func decodeCharset(charset string, data []byte) (string, error) {
	if isUTF8Charset(charset) {
		return string(data), nil
	}
	r, err := charsetReader(charset, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s content: %w", charset, err)
	}
	return string(out), nil
}

func lookupCharset(charset string) (encoding.Encoding, error) {
	name := charsetName(charset)
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil || enc == nil {
		enc, err = ianaindex.IANA.Encoding(name)
	}
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCharset, charset)
	}
	return enc, nil
}

func isUTF8Charset(charset string) bool {
	switch strings.ToLower(charsetName(charset)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return true
	default:
		return false
	}
}

// charsetName returns charset without surrounding space and language suffix
func charsetName(charset string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(charset), "*")
	return name
}
