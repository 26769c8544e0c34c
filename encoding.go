// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"fmt"
	"strings"
)

// Encoding represents a MIME transfer encoding like quoted-printable or base64.
type Encoding string

// Format represents the "format" parameter of a text part as described in RFC 3676.
type Format string

// Charset represents a character set for the content of a Part.
type Charset string

// MIMEType represents the media type of a Part.
type MIMEType string

const (
	// Encoding7Bit represents the "7bit" encoding as specified in RFC 2045.
	Encoding7Bit Encoding = "7bit"

	// Encoding8Bit represents the "8bit" encoding as specified in RFC 2045.
	Encoding8Bit Encoding = "8bit"

	// EncodingB64 represents the Base64 encoding as specified in RFC 2045.
	EncodingB64 Encoding = "base64"

	// EncodingQP represents the "quoted-printable" encoding as specified in RFC 2045.
	EncodingQP Encoding = "quoted-printable"

	// EncodingBinary represents the "binary" encoding as specified in RFC 2045.
	EncodingBinary Encoding = "binary"

	// EncodingNone means that no Content-Transfer-Encoding is declared and the content is
	// written unmodified.
	EncodingNone Encoding = ""
)

const (
	// FormatFixed is the default text format.
	FormatFixed Format = "fixed"

	// FormatFlowed is the "format=flowed" text format of RFC 3676.
	FormatFlowed Format = "flowed"
)

const (
	// CharsetUTF8 represents the "UTF-8" charset.
	CharsetUTF8 Charset = "UTF-8"

	// CharsetASCII represents the "US-ASCII" charset.
	CharsetASCII Charset = "US-ASCII"

	// CharsetISO88591 represents the "ISO-8859-1" charset.
	CharsetISO88591 Charset = "ISO-8859-1"

	// CharsetISO885915 represents the "ISO-8859-15" charset.
	CharsetISO885915 Charset = "ISO-8859-15"

	// CharsetWindows1252 represents the "windows-1252" charset.
	CharsetWindows1252 Charset = "windows-1252"
)

const (
	TypeTextPlain            MIMEType = "text/plain"
	TypeTextHTML             MIMEType = "text/html"
	TypeAppOctetStream       MIMEType = "application/octet-stream"
	TypeMessageRFC822        MIMEType = "message/rfc822"
	TypeMultipartAlternative MIMEType = "multipart/alternative"
	TypeMultipartMixed       MIMEType = "multipart/mixed"
	TypeMultipartRelated     MIMEType = "multipart/related"
)

// ParseEncoding returns the Encoding for the given Content-Transfer-Encoding value. The
// comparison ignores case and surrounding whitespace.
func ParseEncoding(s string) (Encoding, error) {
	e := Encoding(strings.ToLower(strings.TrimSpace(s)))
	if !e.valid() {
		return EncodingNone, fmt.Errorf("%w: %q", ErrInvalidEncoding, s)
	}
	return e, nil
}

// ParseFormat returns the Format for the given value. An empty value means FormatFixed.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatFixed:
		return FormatFixed, nil
	case FormatFlowed:
		return FormatFlowed, nil
	default:
		return FormatFixed, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// String is a standard method to convert an Encoding into a printable format
func (e Encoding) String() string {
	return string(e)
}

// valid reports whether e is one of the enumerated transfer encodings
func (e Encoding) valid() bool {
	switch e {
	case Encoding7Bit, Encoding8Bit, EncodingB64, EncodingQP, EncodingBinary, EncodingNone:
		return true
	default:
		return false
	}
}

// String is a standard method to convert a Format into a printable format
func (f Format) String() string {
	return string(f)
}

// valid reports whether f is fixed or flowed
func (f Format) valid() bool {
	return f == FormatFixed || f == FormatFlowed
}

// String is a standard method to convert a Charset into a printable format
func (c Charset) String() string {
	return string(c)
}

// String is a standard method to convert a MIMEType into a printable format
func (t MIMEType) String() string {
	return string(t)
}

// isMultipart reports whether the media type is of the multipart/* family
func (t MIMEType) isMultipart() bool {
	return strings.HasPrefix(strings.ToLower(string(t)), "multipart/")
}
