// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	qp "gopkg.in/alexcesaro/quotedprintable.v3"
)

const (
	// wordPrefixLen is the length of "=?UTF-8?B?"
	wordPrefixLen = 10
	// wordSuffixLen is the length of "?="
	wordSuffixLen = 2
	upperHex      = "0123456789ABCDEF"
)

var (
	// encodedWordRe matches an RFC 2047 encoded-word and captures charset, encoding and text
	encodedWordRe = regexp.MustCompile(`=\?([^?\s]+)\?([^?\s]*)\?([^?\s]*)\?=`)

	// safeTokenRe matches values that can be written to a header without encoding
	safeTokenRe = regexp.MustCompile(`^[\t -~]*$`)

	// foldRe matches a line break followed by folding whitespace
	foldRe = regexp.MustCompile(`\r?\n([ \t])`)
)

// HeaderCodec encodes and decodes RFC 2047 encoded-words in header values.
type HeaderCodec struct {
	cfg    *Config
	stdlib *mime.WordDecoder
	compat *qp.WordDecoder
}

// NewHeaderCodec returns a HeaderCodec for the given Config. A nil Config selects the defaults.
func NewHeaderCodec(cfg *Config) *HeaderCodec {
	return &HeaderCodec{
		cfg:    cfg.orDefault(),
		stdlib: &mime.WordDecoder{CharsetReader: charsetReader},
		compat: &qp.WordDecoder{CharsetReader: charsetReader},
	}
}

// DecodeIfNeeded decodes all encoded-words in s. Values without an encoded-word are returned
// unchanged. Folded lines are unfolded first and whitespace between two adjacent
// encoded-words is dropped. An encoded-word with an encoding other than B or Q results in
// ErrUnsupportedWordEncoding.
func (c *HeaderCodec) DecodeIfNeeded(s string) (string, error) {
	if !strings.Contains(s, "=?") {
		return s, nil
	}
	s = foldRe.ReplaceAllString(s, "$1")
	for _, m := range encodedWordRe.FindAllStringSubmatch(s, -1) {
		switch m[2] {
		case "B", "b", "Q", "q":
		default:
			return "", fmt.Errorf("%w: %q", ErrUnsupportedWordEncoding, m[2])
		}
	}

	switch c.cfg.DecodeStrategy {
	case DecoderStdlib:
		return c.stdlib.DecodeHeader(s)
	case DecoderCompat:
		return c.compat.DecodeHeader(s)
	default:
		return decodeWords(s)
	}
}

// EncodeIfNeeded encodes s with the configured header encoding unless it is a safe token
func (c *HeaderCodec) EncodeIfNeeded(s string) string {
	return c.EncodeWith(s, c.cfg.HeaderEncoding)
}

// EncodeWith encodes s as a sequence of UTF-8 encoded-words using quoted-printable for
// EncodingQP and base64 for anything else. Printable ASCII without a "=?" sequence is
// returned unchanged. Each word fits into the configured line length and words are separated
// by a single space, so the header writer can fold between them.
func (c *HeaderCodec) EncodeWith(s string, e Encoding) string {
	if isSafeToken(s) {
		return s
	}
	limit := c.cfg.LineLength - wordPrefixLen - wordSuffixLen
	if limit < 12 {
		limit = 12
	}

	mode := "B"
	if e == EncodingQP {
		mode = "Q"
	}

	var words []string
	start := 0
	for i := 0; i < len(s); {
		_, n := utf8.DecodeRuneInString(s[i:])
		if i > start && encodedTextLen(mode, s[start:i+n]) > limit {
			words = append(words, encodeWord(mode, s[start:i]))
			start = i
		}
		i += n
	}
	words = append(words, encodeWord(mode, s[start:]))
	return strings.Join(words, " ")
}

// isSafeToken reports whether s can be written to a header as-is
func isSafeToken(s string) bool {
	return safeTokenRe.MatchString(s) && !strings.Contains(s, "=?")
}

// encodeWord returns a single UTF-8 encoded-word for s
func encodeWord(mode, s string) string {
	var sb strings.Builder
	sb.WriteString("=?UTF-8?")
	sb.WriteString(mode)
	sb.WriteByte('?')
	if mode == "B" {
		sb.WriteString(base64.StdEncoding.EncodeToString([]byte(s)))
	} else {
		for i := 0; i < len(s); i++ {
			b := s[i]
			switch {
			case b == ' ':
				sb.WriteByte('_')
			case isQWordSafe(b):
				sb.WriteByte(b)
			default:
				sb.WriteByte('=')
				sb.WriteByte(upperHex[b>>4])
				sb.WriteByte(upperHex[b&0x0f])
			}
		}
	}
	sb.WriteString("?=")
	return sb.String()
}

// encodedTextLen returns the length of the encoded text of a word holding s
func encodedTextLen(mode, s string) int {
	if mode == "B" {
		return base64.StdEncoding.EncodedLen(len(s))
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || isQWordSafe(s[i]) {
			n++
			continue
		}
		n += 3
	}
	return n
}

// isQWordSafe reports whether b may appear literally in a Q encoded-word
func isQWordSafe(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '!' || b == '*' || b == '+' || b == '-' || b == '/':
		return true
	default:
		return false
	}
}

// decodeWords is the native encoded-word decoder
func decodeWords(s string) (string, error) {
	var sb strings.Builder
	last := 0
	prevWord := false
	for _, m := range encodedWordRe.FindAllStringSubmatchIndex(s, -1) {
		between := s[last:m[0]]
		if !prevWord || strings.Trim(between, " \t") != "" {
			sb.WriteString(between)
		}
		dec, err := decodeWord(s[m[2]:m[3]], s[m[4]:m[5]], s[m[6]:m[7]])
		if err != nil {
			return "", err
		}
		sb.WriteString(dec)
		last = m[1]
		prevWord = true
	}
	sb.WriteString(s[last:])
	return sb.String(), nil
}

// decodeWord decodes the text of a single encoded-word
func decodeWord(charset, enc, text string) (string, error) {
	var raw []byte
	switch enc {
	case "B", "b":
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return "", fmt.Errorf("invalid base64 encoded-word: %w", err)
		}
		raw = b
	case "Q", "q":
		b, err := decodeQWord(text)
		if err != nil {
			return "", err
		}
		raw = b
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedWordEncoding, enc)
	}
	return decodeCharset(charset, raw)
}

// decodeQWord decodes the Q encoding of RFC 2047, section 4.2
func decodeQWord(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '_':
			out = append(out, ' ')
		case c == '=':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("invalid Q encoded-word: truncated escape in %q", s)
			}
			h, ok1 := fromHex(s[i+1])
			l, ok2 := fromHex(s[i+2])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("invalid Q encoded-word: bad escape in %q", s)
			}
			out = append(out, h<<4|l)
			i += 2
		case c < ' ' || c > '~':
			return nil, fmt.Errorf("invalid Q encoded-word: unexpected byte %#x", c)
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

func fromHex(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	default:
		return 0, false
	}
}
