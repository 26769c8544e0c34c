// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	qp "gopkg.in/alexcesaro/quotedprintable.v3"
)

// encodeContent writes content to w using the given transfer encoding. Base64 and
// quoted-printable output is wrapped at cfg.LineLength; 7bit and 8bit content gets its line
// endings normalized to cfg.Delimiter; binary and unencoded content is written unmodified.
func encodeContent(w io.Writer, content []byte, enc Encoding, cfg *Config) error {
	switch enc {
	case EncodingB64:
		lb := NewBase64LineBreaker(w, cfg.LineLength, cfg.Delimiter)
		be := base64.NewEncoder(base64.StdEncoding, lb)
		if _, err := be.Write(content); err != nil {
			return fmt.Errorf("failed to write base64 content: %w", err)
		}
		if err := be.Close(); err != nil {
			return fmt.Errorf("failed to close base64 encoder: %w", err)
		}
		return lb.Close()
	case EncodingQP:
		_, err := w.Write(encodeQP(content, cfg.LineLength, cfg.Delimiter))
		return err
	case Encoding7Bit, Encoding8Bit:
		_, err := w.Write(normalizeNewlines(content, cfg.Delimiter))
		return err
	case EncodingBinary, EncodingNone:
		_, err := w.Write(content)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, enc)
	}
}

// decodeContent reverses the transfer encoding of a body
func decodeContent(content []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingB64:
		clean := bytes.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\r', '\n':
				return -1
			}
			return r
		}, content)
		out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
		n, err := base64.StdEncoding.Decode(out, clean)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
		return out[:n], nil
	case EncodingQP:
		out, err := io.ReadAll(qp.NewReader(bytes.NewReader(content)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode quoted-printable content: %w", err)
		}
		return out, nil
	default:
		return content, nil
	}
}

// encodeQP encodes content as quoted-printable (RFC 2045, section 6.7) with soft line
// breaks keeping every line within limit characters. CRLF and LF in content are hard line
// breaks written as delim.
func encodeQP(content []byte, limit int, delim string) []byte {
	var out bytes.Buffer
	out.Grow(len(content) + len(content)/3)
	lineLen := 0

	emit := func(s []byte) {
		// leave room for the soft break "="
		if lineLen+len(s) > limit-1 {
			out.WriteByte('=')
			out.WriteString(delim)
			lineLen = 0
		}
		out.Write(s)
		lineLen += len(s)
	}

	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case c == '\r' && i+1 < len(content) && content[i+1] == '\n':
			continue
		case c == '\n':
			out.WriteString(delim)
			lineLen = 0
		case c == ' ' || c == '\t':
			// whitespace before a line break or at the end must be encoded
			atEnd := i+1 == len(content) || content[i+1] == '\n' ||
				(content[i+1] == '\r' && i+2 < len(content) && content[i+2] == '\n')
			if atEnd {
				emit([]byte{'=', upperHex[c>>4], upperHex[c&0x0f]})
				continue
			}
			emit([]byte{c})
		case c >= '!' && c <= '~' && c != '=':
			emit([]byte{c})
		default:
			emit([]byte{'=', upperHex[c>>4], upperHex[c&0x0f]})
		}
	}
	return out.Bytes()
}

// normalizeNewlines converts CRLF, LF and lone CR line endings to delim
func normalizeNewlines(content []byte, delim string) []byte {
	var out bytes.Buffer
	out.Grow(len(content))
	for i := 0; i < len(content); i++ {
		switch c := content[i]; c {
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			out.WriteString(delim)
		case '\n':
			out.WriteString(delim)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}
