// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"os"
	"strings"

	"github.com/docker/go-units"

	"github.com/letterbox/go-mail/log"
)

const (
	// DefaultDelimiter is the line delimiter of rendered messages
	DefaultDelimiter = "\r\n"

	// DefaultLineLength is the line length used for header folding and content wrapping
	DefaultLineLength = 75

	// DefaultMaxDepth is the maximum nesting of multiparts and embedded messages accepted
	// by the Parser
	DefaultMaxDepth = 32

	// DefaultMaxMessageSize is the maximum size of a message read from an io.Reader
	DefaultMaxMessageSize int64 = 25 * units.MiB

	// minLineLength is the smallest line length that still fits an encoded-word
	minLineLength = 24
)

// DecodeStrategy selects the implementation used to decode RFC 2047 encoded-words.
type DecodeStrategy int

const (
	// DecoderNative uses the package's own encoded-word decoder
	DecoderNative DecodeStrategy = iota

	// DecoderStdlib delegates to mime.WordDecoder
	DecoderStdlib

	// DecoderCompat delegates to the quotedprintable.v3 WordDecoder
	DecoderCompat
)

// Config holds the settings shared by the HeaderCodec, HeaderParser, Parser and Renderer. A
// Config is read-only after construction and can be shared between goroutines.
type Config struct {
	// Delimiter is the line delimiter of rendered messages
	Delimiter string

	// LineLength is the maximum header line and encoded content line length
	LineLength int

	// HeaderEncoding is the encoding of RFC 2047 encoded-words created for header values.
	// Only EncodingB64 and EncodingQP are meaningful.
	HeaderEncoding Encoding

	// DecodeStrategy selects the encoded-word decoder
	DecodeStrategy DecodeStrategy

	// MaxDepth limits the nesting of multiparts and embedded messages
	MaxDepth int

	// MaxMessageSize limits the size of messages read from an io.Reader
	MaxMessageSize int64

	// UserAgent is written as X-Mailer header if not empty
	UserAgent string

	// Hostname is used for generated Message-IDs
	Hostname string

	// Logger receives parser and renderer diagnostics. A nil Logger disables them.
	Logger log.Logger
}

// ConfigOption returns a function that can be used for grouping Config options
type ConfigOption func(*Config)

// NewConfig returns a new Config with the defaults overridden by the given options
func NewConfig(opts ...ConfigOption) *Config {
	c := &Config{
		Delimiter:      DefaultDelimiter,
		LineLength:     DefaultLineLength,
		HeaderEncoding: EncodingB64,
		DecodeStrategy: DecoderNative,
		MaxDepth:       DefaultMaxDepth,
		MaxMessageSize: DefaultMaxMessageSize,
		Hostname:       defaultHostname(),
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o(c)
	}
	return c
}

// WithDelimiter overrides the default line delimiter. Only "\r\n" and "\n" are accepted.
func WithDelimiter(d string) ConfigOption {
	return func(c *Config) {
		if d == "\r\n" || d == "\n" {
			c.Delimiter = d
		}
	}
}

// WithLineLength overrides the default line length
func WithLineLength(l int) ConfigOption {
	return func(c *Config) {
		if l < minLineLength {
			l = minLineLength
		}
		c.LineLength = l
	}
}

// WithHeaderEncoding selects base64 or quoted-printable encoded-words for header values
func WithHeaderEncoding(e Encoding) ConfigOption {
	return func(c *Config) {
		if e == EncodingB64 || e == EncodingQP {
			c.HeaderEncoding = e
		}
	}
}

// WithDecodeStrategy selects the encoded-word decoder
func WithDecodeStrategy(s DecodeStrategy) ConfigOption {
	return func(c *Config) {
		c.DecodeStrategy = s
	}
}

// WithMaxDepth overrides the maximum MIME nesting depth
func WithMaxDepth(d int) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.MaxDepth = d
		}
	}
}

// WithMaxMessageSize overrides the maximum size of messages read from an io.Reader
func WithMaxMessageSize(s int64) ConfigOption {
	return func(c *Config) {
		if s > 0 {
			c.MaxMessageSize = s
		}
	}
}

// WithUserAgent sets the X-Mailer header written by the Renderer
func WithUserAgent(ua string) ConfigOption {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithHostname overrides the hostname used for Message-IDs
func WithHostname(h string) ConfigOption {
	return func(c *Config) {
		if h = strings.TrimSpace(h); h != "" {
			c.Hostname = h
		}
	}
}

// WithConfigLogger sets the log.Logger that receives parser and renderer diagnostics
func WithConfigLogger(l log.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = l
	}
}

// String satisfies the fmt.Stringer interface for the DecodeStrategy type
func (s DecodeStrategy) String() string {
	switch s {
	case DecoderNative:
		return "native"
	case DecoderStdlib:
		return "stdlib"
	case DecoderCompat:
		return "compat"
	default:
		return "unknown"
	}
}

// orDefault returns c or a default Config if c is nil
func (c *Config) orDefault() *Config {
	if c == nil {
		return NewConfig()
	}
	return c
}

// warnf logs a library-internal warning for the given component
func (c *Config) warnf(component, format string, args ...interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Warnf(log.Log{Direction: log.DirNone, Component: component, Format: format, Messages: args})
}

// debugf logs a library-internal debug message for the given component
func (c *Config) debugf(component, format string, args ...interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Debugf(log.Log{Direction: log.DirNone, Component: component, Format: format, Messages: args})
}

func defaultHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost.localdomain"
	}
	return h
}
