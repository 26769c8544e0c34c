// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Attribute is a parameter of a structured header value, like the "filename" of a
// Content-Disposition or the "charset" of a Content-Type.
type Attribute struct {
	Key   string
	Value string
}

// HeaderField is a single header field of a Message or Part.
//
// The name is normalized to hyphen-joined capitalized words and compared case-insensitively.
// The value is the decoded (UTF-8) value; attributes hold the parameters of structured fields.
type HeaderField struct {
	name  string
	value string
	attrs []Attribute

	// encoded marks a value that is already wire-ready, like an address list with encoded
	// display names. It is written without further encoding.
	encoded bool

	// raw holds the undecoded value of a parsed field
	raw string
}

// wellKnownNames holds header names whose spelling differs from plain capitalization
var wellKnownNames = map[string]string{
	"content-id":        "Content-ID",
	"content-md5":       "Content-MD5",
	"dkim-signature":    "DKIM-Signature",
	"list-id":           "List-ID",
	"message-id":        "Message-ID",
	"mime-version":      "MIME-Version",
	"resent-message-id": "Resent-Message-ID",
	"x-mimeole":         "X-MimeOLE",
	"x-msmail-priority": "X-MSMail-Priority",
}

// CanonicalHeaderName returns the normalized form of a header name: words separated by
// hyphens, underscores or whitespace are capitalized and joined with hyphens.
func CanonicalHeaderName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	n := strings.Join(words, "-")
	if wk, ok := wellKnownNames[n]; ok {
		return wk
	}
	for i, w := range words {
		if c := w[0]; c >= 'a' && c <= 'z' {
			words[i] = string(c-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, "-")
}

// NewHeaderField returns a new HeaderField. It fails with ErrEmptyHeaderName if the name is
// blank after trimming. Only Content-Type and Content-Disposition take attributes, and their
// value must not contain a ";": parameters are passed as attributes, so the HeaderParser
// reads back what was rendered.
func NewHeaderField(name, value string, attrs ...Attribute) (*HeaderField, error) {
	n := CanonicalHeaderName(name)
	if n == "" {
		return nil, ErrEmptyHeaderName
	}
	f := &HeaderField{name: n, value: value}
	if !f.structured() && len(attrs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnstructuredAttribute, n)
	}
	if f.structured() && strings.ContainsRune(value, ';') {
		return nil, fmt.Errorf("%w: %s: %q", ErrStructuredValue, n, value)
	}
	for _, a := range attrs {
		f.SetAttribute(a.Key, a.Value)
	}
	return f, nil
}

// newEncodedField returns a HeaderField whose value is written as-is
func newEncodedField(name, value string) *HeaderField {
	return &HeaderField{name: CanonicalHeaderName(name), value: value, encoded: true}
}

// Name returns the normalized name of the HeaderField
func (f *HeaderField) Name() string {
	return f.name
}

// key returns the lookup key of the HeaderField
func (f *HeaderField) key() string {
	return strings.ToLower(f.name)
}

// structured reports whether the HeaderField carries attributes
func (f *HeaderField) structured() bool {
	return structuredFields[f.key()]
}

// Value returns the value of the HeaderField without its attributes
func (f *HeaderField) Value() string {
	return f.value
}

// rawValue returns the undecoded value of a parsed HeaderField, or its value otherwise
func (f *HeaderField) rawValue() string {
	if f.raw != "" {
		return f.raw
	}
	return f.value
}

// SetValue replaces the value of the HeaderField
func (f *HeaderField) SetValue(v string) {
	f.value = v
	f.encoded = false
	f.raw = ""
}

// Attributes returns a copy of the attributes of the HeaderField in insertion order
func (f *HeaderField) Attributes() []Attribute {
	if len(f.attrs) == 0 {
		return nil
	}
	out := make([]Attribute, len(f.attrs))
	copy(out, f.attrs)
	return out
}

// Attribute returns the value of the attribute with the given key. Keys are compared
// case-insensitively.
func (f *HeaderField) Attribute(key string) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, a := range f.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute sets or replaces the attribute with the given key. Keys are stored in lower
// case. An empty key is ignored, as is any attribute on a field other than Content-Type and
// Content-Disposition.
func (f *HeaderField) SetAttribute(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || !f.structured() {
		return
	}
	for i := range f.attrs {
		if f.attrs[i].Key == key {
			f.attrs[i].Value = value
			return
		}
	}
	f.attrs = append(f.attrs, Attribute{Key: key, Value: value})
}

// DelAttribute removes the attribute with the given key
func (f *HeaderField) DelAttribute(key string) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i := range f.attrs {
		if f.attrs[i].Key == key {
			f.attrs = append(f.attrs[:i], f.attrs[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the HeaderField
func (f *HeaderField) Clone() *HeaderField {
	c := *f
	c.attrs = f.Attributes()
	return &c
}

// String returns the unfolded wire form of the HeaderField using the default Config
func (f *HeaderField) String() string {
	cfg := NewConfig()
	return f.name + ": " + f.format(NewHeaderCodec(cfg), cfg.LineLength)
}

// format returns the encoded value and attributes of the HeaderField, without folding
func (f *HeaderField) format(codec *HeaderCodec, lineLength int) string {
	var sb strings.Builder
	if f.encoded {
		sb.WriteString(f.value)
	} else {
		sb.WriteString(codec.EncodeIfNeeded(f.value))
	}
	for _, a := range f.attrs {
		sb.WriteString("; ")
		writeAttribute(&sb, a.Key, a.Value, lineLength-1)
	}
	return sb.String()
}

// writeAttribute writes a single attribute. Printable ASCII values are quoted; other values
// use the RFC 2231 extended notation. Values longer than limit are split into numbered
// continuations.
func writeAttribute(sb *strings.Builder, key, value string, limit int) {
	if isPrintableASCII(value) {
		if len(key)+len(quoteValue(value))+1 <= limit {
			sb.WriteString(key)
			sb.WriteByte('=')
			sb.WriteString(quoteValue(value))
			return
		}
		size := limit - len(key) - 8
		if size < 8 {
			size = 8
		}
		for i, n := 0, 0; i < len(value); n++ {
			end := i + size
			if end > len(value) {
				end = len(value)
			}
			if n > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(key)
			sb.WriteByte('*')
			sb.WriteString(strconv.Itoa(n))
			sb.WriteByte('=')
			sb.WriteString(quoteValue(value[i:end]))
			i = end
		}
		return
	}

	units := percentEncodeUnits(value)
	const prefix = "UTF-8''"
	total := len(prefix)
	for _, u := range units {
		total += len(u)
	}
	if len(key)+2+total <= limit {
		sb.WriteString(key)
		sb.WriteString("*=")
		sb.WriteString(prefix)
		sb.WriteString(strings.Join(units, ""))
		return
	}
	size := limit - len(key) - 8
	if size < 12 {
		size = 12
	}
	n := 0
	var seg strings.Builder
	seg.WriteString(prefix)
	flush := func() {
		if n > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(key)
		sb.WriteByte('*')
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString("*=")
		sb.WriteString(seg.String())
		seg.Reset()
		n++
	}
	for _, u := range units {
		if seg.Len() > 0 && seg.Len()+len(u) > size {
			flush()
		}
		seg.WriteString(u)
	}
	if seg.Len() > 0 {
		flush()
	}
}

// percentEncodeUnits splits s into RFC 2231 attr-chars and %XX escapes
func percentEncodeUnits(s string) []string {
	units := make([]string, 0, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isAttrChar(b) {
			units = append(units, string(b))
			continue
		}
		units = append(units, string([]byte{'%', upperHex[b>>4], upperHex[b&0x0f]}))
	}
	return units
}

// isAttrChar reports whether b may appear unescaped in an RFC 2231 extended value
func isAttrChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", b) >= 0
}

// quoteValue returns v as a quoted-string
func quoteValue(v string) string {
	var sb strings.Builder
	sb.Grow(len(v) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(v[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}
