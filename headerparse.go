// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// HeaderParser splits a raw header block into a HeaderSection.
type HeaderParser struct {
	cfg   *Config
	codec *HeaderCodec
}

// structuredFields are the fields whose values carry ";"-separated attributes
var structuredFields = map[string]bool{
	"content-type":        true,
	"content-disposition": true,
}

// NewHeaderParser returns a HeaderParser for the given Config. A nil Config selects the
// defaults.
func NewHeaderParser(cfg *Config) *HeaderParser {
	cfg = cfg.orDefault()
	return &HeaderParser{cfg: cfg, codec: NewHeaderCodec(cfg)}
}

// Parse parses a header block. Lines are split on LF with an optional CR. A line starting
// with a field name and a colon begins a new field, lines starting with a space or tab
// continue the previous one and are appended with a single space after their leading
// whitespace is stripped. Parsing stops at the first empty line. Any other line fails with a
// *ParseError wrapping ErrMalformedHeader.
//
// Values are decoded with the HeaderCodec. Content-Type and Content-Disposition values are
// split into value and attributes with ParseAttributedValue.
func (p *HeaderParser) Parse(raw []byte) (*HeaderSection, error) {
	h := NewHeaderSection()
	var name string
	var value strings.Builder
	inField := false

	flush := func(line int) error {
		if !inField {
			return nil
		}
		f, err := p.newField(name, strings.TrimSpace(value.String()))
		if err != nil {
			return &ParseError{Op: "parse header " + name, Line: line, Err: err}
		}
		h.Add(f)
		value.Reset()
		inField = false
		return nil
	}

	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if !inField {
				return nil, &ParseError{Op: "parse header", Line: i + 1, Err: ErrMalformedHeader}
			}
			value.WriteByte(' ')
			value.WriteString(strings.TrimLeft(line, " \t"))
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 || !isFieldName(strings.TrimRight(line[:idx], " \t")) {
			return nil, &ParseError{Op: "parse header", Line: i + 1, Err: ErrMalformedHeader}
		}
		if err := flush(i); err != nil {
			return nil, err
		}
		name = strings.TrimRight(line[:idx], " \t")
		value.WriteString(line[idx+1:])
		inField = true
	}
	if err := flush(len(lines)); err != nil {
		return nil, err
	}
	return h, nil
}

// newField builds a decoded HeaderField from an unfolded raw value
func (p *HeaderParser) newField(name, raw string) (*HeaderField, error) {
	f, err := NewHeaderField(name, "")
	if err != nil {
		return nil, err
	}
	f.raw = raw

	if !structuredFields[f.key()] {
		f.value, err = p.decode(name, raw)
		return f, err
	}
	v, attrs := ParseAttributedValue(raw)
	if f.value, err = p.decode(name, v); err != nil {
		return nil, err
	}
	for _, a := range attrs {
		dv, err := p.decode(name, a.Value)
		if err != nil {
			return nil, err
		}
		f.attrs = append(f.attrs, Attribute{Key: a.Key, Value: dv})
	}
	return f, nil
}

// decode decodes encoded-words in v. Unknown charsets keep the raw value and are logged.
func (p *HeaderParser) decode(name, v string) (string, error) {
	d, err := p.codec.DecodeIfNeeded(v)
	if err == nil {
		return d, nil
	}
	if errors.Is(err, ErrUnsupportedWordEncoding) {
		return "", err
	}
	p.cfg.warnf("parser", "keeping undecodable %s header value: %s", name, err)
	return v, nil
}

// ParseAttributedValue splits a structured header value like
// `attachment; filename="a.txt"; size=12` into its value and attributes. Parameters are
// separated by semicolons outside of quotes, keys are lower-cased and quoted values are
// unquoted. Parameters without "=" are ignored. RFC 2231 continuations (key*0, key*1*, ...)
// are joined in index order and extended values (charset'lang'%XX) are percent-decoded and
// transcoded to UTF-8. An extended value takes precedence over a plain one for the same key.
func ParseAttributedValue(s string) (string, []Attribute) {
	segs := splitUnquoted(s, ';')
	value := strings.TrimSpace(segs[0])

	type piece struct {
		index    int
		extended bool
		value    string
	}
	var order []string
	plain := make(map[string]string)
	pieces := make(map[string][]piece)

	for _, seg := range segs[1:] {
		eq := strings.IndexByte(seg, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(seg[:eq]))
		val := strings.TrimSpace(seg[eq+1:])
		if key == "" {
			continue
		}
		base, index, extended := splitParamKey(key)
		if _, ok := plain[base]; !ok {
			if _, ok := pieces[base]; !ok {
				order = append(order, base)
			}
		}
		if index < 0 && !extended {
			plain[base] = unquote(val)
			continue
		}
		if !extended {
			val = unquote(val)
		}
		pieces[base] = append(pieces[base], piece{index: index, extended: extended, value: val})
	}

	attrs := make([]Attribute, 0, len(order))
	for _, key := range order {
		ps, ok := pieces[key]
		if !ok {
			attrs = append(attrs, Attribute{Key: key, Value: plain[key]})
			continue
		}
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].index < ps[j].index })
		var buf []byte
		charset := ""
		for i, pc := range ps {
			if !pc.extended {
				buf = append(buf, pc.value...)
				continue
			}
			v := pc.value
			if i == 0 {
				if parts := strings.SplitN(v, "'", 3); len(parts) == 3 {
					charset, v = parts[0], parts[2]
				}
			}
			if d, err := url.PathUnescape(v); err == nil {
				v = d
			}
			buf = append(buf, v...)
		}
		decoded, err := decodeCharset(charset, buf)
		if err != nil {
			decoded = string(buf)
		}
		attrs = append(attrs, Attribute{Key: key, Value: decoded})
	}
	return value, attrs
}

// splitParamKey splits an RFC 2231 parameter name like "filename*1*" into its base name,
// continuation index (-1 if none) and whether the value is extended
func splitParamKey(key string) (string, int, bool) {
	extended := strings.HasSuffix(key, "*")
	k := strings.TrimSuffix(key, "*")
	if i := strings.LastIndexByte(k, '*'); i >= 0 {
		if n, err := strconv.Atoi(k[i+1:]); err == nil && n >= 0 {
			return k[:i], n, extended
		}
	}
	return k, -1, extended
}

// splitUnquoted splits s at sep, ignoring separators inside quoted strings
func splitUnquoted(s string, sep byte) []string {
	var out []string
	inQuote, escaped := false, false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case c == sep && !inQuote:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// unquote removes surrounding quotes and backslash escapes from a quoted-string
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// isFieldName reports whether s is a valid RFC 5322 field name
func isFieldName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' || s[i] == ':' {
			return false
		}
	}
	return true
}
