// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// Parser turns RFC 5322/MIME wire data into a Message. A Parser holds no mutable state and
// can be shared between goroutines.
type Parser struct {
	cfg     *Config
	headers *HeaderParser
}

// partHeaders are consumed while building a Part and not copied to its additional headers
var partHeaders = map[string]bool{
	"content-type":              true,
	"content-transfer-encoding": true,
	"content-disposition":       true,
	"content-id":                true,
	"mime-version":              true,
}

// NewParser returns a Parser for the given Config. A nil Config selects the defaults.
func NewParser(cfg *Config) *Parser {
	cfg = cfg.orDefault()
	return &Parser{cfg: cfg, headers: NewHeaderParser(cfg)}
}

// Parse parses a complete message
func (p *Parser) Parse(raw []byte) (*Message, error) {
	return p.parse(raw, 0)
}

// ParseString parses a complete message given as string
func (p *Parser) ParseString(raw string) (*Message, error) {
	return p.parse([]byte(raw), 0)
}

// ParseReader reads a message from r and parses it. Messages larger than
// Config.MaxMessageSize fail with ErrMessageTooLarge.
func (p *Parser) ParseReader(r io.Reader) (*Message, error) {
	limit := p.cfg.MaxMessageSize
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, &ParseError{
			Op:  "read message",
			Err: fmt.Errorf("%w: limit is %s", ErrMessageTooLarge, units.HumanSize(float64(limit))),
		}
	}
	return p.parse(raw, 0)
}

// ParseFile opens the file at path and parses its content as a message
func (p *Parser) ParseFile(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return p.ParseReader(f)
}

// parse parses a message found at the given nesting depth
func (p *Parser) parse(raw []byte, depth int) (*Message, error) {
	head, body := splitHeaderBody(raw)
	h, err := p.headers.Parse(head)
	if err != nil {
		return nil, err
	}

	m := NewMessage()
	entity := NewHeaderSection()
	for _, f := range h.fields {
		if strings.HasPrefix(f.key(), "content-") {
			entity.Add(f)
			continue
		}
		switch f.key() {
		case "from":
			list, err := ParseAddressList(f.rawValue())
			if err != nil {
				return nil, &ParseError{Op: "parse From address", Err: err}
			}
			if len(list) > 0 {
				m.sender = list[0]
			}
		case "to", "cc", "bcc":
			list, err := ParseAddressList(f.rawValue())
			if err != nil {
				return nil, &ParseError{Op: "parse " + f.name + " addresses", Err: err}
			}
			for _, a := range list {
				m.AddRecipient(recipientTypes[f.key()], a)
			}
		case "subject":
			m.subject = f.value
		case "mime-version":
		default:
			m.header.Add(f)
		}
	}

	parts, err := p.parseEntity(entity, body, depth)
	if err != nil {
		return nil, err
	}
	m.parts = parts
	return m, nil
}

var recipientTypes = map[string]RecipientType{
	"to":  RecipientTo,
	"cc":  RecipientCc,
	"bcc": RecipientBcc,
}

// parseEntity returns the parts of a MIME entity. Multipart entities are split at their
// boundary and every body part is parsed recursively.
func (p *Parser) parseEntity(h *HeaderSection, body []byte, depth int) ([]*Part, error) {
	if depth > p.cfg.MaxDepth {
		return nil, &ParseError{
			Op:  "parse entity",
			Err: fmt.Errorf("%w: limit is %d", ErrMaxDepthExceeded, p.cfg.MaxDepth),
		}
	}

	ct, ok := h.Get(HeaderContentType)
	if !ok || !MIMEType(ct.Value()).isMultipart() {
		part, err := p.parseAtomic(h, body, depth)
		if err != nil {
			return nil, err
		}
		return []*Part{part}, nil
	}

	boundary, ok := ct.Attribute("boundary")
	if !ok || boundary == "" {
		p.cfg.warnf("parser", "%s without boundary, parsing as single part", ct.Value())
		part, err := p.parseAtomic(h, body, depth)
		if err != nil {
			return nil, err
		}
		return []*Part{part}, nil
	}

	segments, err := splitMultipart(body, boundary)
	if err != nil {
		return nil, &ParseError{Op: "parse " + ct.Value(), Err: err}
	}
	var parts []*Part
	for _, seg := range segments {
		sh, sb := splitHeaderBody(seg)
		hs, err := p.headers.Parse(sh)
		if err != nil {
			return nil, err
		}
		sub, err := p.parseEntity(hs, sb, depth+1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub...)
	}
	return parts, nil
}

// parseAtomic builds a single Part from a non-multipart entity
func (p *Parser) parseAtomic(h *HeaderSection, body []byte, depth int) (*Part, error) {
	enc, err := ParseEncoding(h.Value(HeaderContentTransferEnc))
	content := body
	if err != nil {
		p.cfg.warnf("parser", "keeping content with unknown transfer encoding: %s", err)
		enc = EncodingNone
	} else if content, err = decodeContent(body, enc); err != nil {
		return nil, &ParseError{Op: "decode " + enc.String() + " content", Err: err}
	}

	mimeType := TypeTextPlain
	ct, hasCT := h.Get(HeaderContentType)
	if hasCT && ct.Value() != "" {
		mimeType = MIMEType(strings.ToLower(ct.Value()))
	}
	var disposition, filename string
	disp, hasDisp := h.Get(HeaderContentDisposition)
	if hasDisp {
		disposition = strings.ToLower(disp.Value())
		filename, _ = disp.Attribute("filename")
	}
	cid := strings.Trim(strings.TrimSpace(h.Value(HeaderContentID)), "<>")

	part := &Part{
		content:  content,
		encoding: enc,
		format:   FormatFixed,
		mimeType: mimeType,
		header:   NewHeaderSection(),
	}
	switch {
	case mimeType == TypeMessageRFC822:
		part.ptype = PartMail
	case disposition == "inline" && cid != "":
		part.ptype = PartInlineImage
	case filename != "" || disposition == "attachment":
		part.ptype = PartAttachment
	case mimeType == TypeTextHTML:
		part.ptype = PartHTML
	default:
		part.ptype = PartText
	}

	switch part.ptype {
	case PartText, PartHTML:
		if hasCT {
			if cs, ok := ct.Attribute("charset"); ok {
				part.charset = Charset(strings.ToLower(cs))
			}
			if f, ok := ct.Attribute("format"); ok {
				if part.format, err = ParseFormat(f); err != nil {
					p.cfg.debugf("parser", "ignoring content format: %s", err)
				}
			}
		}
	case PartAttachment, PartInlineImage:
		part.contentID = cid
		if filename == "" && hasCT {
			filename, _ = ct.Attribute("name")
		}
		part.file = p.fileInfo(disp, filename, int64(len(content)))
	case PartMail:
		msg, err := p.parse(content, depth+1)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded message: %w", err)
		}
		part.message = msg
		if filename != "" {
			part.file = p.fileInfo(disp, filename, int64(len(content)))
		}
	}

	for _, f := range h.fields {
		if !partHeaders[f.key()] {
			part.header.Add(f)
		}
	}
	return part, nil
}

// fileInfo collects the file metadata from the Content-Disposition attributes
func (p *Parser) fileInfo(disp *HeaderField, name string, size int64) *FileInfo {
	fi := &FileInfo{Name: name, Size: size}
	if disp == nil {
		return fi
	}
	if v, ok := disp.Attribute("size"); ok {
		if s, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && s >= 0 {
			fi.Size = s
		}
	}
	for _, d := range []struct {
		key string
		t   *time.Time
	}{{"read-date", &fi.ATime}, {"creation-date", &fi.CTime}, {"modification-date", &fi.MTime}} {
		v, ok := disp.Attribute(d.key)
		if !ok {
			continue
		}
		t, err := parseDate(v)
		if err != nil {
			p.cfg.debugf("parser", "ignoring %s attribute: %s", d.key, err)
			continue
		}
		*d.t = t
	}
	return fi
}

// splitHeaderBody splits raw at the first empty line. Without an empty line, everything is
// header.
func splitHeaderBody(raw []byte) ([]byte, []byte) {
	switch {
	case bytes.HasPrefix(raw, []byte("\r\n")):
		return nil, raw[2:]
	case bytes.HasPrefix(raw, []byte("\n")):
		return nil, raw[1:]
	}
	crlf := bytes.Index(raw, []byte("\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf+1], raw[crlf+3:]
	case lf >= 0:
		return raw[:lf+1], raw[lf+2:]
	default:
		return raw, nil
	}
}

// splitMultipart returns the body parts of a multipart body. Boundary lines may carry
// trailing whitespace. The line break before a boundary line belongs to the boundary. The
// preamble and epilogue are dropped and a missing closing boundary is tolerated.
func splitMultipart(body []byte, boundary string) ([][]byte, error) {
	open := []byte("--" + boundary)
	closing := []byte("--" + boundary + "--")

	var segments [][]byte
	start, found := -1, false
	for pos := 0; pos < len(body); {
		next := len(body)
		if i := bytes.IndexByte(body[pos:], '\n'); i >= 0 {
			next = pos + i + 1
		}
		line := bytes.TrimRight(body[pos:next], " \t\r\n")
		isOpen, isClose := bytes.Equal(line, open), bytes.Equal(line, closing)
		if isOpen || isClose {
			if start >= 0 {
				segments = append(segments, trimLineBreak(body[start:pos]))
			}
			found = true
			if isClose {
				return segments, nil
			}
			start = next
		}
		pos = next
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrBoundaryNotFound, boundary)
	}
	if start >= 0 && start <= len(body) {
		segments = append(segments, trimLineBreak(body[start:]))
	}
	return segments, nil
}

// trimLineBreak removes a single trailing CRLF or LF
func trimLineBreak(b []byte) []byte {
	if bytes.HasSuffix(b, []byte("\r\n")) {
		return b[:len(b)-2]
	}
	return bytes.TrimSuffix(b, []byte("\n"))
}
