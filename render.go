// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// Renderer writes a Message in RFC 5322/MIME wire format.
type Renderer struct {
	cfg   *Config
	codec *HeaderCodec
}

// envelopeHeaders are generated from the Message fields and never taken from its
// additional headers
var envelopeHeaders = map[string]bool{
	"from":         true,
	"to":           true,
	"cc":           true,
	"bcc":          true,
	"subject":      true,
	"date":         true,
	"message-id":   true,
	"mime-version": true,
}

// NewRenderer returns a Renderer for the given Config. A nil Config selects the defaults.
func NewRenderer(cfg *Config) *Renderer {
	cfg = cfg.orDefault()
	return &Renderer{cfg: cfg, codec: NewHeaderCodec(cfg)}
}

// Render returns the wire format of m
func (r *Renderer) Render(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := r.RenderTo(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderString returns the wire format of m as string
func (r *Renderer) RenderString(m *Message) (string, error) {
	b, err := r.Render(m)
	return string(b), err
}

// RenderTo writes the wire format of m to w and returns the number of bytes written.
//
// A Message needs at least one part, a subject and a sender. Missing Message-ID and Date
// headers are generated and stored on m. A Message with a single part is written without
// multipart container. Otherwise all parts are wrapped in a multipart/related container;
// more than one text or HTML body goes into a nested multipart/alternative container,
// followed by inline images, attachments and embedded messages.
func (r *Renderer) RenderTo(w io.Writer, m *Message) (int64, error) {
	if err := r.check(m); err != nil {
		return 0, err
	}
	if err := r.ensureHeaders(m); err != nil {
		return 0, err
	}
	h := r.messageHeaders(m)

	cw := &countWriter{w: w}
	if len(m.parts) == 1 {
		p := m.parts[0]
		h.Merge(p.Headers())
		if err := r.writeHead(cw, h); err != nil {
			return cw.n, err
		}
		if _, err := p.Render(cw, SectionBody, r.cfg); err != nil {
			return cw.n, err
		}
		return cw.n, nil
	}

	outer, err := newBoundary(string(TypeMultipartRelated))
	if err != nil {
		return 0, err
	}
	ct := &HeaderField{name: string(HeaderContentType), value: string(TypeMultipartRelated)}
	ct.SetAttribute("boundary", outer)
	h.Set(ct)
	if err = r.writeHead(cw, h); err != nil {
		return cw.n, err
	}

	var bodies, rest []*Part
	for _, p := range m.parts {
		if p.isBody() {
			bodies = append(bodies, p)
			continue
		}
		rest = append(rest, p)
	}
	// inline images follow the bodies, everything else comes last
	var ordered []*Part
	for _, p := range rest {
		if p.ptype == PartInlineImage {
			ordered = append(ordered, p)
		}
	}
	for _, p := range rest {
		if p.ptype != PartInlineImage {
			ordered = append(ordered, p)
		}
	}

	if len(bodies) > 1 {
		if err = r.writeAlternative(cw, outer, bodies); err != nil {
			return cw.n, err
		}
	} else {
		ordered = append(bodies, ordered...)
	}
	for _, p := range ordered {
		if err = r.writePart(cw, outer, p); err != nil {
			return cw.n, err
		}
	}
	if _, err = io.WriteString(cw, "--"+outer+"--"+r.cfg.Delimiter); err != nil {
		return cw.n, err
	}
	r.cfg.debugf("renderer", "rendered message %s with %d parts", m.MessageID(), len(m.parts))
	return cw.n, nil
}

// check validates the preconditions of a Message
func (r *Renderer) check(m *Message) error {
	if m == nil || len(m.parts) == 0 {
		return ErrNoContentPart
	}
	if strings.TrimSpace(m.subject) == "" {
		return ErrNoSubject
	}
	if m.sender == nil {
		return ErrNoFromAddress
	}
	return nil
}

// ensureHeaders adds Message-ID and Date headers to m if they are missing
func (r *Renderer) ensureHeaders(m *Message) error {
	if m.header == nil {
		m.header = NewHeaderSection()
	}
	if !m.header.Has(HeaderMessageID) {
		id, err := newMessageID(r.cfg.Hostname)
		if err != nil {
			return err
		}
		m.header.Set(newEncodedField(string(HeaderMessageID), id))
	}
	if !m.header.Has(HeaderDate) {
		m.header.Set(newEncodedField(string(HeaderDate), time.Now().Format(time.RFC1123Z)))
	}
	return nil
}

// messageHeaders returns the top-level headers of m in rendering order
func (r *Renderer) messageHeaders(m *Message) *HeaderSection {
	h := NewHeaderSection()
	if f, ok := m.header.Get(HeaderDate); ok {
		h.Add(f)
	}
	h.Add(newEncodedField(string(HeaderFrom), m.sender.Encode(r.codec)))
	if len(m.to) > 0 {
		h.Add(newEncodedField(string(HeaderTo), r.addressList(appendUnique(nil, m.to...))))
	}
	if len(m.cc) > 0 {
		h.Add(newEncodedField(string(HeaderCc), r.addressList(appendUnique(nil, m.cc...))))
	}
	h.Add(&HeaderField{name: string(HeaderSubject), value: m.subject})
	if f, ok := m.header.Get(HeaderMessageID); ok {
		h.Add(f)
	}
	h.Add(newEncodedField(string(HeaderMIMEVersion), "1.0"))
	if r.cfg.UserAgent != "" && !m.header.Has(HeaderXMailer) {
		h.Add(&HeaderField{name: string(HeaderXMailer), value: r.cfg.UserAgent})
	}
	for _, f := range m.header.fields {
		if envelopeHeaders[f.key()] {
			continue
		}
		h.Add(f)
	}
	return h
}

// addressList joins the header form of the given addresses
func (r *Renderer) addressList(list []*Address) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = a.Encode(r.codec)
	}
	return strings.Join(parts, ", ")
}

// writeHead writes a header section followed by the blank line
func (r *Renderer) writeHead(w io.Writer, h *HeaderSection) error {
	if _, err := h.Render(w, r.cfg); err != nil {
		return fmt.Errorf("failed to write message headers: %w", err)
	}
	_, err := io.WriteString(w, r.cfg.Delimiter)
	return err
}

// writeAlternative writes the bodies in a multipart/alternative container below boundary
func (r *Renderer) writeAlternative(w io.Writer, boundary string, bodies []*Part) error {
	alt, err := newBoundary(string(TypeMultipartAlternative))
	if err != nil {
		return err
	}
	h := NewHeaderSection()
	ct := &HeaderField{name: string(HeaderContentType), value: string(TypeMultipartAlternative)}
	ct.SetAttribute("boundary", alt)
	h.Add(ct)

	if _, err = io.WriteString(w, "--"+boundary+r.cfg.Delimiter); err != nil {
		return err
	}
	if err = r.writeHead(w, h); err != nil {
		return err
	}
	for _, p := range bodies {
		if err = r.writePart(w, alt, p); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "--"+alt+"--"+r.cfg.Delimiter)
	return err
}

// writePart writes a single part below boundary
func (r *Renderer) writePart(w io.Writer, boundary string, p *Part) error {
	if _, err := io.WriteString(w, "--"+boundary+r.cfg.Delimiter); err != nil {
		return err
	}
	if _, err := p.Render(w, SectionAll, r.cfg); err != nil {
		return err
	}
	_, err := io.WriteString(w, r.cfg.Delimiter)
	return err
}
