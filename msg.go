// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RecipientType selects the recipient list of a Message.
type RecipientType int

const (
	// RecipientTo is the "To" recipient list
	RecipientTo RecipientType = iota

	// RecipientCc is the "Cc" recipient list
	RecipientCc

	// RecipientBcc is the "Bcc" recipient list. Bcc recipients are never rendered.
	RecipientBcc
)

// Message is a mail message made of a sender, recipients, a subject, additional headers and
// an ordered list of parts.
//
// A Message is not safe for concurrent mutation. Rendering adds Message-ID and Date headers
// if they are missing.
type Message struct {
	sender  *Address
	to      []*Address
	cc      []*Address
	bcc     []*Address
	subject string
	header  *HeaderSection
	parts   []*Part
}

// String satisfies the fmt.Stringer interface for the RecipientType type
func (t RecipientType) String() string {
	switch t {
	case RecipientTo:
		return "To"
	case RecipientCc:
		return "Cc"
	case RecipientBcc:
		return "Bcc"
	default:
		return "unknown"
	}
}

// NewMessage returns a new, empty Message
func NewMessage() *Message {
	return &Message{header: NewHeaderSection()}
}

// SetFrom parses addr and sets it as the sender of the Message
func (m *Message) SetFrom(addr string) error {
	a, err := ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("failed to set FROM address: %w", err)
	}
	m.sender = a
	return nil
}

// SetSender sets the sender of the Message
func (m *Message) SetSender(a *Address) {
	m.sender = a
}

// Sender returns the sender of the Message or nil
func (m *Message) Sender() *Address {
	return m.sender
}

// AddTo parses the given addresses and adds them as "To" recipients
func (m *Message) AddTo(addrs ...string) error {
	return m.addRecipients(RecipientTo, addrs)
}

// AddCc parses the given addresses and adds them as "Cc" recipients
func (m *Message) AddCc(addrs ...string) error {
	return m.addRecipients(RecipientCc, addrs)
}

// AddBcc parses the given addresses and adds them as "Bcc" recipients
func (m *Message) AddBcc(addrs ...string) error {
	return m.addRecipients(RecipientBcc, addrs)
}

func (m *Message) addRecipients(t RecipientType, addrs []string) error {
	for _, s := range addrs {
		a, err := ParseAddress(s)
		if err != nil {
			return fmt.Errorf("failed to add %s recipient: %w", t, err)
		}
		m.AddRecipient(t, a)
	}
	return nil
}

// AddRecipient appends a to the recipient list selected by t
func (m *Message) AddRecipient(t RecipientType, a *Address) {
	if a == nil {
		return
	}
	switch t {
	case RecipientTo:
		m.to = append(m.to, a)
	case RecipientCc:
		m.cc = append(m.cc, a)
	case RecipientBcc:
		m.bcc = append(m.bcc, a)
	}
}

// To returns the "To" recipients
func (m *Message) To() []*Address {
	return append([]*Address(nil), m.to...)
}

// Cc returns the "Cc" recipients
func (m *Message) Cc() []*Address {
	return append([]*Address(nil), m.cc...)
}

// Bcc returns the "Bcc" recipients
func (m *Message) Bcc() []*Address {
	return append([]*Address(nil), m.bcc...)
}

// Recipients returns all envelope recipients of the Message in To, Cc, Bcc order. A
// mailbox listed more than once is only returned for its first occurrence.
func (m *Message) Recipients() []*Address {
	var out []*Address
	for _, list := range [][]*Address{m.to, m.cc, m.bcc} {
		out = appendUnique(out, list...)
	}
	return out
}

// appendUnique appends the addresses of add that are not yet part of list
func appendUnique(list []*Address, add ...*Address) []*Address {
outer:
	for _, a := range add {
		for _, e := range list {
			if e.Equal(a) {
				continue outer
			}
		}
		list = append(list, a)
	}
	return list
}

// SetSubject sets the subject of the Message
func (m *Message) SetSubject(s string) {
	m.subject = s
}

// Subject returns the subject of the Message
func (m *Message) Subject() string {
	return m.subject
}

// Header returns the additional headers of the Message
func (m *Message) Header() *HeaderSection {
	return m.header
}

// SetHeader replaces all headers of the given name with value
func (m *Message) SetHeader(name Header, value string) error {
	return m.header.SetValue(name, value)
}

// AddHeader appends a header of the given name
func (m *Message) AddHeader(name Header, value string) error {
	return m.header.AddValue(name, value)
}

// SetImportance sets the Importance, Priority, X-Priority and X-MSMail-Priority headers.
// ImportanceNormal removes them.
func (m *Message) SetImportance(i Importance) {
	for _, h := range []Header{HeaderImportance, HeaderPriority, HeaderXPriority, HeaderXMSMailPriority} {
		m.header.Del(h)
	}
	if i == ImportanceNormal || i.String() == "" {
		return
	}
	_ = m.header.SetValue(HeaderImportance, i.String())
	_ = m.header.SetValue(HeaderPriority, i.NumString())
	_ = m.header.SetValue(HeaderXPriority, i.XPrioString())
	_ = m.header.SetValue(HeaderXMSMailPriority, i.NumString())
}

// Date returns the parsed Date header of the Message
func (m *Message) Date() (time.Time, error) {
	d := m.header.Value(HeaderDate)
	if d == "" {
		return time.Time{}, fmt.Errorf("message has no %s header", HeaderDate)
	}
	return parseDate(d)
}

// MessageID returns the Message-ID header of the Message
func (m *Message) MessageID() string {
	return m.header.Value(HeaderMessageID)
}

// Parts returns the parts of the Message in order
func (m *Message) Parts() []*Part {
	return append([]*Part(nil), m.parts...)
}

// AddPart appends p to the parts of the Message
func (m *Message) AddPart(p *Part) {
	if p != nil {
		m.parts = append(m.parts, p)
	}
}

// AddText appends a text/plain body part
func (m *Message) AddText(text string, opts ...PartOption) error {
	p, err := NewTextPart(text, opts...)
	if err != nil {
		return err
	}
	m.AddPart(p)
	return nil
}

// AddHTML appends a text/html body part
func (m *Message) AddHTML(html string, opts ...PartOption) error {
	p, err := NewHTMLPart(html, opts...)
	if err != nil {
		return err
	}
	m.AddPart(p)
	return nil
}

// Attach appends an attachment with the given name and content
func (m *Message) Attach(name string, content []byte, opts ...PartOption) error {
	p, err := NewAttachment(name, content, opts...)
	if err != nil {
		return err
	}
	m.AddPart(p)
	return nil
}

// AttachReader appends an attachment whose content is read from r
func (m *Message) AttachReader(name string, r io.Reader, opts ...PartOption) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read attachment %q: %w", name, err)
	}
	return m.Attach(name, content, opts...)
}

// AttachFile appends the file at path as an attachment. Size and modification time are
// taken from the file system.
func (m *Message) AttachFile(path string, opts ...PartOption) error {
	content, fi, err := readFile(path)
	if err != nil {
		return err
	}
	return m.Attach(path, content, append([]PartOption{WithFileInfo(fi)}, opts...)...)
}

// EmbedImage appends an inline image that the HTML body references as "cid:<contentID>"
func (m *Message) EmbedImage(contentID, name string, content []byte, opts ...PartOption) error {
	p, err := NewInlineImage(name, content, append([]PartOption{WithContentID(contentID)}, opts...)...)
	if err != nil {
		return err
	}
	m.AddPart(p)
	return nil
}

// AttachMessage appends msg as an embedded message/rfc822 part
func (m *Message) AttachMessage(msg *Message, opts ...PartOption) error {
	p, err := NewMailPart(msg, opts...)
	if err != nil {
		return err
	}
	m.AddPart(p)
	return nil
}

// TextPart returns the first text/plain body part
func (m *Message) TextPart() (*Part, bool) {
	return m.firstOf(PartText)
}

// HTMLPart returns the first text/html body part
func (m *Message) HTMLPart() (*Part, bool) {
	return m.firstOf(PartHTML)
}

// Attachments returns all attachment parts
func (m *Message) Attachments() []*Part {
	return m.allOf(PartAttachment)
}

// InlineImages returns all inline image parts
func (m *Message) InlineImages() []*Part {
	return m.allOf(PartInlineImage)
}

// EmbeddedMessages returns all message/rfc822 parts
func (m *Message) EmbeddedMessages() []*Part {
	return m.allOf(PartMail)
}

func (m *Message) firstOf(t PartType) (*Part, bool) {
	for _, p := range m.parts {
		if p.ptype == t {
			return p, true
		}
	}
	return nil, false
}

func (m *Message) allOf(t PartType) []*Part {
	var out []*Part
	for _, p := range m.parts {
		if p.ptype == t {
			out = append(out, p)
		}
	}
	return out
}

// readFile reads the file at path and returns its content with its file metadata
func readFile(path string) ([]byte, FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to stat file %q: %w", path, err)
	}
	if st.IsDir() {
		return nil, FileInfo{}, fmt.Errorf("failed to attach %q: is a directory", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	return content, FileInfo{
		Name:  filepath.Base(path),
		Size:  st.Size(),
		MTime: st.ModTime(),
	}, nil
}

// parseDate converts an RFC 5322 date, or any other common date notation, to a time.Time
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := mail.ParseDate(s); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return t, nil
}
