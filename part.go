// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// PartType is the closed set of part variants a Message can hold.
type PartType int

const (
	// PartText is a text/plain body part
	PartText PartType = iota

	// PartHTML is a text/html body part
	PartHTML

	// PartAttachment is a file attached to the Message
	PartAttachment

	// PartInlineImage is an image referenced from the HTML body by its Content-ID
	PartInlineImage

	// PartMail is an embedded message/rfc822 message
	PartMail
)

// Section selects what Part.Render writes.
type Section int

const (
	// SectionAll writes the headers, a blank line and the encoded content
	SectionAll Section = iota

	// SectionHeader writes the headers only
	SectionHeader

	// SectionBody writes the encoded content only
	SectionBody
)

// FileInfo holds the file metadata of an attachment or inline image. It maps to the
// filename, size, read-date, creation-date and modification-date parameters of the
// Content-Disposition header.
type FileInfo struct {
	Name  string
	Size  int64
	ATime time.Time
	CTime time.Time
	MTime time.Time
}

// PartOption returns a function that can be used for grouping Part options
type PartOption func(*Part) error

// Part is a single MIME body part of a Message.
type Part struct {
	ptype     PartType
	charset   Charset
	content   []byte
	encoding  Encoding
	format    Format
	mimeType  MIMEType
	file      *FileInfo
	contentID string
	message   *Message
	header    *HeaderSection
}

// String satisfies the fmt.Stringer interface for the PartType type
func (t PartType) String() string {
	switch t {
	case PartText:
		return "TEXT"
	case PartHTML:
		return "HTML"
	case PartAttachment:
		return "ATTACHMENT"
	case PartInlineImage:
		return "INLINE_IMAGE"
	case PartMail:
		return "MAIL"
	default:
		return "UNKNOWN"
	}
}

func newPart(t PartType, mimeType MIMEType, content []byte, opts []PartOption) (*Part, error) {
	p := &Part{
		ptype:    t,
		content:  content,
		encoding: EncodingB64,
		format:   FormatFixed,
		mimeType: mimeType,
		header:   NewHeaderSection(),
	}
	switch t {
	case PartText, PartHTML:
		p.charset = CharsetUTF8
	case PartMail:
		p.encoding = Encoding8Bit
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(p); err != nil {
			return nil, fmt.Errorf("failed to apply part option: %w", err)
		}
	}
	return p, nil
}

// NewTextPart returns a new text/plain Part
func NewTextPart(text string, opts ...PartOption) (*Part, error) {
	return newPart(PartText, TypeTextPlain, []byte(text), opts)
}

// NewHTMLPart returns a new text/html Part
func NewHTMLPart(html string, opts ...PartOption) (*Part, error) {
	return newPart(PartHTML, TypeTextHTML, []byte(html), opts)
}

// NewAttachment returns a new attachment Part. The media type is derived from the file name
// extension and defaults to application/octet-stream.
func NewAttachment(name string, content []byte, opts ...PartOption) (*Part, error) {
	p, err := newPart(PartAttachment, typeByName(name), content, opts)
	if err != nil {
		return nil, err
	}
	p.ensureFile(name)
	return p, nil
}

// NewInlineImage returns a new inline image Part. If no content ID is given, a random UUID
// is used.
func NewInlineImage(name string, content []byte, opts ...PartOption) (*Part, error) {
	p, err := newPart(PartInlineImage, typeByName(name), content, opts)
	if err != nil {
		return nil, err
	}
	p.ensureFile(name)
	if p.contentID == "" {
		p.contentID = uuid.NewString()
	}
	return p, nil
}

// NewMailPart returns a message/rfc822 Part embedding m
func NewMailPart(m *Message, opts ...PartOption) (*Part, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: embedded message is nil", ErrNoContentPart)
	}
	p, err := newPart(PartMail, TypeMessageRFC822, nil, opts)
	if err != nil {
		return nil, err
	}
	p.message = m
	return p, nil
}

// WithPartCharset overrides the default Part charset
func WithPartCharset(c Charset) PartOption {
	return func(p *Part) error {
		p.charset = c
		return nil
	}
}

// WithPartEncoding overrides the default Part transfer encoding
func WithPartEncoding(e Encoding) PartOption {
	return func(p *Part) error {
		return p.SetEncoding(e)
	}
}

// WithPartFormat overrides the default Part format
func WithPartFormat(f Format) PartOption {
	return func(p *Part) error {
		return p.SetFormat(f)
	}
}

// WithPartMIMEType overrides the media type of the Part
func WithPartMIMEType(t MIMEType) PartOption {
	return func(p *Part) error {
		p.mimeType = t
		return nil
	}
}

// WithContentID sets the Content-ID of the Part, without angle brackets
func WithContentID(id string) PartOption {
	return func(p *Part) error {
		p.contentID = id
		return nil
	}
}

// WithFileInfo sets the file metadata of the Part
func WithFileInfo(fi FileInfo) PartOption {
	return func(p *Part) error {
		p.file = &fi
		return nil
	}
}

// Type returns the PartType of the Part
func (p *Part) Type() PartType {
	return p.ptype
}

// IsText reports whether the Part is a text/plain body
func (p *Part) IsText() bool {
	return p.ptype == PartText
}

// IsHTML reports whether the Part is a text/html body
func (p *Part) IsHTML() bool {
	return p.ptype == PartHTML
}

// IsAttachment reports whether the Part is an attachment
func (p *Part) IsAttachment() bool {
	return p.ptype == PartAttachment
}

// IsInlineImage reports whether the Part is an inline image
func (p *Part) IsInlineImage() bool {
	return p.ptype == PartInlineImage
}

// IsMail reports whether the Part is an embedded message
func (p *Part) IsMail() bool {
	return p.ptype == PartMail
}

// isBody reports whether the Part belongs into the alternative container
func (p *Part) isBody() bool {
	switch p.ptype {
	case PartText, PartHTML:
		return true
	case PartAttachment, PartInlineImage, PartMail:
		return false
	default:
		return false
	}
}

// Content returns the decoded content of the Part
func (p *Part) Content() []byte {
	return p.content
}

// SetContent replaces the content of the Part
func (p *Part) SetContent(c []byte) {
	p.content = c
}

// Text returns the content of the Part transcoded from its charset to UTF-8
func (p *Part) Text() (string, error) {
	return decodeCharset(p.charset.String(), p.content)
}

// Charset returns the charset of the Part
func (p *Part) Charset() Charset {
	return p.charset
}

// Encoding returns the transfer encoding of the Part
func (p *Part) Encoding() Encoding {
	return p.encoding
}

// SetEncoding sets the transfer encoding of the Part. It fails with ErrInvalidEncoding for
// values outside of the enumerated encodings.
func (p *Part) SetEncoding(e Encoding) error {
	if !e.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, e)
	}
	p.encoding = e
	return nil
}

// Format returns the format of the Part
func (p *Part) Format() Format {
	return p.format
}

// SetFormat sets the format of the Part. It fails with ErrInvalidFormat for values other
// than fixed or flowed.
func (p *Part) SetFormat(f Format) error {
	if !f.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, f)
	}
	p.format = f
	return nil
}

// MIMEType returns the media type of the Part
func (p *Part) MIMEType() MIMEType {
	return p.mimeType
}

// File returns the file metadata of an attachment or inline image
func (p *Part) File() (FileInfo, bool) {
	if p.file == nil {
		return FileInfo{}, false
	}
	return *p.file, true
}

// ContentID returns the Content-ID of the Part without angle brackets
func (p *Part) ContentID() string {
	return p.contentID
}

// Message returns the embedded Message of a PartMail
func (p *Part) Message() (*Message, bool) {
	return p.message, p.message != nil
}

// Header returns the additional headers of the Part. Content headers are generated on
// rendering and do not need to be set here.
func (p *Part) Header() *HeaderSection {
	return p.header
}

// Headers returns the complete header section of the Part as it is rendered
func (p *Part) Headers() *HeaderSection {
	h := NewHeaderSection()

	ct := &HeaderField{name: string(HeaderContentType), value: string(p.mimeType)}
	switch p.ptype {
	case PartText, PartHTML:
		if p.charset != "" {
			ct.SetAttribute("charset", p.charset.String())
		}
		if p.format == FormatFlowed {
			ct.SetAttribute("format", p.format.String())
		}
	case PartAttachment, PartInlineImage:
		if p.file != nil && p.file.Name != "" {
			ct.SetAttribute("name", p.file.Name)
		}
	case PartMail:
	}
	h.Add(ct)

	if p.encoding != EncodingNone {
		h.Add(&HeaderField{name: string(HeaderContentTransferEnc), value: p.encoding.String()})
	}

	switch p.ptype {
	case PartAttachment:
		h.Add(p.disposition("attachment"))
	case PartInlineImage:
		h.Add(p.disposition("inline"))
		h.Add(newEncodedField(string(HeaderContentID), "<"+p.contentID+">"))
	case PartMail:
		if p.file != nil && p.file.Name != "" {
			h.Add(p.disposition("attachment"))
		}
	case PartText, PartHTML:
	}

	h.Merge(p.header)
	return h
}

// disposition returns the Content-Disposition field carrying the file metadata
func (p *Part) disposition(kind string) *HeaderField {
	f := &HeaderField{name: string(HeaderContentDisposition), value: kind}
	if p.file == nil {
		return f
	}
	if p.file.Name != "" {
		f.SetAttribute("filename", p.file.Name)
	}
	if p.file.Size > 0 {
		f.SetAttribute("size", strconv.FormatInt(p.file.Size, 10))
	}
	for _, d := range []struct {
		key string
		t   time.Time
	}{{"creation-date", p.file.CTime}, {"modification-date", p.file.MTime}, {"read-date", p.file.ATime}} {
		if !d.t.IsZero() {
			f.SetAttribute(d.key, d.t.Format(time.RFC1123Z))
		}
	}
	return f
}

// Render writes the given section of the Part to w. With SectionAll the headers are
// followed by a blank line and the content encoded with the Part's transfer encoding.
func (p *Part) Render(w io.Writer, section Section, cfg *Config) (int64, error) {
	cfg = cfg.orDefault()
	cw := &countWriter{w: w}
	switch section {
	case SectionAll, SectionHeader:
		if _, err := p.Headers().Render(cw, cfg); err != nil {
			return cw.n, fmt.Errorf("failed to write part headers: %w", err)
		}
		if section == SectionHeader {
			return cw.n, nil
		}
		if _, err := io.WriteString(cw, cfg.Delimiter); err != nil {
			return cw.n, err
		}
	case SectionBody:
	default:
		return 0, fmt.Errorf("unknown part section: %d", section)
	}

	content, err := p.body(cfg)
	if err != nil {
		return cw.n, err
	}
	if err = encodeContent(cw, content, p.encoding, cfg); err != nil {
		return cw.n, fmt.Errorf("failed to write %s part content: %w", p.ptype, err)
	}
	return cw.n, nil
}

// body returns the unencoded content of the Part. Embedded messages without raw content
// are rendered with the same Config.
func (p *Part) body(cfg *Config) ([]byte, error) {
	if p.ptype != PartMail || len(p.content) > 0 || p.message == nil {
		return p.content, nil
	}
	var buf bytes.Buffer
	if _, err := NewRenderer(cfg).RenderTo(&buf, p.message); err != nil {
		return nil, fmt.Errorf("failed to render embedded message: %w", err)
	}
	return buf.Bytes(), nil
}

// ensureFile makes sure an attachment or inline image carries a file name
func (p *Part) ensureFile(name string) {
	if p.file == nil {
		p.file = &FileInfo{}
	}
	if p.file.Name == "" && name != "" {
		p.file.Name = filepath.Base(name)
	}
	if p.file.Size == 0 {
		p.file.Size = int64(len(p.content))
	}
}

// typeByName returns the media type for a file name, defaulting to application/octet-stream
func typeByName(name string) MIMEType {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return MIMEType(mt)
		}
	}
	return TypeAppOctetStream
}

// countWriter counts the bytes written to an io.Writer
type countWriter struct {
	w io.Writer
	n int64
}

// Write satisfies the io.Writer interface for the countWriter type
func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
