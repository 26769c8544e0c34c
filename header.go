// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"io"
	"strings"
)

// Header is a type wrapper for a string and represents the name of a header field.
type Header string

// Importance is a type wrapper for an int and represents the level of importance or priority
// of a Message.
type Importance int

const (
	HeaderBcc                = Header("Bcc")
	HeaderCc                 = Header("Cc")
	HeaderContentDescription = Header("Content-Description")
	HeaderContentDisposition = Header("Content-Disposition")
	HeaderContentID          = Header("Content-ID")
	HeaderContentLang        = Header("Content-Language")
	HeaderContentTransferEnc = Header("Content-Transfer-Encoding")
	HeaderContentType        = Header("Content-Type")
	HeaderDate               = Header("Date")
	HeaderFrom               = Header("From")
	HeaderImportance         = Header("Importance")
	HeaderInReplyTo          = Header("In-Reply-To")
	HeaderMessageID          = Header("Message-ID")
	HeaderMIMEVersion        = Header("MIME-Version")
	HeaderPriority           = Header("Priority")
	HeaderReferences         = Header("References")
	HeaderReplyTo            = Header("Reply-To")
	HeaderSender             = Header("Sender")
	HeaderSubject            = Header("Subject")
	HeaderTo                 = Header("To")
	HeaderUserAgent          = Header("User-Agent")
	HeaderXMailer            = Header("X-Mailer")
	HeaderXMSMailPriority    = Header("X-MSMail-Priority")
	HeaderXPriority          = Header("X-Priority")
)

const (
	// ImportanceLow indicates a low level of importance or priority in a Message.
	ImportanceLow Importance = iota

	// ImportanceNormal indicates a standard level of importance. It writes no headers.
	ImportanceNormal

	// ImportanceHigh indicates a high level of importance or priority in a Message.
	ImportanceHigh

	// ImportanceNonUrgent indicates a non-urgent level of importance or priority in a Message.
	ImportanceNonUrgent

	// ImportanceUrgent indicates an urgent level of importance or priority in a Message.
	ImportanceUrgent
)

// String satisfies the fmt.Stringer interface for the Header type
func (h Header) String() string {
	return string(h)
}

// NumString returns the numerical "Priority" value of the Importance. ImportanceNormal and
// unknown values return an empty string.
func (i Importance) NumString() string {
	switch i {
	case ImportanceNonUrgent, ImportanceLow:
		return "0"
	case ImportanceHigh, ImportanceUrgent:
		return "1"
	default:
		return ""
	}
}

// XPrioString returns the "X-Priority" value of the Importance
func (i Importance) XPrioString() string {
	switch i {
	case ImportanceNonUrgent, ImportanceLow:
		return "5"
	case ImportanceHigh, ImportanceUrgent:
		return "1"
	default:
		return ""
	}
}

// String satisfies the fmt.Stringer interface for the Importance type
func (i Importance) String() string {
	switch i {
	case ImportanceNonUrgent:
		return "non-urgent"
	case ImportanceLow:
		return "low"
	case ImportanceHigh:
		return "high"
	case ImportanceUrgent:
		return "urgent"
	default:
		return ""
	}
}

// HeaderSection is an ordered multimap of header fields. Lookups ignore the case of the
// field name and several fields may share a name, like multiple "Received" fields.
//
// A HeaderSection is not safe for concurrent mutation.
type HeaderSection struct {
	fields []*HeaderField
}

// NewHeaderSection returns an empty HeaderSection
func NewHeaderSection() *HeaderSection {
	return &HeaderSection{}
}

// Len returns the number of fields in the HeaderSection
func (h *HeaderSection) Len() int {
	return len(h.fields)
}

// Fields returns the fields of the HeaderSection in order. The returned slice is a copy but
// the fields are shared.
func (h *HeaderSection) Fields() []*HeaderField {
	out := make([]*HeaderField, len(h.fields))
	copy(out, h.fields)
	return out
}

// Add appends f to the HeaderSection, keeping fields of the same name
func (h *HeaderSection) Add(f *HeaderField) {
	if f == nil {
		return
	}
	h.fields = append(h.fields, f)
}

// Set replaces all fields named like f with f. The field takes the position of the first
// field it replaces, or is appended if there was none.
func (h *HeaderSection) Set(f *HeaderField) {
	if f == nil {
		return
	}
	key := f.key()
	pos := -1
	kept := h.fields[:0]
	for _, e := range h.fields {
		if e.key() == key {
			if pos < 0 {
				pos = len(kept)
				kept = append(kept, f)
			}
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(h.fields); i++ {
		h.fields[i] = nil
	}
	h.fields = kept
	if pos < 0 {
		h.fields = append(h.fields, f)
	}
}

// Put adds f to the HeaderSection. With emptyBefore set, all fields of the same name are
// removed first, as with Set; otherwise f is appended, as with Add.
func (h *HeaderSection) Put(f *HeaderField, emptyBefore bool) {
	if emptyBefore {
		h.Set(f)
		return
	}
	h.Add(f)
}

// SetValue replaces all fields of the given name with a single field holding value
func (h *HeaderSection) SetValue(name Header, value string) error {
	f, err := NewHeaderField(string(name), value)
	if err != nil {
		return err
	}
	h.Set(f)
	return nil
}

// AddValue appends a field of the given name holding value
func (h *HeaderSection) AddValue(name Header, value string) error {
	f, err := NewHeaderField(string(name), value)
	if err != nil {
		return err
	}
	h.Add(f)
	return nil
}

// Get returns the first field of the given name
func (h *HeaderSection) Get(name Header) (*HeaderField, bool) {
	key := strings.ToLower(strings.TrimSpace(string(name)))
	for _, f := range h.fields {
		if f.key() == key {
			return f, true
		}
	}
	return nil, false
}

// GetAll returns all fields of the given name in order
func (h *HeaderSection) GetAll(name Header) []*HeaderField {
	key := strings.ToLower(strings.TrimSpace(string(name)))
	var out []*HeaderField
	for _, f := range h.fields {
		if f.key() == key {
			out = append(out, f)
		}
	}
	return out
}

// Value returns the value of the first field of the given name or an empty string
func (h *HeaderSection) Value(name Header) string {
	if f, ok := h.Get(name); ok {
		return f.Value()
	}
	return ""
}

// Has reports whether the HeaderSection holds a field of the given name
func (h *HeaderSection) Has(name Header) bool {
	_, ok := h.Get(name)
	return ok
}

// Del removes all fields of the given name and returns how many were removed
func (h *HeaderSection) Del(name Header) int {
	key := strings.ToLower(strings.TrimSpace(string(name)))
	kept := h.fields[:0]
	for _, f := range h.fields {
		if f.key() != key {
			kept = append(kept, f)
		}
	}
	n := len(h.fields) - len(kept)
	for i := len(kept); i < len(h.fields); i++ {
		h.fields[i] = nil
	}
	h.fields = kept
	return n
}

// Clone returns a deep copy of the HeaderSection
func (h *HeaderSection) Clone() *HeaderSection {
	c := &HeaderSection{fields: make([]*HeaderField, len(h.fields))}
	for i, f := range h.fields {
		c.fields[i] = f.Clone()
	}
	return c
}

// Merge sets every field of o on h. Names present in o replace those in h; several fields
// sharing a name in o are all kept.
func (h *HeaderSection) Merge(o *HeaderSection) {
	if o == nil {
		return
	}
	seen := make(map[string]bool)
	for _, f := range o.fields {
		if seen[f.key()] {
			h.Add(f.Clone())
			continue
		}
		seen[f.key()] = true
		h.Set(f.Clone())
	}
}

// Render writes the HeaderSection in wire format. Values are encoded where needed, lines are
// folded to cfg.LineLength and terminated with cfg.Delimiter. The blank line that ends a
// header block is not written.
func (h *HeaderSection) Render(w io.Writer, cfg *Config) (int64, error) {
	cfg = cfg.orDefault()
	codec := NewHeaderCodec(cfg)
	var n int64
	for _, f := range h.fields {
		line := f.name + ": " + f.format(codec, cfg.LineLength)
		c, err := io.WriteString(w, foldLine(line, len(f.name)+2, cfg.LineLength, cfg.Delimiter)+cfg.Delimiter)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// String returns the wire format of the HeaderSection using the default Config
func (h *HeaderSection) String() string {
	var sb strings.Builder
	_, _ = h.Render(&sb, nil)
	return sb.String()
}

// foldLine folds line at whitespace so that lines do not exceed limit where possible. The
// first fold point is searched after start, so a value is never moved away from its name.
// Lines without whitespace are left long.
func foldLine(line string, start, limit int, delim string) string {
	if len(line) <= limit {
		return line
	}
	var sb strings.Builder
	for len(line) > limit {
		if start >= len(line) {
			break
		}
		end := limit + 1
		if end > len(line) {
			end = len(line)
		}
		i := -1
		if start < end {
			if j := strings.LastIndexAny(line[start:end], " \t"); j >= 0 {
				i = start + j
			}
		}
		if i <= 0 {
			j := strings.IndexAny(line[end:], " \t")
			if j < 0 {
				break
			}
			i = end + j
		}
		sb.WriteString(line[:i])
		sb.WriteString(delim)
		line = line[i:]
		start = 1
	}
	sb.WriteString(line)
	return sb.String()
}
