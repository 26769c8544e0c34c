// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"fmt"
	"mime"
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
)

// addressParser parses address lists and decodes encoded display names in any charset known
// to the ianaindex
var addressParser = &mail.AddressParser{WordDecoder: &mime.WordDecoder{CharsetReader: charsetReader}}

// Address is a mail address with an optional display name.
type Address struct {
	// LocalPart is the part of the address before the "@"
	LocalPart string

	// Domain is the part of the address after the "@"
	Domain string

	// DisplayName is the optional, decoded name of the address owner
	DisplayName string
}

// NewAddress returns a new Address. Local part and domain must not be empty.
func NewAddress(localPart, domain, displayName string) (*Address, error) {
	localPart, domain = strings.TrimSpace(localPart), strings.TrimSpace(domain)
	if localPart == "" || domain == "" {
		return nil, ErrEmptyAddress
	}
	return &Address{LocalPart: localPart, Domain: domain, DisplayName: strings.TrimSpace(displayName)}, nil
}

// ParseAddress parses a single RFC 5322 address like `"Toni Tester" <toni@example.com>`
func ParseAddress(s string) (*Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyAddress
	}
	a, err := addressParser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail address %q: %w", s, err)
	}
	return fromMailAddress(a)
}

// ParseAddressList parses a comma-separated list of RFC 5322 addresses. An empty list
// returns no addresses and no error.
func ParseAddressList(s string) ([]*Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	list, err := addressParser.ParseList(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail address list %q: %w", s, err)
	}
	out := make([]*Address, 0, len(list))
	for _, a := range list {
		addr, err := fromMailAddress(a)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func fromMailAddress(a *mail.Address) (*Address, error) {
	at := strings.LastIndexByte(a.Address, '@')
	if at < 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyAddress, a.Address)
	}
	return NewAddress(a.Address[:at], a.Address[at+1:], a.Name)
}

// Address returns the bare "local@domain" form
func (a *Address) Address() string {
	return a.LocalPart + "@" + a.Domain
}

// String returns the address as it appears in a header. Without a display name this is the
// bare address. Display names holding characters other than atext and spaces are quoted.
func (a *Address) String() string {
	if a.DisplayName == "" {
		return a.Address()
	}
	name := a.DisplayName
	if !isPhrase(name) {
		name = quoteValue(name)
	}
	return name + " <" + a.Address() + ">"
}

// Encode returns the header form of the address with a non-ASCII display name written as
// encoded-words
func (a *Address) Encode(codec *HeaderCodec) string {
	if a.DisplayName == "" || isPrintableASCII(a.DisplayName) {
		return a.String()
	}
	return codec.EncodeIfNeeded(a.DisplayName) + " <" + a.Address() + ">"
}

// ASCII returns the bare address with an internationalized domain converted to punycode,
// as used in the SMTP envelope
func (a *Address) ASCII() (string, error) {
	d, err := idna.Lookup.ToASCII(a.Domain)
	if err != nil {
		return "", fmt.Errorf("failed to convert domain %q to ASCII: %w", a.Domain, err)
	}
	return a.LocalPart + "@" + d, nil
}

// Equal reports whether both addresses point to the same mailbox. The domain is compared
// case-insensitively.
func (a *Address) Equal(b *Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.LocalPart == b.LocalPart && strings.EqualFold(a.Domain, b.Domain)
}

// isPhrase reports whether s consists of RFC 5322 atext characters and spaces only
func isPhrase(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-/=?^_`{|}~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
