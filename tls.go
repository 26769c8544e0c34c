// SPDX-FileCopyrightText: 2022 Winni Neessen <winni@neessen.dev>
//
// SPDX-License-Identifier: MIT

package mail

// TLSPolicy describes how a Transport uses STARTTLS
type TLSPolicy int

const (
	// TLSMandatory requires STARTTLS. If the server does not offer it, the Send fails
	// before any credentials or envelope data are transmitted.
	TLSMandatory TLSPolicy = iota

	// TLSOpportunistic uses STARTTLS if the server offers it and continues in plaintext
	// otherwise
	TLSOpportunistic

	// NoTLS never issues STARTTLS
	NoTLS
)

// String satisfies the fmt.Stringer interface for the TLSPolicy type
func (p TLSPolicy) String() string {
	switch p {
	case TLSMandatory:
		return "TLSMandatory"
	case TLSOpportunistic:
		return "TLSOpportunistic"
	case NoTLS:
		return "NoTLS"
	default:
		return "UnknownPolicy"
	}
}
