// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package mail builds, renders and parses MIME messages and delivers them via SMTP.
//
// A Message is composed with its part-adding methods and turned into wire format by a
// Renderer. A Parser reverses that, including nested multiparts and embedded messages. A
// Transport runs the SMTP exchange and reports one Result per envelope recipient.
package mail

// VERSION is the version of the library. It is reported as application id by the ses
// package.
const VERSION = "0.4.0"
