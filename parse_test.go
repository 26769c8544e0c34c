// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterbox/go-mail/log"
)

const twoPartMessage = "From: a@x.com\r\n" +
	"To: b@y.com\r\n" +
	"Subject: Two parts\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"This is a preamble.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello</p>\r\n" +
	"--XYZ--\r\n" +
	"epilogue\r\n"

func TestParser_TwoParts(t *testing.T) {
	for name, raw := range map[string]string{
		"crlf": twoPartMessage,
		"lf":   strings.ReplaceAll(twoPartMessage, "\r\n", "\n"),
	} {
		t.Run(name, func(t *testing.T) {
			m, err := NewParser(nil).ParseString(raw)
			require.NoError(t, err)
			require.Len(t, m.Parts(), 2)
			assert.True(t, m.Parts()[0].IsText())
			assert.True(t, m.Parts()[1].IsHTML())
			assert.Equal(t, "Hello", string(m.Parts()[0].Content()))
			assert.Equal(t, "<p>Hello</p>", string(m.Parts()[1].Content()))
			assert.Equal(t, Charset("utf-8"), m.Parts()[0].Charset())

			assert.Equal(t, "Two parts", m.Subject())
			assert.Equal(t, "a@x.com", m.Sender().Address())
			require.Len(t, m.To(), 1)
			assert.Equal(t, "b@y.com", m.To()[0].Address())
		})
	}
}

func TestParser_RenderInverse(t *testing.T) {
	mtime := time.Date(2023, 11, 20, 9, 15, 0, 0, time.UTC)
	m := NewMessage()
	require.NoError(t, m.SetFrom(`"Grüße Sender" <sender@example.com>`))
	require.NoError(t, m.AddTo("to@example.com", `"Doe, Jane" <jane@example.org>`))
	require.NoError(t, m.AddCc("cc@example.com"))
	require.NoError(t, m.AddBcc("bcc@example.com"))
	m.SetSubject("Quarterly report: Ünïcödé" + strings.Repeat(" and more words", 6))
	require.NoError(t, m.SetHeader("X-Campaign", "spring"))
	require.NoError(t, m.AddText("Plain body\r\nwith two lines"))
	require.NoError(t, m.AddHTML("<p>Grüße "+strings.Repeat("aus Köln ", 20)+"</p>", WithPartEncoding(EncodingQP)))
	require.NoError(t, m.Attach("report.pdf", []byte("%PDF-1.4 binary \x00\x01\x02"),
		WithFileInfo(FileInfo{MTime: mtime})))
	require.NoError(t, m.EmbedImage("logo", "logo.png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}))

	raw, err := NewRenderer(nil).Render(m)
	require.NoError(t, err)
	parsed, err := NewParser(nil).Parse(raw)
	require.NoError(t, err)

	assert.True(t, m.Sender().Equal(parsed.Sender()))
	assert.Equal(t, "Grüße Sender", parsed.Sender().DisplayName)
	require.Len(t, parsed.To(), 2)
	assert.Equal(t, "Doe, Jane", parsed.To()[1].DisplayName)
	require.Len(t, parsed.Cc(), 1)
	assert.Empty(t, parsed.Bcc())
	assert.Equal(t, m.Subject(), parsed.Subject())
	assert.Equal(t, m.MessageID(), parsed.MessageID())
	assert.Equal(t, "spring", parsed.Header().Value("X-Campaign"))
	assert.False(t, parsed.Header().Has(HeaderMIMEVersion))
	want, err := m.Date()
	require.NoError(t, err)
	got, err := parsed.Date()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	require.Len(t, parsed.Parts(), 4)
	text, ok := parsed.TextPart()
	require.True(t, ok)
	orig, _ := m.TextPart()
	assert.Equal(t, orig.Content(), text.Content())

	html, ok := parsed.HTMLPart()
	require.True(t, ok)
	origHTML, _ := m.HTMLPart()
	assert.Equal(t, origHTML.Content(), html.Content())
	assert.Equal(t, EncodingQP, html.Encoding())

	require.Len(t, parsed.Attachments(), 1)
	att := parsed.Attachments()[0]
	assert.Equal(t, m.Attachments()[0].Content(), att.Content())
	assert.Equal(t, MIMEType("application/pdf"), att.MIMEType())
	fi, ok := att.File()
	require.True(t, ok)
	assert.Equal(t, "report.pdf", fi.Name)
	assert.EqualValues(t, len(att.Content()), fi.Size)
	assert.True(t, mtime.Equal(fi.MTime))

	require.Len(t, parsed.InlineImages(), 1)
	img := parsed.InlineImages()[0]
	assert.Equal(t, "logo", img.ContentID())
	assert.Equal(t, m.InlineImages()[0].Content(), img.Content())
}

func TestParser_SinglePartInverse(t *testing.T) {
	m := NewMessage()
	require.NoError(t, m.SetFrom("a@x.com"))
	require.NoError(t, m.AddTo("b@y.com"))
	m.SetSubject("Hi")
	require.NoError(t, m.AddText("Hello"))

	for _, delim := range []string{"\r\n", "\n"} {
		cfg := NewConfig(WithDelimiter(delim))
		raw, err := NewRenderer(cfg).Render(m)
		require.NoError(t, err)
		parsed, err := NewParser(cfg).Parse(raw)
		require.NoError(t, err)
		require.Len(t, parsed.Parts(), 1)
		assert.True(t, parsed.Parts()[0].IsText())
		assert.Equal(t, "Hello", string(parsed.Parts()[0].Content()))
		assert.Equal(t, "Hi", parsed.Subject())
	}
}

func TestParser_EmbeddedMessage(t *testing.T) {
	inner := NewMessage()
	require.NoError(t, inner.SetFrom("inner@example.com"))
	require.NoError(t, inner.AddTo("b@y.com"))
	inner.SetSubject("Inner")
	require.NoError(t, inner.AddText("inner body"))

	m := NewMessage()
	require.NoError(t, m.SetFrom("a@x.com"))
	m.SetSubject("Fwd: Inner")
	require.NoError(t, m.AddText("see attached"))
	require.NoError(t, m.AttachMessage(inner, WithFileInfo(FileInfo{Name: "inner.eml"})))

	raw, err := NewRenderer(nil).Render(m)
	require.NoError(t, err)
	parsed, err := NewParser(nil).Parse(raw)
	require.NoError(t, err)

	require.Len(t, parsed.EmbeddedMessages(), 1)
	part := parsed.EmbeddedMessages()[0]
	fi, ok := part.File()
	require.True(t, ok)
	assert.Equal(t, "inner.eml", fi.Name)
	embedded, ok := part.Message()
	require.True(t, ok)
	assert.Equal(t, "Inner", embedded.Subject())
	text, ok := embedded.TextPart()
	require.True(t, ok)
	assert.Equal(t, "inner body", string(text.Content()))
}

func TestParser_Leniency(t *testing.T) {
	t.Run("multipart without boundary", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		p := NewParser(NewConfig(WithConfigLogger(log.New(buf, log.LevelWarn))))
		m, err := p.ParseString("Subject: x\r\nContent-Type: multipart/mixed\r\n\r\nbody text")
		require.NoError(t, err)
		require.Len(t, m.Parts(), 1)
		assert.True(t, m.Parts()[0].IsText())
		assert.Equal(t, "body text", string(m.Parts()[0].Content()))
		assert.Contains(t, buf.String(), "without boundary")
	})
	t.Run("unknown transfer encoding", func(t *testing.T) {
		m, err := NewParser(nil).ParseString(
			"Subject: x\r\nContent-Type: text/plain\r\nContent-Transfer-Encoding: x-uuencode\r\n\r\nbegin 644 a\r\n")
		require.NoError(t, err)
		require.Len(t, m.Parts(), 1)
		assert.Equal(t, EncodingNone, m.Parts()[0].Encoding())
		assert.Equal(t, "begin 644 a\r\n", string(m.Parts()[0].Content()))
	})
	t.Run("missing closing boundary", func(t *testing.T) {
		raw := strings.TrimSuffix(twoPartMessage, "--XYZ--\r\nepilogue\r\n")
		m, err := NewParser(nil).ParseString(raw)
		require.NoError(t, err)
		require.Len(t, m.Parts(), 2)
		assert.Equal(t, "<p>Hello</p>", string(m.Parts()[1].Content()))
	})
	t.Run("no body", func(t *testing.T) {
		m, err := NewParser(nil).ParseString("Subject: headers only\r\n")
		require.NoError(t, err)
		assert.Equal(t, "headers only", m.Subject())
		require.Len(t, m.Parts(), 1)
		assert.Empty(t, m.Parts()[0].Content())
	})
	t.Run("attachment disposition without filename", func(t *testing.T) {
		m, err := NewParser(nil).ParseString(
			"Content-Type: application/octet-stream\r\nContent-Disposition: attachment\r\n\r\ndata")
		require.NoError(t, err)
		require.Len(t, m.Attachments(), 1)
	})
}

func TestParser_Charsets(t *testing.T) {
	raw := "Subject: =?ISO-8859-1?Q?Caf=E9?=\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1; format=flowed\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=E9 au lait"
	m, err := NewParser(nil).ParseString(raw)
	require.NoError(t, err)
	assert.Equal(t, "Café", m.Subject())
	p := m.Parts()[0]
	assert.Equal(t, FormatFlowed, p.Format())
	assert.Equal(t, []byte("Caf\xe9 au lait"), p.Content())
	text, err := p.Text()
	require.NoError(t, err)
	assert.Equal(t, "Café au lait", text)
}

func nestedMultipart(levels int) string {
	inner := "Content-Type: text/plain\r\n\r\nleaf"
	for i := levels; i > 0; i-- {
		b := fmt.Sprintf("b%d", i)
		inner = "Content-Type: multipart/mixed; boundary=" + b + "\r\n\r\n" +
			"--" + b + "\r\n" + inner + "\r\n--" + b + "--\r\n"
	}
	return "Subject: nested\r\n" + inner
}

func TestParser_Errors(t *testing.T) {
	t.Run("depth guard", func(t *testing.T) {
		_, err := NewParser(NewConfig(WithMaxDepth(2))).ParseString(nestedMultipart(5))
		assert.ErrorIs(t, err, ErrMaxDepthExceeded)
		var perr *ParseError
		assert.True(t, errors.As(err, &perr))

		m, err := NewParser(nil).ParseString(nestedMultipart(5))
		require.NoError(t, err)
		require.Len(t, m.Parts(), 1)
		assert.Equal(t, "leaf", string(m.Parts()[0].Content()))
	})
	t.Run("message too large", func(t *testing.T) {
		p := NewParser(NewConfig(WithMaxMessageSize(16)))
		_, err := p.ParseReader(strings.NewReader(twoPartMessage))
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})
	t.Run("malformed header", func(t *testing.T) {
		_, err := NewParser(nil).ParseString("Subject: ok\r\nthis is no header\r\n\r\nbody")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})
	t.Run("boundary not found", func(t *testing.T) {
		_, err := NewParser(nil).ParseString("Content-Type: multipart/mixed; boundary=abc\r\n\r\nno parts here")
		assert.ErrorIs(t, err, ErrBoundaryNotFound)
	})
	t.Run("invalid base64", func(t *testing.T) {
		_, err := NewParser(nil).ParseString("Content-Transfer-Encoding: base64\r\n\r\n***")
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "decode base64 content", perr.Op)
	})
	t.Run("invalid from", func(t *testing.T) {
		_, err := NewParser(nil).ParseString("From: not an address\r\n\r\nbody")
		assert.Error(t, err)
	})
}

func TestParser_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.eml")
	require.NoError(t, os.WriteFile(path, []byte(twoPartMessage), 0o600))
	m, err := NewParser(nil).ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, m.Parts(), 2)

	_, err = NewParser(nil).ParseFile(filepath.Join(t.TempDir(), "missing.eml"))
	assert.Error(t, err)
}
