// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterbox/go-mail/log"
	"github.com/letterbox/go-mail/smtp"
)

const (
	// TestServerHost is the host name the scripted server pretends to be
	TestServerHost = "mx.test"

	// TestHELO is the EHLO name used by the test transports
	TestHELO = "client.test"
)

// fakeServer is a scripted SMTP server. Every dial creates a net.Pipe whose server side
// answers each command with the reply configured for its verb.
type fakeServer struct {
	replies map[string]string

	mu       sync.Mutex
	commands []string
	data     []string
	dials    int
	closes   int
	wg       sync.WaitGroup
}

// closeCounter counts the Close calls on the client side of a connection
type closeCounter struct {
	net.Conn
	s *fakeServer
}

func (c *closeCounter) Close() error {
	c.s.mu.Lock()
	c.s.closes++
	c.s.mu.Unlock()
	return c.Conn.Close()
}

// newFakeServer returns a fakeServer with replies for a successful delivery, overridden by
// the given replies. An empty "GREETING" makes the server stay silent.
func newFakeServer(overrides map[string]string) *fakeServer {
	replies := map[string]string{
		"GREETING": "220 mx.test ESMTP ready",
		"EHLO":     "250-mx.test greets client.test\r\n250-8BITMIME\r\n250-ENHANCEDSTATUSCODES\r\n250 AUTH PLAIN LOGIN",
		"HELO":     "250 mx.test",
		"AUTH":     "235 2.7.0 Authentication successful",
		"MAIL":     "250 2.1.0 Ok",
		"RCPT":     "250 2.1.5 Ok",
		"DATA":     "354 End data with <CR><LF>.<CR><LF>",
		".":        "250 2.0.0 Ok: queued as 4ABC12",
		"RSET":     "250 2.0.0 Ok",
		"QUIT":     "221 2.0.0 Bye",
	}
	for k, v := range overrides {
		replies[k] = v
	}
	return &fakeServer{replies: replies}
}

func (s *fakeServer) dial(context.Context, string, string) (net.Conn, error) {
	client, server := net.Pipe()
	s.mu.Lock()
	s.dials++
	s.mu.Unlock()
	s.wg.Add(1)
	go s.serve(server)
	return &closeCounter{Conn: client, s: s}, nil
}

func (s *fakeServer) record(cmd string) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()
}

func (s *fakeServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
	}()
	r := bufio.NewReader(conn)
	write := func(reply string) bool {
		_, err := io.WriteString(conn, reply+"\r\n")
		return err == nil
	}
	if greeting := s.replies["GREETING"]; greeting != "" {
		if !write(greeting) {
			return
		}
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		s.record(line)
		verb, _, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)
		reply, ok := s.replies[verb]
		if !ok {
			reply = "502 5.5.2 Command not recognized"
		}
		if !write(reply) {
			return
		}
		switch {
		case verb == "DATA" && strings.HasPrefix(reply, "354"):
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(strings.TrimPrefix(l, "."))
			}
			s.mu.Lock()
			s.data = append(s.data, data.String())
			s.mu.Unlock()
			s.record(".")
			if !write(s.replies["."]) {
				return
			}
		case verb == "QUIT":
			return
		}
	}
}

// wait blocks until all conversations ended
func (s *fakeServer) wait() {
	s.wg.Wait()
}

func (s *fakeServer) transport(t *testing.T, opts ...Option) *Transport {
	t.Helper()
	base := []Option{WithDialContextFunc(s.dial), WithTLSPolicy(NoTLS), WithHELO(TestHELO)}
	tr, err := NewTransport(TestServerHost, append(base, opts...)...)
	require.NoError(t, err)
	return tr
}

func testMessage(t *testing.T) *Message {
	t.Helper()
	m := NewMessage()
	require.NoError(t, m.SetFrom("a@x.com"))
	require.NoError(t, m.AddTo("b@y.com"))
	require.NoError(t, m.AddBcc("c@z.com"))
	m.SetSubject("Hi")
	require.NoError(t, m.AddText("Hello"))
	return m
}

func TestNewTransport(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tr, err := NewTransport("mail.example.com")
		require.NoError(t, err)
		assert.Equal(t, "mail.example.com:25", tr.ServerAddr())
		assert.Equal(t, "TLSMandatory", tr.TLSPolicy())
		assert.Equal(t, DefaultTimeout, tr.connTimeout)
		assert.NotEmpty(t, tr.helo)
		assert.Equal(t, "mail.example.com", tr.tlsconfig.ServerName)
	})
	t.Run("ssl", func(t *testing.T) {
		tr, err := NewTransport("mail.example.com", WithSSL())
		require.NoError(t, err)
		assert.Equal(t, "mail.example.com:465", tr.ServerAddr())
		tr, err = NewTransport("mail.example.com", WithSSL(), WithPort(2465))
		require.NoError(t, err)
		assert.Equal(t, "mail.example.com:2465", tr.ServerAddr())
	})
	t.Run("empty host", func(t *testing.T) {
		_, err := NewTransport("")
		assert.ErrorIs(t, err, ErrNoHostname)
	})
	t.Run("nil option", func(t *testing.T) {
		_, err := NewTransport("mail.example.com", nil)
		assert.NoError(t, err)
	})
}

func TestTransport_Options(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"port zero", WithPort(0), ErrInvalidPort},
		{"port too large", WithPort(65536), ErrInvalidPort},
		{"valid port", WithPort(587), nil},
		{"zero timeout", WithTimeout(0), ErrInvalidTimeout},
		{"negative timeout", WithTimeout(-time.Second), ErrInvalidTimeout},
		{"valid timeout", WithTimeout(time.Second), nil},
		{"empty helo", WithHELO(""), ErrInvalidHELO},
		{"nil tls config", WithTLSConfig(nil), ErrInvalidTLSConfig},
		{"tls config", WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS13}), nil},
		{"auth type", WithSMTPAuth(SMTPAuthLogin), nil},
		{"config", WithConfig(NewConfig(WithDelimiter("\n"))), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransport("mail.example.com", tt.opt)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransport_Send(t *testing.T) {
	s := newFakeServer(nil)
	tr := s.transport(t)
	m := testMessage(t)

	results, err := tr.Send(context.Background(), m)
	require.NoError(t, err)
	s.wait()

	require.Len(t, results, 2)
	for i, want := range []string{"b@y.com", "c@z.com"} {
		r := results[i]
		assert.Equal(t, want, r.Recipient.Address())
		assert.True(t, r.OK())
		assert.Equal(t, StatusOK, r.Status)
		assert.Equal(t, 250, r.Code)
		assert.Equal(t, "2.0.0 Ok: queued as 4ABC12", r.Message)
		assert.Equal(t, "4ABC12", r.ID)
		assert.NoError(t, r.Err)
	}

	assert.Equal(t, []string{
		"EHLO " + TestHELO,
		"MAIL FROM:<a@x.com> BODY=8BITMIME",
		"RCPT TO:<b@y.com>",
		"RCPT TO:<c@z.com>",
		"DATA",
		".",
		"QUIT",
	}, s.commands)
	assert.Equal(t, 1, s.dials)
	assert.Equal(t, 1, s.closes)

	require.Len(t, s.data, 1)
	assert.Contains(t, s.data[0], "Subject: Hi\r\n")
	assert.NotContains(t, s.data[0], "c@z.com")
	parsed, err := NewParser(nil).ParseString(s.data[0])
	require.NoError(t, err)
	assert.Equal(t, m.MessageID(), parsed.MessageID())
}

func TestTransport_SendDotStuffing(t *testing.T) {
	s := newFakeServer(nil)
	tr := s.transport(t)
	m := testMessage(t)
	m.Parts()[0].encoding = Encoding8Bit
	m.Parts()[0].SetContent([]byte("first line\r\n.\r\n.second\r\nlast"))

	_, err := tr.Send(context.Background(), m)
	require.NoError(t, err)
	s.wait()
	require.Len(t, s.data, 1)
	assert.True(t, strings.HasSuffix(s.data[0], "\r\n\r\nfirst line\r\n.\r\n.second\r\nlast\r\n"), s.data[0])
}

func TestTransport_SendRcptRejected(t *testing.T) {
	s := newFakeServer(map[string]string{
		"RCPT": "550 5.1.1 <b@y.com>: Recipient address rejected",
	})
	tr := s.transport(t)
	m := testMessage(t)

	results, err := tr.Send(context.Background(), m)
	require.Error(t, err)
	s.wait()

	var perr *smtp.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 550, perr.Code())
	assert.Equal(t, "5.1.1", perr.EnhancedStatusCode())

	var serr *SendError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, ErrSMTPRcptTo, serr.Reason)
	assert.Equal(t, 550, serr.ErrorCode())
	assert.Equal(t, "5.1.1", serr.EnhancedStatusCode())
	assert.False(t, serr.IsTemp())
	assert.Equal(t, []string{"b@y.com"}, serr.Rcpt())
	assert.Equal(t, m.MessageID(), serr.MessageID())
	assert.Contains(t, err.Error(), "affected recipient(s): b@y.com")

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StatusError, r.Status)
		assert.Equal(t, 550, r.Code)
		assert.Equal(t, "5.1.1 <b@y.com>: Recipient address rejected", r.Message)
		assert.ErrorIs(t, r.Err, serr)
	}

	assert.NotContains(t, s.commands, "DATA")
	assert.Equal(t, []string{"EHLO " + TestHELO, "MAIL FROM:<a@x.com> BODY=8BITMIME", "RCPT TO:<b@y.com>"}, s.commands)
	assert.Empty(t, s.data)
	assert.Equal(t, 1, s.closes)
}

func TestTransport_SendFailures(t *testing.T) {
	tests := []struct {
		name     string
		replies  map[string]string
		reason   SendErrReason
		code     int
		temp     bool
		lastCmd  string
		rcpts    []string
		hasData  bool
		wantSent int
	}{
		{
			name: "greeting rejected", replies: map[string]string{"GREETING": "554 5.3.2 no service"},
			reason: ErrSMTPHello, code: 554,
		},
		{
			name:    "ehlo and helo rejected",
			replies: map[string]string{"EHLO": "500 5.5.1 unknown", "HELO": "501 5.5.4 invalid"},
			reason:  ErrSMTPHello, code: 501, lastCmd: "HELO " + TestHELO,
		},
		{
			name: "mail temporarily rejected", replies: map[string]string{"MAIL": "451 4.3.0 try again later"},
			reason: ErrSMTPMailFrom, code: 451, temp: true, lastCmd: "MAIL FROM:<a@x.com> BODY=8BITMIME",
		},
		{
			name: "data rejected", replies: map[string]string{"DATA": "554 5.5.1 no valid recipients"},
			reason: ErrSMTPData, code: 554, lastCmd: "DATA",
		},
		{
			name: "content rejected", replies: map[string]string{".": "554 5.7.1 rejected as spam"},
			reason: ErrSMTPDataClose, code: 554, lastCmd: ".", rcpts: []string{"b@y.com", "c@z.com"},
			hasData: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeServer(tt.replies)
			tr := s.transport(t)

			results, err := tr.Send(context.Background(), testMessage(t))
			require.Error(t, err)
			s.wait()

			var serr *SendError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.reason, serr.Reason)
			assert.Equal(t, tt.code, serr.ErrorCode())
			assert.Equal(t, tt.temp, serr.IsTemp())
			assert.Equal(t, tt.rcpts, serr.Rcpt())
			assert.True(t, errors.Is(err, &SendError{Reason: tt.reason, isTemp: tt.temp}))

			require.Len(t, results, 2)
			for _, r := range results {
				assert.Equal(t, StatusError, r.Status)
				assert.Equal(t, tt.code, r.Code)
				assert.Empty(t, r.ID)
			}
			if tt.lastCmd != "" {
				require.NotEmpty(t, s.commands)
				assert.Equal(t, tt.lastCmd, s.commands[len(s.commands)-1])
			}
			assert.NotContains(t, s.commands, "QUIT")
			assert.Equal(t, tt.hasData, len(s.data) > 0)
			assert.Equal(t, 1, s.closes)
		})
	}
}

func TestTransport_HELOFallback(t *testing.T) {
	s := newFakeServer(map[string]string{"EHLO": "502 5.5.2 not implemented"})
	tr := s.transport(t)
	_, err := tr.Send(context.Background(), testMessage(t))
	require.NoError(t, err)
	s.wait()
	require.GreaterOrEqual(t, len(s.commands), 3)
	assert.Equal(t, "EHLO "+TestHELO, s.commands[0])
	assert.Equal(t, "HELO "+TestHELO, s.commands[1])
	assert.Equal(t, "MAIL FROM:<a@x.com>", s.commands[2])
}

func TestTransport_SendDialError(t *testing.T) {
	dialErr := errors.New("connection refused")
	tr, err := NewTransport(TestServerHost, WithTLSPolicy(NoTLS),
		WithDialContextFunc(func(context.Context, string, string) (net.Conn, error) {
			return nil, dialErr
		}))
	require.NoError(t, err)

	results, err := tr.Send(context.Background(), testMessage(t))
	assert.ErrorIs(t, err, dialErr)
	var serr *SendError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, ErrDial, serr.Reason)
	assert.Zero(t, serr.ErrorCode())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StatusFailed, r.Status)
		assert.Zero(t, r.Code)
		assert.ErrorIs(t, r.Err, dialErr)
	}
}

func TestTransport_SendDeadline(t *testing.T) {
	s := newFakeServer(map[string]string{"GREETING": ""})
	tr := s.transport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	results, err := tr.Send(ctx, testMessage(t))
	require.Error(t, err)
	s.wait()
	var serr *SendError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, ErrSMTPHello, serr.Reason)
	for _, r := range results {
		assert.Equal(t, StatusFailed, r.Status)
	}
	assert.Equal(t, 1, s.closes)
}

func TestTransport_SendValidation(t *testing.T) {
	noSender := NewMessage()
	require.NoError(t, noSender.AddTo("b@y.com"))
	require.NoError(t, noSender.AddText("Hello"))

	bccOnly := NewMessage()
	require.NoError(t, bccOnly.SetFrom("a@x.com"))
	require.NoError(t, bccOnly.AddBcc("c@z.com"))
	require.NoError(t, bccOnly.AddText("Hello"))

	noParts := NewMessage()
	require.NoError(t, noParts.SetFrom("a@x.com"))
	require.NoError(t, noParts.AddTo("b@y.com"))

	noSubject := testMessage(t)
	noSubject.SetSubject("")

	badDomain := testMessage(t)
	badDomain.AddRecipient(RecipientCc, &Address{LocalPart: "x", Domain: "exa mple.com"})

	tests := []struct {
		name   string
		msg    *Message
		want   error
		reason SendErrReason
	}{
		{"nil message", nil, ErrNoContentPart, ErrRenderContent},
		{"no parts", noParts, ErrNoContentPart, ErrRenderContent},
		{"no sender", noSender, ErrNoFromAddress, ErrGetSender},
		{"bcc only", bccOnly, ErrNoRcptAddresses, ErrGetRcpts},
		{"no subject", noSubject, ErrNoSubject, ErrRenderContent},
		{"invalid recipient domain", badDomain, nil, ErrGetRcpts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeServer(nil)
			tr := s.transport(t)
			results, err := tr.Send(context.Background(), tt.msg)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			var serr *SendError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.reason, serr.Reason)
			assert.Nil(t, results)
			assert.Zero(t, s.dials)
		})
	}
}

func TestTransport_StartTLSPolicy(t *testing.T) {
	t.Run("mandatory without STARTTLS", func(t *testing.T) {
		s := newFakeServer(nil)
		tr := s.transport(t, WithTLSPolicy(TLSMandatory))
		results, err := tr.Send(context.Background(), testMessage(t))
		assert.ErrorIs(t, err, ErrNoStartTLS)
		s.wait()
		var serr *SendError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, ErrSMTPStartTLS, serr.Reason)
		for _, r := range results {
			assert.Equal(t, StatusFailed, r.Status)
		}
		assert.Equal(t, []string{"EHLO " + TestHELO}, s.commands)
	})
	t.Run("opportunistic without STARTTLS", func(t *testing.T) {
		s := newFakeServer(nil)
		tr := s.transport(t, WithTLSPolicy(TLSOpportunistic))
		_, err := tr.Send(context.Background(), testMessage(t))
		assert.NoError(t, err)
	})
	t.Run("offered STARTTLS is refused", func(t *testing.T) {
		s := newFakeServer(map[string]string{
			"EHLO":     "250-mx.test\r\n250 STARTTLS",
			"STARTTLS": "454 4.7.0 TLS not available due to temporary reason",
		})
		tr := s.transport(t, WithTLSPolicy(TLSOpportunistic))
		_, err := tr.Send(context.Background(), testMessage(t))
		var serr *SendError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, ErrSMTPStartTLS, serr.Reason)
		assert.True(t, serr.IsTemp())
	})
}

func TestTransport_Auth(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		s := newFakeServer(nil)
		tr := s.transport(t, WithSMTPAuth(SMTPAuthPlain), WithUsername("user"), WithPassword("secret"),
			WithDebugLog(), WithLogger(log.New(buf, log.LevelDebug)))
		_, err := tr.Send(context.Background(), testMessage(t))
		require.NoError(t, err)
		s.wait()
		assert.Equal(t, "AUTH PLAIN AHVzZXIAc2VjcmV0", s.commands[1])
		assert.Contains(t, buf.String(), "[smtp] C --> S: AUTH PLAIN")
		assert.NotContains(t, buf.String(), "AHVzZXIAc2VjcmV0")
		assert.Contains(t, buf.String(), "MAIL FROM:<a@x.com>")
	})
	t.Run("log auth data", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		s := newFakeServer(nil)
		tr := s.transport(t, WithSMTPAuth(SMTPAuthPlain), WithUsername("user"), WithPassword("secret"),
			WithDebugLog(), WithLogger(log.New(buf, log.LevelDebug)), WithLogAuthData())
		_, err := tr.Send(context.Background(), testMessage(t))
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "AHVzZXIAc2VjcmV0")
	})
	t.Run("autodiscover", func(t *testing.T) {
		s := newFakeServer(nil)
		tr := s.transport(t, WithSMTPAuth(SMTPAuthAutoDiscover), WithUsername("user"), WithPassword("secret"))
		_, err := tr.Send(context.Background(), testMessage(t))
		require.NoError(t, err)
		s.wait()
		assert.True(t, strings.HasPrefix(s.commands[1], "AUTH PLAIN "), s.commands[1])
	})
	t.Run("custom auth", func(t *testing.T) {
		s := newFakeServer(nil)
		tr := s.transport(t, WithSMTPAuthCustom(smtp.XOAuth2Auth("user", "token")))
		_, err := tr.Send(context.Background(), testMessage(t))
		require.NoError(t, err)
		s.wait()
		assert.True(t, strings.HasPrefix(s.commands[1], "AUTH XOAUTH2 "), s.commands[1])
	})

	failures := []struct {
		name    string
		replies map[string]string
		auth    SMTPAuthType
		want    error
		code    int
	}{
		{"mechanism not offered", nil, SMTPAuthCramMD5, ErrAuthNotSupported, 0},
		{"no auth extension", map[string]string{"EHLO": "250 mx.test"}, SMTPAuthPlain, ErrNoAuthSupported, 0},
		{"unsupported type", nil, SMTPAuthType("KERBEROS"), ErrAuthNotSupported, 0},
		{
			"credentials rejected", map[string]string{"AUTH": "535 5.7.8 Authentication credentials invalid"},
			SMTPAuthPlain, nil, 535,
		},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeServer(tt.replies)
			tr := s.transport(t, WithSMTPAuth(tt.auth), WithUsername("user"), WithPassword("secret"))
			_, err := tr.Send(context.Background(), testMessage(t))
			require.Error(t, err)
			s.wait()
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			var serr *SendError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, ErrSMTPAuth, serr.Reason)
			assert.Equal(t, tt.code, serr.ErrorCode())
			for _, cmd := range s.commands {
				assert.False(t, strings.HasPrefix(cmd, "MAIL"), cmd)
			}
		})
	}
}

func TestTransport_SendConcurrent(t *testing.T) {
	s := newFakeServer(nil)
	tr := s.transport(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := NewMessage()
			_ = m.SetFrom("a@x.com")
			_ = m.AddTo("b@y.com")
			m.SetSubject("Concurrent")
			_ = m.AddText("Hello")
			_, errs[i] = tr.Send(context.Background(), m)
		}(i)
	}
	wg.Wait()
	s.wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 4, s.dials)
	assert.Equal(t, 4, s.closes)
	assert.Len(t, s.data, 4)
}

func TestTransport_ImplementsSender(t *testing.T) {
	var _ Sender = (*Transport)(nil)
}

// backend is a go-smtp backend that accepts user/secret and stores received messages
type backend struct {
	mu       sync.Mutex
	messages []string
	rcpts    []string
}

func (b *backend) Login(_ *gosmtp.ConnectionState, username, password string) (gosmtp.Session, error) {
	if username != "user" || password != "secret" {
		return nil, &gosmtp.SMTPError{Code: 535, EnhancedCode: gosmtp.EnhancedCode{5, 7, 8}, Message: "Invalid credentials"}
	}
	return &session{b: b}, nil
}

func (b *backend) AnonymousLogin(*gosmtp.ConnectionState) (gosmtp.Session, error) {
	return nil, gosmtp.ErrAuthUnsupported
}

type session struct {
	b *backend
}

func (s *session) Reset()        {}
func (s *session) Logout() error { return nil }

func (s *session) Mail(string, gosmtp.MailOptions) error { return nil }

func (s *session) Rcpt(to string) error {
	if to == "unknown@example.com" {
		return &gosmtp.SMTPError{Code: 550, EnhancedCode: gosmtp.EnhancedCode{5, 1, 1}, Message: "No such user"}
	}
	s.b.mu.Lock()
	s.b.rcpts = append(s.b.rcpts, to)
	s.b.mu.Unlock()
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	s.b.messages = append(s.b.messages, string(data))
	s.b.mu.Unlock()
	return nil
}

// startServer runs a go-smtp server on a random local port
func startServer(t *testing.T) (*backend, int) {
	t.Helper()
	be := &backend{}
	srv := gosmtp.NewServer(be)
	srv.Domain = "127.0.0.1"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = srv.Serve(l)
	}()
	t.Cleanup(func() {
		_ = srv.Close()
	})
	return be, l.Addr().(*net.TCPAddr).Port
}

func TestTransport_SendToServer(t *testing.T) {
	be, port := startServer(t)
	tr, err := NewTransport("127.0.0.1", WithPort(port), WithTLSPolicy(TLSOpportunistic),
		WithSMTPAuth(SMTPAuthAutoDiscover), WithUsername("user"), WithPassword("secret"))
	require.NoError(t, err)

	m := NewMessage()
	require.NoError(t, m.SetFrom(`"Toni Tester" <toni@example.com>`))
	require.NoError(t, m.AddTo("b@example.com"))
	require.NoError(t, m.AddCc("c@example.com"))
	m.SetSubject("Grüße vom Server")
	require.NoError(t, m.AddText("Hello"))
	require.NoError(t, m.AddHTML("<p>Hello</p>"))

	results, err := tr.Send(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StatusOK, r.Status)
		assert.Equal(t, 250, r.Code)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, []string{"b@example.com", "c@example.com"}, be.rcpts)
	require.Len(t, be.messages, 1)
	parsed, err := NewParser(nil).ParseString(be.messages[0])
	require.NoError(t, err)
	assert.Equal(t, "Grüße vom Server", parsed.Subject())
	assert.Equal(t, m.MessageID(), parsed.MessageID())
	html, ok := parsed.HTMLPart()
	require.True(t, ok)
	assert.Equal(t, "<p>Hello</p>", string(html.Content()))
}

func TestTransport_SendToServerRejected(t *testing.T) {
	t.Run("unknown recipient", func(t *testing.T) {
		be, port := startServer(t)
		tr, err := NewTransport("127.0.0.1", WithPort(port), WithTLSPolicy(NoTLS),
			WithSMTPAuth(SMTPAuthPlain), WithUsername("user"), WithPassword("secret"))
		require.NoError(t, err)

		m := simpleMessage(t)
		require.NoError(t, m.AddCc("unknown@example.com"))
		results, err := tr.Send(context.Background(), m)
		var serr *SendError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, ErrSMTPRcptTo, serr.Reason)
		assert.Equal(t, 550, serr.ErrorCode())
		assert.Equal(t, "5.1.1", serr.EnhancedStatusCode())
		assert.Equal(t, []string{"unknown@example.com"}, serr.Rcpt())
		for _, r := range results {
			assert.Equal(t, StatusError, r.Status)
			assert.Equal(t, 550, r.Code)
		}
		be.mu.Lock()
		assert.Empty(t, be.messages)
		be.mu.Unlock()
	})
	t.Run("wrong password", func(t *testing.T) {
		_, port := startServer(t)
		tr, err := NewTransport("127.0.0.1", WithPort(port), WithTLSPolicy(NoTLS),
			WithSMTPAuth(SMTPAuthPlain), WithUsername("user"), WithPassword("wrong"))
		require.NoError(t, err)
		_, err = tr.Send(context.Background(), simpleMessage(t))
		var serr *SendError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, ErrSMTPAuth, serr.Reason)
		assert.NotZero(t, serr.ErrorCode())
	})
}
