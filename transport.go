// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/letterbox/go-mail/log"
	"github.com/letterbox/go-mail/smtp"
)

// Defaults
const (
	// DefaultPort is the default connection port to the SMTP server
	DefaultPort = 25

	// DefaultPortSSL is the default connection port for SSL/TLS to the SMTP server
	DefaultPortSSL = 465

	// DefaultPortTLS is the default connection port for STARTTLS to the SMTP server
	DefaultPortTLS = 587

	// DefaultTimeout is the default connection timeout
	DefaultTimeout = time.Second * 5

	// DefaultTLSPolicy is the default STARTTLS policy
	DefaultTLSPolicy = TLSMandatory

	// DefaultTLSMinVersion is the minimum TLS version required for the connection
	// Nowadays TLS1.2 should be the sane default
	DefaultTLSMinVersion = tls.VersionTLS12
)

// DialContextFunc is a type to define custom DialContext function.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Transport delivers a Message to an SMTP server. Every Send runs a complete conversation on
// a fresh connection. A Transport can be shared between goroutines; concurrent calls to
// Send are serialized.
type Transport struct {
	// mutex guards the in-flight conversation
	mutex sync.Mutex

	// connTimeout specifies timeout for the connection to the SMTP server
	connTimeout time.Duration

	// dialContextFunc is a custom DialContext function to dial the connection
	dialContextFunc DialContextFunc

	// helo is the hostname used in the HELO/EHLO greeting
	helo string

	// host is the hostname of the SMTP server we are connecting to
	host string

	// logAuthData disables the redaction of SMTP AUTH data in the debug log
	logAuthData bool

	// logger is the log.Logger that receives the SMTP conversation
	logger log.Logger

	// port specifies the network port that is used to establish the connection
	port int

	// renderer turns Messages into wire format
	renderer *Renderer

	// smtpAuthCustom is a custom SMTP AUTH mechanism
	smtpAuthCustom smtp.Auth

	// smtpAuthType represents the authentication type for SMTP AUTH
	smtpAuthType SMTPAuthType

	// ssl enables implicit TLS on connect
	ssl bool

	// tlspolicy sets the client to use the provided TLSPolicy for the STARTTLS protocol
	tlspolicy TLSPolicy

	// tlsconfig represents the tls.Config setting for the STARTTLS connection
	tlsconfig *tls.Config

	// useDebugLog enables the debug logging on the SMTP client
	useDebugLog bool

	// user is the SMTP AUTH username
	user string

	// pass is the corresponding SMTP AUTH password
	pass string
}

// Option returns a function that can be used for grouping Transport options
type Option func(*Transport) error

var (
	// ErrInvalidPort should be used if a port is specified that is not valid
	ErrInvalidPort = errors.New("invalid port number")

	// ErrInvalidTimeout should be used if a timeout is set that is zero or negative
	ErrInvalidTimeout = errors.New("timeout cannot be zero or negative")

	// ErrInvalidHELO should be used if an empty HELO sting is provided
	ErrInvalidHELO = errors.New("invalid HELO/EHLO value - must not be empty")

	// ErrInvalidTLSConfig should be used if an empty tls.Config is provided
	ErrInvalidTLSConfig = errors.New("invalid TLS config")

	// ErrNoHostname should be used if a Transport has no hostname set
	ErrNoHostname = errors.New("hostname for transport cannot be empty")

	// ErrNoStartTLS is returned when TLSMandatory is set, but the server does not offer
	// STARTTLS
	ErrNoStartTLS = errors.New("target host does not support STARTTLS")
)

// NewTransport returns a new Transport for the SMTP server at host
func NewTransport(host string, opts ...Option) (*Transport, error) {
	t := &Transport{
		connTimeout: DefaultTimeout,
		host:        host,
		port:        DefaultPort,
		renderer:    NewRenderer(nil),
		tlsconfig:   &tls.Config{ServerName: host, MinVersion: DefaultTLSMinVersion},
		tlspolicy:   DefaultTLSPolicy,
	}

	// Set default HELO/EHLO hostname
	if err := t.setDefaultHelo(); err != nil {
		return t, err
	}

	// Override defaults with optionally provided Option functions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(t); err != nil {
			return t, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Some settings in a Transport cannot be empty/unset
	if t.host == "" {
		return t, ErrNoHostname
	}

	return t, nil
}

// WithPort overrides the default connection port
func WithPort(p int) Option {
	return func(t *Transport) error {
		if p < 1 || p > 65535 {
			return ErrInvalidPort
		}
		t.port = p
		return nil
	}
}

// WithTimeout overrides the default connection timeout
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		t.connTimeout = d
		return nil
	}
}

// WithSSL tells the Transport to connect with implicit TLS. The port is set to 465; a
// WithPort that follows overrides it.
func WithSSL() Option {
	return func(t *Transport) error {
		t.ssl = true
		t.port = DefaultPortSSL
		return nil
	}
}

// WithDebugLog tells the Transport to log the SMTP conversation. Without WithLogger the
// log goes to StdErr.
func WithDebugLog() Option {
	return func(t *Transport) error {
		t.useDebugLog = true
		return nil
	}
}

// WithLogger overrides the default log.Logger that is used for debug logging
func WithLogger(l log.Logger) Option {
	return func(t *Transport) error {
		t.logger = l
		return nil
	}
}

// WithLogAuthData disables the redaction of SMTP AUTH data in the debug log
func WithLogAuthData() Option {
	return func(t *Transport) error {
		t.logAuthData = true
		return nil
	}
}

// WithHELO tells the Transport to use the provided string as HELO/EHLO greeting host
func WithHELO(h string) Option {
	return func(t *Transport) error {
		if h == "" {
			return ErrInvalidHELO
		}
		t.helo = h
		return nil
	}
}

// WithTLSPolicy tells the Transport to use the provided TLSPolicy
func WithTLSPolicy(p TLSPolicy) Option {
	return func(t *Transport) error {
		t.tlspolicy = p
		return nil
	}
}

// WithTLSConfig tells the Transport to use the provided *tls.Config
func WithTLSConfig(c *tls.Config) Option {
	return func(t *Transport) error {
		if c == nil {
			return ErrInvalidTLSConfig
		}
		t.tlsconfig = c
		return nil
	}
}

// WithSMTPAuth tells the Transport to use the provided SMTPAuthType for authentication
func WithSMTPAuth(a SMTPAuthType) Option {
	return func(t *Transport) error {
		t.smtpAuthType = a
		return nil
	}
}

// WithSMTPAuthCustom tells the Transport to use the provided smtp.Auth for SMTP
// authentication
func WithSMTPAuthCustom(a smtp.Auth) Option {
	return func(t *Transport) error {
		t.smtpAuthCustom = a
		return nil
	}
}

// WithUsername tells the Transport to use the provided string as username for
// authentication
func WithUsername(u string) Option {
	return func(t *Transport) error {
		t.user = u
		return nil
	}
}

// WithPassword tells the Transport to use the provided string as password/secret for
// authentication
func WithPassword(p string) Option {
	return func(t *Transport) error {
		t.pass = p
		return nil
	}
}

// WithDialContextFunc overrides the DialContext function used to connect to the server
func WithDialContextFunc(f DialContextFunc) Option {
	return func(t *Transport) error {
		t.dialContextFunc = f
		return nil
	}
}

// WithConfig sets the Config used to render messages
func WithConfig(c *Config) Option {
	return func(t *Transport) error {
		t.renderer = NewRenderer(c)
		return nil
	}
}

// TLSPolicy returns the currently set TLSPolicy as string
func (t *Transport) TLSPolicy() string {
	return t.tlspolicy.String()
}

// ServerAddr returns the currently set combination of hostname and port
func (t *Transport) ServerAddr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// setDefaultHelo retrieves the current hostname and sets it as HELO/EHLO hostname
func (t *Transport) setDefaultHelo() error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to read local hostname: %w", err)
	}
	t.helo = hostname
	return nil
}

// Send delivers m to all of its recipients and returns one Result per recipient. The
// sender, the To recipients and the content are checked before a connection is opened.
// Once the conversation started, a failure finalizes all Results and the Results are
// returned together with a *SendError.
func (t *Transport) Send(ctx context.Context, m *Message) ([]*Result, error) {
	if m == nil || len(m.Parts()) == 0 {
		return nil, newSendError(ErrRenderContent, "", nil, ErrNoContentPart)
	}
	if m.Sender() == nil {
		return nil, newSendError(ErrGetSender, "", nil, ErrNoFromAddress)
	}
	if len(m.To()) == 0 {
		return nil, newSendError(ErrGetRcpts, "", nil, ErrNoRcptAddresses)
	}
	from, err := m.Sender().ASCII()
	if err != nil {
		return nil, newSendError(ErrGetSender, "", nil, err)
	}
	rcpts := m.Recipients()
	envelope := make([]string, len(rcpts))
	for i, rcpt := range rcpts {
		if envelope[i], err = rcpt.ASCII(); err != nil {
			return nil, newSendError(ErrGetRcpts, "", []string{rcpt.Address()}, err)
		}
	}
	content, err := t.renderer.Render(m)
	if err != nil {
		return nil, newSendError(ErrRenderContent, "", nil, err)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	results := newResults(rcpts)
	if serr := t.deliver(ctx, from, envelope, content, results); serr != nil {
		serr.messageID = m.MessageID()
		for _, r := range results {
			r.fail(serr)
		}
		return results, serr
	}
	return results, nil
}

// deliver runs one SMTP conversation. The socket is closed on every path.
func (t *Transport) deliver(ctx context.Context, from string, rcpts []string, content []byte, results []*Result) *SendError {
	conn, err := t.dial(ctx)
	if err != nil {
		return newSendError(ErrDial, "", nil, err)
	}
	sock := smtp.NewSocket(conn)
	defer func() {
		_ = sock.Close()
	}()
	if deadline, ok := ctx.Deadline(); ok {
		if err = sock.SetDeadline(deadline); err != nil {
			return newSendError(ErrDial, "", nil, err)
		}
	}
	if t.useDebugLog {
		if t.logger == nil {
			t.logger = log.New(os.Stderr, log.LevelDebug)
		}
		sock.SetLogger(t.logger)
		sock.SetLogAuthData(t.logAuthData)
	}

	client, err := smtp.NewClient(sock, t.host)
	if err != nil {
		return newSendError(ErrSMTPHello, "", nil, err)
	}
	if err = client.Hello(t.helo); err != nil {
		return newSendError(ErrSMTPHello, "", nil, err)
	}
	if err = t.startTLS(client); err != nil {
		return newSendError(ErrSMTPStartTLS, "", nil, err)
	}
	auth, err := t.smtpAuth(client)
	if err != nil {
		return newSendError(ErrSMTPAuth, "", nil, err)
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return newSendError(ErrSMTPAuth, "", nil, fmt.Errorf("SMTP AUTH failed: %w", err))
		}
	}

	if err = client.Mail(from); err != nil {
		return newSendError(ErrSMTPMailFrom, "", nil, err)
	}
	for _, rcpt := range rcpts {
		if _, err = client.Rcpt(rcpt); err != nil {
			return newSendError(ErrSMTPRcptTo, "", []string{rcpt}, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return newSendError(ErrSMTPData, "", nil, err)
	}
	if _, err = w.Write(content); err != nil {
		return newSendError(ErrWriteContent, "", nil, err)
	}
	if err = w.Close(); err != nil {
		return newSendError(ErrSMTPDataClose, "", rcpts, err)
	}

	resp := w.Response()
	for _, r := range results {
		r.accept(resp.Code, resp.Text(), queueID(resp.Text()))
	}
	// The message is accepted; a failing QUIT does not change that.
	_ = client.Quit()
	return nil
}

// dial connects to the server within the connection timeout
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(t.connTimeout))
	defer cancel()

	dialContextFunc := t.dialContextFunc
	if dialContextFunc == nil {
		nd := net.Dialer{}
		dialContextFunc = nd.DialContext
		if t.ssl {
			td := tls.Dialer{NetDialer: &nd, Config: t.tlsconfig}
			dialContextFunc = td.DialContext
		}
	}
	conn, err := dialContextFunc(ctx, "tcp", t.ServerAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", t.ServerAddr(), err)
	}
	return conn, nil
}

// startTLS issues STARTTLS according to the TLSPolicy
func (t *Transport) startTLS(client *smtp.Client) error {
	if t.ssl || t.tlspolicy == NoTLS {
		return nil
	}
	ok, _ := client.Extension("STARTTLS")
	if !ok {
		if t.tlspolicy == TLSMandatory {
			return fmt.Errorf("%w: STARTTLS mode set to %q", ErrNoStartTLS, t.tlspolicy)
		}
		return nil
	}
	return client.StartTLS(t.tlsconfig)
}
