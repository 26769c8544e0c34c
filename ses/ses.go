// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package ses implements a mail.Sender that delivers messages via the AWS SES v2 API
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	mail "github.com/letterbox/go-mail"
	"github.com/letterbox/go-mail/log"
)

// component is the log component of this package
const component = "ses"

var (
	// ErrNoRegion is returned by New if no AWS region is configured
	ErrNoRegion = errors.New("ses: AWS region must not be empty")

	// ErrNoClient is returned by NewWithClient if the SendEmailAPI is nil
	ErrNoClient = errors.New("ses: SendEmail client must not be nil")
)

// SendEmailAPI is the SES v2 SendEmail operation. *sesv2.Client satisfies it.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config holds the settings of a Transport
type Config struct {
	// Region is the AWS region of the SES endpoint
	Region string

	// AccessKeyID and SecretAccessKey are static credentials. If empty, the AWS default
	// credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// ConfigurationSet is the optional SES configuration set name
	ConfigurationSet string

	// Mail configures the rendering of messages
	Mail *mail.Config

	// Logger receives delivery diagnostics
	Logger log.Logger
}

// Transport sends a Message as SES raw message. Bcc recipients are passed in the
// destination only, the rendered message never carries them.
type Transport struct {
	client           SendEmailAPI
	configurationSet string
	renderer         *mail.Renderer
	logger           log.Logger
}

// New returns a Transport using the AWS default configuration chain
func New(ctx context.Context, cfg Config) (*Transport, error) {
	if cfg.Region == "" {
		return nil, ErrNoRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithAppID("letterbox-go-mail/" + mail.VERSION),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: failed to load AWS config: %w", err)
	}
	return NewWithClient(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewWithClient returns a Transport using the given SendEmailAPI. The credential settings
// of cfg are ignored.
func NewWithClient(client SendEmailAPI, cfg Config) (*Transport, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	return &Transport{
		client:           client,
		configurationSet: cfg.ConfigurationSet,
		renderer:         mail.NewRenderer(cfg.Mail),
		logger:           cfg.Logger,
	}, nil
}

// Send renders m and submits it with a single SendEmail call. On success every Result
// carries the SES message id. API errors finalize the Results as mail.StatusError, all
// other errors as mail.StatusFailed.
func (t *Transport) Send(ctx context.Context, m *mail.Message) ([]*mail.Result, error) {
	if m == nil || len(m.Parts()) == 0 {
		return nil, mail.ErrNoContentPart
	}
	if m.Sender() == nil {
		return nil, mail.ErrNoFromAddress
	}
	if len(m.To()) == 0 {
		return nil, mail.ErrNoRcptAddresses
	}
	raw, err := t.renderer.Render(m)
	if err != nil {
		return nil, fmt.Errorf("ses: failed to render message: %w", err)
	}

	rcpts := m.Recipients()
	results := make([]*mail.Result, len(rcpts))
	destination := make([]string, len(rcpts))
	for i, rcpt := range rcpts {
		results[i] = &mail.Result{Recipient: rcpt}
		if destination[i], err = rcpt.ASCII(); err != nil {
			return nil, fmt.Errorf("ses: invalid recipient: %w", err)
		}
	}
	from, err := m.Sender().ASCII()
	if err != nil {
		return nil, fmt.Errorf("ses: invalid sender: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: destination},
		Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	}
	if t.configurationSet != "" {
		input.ConfigurationSetName = aws.String(t.configurationSet)
	}

	t.debugf("sending message %s to %d recipient(s)", m.MessageID(), len(destination))
	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		t.warnf("SendEmail failed: %s", err)
		err = fmt.Errorf("ses: SendEmail failed: %w", err)
		for _, r := range results {
			finalize(r, err)
		}
		return results, err
	}
	id := aws.ToString(out.MessageId)
	for _, r := range results {
		r.Status = mail.StatusOK
		r.Code = 200
		r.Message = "accepted"
		r.ID = id
	}
	return results, nil
}

// finalize sets the Result of a failed SendEmail call
func finalize(r *mail.Result, err error) {
	r.Err = err
	r.Status = mail.StatusFailed
	r.Message = err.Error()

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		r.Status = mail.StatusError
		r.Message = apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		r.Code = respErr.HTTPStatusCode()
	}
}

func (t *Transport) debugf(format string, args ...interface{}) {
	if t.logger == nil {
		return
	}
	t.logger.Debugf(log.Log{Direction: log.DirClientToServer, Component: component, Format: format, Messages: args})
}

func (t *Transport) warnf(format string, args ...interface{}) {
	if t.logger == nil {
		return
	}
	t.logger.Warnf(log.Log{Direction: log.DirNone, Component: component, Format: format, Messages: args})
}
