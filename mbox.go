// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-mbox"
)

// ParseMbox parses every message of an mbox file read from r. Each message is subject to
// Config.MaxMessageSize.
func (p *Parser) ParseMbox(r io.Reader) ([]*Message, error) {
	mr := mbox.NewReader(r)
	var msgs []*Message
	for {
		raw, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			return msgs, nil
		}
		if err != nil {
			return msgs, fmt.Errorf("failed to read mbox message %d: %w", len(msgs)+1, err)
		}
		m, err := p.ParseReader(raw)
		if err != nil {
			return msgs, fmt.Errorf("failed to parse mbox message %d: %w", len(msgs)+1, err)
		}
		msgs = append(msgs, m)
	}
}

// WriteMbox renders the given messages with r and writes them to w in mbox format. The
// envelope line carries the sender address and the Date header of each message.
func WriteMbox(w io.Writer, r *Renderer, msgs ...*Message) error {
	if r == nil {
		r = NewRenderer(nil)
	}
	mw := mbox.NewWriter(w)
	for i, m := range msgs {
		raw, err := r.Render(m)
		if err != nil {
			return fmt.Errorf("failed to render mbox message %d: %w", i+1, err)
		}
		date, err := m.Date()
		if err != nil {
			date = time.Now()
		}
		out, err := mw.CreateMessage(m.sender.Address(), date)
		if err != nil {
			return fmt.Errorf("failed to create mbox message %d: %w", i+1, err)
		}
		if _, err = out.Write(raw); err != nil {
			return fmt.Errorf("failed to write mbox message %d: %w", i+1, err)
		}
	}
	return mw.Close()
}
