// SPDX-FileCopyrightText: 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

package mail

import (
	"errors"
	"io"
)

// ErrNoOutWriter is returned when no io.Writer is set for Base64LineBreaker.
var ErrNoOutWriter = errors.New("no io.Writer set for Base64LineBreaker")

// Base64LineBreaker is used to handle base64 encoding with the insertion of new lines after a
// certain number of characters.
//
// It satisfies the io.WriteCloser interface.
type Base64LineBreaker struct {
	line   []byte
	length int
	delim  []byte
	out    io.Writer
}

// NewBase64LineBreaker returns a Base64LineBreaker that writes lines of at most length
// characters, each terminated by delim, to out.
func NewBase64LineBreaker(out io.Writer, length int, delim string) *Base64LineBreaker {
	if length <= 0 {
		length = DefaultLineLength
	}
	if delim == "" {
		delim = DefaultDelimiter
	}
	return &Base64LineBreaker{
		line:   make([]byte, 0, length),
		length: length,
		delim:  []byte(delim),
		out:    out,
	}
}

// Write writes data to the Base64LineBreaker, flushing a line whenever length characters
// have been collected.
func (l *Base64LineBreaker) Write(data []byte) (int, error) {
	if l.out == nil {
		return 0, ErrNoOutWriter
	}
	written := 0
	for len(data) > 0 {
		free := l.length - len(l.line)
		if len(data) < free {
			l.line = append(l.line, data...)
			return written + len(data), nil
		}
		l.line = append(l.line, data[:free]...)
		if err := l.flush(); err != nil {
			return written, err
		}
		written += free
		data = data[free:]
	}
	return written, nil
}

// Close finalizes the Base64LineBreaker, writing any remaining buffered data followed by the
// delimiter.
func (l *Base64LineBreaker) Close() error {
	if l.out == nil {
		return ErrNoOutWriter
	}
	if len(l.line) > 0 {
		return l.flush()
	}
	return nil
}

func (l *Base64LineBreaker) flush() error {
	if _, err := l.out.Write(l.line); err != nil {
		return err
	}
	l.line = l.line[:0]
	_, err := l.out.Write(l.delim)
	return err
}
