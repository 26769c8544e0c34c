// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonDir struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type jsonLog struct {
	Component string  `json:"component"`
	Direction jsonDir `json:"direction"`
	Level     string  `json:"level"`
	Msg       string  `json:"msg"`
	Message   string  `json:"message"`
	From      string  `json:"from"`
	To        string  `json:"to"`
}

func TestStdlog(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		logFunc  func(*Stdlog, Log)
		expected string
	}{
		{"debug", LevelDebug, (*Stdlog).Debugf, "DEBUG: C <-- S: test foo\n"},
		{"info", LevelInfo, (*Stdlog).Infof, " INFO: C <-- S: test foo\n"},
		{"warn", LevelWarn, (*Stdlog).Warnf, " WARN: C <-- S: test foo\n"},
		{"error", LevelError, (*Stdlog).Errorf, "ERROR: C <-- S: test foo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			l := New(&b, tt.level)
			tt.logFunc(l, Log{Direction: DirServerToClient, Format: "test %s", Messages: []interface{}{"foo"}})
			assert.True(t, strings.HasSuffix(b.String(), tt.expected), "got %q", b.String())
		})
	}
	t.Run("level filters lower priority messages", func(t *testing.T) {
		var b bytes.Buffer
		l := New(&b, LevelWarn)
		l.Debugf(Log{Format: "hidden"})
		l.Infof(Log{Format: "hidden"})
		assert.Empty(t, b.String())
	})
	t.Run("component and direction prefix", func(t *testing.T) {
		var b bytes.Buffer
		l := New(&b, LevelDebug)
		l.Debugf(Log{Direction: DirClientToServer, Component: "smtp", Format: "EHLO %s", Messages: []interface{}{"host"}})
		assert.True(t, strings.HasSuffix(b.String(), "DEBUG: [smtp] C --> S: EHLO host\n"), "got %q", b.String())
		b.Reset()
		l.Warnf(Log{Direction: DirNone, Component: "parser", Format: "lenient"})
		assert.True(t, strings.HasSuffix(b.String(), " WARN: [parser] lenient\n"), "got %q", b.String())
	})
}

func TestJSONlog(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelDebug)
	l.Debugf(Log{Direction: DirClientToServer, Component: "smtp", Format: "MAIL FROM:<%s>", Messages: []interface{}{"a@x.com"}})

	var jl jsonLog
	require.NoError(t, json.Unmarshal(b.Bytes(), &jl))
	assert.Equal(t, "DEBUG", jl.Level)
	assert.Equal(t, "MAIL FROM:<a@x.com>", jl.Msg)
	assert.Equal(t, "smtp", jl.Component)
	assert.Equal(t, "client", jl.Direction.From)
	assert.Equal(t, "server", jl.Direction.To)

	b.Reset()
	l = NewJSON(&b, LevelError)
	l.Warnf(Log{Format: "hidden"})
	assert.Empty(t, b.String())
}

func TestLogrus(t *testing.T) {
	var b bytes.Buffer
	lr := logrus.New()
	lr.Out = &b
	lr.Formatter = &logrus.JSONFormatter{}
	lr.Level = logrus.DebugLevel

	l := NewLogrus(lr, LevelDebug)
	l.Infof(Log{Direction: DirServerToClient, Component: "smtp", Format: "%d %s", Messages: []interface{}{250, "OK"}})

	var jl jsonLog
	require.NoError(t, json.Unmarshal(b.Bytes(), &jl))
	assert.Equal(t, "info", jl.Level)
	assert.Equal(t, "250 OK", jl.Msg)
	assert.Equal(t, "smtp", jl.Component)
	assert.Equal(t, "server", jl.From)
	assert.Equal(t, "client", jl.To)

	t.Run("nil logger falls back to standard logger", func(t *testing.T) {
		assert.Equal(t, logrus.StandardLogger(), NewLogrus(nil, LevelInfo).log)
	})
}

func TestZerolog(t *testing.T) {
	var b bytes.Buffer
	l := NewZerolog(&b, LevelInfo)
	l.Debugf(Log{Format: "hidden"})
	assert.Empty(t, b.String())

	l.Errorf(Log{Direction: DirNone, Component: "renderer", Format: "no %s", Messages: []interface{}{"subject"}})
	var jl jsonLog
	require.NoError(t, json.Unmarshal(b.Bytes(), &jl))
	assert.Equal(t, "error", jl.Level)
	assert.Equal(t, "no subject", jl.Message)
	assert.Equal(t, "renderer", jl.Component)
	assert.Equal(t, "library", jl.Direction.From)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}
