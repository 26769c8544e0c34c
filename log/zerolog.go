// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package log

import (
	"io"

	"github.com/rs/zerolog"
)

// Zerolog is a structured JSON logger based on zerolog that satisfies the Logger interface
type Zerolog struct {
	level Level
	log   zerolog.Logger
}

// NewZerolog returns a new Zerolog type writing JSON lines to output
func NewZerolog(output io.Writer, level Level) *Zerolog {
	zl := zerolog.DebugLevel
	switch level {
	case LevelError:
		zl = zerolog.ErrorLevel
	case LevelWarn:
		zl = zerolog.WarnLevel
	case LevelInfo:
		zl = zerolog.InfoLevel
	}
	return &Zerolog{
		level: level,
		log:   zerolog.New(output).Level(zl).With().Timestamp().Logger(),
	}
}

// send adds the direction and component of the Log to the event and emits it
func (l *Zerolog) send(e *zerolog.Event, log Log) {
	if log.Component != "" {
		e = e.Str(ComponentString, log.Component)
	}
	e.Dict(DirString, zerolog.Dict().
		Str(DirFromString, log.directionFrom()).
		Str(DirToString, log.directionTo()),
	).Msg(log.Text())
}

// Debugf logs a debug message via zerolog
func (l *Zerolog) Debugf(log Log) {
	if l.level >= LevelDebug {
		l.send(l.log.Debug(), log)
	}
}

// Infof logs a info message via zerolog
func (l *Zerolog) Infof(log Log) {
	if l.level >= LevelInfo {
		l.send(l.log.Info(), log)
	}
}

// Warnf logs a warn message via zerolog
func (l *Zerolog) Warnf(log Log) {
	if l.level >= LevelWarn {
		l.send(l.log.Warn(), log)
	}
}

// Errorf logs a error message via zerolog
func (l *Zerolog) Errorf(log Log) {
	if l.level >= LevelError {
		l.send(l.log.Error(), log)
	}
}
