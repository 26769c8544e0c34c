// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package log

import (
	"github.com/sirupsen/logrus"
)

// Logrus is a Logger that forwards go-mail log messages to a logrus.Logger. Messages are
// filtered by both the Level of the Logrus and the level of the wrapped logrus.Logger.
type Logrus struct {
	level Level
	log   *logrus.Logger
}

// NewLogrus returns a new Logrus type that satisfies the Logger interface. If l is nil,
// the logrus standard logger is used.
func NewLogrus(l *logrus.Logger, level Level) *Logrus {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Logrus{level: level, log: l}
}

// entry returns a logrus.Entry carrying the direction and component fields of the Log
func (l *Logrus) entry(log Log) *logrus.Entry {
	fields := logrus.Fields{
		DirFromString: log.directionFrom(),
		DirToString:   log.directionTo(),
	}
	if log.Component != "" {
		fields[ComponentString] = log.Component
	}
	return l.log.WithFields(fields)
}

// Debugf logs a debug message via logrus
func (l *Logrus) Debugf(log Log) {
	if l.level >= LevelDebug {
		l.entry(log).Debug(log.Text())
	}
}

// Infof logs a info message via logrus
func (l *Logrus) Infof(log Log) {
	if l.level >= LevelInfo {
		l.entry(log).Info(log.Text())
	}
}

// Warnf logs a warn message via logrus
func (l *Logrus) Warnf(log Log) {
	if l.level >= LevelWarn {
		l.entry(log).Warn(log.Text())
	}
}

// Errorf logs a error message via logrus
func (l *Logrus) Errorf(log Log) {
	if l.level >= LevelError {
		l.entry(log).Error(log.Text())
	}
}
