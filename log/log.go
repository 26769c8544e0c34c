// SPDX-FileCopyrightText: Copyright (c) 2022-2023 The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package log implements a logger interface that can be used within the go-mail package
package log

import "fmt"

const (
	DirServerToClient Direction = iota // Server to Client communication
	DirClientToServer                  // Client to Server communication
	DirNone                            // Library internal message without a peer
)

const (
	// LevelError is the Level for only ERROR log messages
	LevelError Level = iota
	// LevelWarn is the Level for WARN and higher log messages
	LevelWarn
	// LevelInfo is the Level for INFO and higher log messages
	LevelInfo
	// LevelDebug is the Level for DEBUG and higher log messages
	LevelDebug
)

const (
	// DirString is a constant used for the structured logger
	DirString = "direction"
	// DirFromString is a constant used for the structured logger
	DirFromString = "from"
	// DirToString is a constant used for the structured logger
	DirToString = "to"
	// ComponentString is the structured logger key of the emitting component
	ComponentString = "component"
)

// Direction is a type wrapper for the direction a debug log message goes
type Direction int

// Level is a type wrapper for an int
type Level int

// Log represents a log message type that holds a log Direction, the emitting
// Component, a Format string and a slice of Messages
type Log struct {
	Direction Direction
	Component string
	Format    string
	Messages  []interface{}
}

// Logger is the log interface for go-mail
type Logger interface {
	Debugf(Log)
	Infof(Log)
	Warnf(Log)
	Errorf(Log)
}

// String satisfies the fmt.Stringer interface for the Level type
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Text returns the formatted message of the Log without any direction prefix
func (l Log) Text() string {
	return fmt.Sprintf(l.Format, l.Messages...)
}

// directionPrefix returns the prefix string for the Log's Direction and Component
func (l Log) directionPrefix() string {
	var p string
	switch l.Direction {
	case DirClientToServer:
		p = "C --> S:"
	case DirServerToClient:
		p = "C <-- S:"
	}
	if l.Component != "" {
		if p == "" {
			return "[" + l.Component + "]"
		}
		return "[" + l.Component + "] " + p
	}
	return p
}

// directionFrom returns the source party of the Log
func (l Log) directionFrom() string {
	switch l.Direction {
	case DirClientToServer:
		return "client"
	case DirServerToClient:
		return "server"
	default:
		return "library"
	}
}

// directionTo returns the receiving party of the Log
func (l Log) directionTo() string {
	switch l.Direction {
	case DirClientToServer:
		return "server"
	case DirServerToClient:
		return "client"
	default:
		return "library"
	}
}
