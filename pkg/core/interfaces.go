package core

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger interface for raytracer logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// DefaultLogger implements Logger on top of the standard library logger
type DefaultLogger struct {
	prefix string
	out    *log.Logger
}

// NewDefaultLogger creates a logger writing timestamped lines to stdout.
// A non-empty prefix is written in brackets before every message.
func NewDefaultLogger(prefix string) *DefaultLogger {
	return NewWriterLogger(os.Stdout, prefix)
}

// NewWriterLogger creates a logger writing to w
func NewWriterLogger(w io.Writer, prefix string) *DefaultLogger {
	return &DefaultLogger{
		prefix: prefix,
		out:    log.New(w, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *DefaultLogger) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = fmt.Sprintf("[%s] %s", l.prefix, msg)
	}
	l.out.Print(msg)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Printf(string, ...interface{}) {}
