package logger

import (
	"fmt"
	"io"
	"log"
)

type Logger struct {
	l *log.Logger
}

func New(l *log.Logger) *Logger {
	return &Logger{l: l}
}

// Discard returns a logger that drops every message. Meant for tests.
func Discard() *Logger {
	return New(log.New(io.Discard, "", 0))
}

// Writer exposes the underlying log.Logger so libraries with their own logging
// (GORM, net/http) end up in the same stream.
func (l *Logger) Writer() *log.Logger {
	return l.l
}

func (l *Logger) LogErrorf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	l.l.Printf("[Error]: %s\n", msg)
}

func (l *Logger) LogWarnf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	l.l.Printf("[Warn]: %s\n", msg)
}

func (l *Logger) LogInfo(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	l.l.Printf("[Info]: %s\n", msg)
}
