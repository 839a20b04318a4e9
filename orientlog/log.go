// Package orientlog is a small leveled, RFC5424-structured logger for
// session events (session failure, push-frame dispatch problems). It mirrors the teacher's ingest/log package: a Level-gated
// writer that renders structured-data parameters alongside the message
// rather than interpolating them into the string.
package orientlog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "OFF"
	}
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	default:
		return rfc5424.User | rfc5424.Debug
	}
}

const defaultID = "orientwire@1"

// Logger writes leveled, structured log lines to an io.Writer. The zero
// value is not usable; construct with New.
type Logger struct {
	mtx      sync.Mutex
	wtr      io.Writer
	lvl      Level
	appname  string
	hostname string
}

// New builds a Logger writing to wtr at the given minimum level. appname
// identifies this client in the log stream (e.g. "orientwire").
func New(wtr io.Writer, lvl Level, appname string) *Logger {
	return &Logger{wtr: wtr, lvl: lvl, appname: appname}
}

// SetLevel adjusts the minimum level that will be emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.lvl = lvl
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.output(DEBUG, msg, sds...) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)  { l.output(INFO, msg, sds...) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)  { l.output(WARN, msg, sds...) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.output(ERROR, msg, sds...) }
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.output(CRITICAL, msg, sds...)
}

// Errorf is a convenience wrapper for callers that just want printf-style
// formatting without structured-data parameters.
func (l *Logger) Errorf(f string, args ...interface{}) {
	l.output(ERROR, fmt.Sprintf(f, args...))
}

func (l *Logger) output(lvl Level, msg string, sds ...rfc5424.SDParam) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.wtr == nil || lvl < l.lvl {
		return
	}
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: time.Now(),
		Hostname:  l.hostname,
		AppName:   l.appname,
		MessageID: lvl.String(),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: defaultID, Parameters: sds}}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return
	}
	line := strings.TrimRight(string(b), "\n\t\r")
	io.WriteString(l.wtr, line)
	io.WriteString(l.wtr, "\n")
}

// Nil returns a Logger that discards everything - used when the caller
// doesn't configure logging explicitly.
func Nil() *Logger {
	return &Logger{lvl: OFF}
}
