// Package bnetlog provides the pluggable logger every core component takes
// by value: an interface a caller can swap in, gated by an atomic enable
// flag so the hot codec and state-machine paths pay nothing when logging
// is off.
package bnetlog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// LogProvider are the levels a core component logs at. Only these four are
// used anywhere in the stack: there is no Info level because routine frame
// and service traffic is not logged by default.
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Log wraps a LogProvider behind an enable flag. The zero value logs
// nothing until SetLogProvider and LogMode(true) are both called.
type Log struct {
	provider LogProvider
	has      uint32 // 1: enabled, 0: disabled
}

// New creates a Log whose default provider writes through logrus at the
// given field-qualified component name.
func New(component string) Log {
	return Log{
		provider: logrusProvider{logrus.WithField("component", component)},
	}
}

// LogMode enables or disables log output.
func (sf *Log) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider overrides the provider used when enabled.
func (sf *Log) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (sf Log) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error logs an ERROR level message.
func (sf Log) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn logs a WARN level message.
func (sf Log) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG level message.
func (sf Log) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// logrusProvider adapts a *logrus.Entry to LogProvider.
type logrusProvider struct {
	entry *logrus.Entry
}

var _ LogProvider = logrusProvider{}

func (sf logrusProvider) Critical(format string, v ...interface{}) {
	sf.entry.Errorf("[CRITICAL] "+format, v...)
}

func (sf logrusProvider) Error(format string, v ...interface{}) {
	sf.entry.Errorf(format, v...)
}

func (sf logrusProvider) Warn(format string, v ...interface{}) {
	sf.entry.Warnf(format, v...)
}

func (sf logrusProvider) Debug(format string, v ...interface{}) {
	sf.entry.Debugf(format, v...)
}
