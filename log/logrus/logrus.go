// Package logrus adapts a logrus entry to samplecache.Logger.
package logrus

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/samplecache"
)

var _ samplecache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New builds a text logger writing to w at level ("debug", "info", ...).
// An unknown level falls back to info.
func New(w io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return Logger{E: logrus.NewEntry(l)}
}

func (l Logger) Debug(msg string, f samplecache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f samplecache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f samplecache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f samplecache.Fields) { l.with(f).Error(msg) }

// with maps an "err" field onto logrus' own error key.
func (l Logger) with(f samplecache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
