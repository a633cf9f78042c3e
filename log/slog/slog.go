// Package slog adapts a log/slog logger to samplecache.Logger.
package slog

import (
	"context"
	"io"
	stdslog "log/slog"
	"sort"
	"strings"

	"github.com/unkn0wn-root/samplecache"
)

var _ samplecache.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New builds a text logger writing to w at level. An unknown level falls
// back to info.
func New(w io.Writer, level string) Logger {
	var lvl stdslog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = stdslog.LevelInfo
	}
	return Logger{L: stdslog.New(stdslog.NewTextHandler(w, &stdslog.HandlerOptions{Level: lvl}))}
}

func (s Logger) Debug(msg string, f samplecache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f samplecache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f samplecache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f samplecache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(lvl stdslog.Level, msg string, f samplecache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, lvl) {
		return
	}
	s.L.LogAttrs(ctx, lvl, msg, attrs(f)...)
}

func attrs(f samplecache.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range keys {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
