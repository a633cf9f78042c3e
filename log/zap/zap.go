// Package zap adapts a zap logger to samplecache.Logger.
package zap

import (
	"io"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/samplecache"
)

var _ samplecache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New builds a JSON logger writing to w at level. An unknown level falls
// back to info.
func New(w io.Writer, level string) Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), lvl)
	return Logger{L: zap.New(core)}
}

func (z Logger) Debug(msg string, f samplecache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f samplecache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f samplecache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f samplecache.Fields) { z.L.Error(msg, zf(f)...) }

// zf emits fields in key order so lines are stable.
func zf(f samplecache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
