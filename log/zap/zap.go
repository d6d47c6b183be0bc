// Package zap adapts a *zap.Logger to canoncbor.Logger.
package zap

import (
	"slices"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/canoncbor"
)

type Logger struct{ L *zap.Logger }

var _ canoncbor.Logger = Logger{}

// New names l "canoncbor". A nil l logs nothing.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l.Named("canoncbor")}
}

func (z Logger) Debug(msg string, f canoncbor.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f canoncbor.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f canoncbor.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f canoncbor.Fields) { z.L.Error(msg, zf(f)...) }

// zf emits fields in key order so log lines are stable.
func zf(f canoncbor.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
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
