// Package logrus adapts a logrus entry to canoncbor.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/canoncbor"
)

type Logger struct{ E *logrus.Entry }

var _ canoncbor.Logger = Logger{}

// New tags every line with component=canoncbor.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "canoncbor")}
}

func (l Logger) Debug(msg string, f canoncbor.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f canoncbor.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f canoncbor.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f canoncbor.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus.ErrorKey so formatters and hooks see it.
func (l Logger) with(f canoncbor.Fields) *logrus.Entry {
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
