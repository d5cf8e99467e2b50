package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger adapts zap to cron.Logger. cron's info messages are chatty
// (every wake-up), so they go to debug.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger(l *zap.Logger) cron.Logger {
	return cronLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.sugar.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
