package diag

import (
	"go.uber.org/zap"
)

// ZapSink writes diagnostics to a zap.Logger.
type ZapSink struct {
	logger *zap.SugaredLogger
}

// NewZapSink creates a sink for hosts that log through zap.
// If logger is nil, zap.NewNop() is used.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Sugar()}
}

// Warn implements Sink.
func (z *ZapSink) Warn(msg string, args ...any) {
	z.logger.Warnw(msg, args...)
}

// Fatal implements Sink. It logs at error level and raises err; use
// ExitOnFatal for process termination.
func (z *ZapSink) Fatal(err error) error {
	if err != nil {
		z.logger.Errorw("fatal", zap.Error(err))
	}
	return err
}
