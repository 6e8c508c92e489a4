package graphbuilder

import (
	"os"

	"go.uber.org/zap"
)

// Verbose construction logging is off unless GRAPHBUILDER_DEBUG=1 is set in
// the environment. The logs are per-block and per-deopt, far too chatty for
// production use.
var debugEnabled = os.Getenv("GRAPHBUILDER_DEBUG") == "1"

var debugLog *zap.SugaredLogger

func init() {
	if debugEnabled {
		if l, err := zap.NewDevelopment(); err == nil {
			debugLog = l.Sugar()
		}
	}
	if debugLog == nil {
		debugLog = zap.NewNop().Sugar()
	}
}

func debugf(format string, args ...interface{}) {
	if debugEnabled {
		debugLog.Debugf(format, args...)
	}
}

func warnf(format string, args ...interface{}) {
	if debugEnabled {
		debugLog.Warnf(format, args...)
	}
}
