package processor

import "go.uber.org/zap"

var processorLog = zap.NewNop()

// EnableDebugLogging sets the logger used by processors created without WithLogger.
func EnableDebugLogging(l *zap.Logger) {
	processorLog = l.Named("processor")
}
