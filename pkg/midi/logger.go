package midi

import "go.uber.org/zap"

var decoderLog = zap.NewNop()
var trackLog = zap.NewNop()

// EnableDebugLogging routes decoder and track diagnostics to l.
func EnableDebugLogging(l *zap.Logger) {
	decoderLog = l.Named("decoder")
	trackLog = l.Named("track")
}
