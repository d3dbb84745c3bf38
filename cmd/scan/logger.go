package main

import (
	"github.com/Garik-/midi/pkg/midi"
	"go.uber.org/zap"
)

var decoderLog = zap.NewNop()
var velocityMapLog = zap.NewNop()

func enableDebugLogging(l *zap.Logger) {
	decoderLog = l.Named("decodeWorker")
	velocityMapLog = l.Named("velocityMap")
	midi.EnableDebugLogging(l)
}
