package main

import (
	"context"
	"errors"

	"github.com/Garik-/midi/pkg/midi"
	"github.com/Garik-/midi/pkg/velocity"
	"go.uber.org/zap"
)

// newVelocityMap decodes every path and collects its note on velocities.
// Truncated files still contribute the events read before the cut; any other
// decode error is skipped unless strict is set.
func newVelocityMap(parent context.Context, paths <-chan string, cntRoutines int, strict bool) (velocity.Database, error) {
	log := velocityMapLog.Named("newVelocityMap")
	ctx, cancel := context.WithCancel(parent)
	results, done := decodeWorker(ctx, paths, cntRoutines)

	defer func() {
		log.Debug("cancel")
		cancel()
		<-done // wait decodeWorker closed
	}()

	db := make(velocity.Database)

	for result := range results {
		if result.err != nil {
			if strict {
				return nil, result.err
			}
			log.Warn("decode", zap.String("name", result.name), zap.Error(result.err))
			if !errors.Is(result.err, midi.ErrTruncated) {
				continue
			}
		}

		n := db.AddFile(result.file)
		log.Debug("result", zap.String("name", result.name), zap.Int("tracks", result.file.TrackCount()), zap.Int("notes", n))
	}

	return db, nil
}
