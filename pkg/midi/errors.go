package midi

import "errors"

var (
	// ErrFmtNotSupported is a generic error reporting an unknown format.
	ErrFmtNotSupported = errors.New("format not supported")
	// ErrUnexpectedData is a generic error reporting that the parser encountered unexpected data.
	ErrUnexpectedData = errors.New("unexpected data content")
	// ErrTruncated reports a chunk or event that ends before its declared size.
	ErrTruncated = errors.New("truncated data")
	// ErrVarintTooLong reports a variable-length quantity longer than four bytes.
	ErrVarintTooLong = errors.New("variable-length quantity too long")
	// ErrValueRange reports a value that does not fit its wire representation.
	ErrValueRange = errors.New("value out of range")
	// ErrTrackClosed reports an insertion into a track that already ends.
	ErrTrackClosed = errors.New("track is closed")
	// ErrEndOfTrackOrder reports an end of track placed before the last event.
	ErrEndOfTrackOrder = errors.New("end of track before an existing event")
	// ErrNotStorable reports an event that a track does not hold, such as a metronome tick.
	ErrNotStorable = errors.New("event cannot be stored in a track")
)
