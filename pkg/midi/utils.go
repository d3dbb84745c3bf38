package midi

import "time"

const microsecondsPerMinute = 60000000

// TicksToMs converts a tick count to milliseconds at the given tempo.
func TicksToMs(ticks int64, mpqn uint32, resolution int) int64 {
	if resolution <= 0 {
		return 0
	}
	return ticks * int64(mpqn) / int64(resolution) / 1000
}

// TicksToDuration is TicksToMs with microsecond precision.
func TicksToDuration(ticks int64, mpqn uint32, resolution int) time.Duration {
	if resolution <= 0 {
		return 0
	}
	return time.Duration(ticks*int64(mpqn)/int64(resolution)) * time.Microsecond
}

// MsToTicks converts milliseconds to fractional ticks at the given tempo.
func MsToTicks(ms int64, mpqn uint32, resolution int) float64 {
	if mpqn == 0 {
		return 0
	}
	return float64(ms) * 1000 * float64(resolution) / float64(mpqn)
}

// DurationToTicks is MsToTicks for a duration with microsecond precision.
func DurationToTicks(d time.Duration, mpqn uint32, resolution int) float64 {
	if mpqn == 0 {
		return 0
	}
	return float64(d.Microseconds()) * float64(resolution) / float64(mpqn)
}

// BpmToMpqn converts beats per minute to microseconds per quarter note.
func BpmToMpqn(bpm float64) uint32 {
	if bpm <= 0 {
		return 0
	}
	return uint32(microsecondsPerMinute / bpm)
}

// MpqnToBpm converts microseconds per quarter note to beats per minute.
func MpqnToBpm(mpqn uint32) float64 {
	if mpqn == 0 {
		return 0
	}
	return microsecondsPerMinute / float64(mpqn)
}

// QuarterPosition returns which quarter of a 4/4 bar tick falls on (0-3).
func QuarterPosition(tick int64, ticksPerQuarterNote int) int {
	if ticksPerQuarterNote <= 0 || tick < 0 {
		return 0
	}
	return int(tick/int64(ticksPerQuarterNote)) % 4
}

// bytesToInt reads a big-endian unsigned integer of up to four bytes.
func bytesToInt(buf []byte) uint32 {
	var x uint32
	for _, b := range buf {
		x = x<<8 | uint32(b)
	}
	return x
}

// intToBytes writes the low n bytes of v big-endian.
func intToBytes(v uint32, n int) []byte {
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}
