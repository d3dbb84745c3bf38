package processor

import (
	"math"

	"github.com/Garik-/midi/pkg/midi"
)

// metronome counts beats from elapsed ticks. Beats are 0-based internally and
// reported 1-based.
type metronome struct {
	resolution int
	signature  midi.TimeSignature

	measure  int
	beat     int
	progress float64
	interval float64 // ticks per beat
}

func newMetronome(resolution int) *metronome {
	m := &metronome{resolution: resolution, measure: 1, interval: float64(resolution)}
	m.setTimeSignature(midi.DefaultTimeSignature())
	return m
}

// setTimeSignature restarts counting on the first beat. A meter other than
// eighth, quarter, half or whole note keeps the current interval.
func (m *metronome) setTimeSignature(sig midi.TimeSignature) {
	m.signature = sig
	m.beat = 0

	res := float64(m.resolution)
	switch sig.Meter {
	case midi.MeterEighth:
		m.interval = res / 2
	case midi.MeterQuarter:
		m.interval = res
	case midi.MeterHalf:
		m.interval = res * 2
	case midi.MeterWhole:
		m.interval = res * 4
	}
}

// update adds ticks and reports whether a beat was reached.
func (m *metronome) update(ticks float64) bool {
	if m.interval <= 0 {
		return false
	}
	m.progress += ticks
	if m.progress < m.interval {
		return false
	}

	m.progress = math.Mod(m.progress, m.interval)
	beats := int(m.signature.Numerator)
	if beats <= 0 {
		beats = 1
	}
	m.beat = (m.beat + 1) % beats
	if m.beat == 0 {
		m.measure++
	}
	return true
}

func (m *metronome) beatNumber() int {
	return m.beat + 1
}

func (m *metronome) tick() midi.MetronomeTick {
	return midi.MetronomeTick{Measure: m.measure, Beat: m.beatNumber()}
}
