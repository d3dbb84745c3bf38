package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	at := func(tick int64, m Message) *Event { return NewEvent(tick, m) }

	tests := []struct {
		name string
		a, b *Event
		want int
	}{
		{"tick", at(0, NoteOn{Note: 60}), at(10, NoteOn{Note: 1}), -1},
		{"meta before voice", at(5, Tempo{MPQN: 1}), at(5, ProgramChange{}), -1},
		{"meta before sysex", at(5, GenericMeta{Type: 0x60}), at(5, NewSystemExclusive(nil)), -1},
		{"sysex before voice", at(5, NewSystemExclusive([]byte{1})), at(5, NoteOn{}), -1},
		{"program before controller", at(0, ProgramChange{Program: 100}), at(0, ControllerChange{}), -1},
		{"controller before note on", at(0, ControllerChange{Controller: 7}), at(0, NoteOn{}), -1},
		{"note on before note off", at(0, NoteOn{Note: 90}), at(0, NoteOff{Note: 10}), -1},
		{"note off before poly aftertouch", at(0, NoteOff{}), at(0, NoteAftertouch{}), -1},
		{"channel aftertouch before pitch bend", at(0, ChannelAftertouch{}), at(0, PitchBend{}), -1},
		{"note number", at(0, NoteOn{Note: 61}), at(0, NoteOn{Note: 60}), 1},
		{"velocity", at(0, NoteOn{Note: 60, Velocity: 0}), at(0, NoteOn{Note: 60, Velocity: 100}), -1},
		{"channel", at(0, NoteOn{Channel: 2}), at(0, NoteOn{Channel: 1}), 1},
		{"meta type", at(0, Tempo{MPQN: 1}), at(0, DefaultTimeSignature()), -1},
		{"meta payload", at(0, NewTrackName("a")), at(0, NewTrackName("b")), -1},
		{"sysex status", at(0, SystemExclusive{Status: 0xF7}), at(0, SystemExclusive{Status: 0xF0}), 1},
		{"equal", at(0, NoteOn{Note: 60, Velocity: 1}), at(0, NoteOn{Note: 60, Velocity: 1}), 0},
		{"metronome last", at(0, MetronomeTick{}), at(0, PitchBend{}), 1},
		{"metronome beat", at(0, MetronomeTick{Measure: 1, Beat: 0}), at(0, MetronomeTick{Measure: 0, Beat: 3}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}

func TestCompareDelta(t *testing.T) {
	a := NewEvent(10, NoteOn{Note: 90})
	b := NewEvent(10, NoteOn{Note: 10})
	a.delta = 10

	// the larger delta sorts first
	assert.Equal(t, -1, Compare(a, b))
}

func TestNewEventNegativeTick(t *testing.T) {
	e := NewEvent(-5, NoteOn{})
	assert.Equal(t, int64(0), e.Tick())
	assert.Equal(t, KindNoteOn, e.Kind())
}

func TestRequiresStatusByte(t *testing.T) {
	on := NewEvent(0, NoteOn{Channel: 1, Note: 60, Velocity: 100})
	on2 := NewEvent(0, NoteOn{Channel: 1, Note: 64, Velocity: 100})
	onOther := NewEvent(0, NoteOn{Channel: 2, Note: 64, Velocity: 100})
	off := NewEvent(0, NoteOff{Channel: 1, Note: 60})
	tempo := NewEvent(0, Tempo{MPQN: DefaultMPQN})
	sysex := NewEvent(0, NewSystemExclusive([]byte{0x7E}))

	assert.True(t, on.RequiresStatusByte(nil))
	assert.False(t, on2.RequiresStatusByte(on))
	assert.True(t, onOther.RequiresStatusByte(on))
	assert.True(t, off.RequiresStatusByte(on))
	assert.True(t, on.RequiresStatusByte(tempo))
	assert.True(t, tempo.RequiresStatusByte(tempo))
	assert.True(t, sysex.RequiresStatusByte(sysex))
}

func TestEventSize(t *testing.T) {
	e := NewEvent(0, NoteOn{Note: 60, Velocity: 100})
	e.delta = 480
	assert.Equal(t, 2+3, e.Size())
	assert.Equal(t, []byte{0x83, 0x60, 0x90, 60, 100}, e.appendTo(nil, true))
	assert.Equal(t, []byte{0x83, 0x60, 60, 100}, e.appendTo(nil, false))

	pc := NewEvent(0, ProgramChange{Channel: 3, Program: 5})
	assert.Equal(t, 1+2, pc.Size())
	assert.Equal(t, []byte{0x00, 0xC3, 5}, pc.appendTo(nil, true))

	tempo := NewEvent(0, Tempo{MPQN: DefaultMPQN})
	assert.Equal(t, 1+6, tempo.Size())
	assert.Equal(t, []byte{0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}, tempo.appendTo(nil, true))

	sysex := NewEvent(0, NewSystemExclusive([]byte{0x7E, 0x7F, 0x09, 0x01, 0xF7}))
	assert.Equal(t, 1+1+1+5, sysex.Size())
}

func TestMessageEncoding(t *testing.T) {
	tests := []struct {
		msg  Message
		want []byte
	}{
		{NoteOff{Channel: 0, Note: 60, Velocity: 64}, []byte{0x80, 60, 64}},
		{NoteAftertouch{Channel: 15, Note: 60, Amount: 1}, []byte{0xAF, 60, 1}},
		{ControllerChange{Channel: 9, Controller: 7, Value: 127}, []byte{0xB9, 7, 127}},
		{ChannelAftertouch{Channel: 1, Amount: 10}, []byte{0xD1, 10}},
		{NewPitchBend(0, 0x2000), []byte{0xE0, 0x00, 0x40}},
		{DefaultTimeSignature(), []byte{0xFF, 0x58, 0x04, 4, 2, 24, 8}},
		{NewKeySignature(-3, ScaleMinor), []byte{0xFF, 0x59, 0x02, 0xFD, 0x01}},
		{SequenceNumber{Number: 0x0102}, []byte{0xFF, 0x00, 0x02, 0x01, 0x02}},
		{MidiChannelPrefix{Channel: 4}, []byte{0xFF, 0x20, 0x01, 0x04}},
		{NewTrackName("Hi"), []byte{0xFF, 0x03, 0x02, 'H', 'i'}},
		{EndOfTrack{}, []byte{0xFF, 0x2F, 0x00}},
		{SmpteOffset{FrameRate: FrameRate30, Hours: 1, Minutes: 2, Seconds: 3, Frames: 4, SubFrames: 5},
			[]byte{0xFF, 0x54, 0x05, 0x61, 2, 3, 4, 5}},
		{SystemExclusive{Status: 0xF7, Data: []byte{1, 2}}, []byte{0xF7, 0x02, 1, 2}},
		{MetronomeTick{Measure: 1, Beat: 2}, nil},
	}

	for _, tt := range tests {
		got := tt.msg.appendTo(nil)
		assert.Equal(t, tt.want, got, tt.msg.String())
		assert.Equal(t, len(tt.want), tt.msg.encodedLen(), tt.msg.String())
	}
}

func TestMetaDecodeFallback(t *testing.T) {
	m := newMetaMessage(MetaTempo, []byte{0x07, 0xA1})
	require.IsType(t, GenericMeta{}, m)
	assert.Equal(t, []byte{0xFF, 0x51, 0x02, 0x07, 0xA1}, m.appendTo(nil))

	m = newMetaMessage(0x60, []byte{1, 2, 3})
	assert.Equal(t, KindGenericMeta, m.Kind())

	m = newMetaMessage(MetaCuePoint, []byte("cue"))
	assert.Equal(t, KindCuePoint, m.Kind())

	m = newMetaMessage(MetaKeySignature, []byte{0x02, 0x00})
	assert.Equal(t, KeySignature{Key: 2, Scale: ScaleMajor}, m)
}

func TestMessageHelpers(t *testing.T) {
	pb := NewPitchBend(1, 0x3FFF)
	assert.Equal(t, uint16(0x3FFF), pb.Amount())
	assert.Equal(t, uint8(0x7F), pb.LSB)
	assert.Equal(t, uint8(0x7F), pb.MSB)

	ts := NewTimeSignature(6, 8, MeterEighth, DefaultDivision)
	assert.Equal(t, uint8(3), ts.DenominatorPow)
	assert.Equal(t, 8, ts.Denominator())

	assert.Equal(t, int8(7), NewKeySignature(12, ScaleMajor).Key)
	assert.Equal(t, int8(-7), NewKeySignature(-9, ScaleMajor).Key)

	assert.InDelta(t, 120.0, Tempo{MPQN: DefaultMPQN}.BPM(), 0.001)
	assert.Equal(t, uint32(600000), NewTempoBPM(100).MPQN)

	sn := SequenceNumber{Number: 0xABCD}
	assert.Equal(t, uint8(0xAB), sn.MSB())
	assert.Equal(t, uint8(0xCD), sn.LSB())

	assert.Equal(t, KindMarker, NewMarker("x").Kind())
	assert.Equal(t, KindText, Text{Type: 0x0E, Text: "x"}.Kind())
}

func TestParseKind(t *testing.T) {
	for k := KindNoteOff; k <= KindMetronome; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}

	_, ok := ParseKind("Bogus")
	assert.False(t, ok)

	assert.True(t, KindPitchBend.IsVoice())
	assert.False(t, KindSystemExclusive.IsVoice())
	assert.True(t, KindGenericMeta.IsMeta())
	assert.False(t, KindMetronome.IsMeta())
}
