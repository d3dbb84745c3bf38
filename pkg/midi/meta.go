package midi

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"
)

const metaStatus = 0xFF

// MetaType is the type byte following 0xFF.
type MetaType byte

const (
	MetaSequenceNumber    MetaType = 0x00
	MetaText              MetaType = 0x01
	MetaCopyrightNotice   MetaType = 0x02
	MetaTrackName         MetaType = 0x03
	MetaInstrumentName    MetaType = 0x04
	MetaLyrics            MetaType = 0x05
	MetaMarker            MetaType = 0x06
	MetaCuePoint          MetaType = 0x07
	MetaMidiChannelPrefix MetaType = 0x20
	MetaEndOfTrack        MetaType = 0x2F
	MetaTempo             MetaType = 0x51
	MetaSmpteOffset       MetaType = 0x54
	MetaTimeSignature     MetaType = 0x58
	MetaKeySignature      MetaType = 0x59
	MetaSequencerSpecific MetaType = 0x7F
)

var textKinds = map[MetaType]Kind{
	MetaText:            KindText,
	MetaCopyrightNotice: KindCopyrightNotice,
	MetaTrackName:       KindTrackName,
	MetaInstrumentName:  KindInstrumentName,
	MetaLyrics:          KindLyrics,
	MetaMarker:          KindMarker,
	MetaCuePoint:        KindCuePoint,
}

// metaMessage is implemented by every meta variant. The wire form is always
// 0xFF, type, VLQ length, data.
type metaMessage interface {
	Message
	metaType() MetaType
	metaData() []byte
}

func metaLen(m metaMessage) int {
	n := len(m.metaData())
	return 2 + varintLen(uint32(n)) + n
}

func appendMeta(b []byte, m metaMessage) []byte {
	data := m.metaData()
	b = append(b, metaStatus, byte(m.metaType()))
	b = appendVarint(b, uint32(len(data)))
	return append(b, data...)
}

// DefaultMPQN is 120 beats per minute.
const DefaultMPQN = 500000

// Tempo is expressed in microseconds per quarter note.
type Tempo struct {
	MPQN uint32
}

// NewTempoBPM converts beats per minute to a Tempo.
func NewTempoBPM(bpm float64) Tempo {
	return Tempo{MPQN: BpmToMpqn(bpm)}
}

// BPM reports the tempo in beats per minute.
func (m Tempo) BPM() float64 {
	return MpqnToBpm(m.MPQN)
}

func (Tempo) Kind() Kind                 { return KindTempo }
func (Tempo) metaType() MetaType         { return MetaTempo }
func (m Tempo) metaData() []byte         { return intToBytes(m.MPQN, 3) }
func (m Tempo) encodedLen() int          { return metaLen(m) }
func (m Tempo) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m Tempo) String() string {
	return fmt.Sprintf("Tempo mpqn=%d bpm=%.2f", m.MPQN, m.BPM())
}

// Meter values of a TimeSignature: MIDI clocks per metronome click.
const (
	MeterEighth  = 12
	MeterQuarter = 24
	MeterHalf    = 48
	MeterWhole   = 96

	DefaultMeter    = MeterQuarter
	DefaultDivision = 8
)

// TimeSignature stores the denominator as a power of two, as on the wire.
type TimeSignature struct {
	Numerator      uint8
	DenominatorPow uint8
	Meter          uint8
	Division       uint8
}

// NewTimeSignature takes the real denominator (2, 4, 8 ...). Denominators that
// are not a power of two up to 32 are stored as 1.
func NewTimeSignature(numerator, denominator, meter, division uint8) TimeSignature {
	var pow uint8
	switch denominator {
	case 2, 4, 8, 16, 32:
		pow = uint8(bits.TrailingZeros8(denominator))
	}
	return TimeSignature{Numerator: numerator, DenominatorPow: pow, Meter: meter, Division: division}
}

// DefaultTimeSignature is 4/4 with a quarter note click.
func DefaultTimeSignature() TimeSignature {
	return NewTimeSignature(4, 4, DefaultMeter, DefaultDivision)
}

// Denominator is the real denominator.
func (m TimeSignature) Denominator() int {
	return 1 << m.DenominatorPow
}

func (TimeSignature) Kind() Kind         { return KindTimeSignature }
func (TimeSignature) metaType() MetaType { return MetaTimeSignature }
func (m TimeSignature) metaData() []byte {
	return []byte{m.Numerator, m.DenominatorPow, m.Meter, m.Division}
}
func (m TimeSignature) encodedLen() int          { return metaLen(m) }
func (m TimeSignature) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m TimeSignature) String() string {
	return fmt.Sprintf("TimeSignature %d/%d meter=%d division=%d", m.Numerator, m.Denominator(), m.Meter, m.Division)
}

const (
	ScaleMajor = 0
	ScaleMinor = 1
)

// KeySignature: Key is the number of sharps (positive) or flats (negative).
type KeySignature struct {
	Key   int8
	Scale uint8
}

// NewKeySignature clamps key to -7..7.
func NewKeySignature(key int, scale uint8) KeySignature {
	if key < -7 {
		key = -7
	} else if key > 7 {
		key = 7
	}
	return KeySignature{Key: int8(key), Scale: scale}
}

func (KeySignature) Kind() Kind                 { return KindKeySignature }
func (KeySignature) metaType() MetaType         { return MetaKeySignature }
func (m KeySignature) metaData() []byte         { return []byte{byte(m.Key), m.Scale} }
func (m KeySignature) encodedLen() int          { return metaLen(m) }
func (m KeySignature) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m KeySignature) String() string {
	return fmt.Sprintf("KeySignature key=%d scale=%d", m.Key, m.Scale)
}

// FrameRate is stored in the top bits of the SMPTE hour byte.
type FrameRate uint8

const (
	FrameRate24 FrameRate = iota
	FrameRate25
	FrameRate30Drop
	FrameRate30
)

type SmpteOffset struct {
	FrameRate FrameRate
	Hours     uint8
	Minutes   uint8
	Seconds   uint8
	Frames    uint8
	SubFrames uint8
}

func (SmpteOffset) Kind() Kind         { return KindSmpteOffset }
func (SmpteOffset) metaType() MetaType { return MetaSmpteOffset }
func (m SmpteOffset) metaData() []byte {
	return []byte{byte(m.FrameRate&0x03)<<5 | m.Hours&0x1F, m.Minutes, m.Seconds, m.Frames, m.SubFrames}
}
func (m SmpteOffset) encodedLen() int          { return metaLen(m) }
func (m SmpteOffset) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m SmpteOffset) String() string {
	return fmt.Sprintf("SmpteOffset %02d:%02d:%02d:%02d.%02d rate=%d", m.Hours, m.Minutes, m.Seconds, m.Frames, m.SubFrames, m.FrameRate)
}

type SequenceNumber struct {
	Number uint16
}

func (m SequenceNumber) MSB() uint8 { return uint8(m.Number >> 8) }
func (m SequenceNumber) LSB() uint8 { return uint8(m.Number) }

func (SequenceNumber) Kind() Kind                 { return KindSequenceNumber }
func (SequenceNumber) metaType() MetaType         { return MetaSequenceNumber }
func (m SequenceNumber) metaData() []byte         { return []byte{m.MSB(), m.LSB()} }
func (m SequenceNumber) encodedLen() int          { return metaLen(m) }
func (m SequenceNumber) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m SequenceNumber) String() string {
	return fmt.Sprintf("SequenceNumber %d", m.Number)
}

type MidiChannelPrefix struct {
	Channel uint8
}

func (MidiChannelPrefix) Kind() Kind                 { return KindMidiChannelPrefix }
func (MidiChannelPrefix) metaType() MetaType         { return MetaMidiChannelPrefix }
func (m MidiChannelPrefix) metaData() []byte         { return []byte{m.Channel} }
func (m MidiChannelPrefix) encodedLen() int          { return metaLen(m) }
func (m MidiChannelPrefix) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m MidiChannelPrefix) String() string {
	return fmt.Sprintf("MidiChannelPrefix channel=%d", m.Channel)
}

// Text covers the textual meta events; Type selects which one.
type Text struct {
	Type MetaType
	Text string
}

func NewTrackName(name string) Text { return Text{Type: MetaTrackName, Text: name} }
func NewLyrics(text string) Text    { return Text{Type: MetaLyrics, Text: text} }
func NewMarker(text string) Text    { return Text{Type: MetaMarker, Text: text} }

func (m Text) Kind() Kind {
	if k, ok := textKinds[m.Type]; ok {
		return k
	}
	return KindText
}

func (m Text) metaType() MetaType {
	if _, ok := textKinds[m.Type]; ok {
		return m.Type
	}
	return MetaText
}

func (m Text) metaData() []byte         { return []byte(m.Text) }
func (m Text) encodedLen() int          { return metaLen(m) }
func (m Text) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m Text) String() string {
	return fmt.Sprintf("%s %q", m.Kind(), m.Text)
}

type SequencerSpecific struct {
	Data []byte
}

func (SequencerSpecific) Kind() Kind                 { return KindSequencerSpecific }
func (SequencerSpecific) metaType() MetaType         { return MetaSequencerSpecific }
func (m SequencerSpecific) metaData() []byte         { return m.Data }
func (m SequencerSpecific) encodedLen() int          { return metaLen(m) }
func (m SequencerSpecific) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m SequencerSpecific) String() string {
	return fmt.Sprintf("SequencerSpecific length=%d", len(m.Data))
}

type EndOfTrack struct{}

func (EndOfTrack) Kind() Kind                 { return KindEndOfTrack }
func (EndOfTrack) metaType() MetaType         { return MetaEndOfTrack }
func (EndOfTrack) metaData() []byte           { return nil }
func (m EndOfTrack) encodedLen() int          { return metaLen(m) }
func (m EndOfTrack) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (EndOfTrack) String() string             { return "EndOfTrack" }

// GenericMeta keeps a meta event that has an unknown type or an unexpected
// length for its type, so it is written back unchanged.
type GenericMeta struct {
	Type MetaType
	Data []byte
}

func (GenericMeta) Kind() Kind                 { return KindGenericMeta }
func (m GenericMeta) metaType() MetaType       { return m.Type }
func (m GenericMeta) metaData() []byte         { return m.Data }
func (m GenericMeta) encodedLen() int          { return metaLen(m) }
func (m GenericMeta) appendTo(b []byte) []byte { return appendMeta(b, m) }
func (m GenericMeta) String() string {
	return fmt.Sprintf("GenericMeta type=%#x length=%d", byte(m.Type), len(m.Data))
}

// newMetaMessage picks the variant for a decoded meta event.
func newMetaMessage(typ MetaType, data []byte) Message {
	switch typ {
	case MetaSequenceNumber:
		if len(data) == 2 {
			return SequenceNumber{Number: uint16(data[0])<<8 | uint16(data[1])}
		}
	case MetaMidiChannelPrefix:
		if len(data) == 1 {
			return MidiChannelPrefix{Channel: data[0]}
		}
	case MetaEndOfTrack:
		if len(data) == 0 {
			return EndOfTrack{}
		}
	case MetaTempo:
		if len(data) == 3 {
			return Tempo{MPQN: bytesToInt(data)}
		}
	case MetaSmpteOffset:
		if len(data) == 5 {
			return SmpteOffset{
				FrameRate: FrameRate(data[0] >> 5 & 0x03),
				Hours:     data[0] & 0x1F,
				Minutes:   data[1],
				Seconds:   data[2],
				Frames:    data[3],
				SubFrames: data[4],
			}
		}
	case MetaTimeSignature:
		if len(data) == 4 {
			return TimeSignature{Numerator: data[0], DenominatorPow: data[1], Meter: data[2], Division: data[3]}
		}
	case MetaKeySignature:
		if len(data) == 2 {
			return KeySignature{Key: int8(data[0]), Scale: data[1]}
		}
	case MetaSequencerSpecific:
		return SequencerSpecific{Data: data}
	default:
		if _, ok := textKinds[typ]; ok {
			return Text{Type: typ, Text: string(data)}
		}
	}

	decoderLog.Debug("generic meta event", zap.Uint8("type", byte(typ)), zap.Int("length", len(data)))
	return GenericMeta{Type: typ, Data: data}
}
