package midi

import "fmt"

// Kind identifies a message variant.
type Kind int

const (
	KindNoteOff Kind = iota + 1
	KindNoteOn
	KindNoteAftertouch
	KindControllerChange
	KindProgramChange
	KindChannelAftertouch
	KindPitchBend
	KindSystemExclusive
	KindSequenceNumber
	KindText
	KindCopyrightNotice
	KindTrackName
	KindInstrumentName
	KindLyrics
	KindMarker
	KindCuePoint
	KindMidiChannelPrefix
	KindEndOfTrack
	KindTempo
	KindSmpteOffset
	KindTimeSignature
	KindKeySignature
	KindSequencerSpecific
	KindGenericMeta
	KindMetronome
)

var kindNames = [...]string{
	KindNoteOff:           "NoteOff",
	KindNoteOn:            "NoteOn",
	KindNoteAftertouch:    "NoteAftertouch",
	KindControllerChange:  "ControllerChange",
	KindProgramChange:     "ProgramChange",
	KindChannelAftertouch: "ChannelAftertouch",
	KindPitchBend:         "PitchBend",
	KindSystemExclusive:   "SystemExclusive",
	KindSequenceNumber:    "SequenceNumber",
	KindText:              "Text",
	KindCopyrightNotice:   "CopyrightNotice",
	KindTrackName:         "TrackName",
	KindInstrumentName:    "InstrumentName",
	KindLyrics:            "Lyrics",
	KindMarker:            "Marker",
	KindCuePoint:          "CuePoint",
	KindMidiChannelPrefix: "MidiChannelPrefix",
	KindEndOfTrack:        "EndOfTrack",
	KindTempo:             "Tempo",
	KindSmpteOffset:       "SmpteOffset",
	KindTimeSignature:     "TimeSignature",
	KindKeySignature:      "KeySignature",
	KindSequencerSpecific: "SequencerSpecific",
	KindGenericMeta:       "GenericMeta",
	KindMetronome:         "Metronome",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsVoice reports whether k is a channel voice message.
func (k Kind) IsVoice() bool {
	return k >= KindNoteOff && k <= KindPitchBend
}

// IsMeta reports whether k is a meta message.
func (k Kind) IsMeta() bool {
	return k >= KindSequenceNumber && k <= KindGenericMeta
}

// Message is the payload of an Event. The set of implementations is closed:
// voice messages, SystemExclusive, the meta messages and MetronomeTick.
type Message interface {
	Kind() Kind
	String() string

	// encodedLen is the payload size on the wire including the status byte.
	encodedLen() int
	// appendTo appends the status byte and payload.
	appendTo(b []byte) []byte
}

// status nibbles of channel voice messages
const (
	noteOffStatus           = 0x8
	noteOnStatus            = 0x9
	noteAftertouchStatus    = 0xA
	controllerChangeStatus  = 0xB
	programChangeStatus     = 0xC
	channelAftertouchStatus = 0xD
	pitchBendStatus         = 0xE
)

// voiceMessage exposes the raw fields shared by all channel voice messages.
type voiceMessage interface {
	Message
	command() byte
	channel() uint8
	params() (uint8, uint8)
}

// voicePriority orders simultaneous voice messages of different kinds.
var voicePriority = map[Kind]int{
	KindProgramChange:     0,
	KindControllerChange:  1,
	KindNoteOn:            2,
	KindNoteOff:           3,
	KindNoteAftertouch:    4,
	KindChannelAftertouch: 5,
	KindPitchBend:         6,
}

func appendVoice(b []byte, m voiceMessage) []byte {
	p1, p2 := m.params()
	b = append(b, m.command()<<4|m.channel()&0x0F, p1&0x7F)
	if m.encodedLen() == 3 {
		b = append(b, p2&0x7F)
	}
	return b
}

type NoteOff struct {
	Channel  uint8
	Note     uint8
	Velocity uint8
}

func (NoteOff) Kind() Kind                 { return KindNoteOff }
func (NoteOff) encodedLen() int            { return 3 }
func (NoteOff) command() byte              { return noteOffStatus }
func (m NoteOff) channel() uint8           { return m.Channel }
func (m NoteOff) params() (uint8, uint8)   { return m.Note, m.Velocity }
func (m NoteOff) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m NoteOff) String() string {
	return fmt.Sprintf("NoteOff channel=%d note=%d velocity=%d", m.Channel, m.Note, m.Velocity)
}

// NoteOn with Velocity 0 is a note release.
type NoteOn struct {
	Channel  uint8
	Note     uint8
	Velocity uint8
}

func (NoteOn) Kind() Kind                 { return KindNoteOn }
func (NoteOn) encodedLen() int            { return 3 }
func (NoteOn) command() byte              { return noteOnStatus }
func (m NoteOn) channel() uint8           { return m.Channel }
func (m NoteOn) params() (uint8, uint8)   { return m.Note, m.Velocity }
func (m NoteOn) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m NoteOn) String() string {
	return fmt.Sprintf("NoteOn channel=%d note=%d velocity=%d", m.Channel, m.Note, m.Velocity)
}

type NoteAftertouch struct {
	Channel uint8
	Note    uint8
	Amount  uint8
}

func (NoteAftertouch) Kind() Kind                 { return KindNoteAftertouch }
func (NoteAftertouch) encodedLen() int            { return 3 }
func (NoteAftertouch) command() byte              { return noteAftertouchStatus }
func (m NoteAftertouch) channel() uint8           { return m.Channel }
func (m NoteAftertouch) params() (uint8, uint8)   { return m.Note, m.Amount }
func (m NoteAftertouch) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m NoteAftertouch) String() string {
	return fmt.Sprintf("NoteAftertouch channel=%d note=%d amount=%d", m.Channel, m.Note, m.Amount)
}

type ControllerChange struct {
	Channel    uint8
	Controller uint8
	Value      uint8
}

func (ControllerChange) Kind() Kind                 { return KindControllerChange }
func (ControllerChange) encodedLen() int            { return 3 }
func (ControllerChange) command() byte              { return controllerChangeStatus }
func (m ControllerChange) channel() uint8           { return m.Channel }
func (m ControllerChange) params() (uint8, uint8)   { return m.Controller, m.Value }
func (m ControllerChange) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m ControllerChange) String() string {
	return fmt.Sprintf("ControllerChange channel=%d controller=%d value=%d", m.Channel, m.Controller, m.Value)
}

type ProgramChange struct {
	Channel uint8
	Program uint8
}

func (ProgramChange) Kind() Kind                 { return KindProgramChange }
func (ProgramChange) encodedLen() int            { return 2 }
func (ProgramChange) command() byte              { return programChangeStatus }
func (m ProgramChange) channel() uint8           { return m.Channel }
func (m ProgramChange) params() (uint8, uint8)   { return m.Program, 0 }
func (m ProgramChange) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m ProgramChange) String() string {
	return fmt.Sprintf("ProgramChange channel=%d program=%d", m.Channel, m.Program)
}

type ChannelAftertouch struct {
	Channel uint8
	Amount  uint8
}

func (ChannelAftertouch) Kind() Kind                 { return KindChannelAftertouch }
func (ChannelAftertouch) encodedLen() int            { return 2 }
func (ChannelAftertouch) command() byte              { return channelAftertouchStatus }
func (m ChannelAftertouch) channel() uint8           { return m.Channel }
func (m ChannelAftertouch) params() (uint8, uint8)   { return m.Amount, 0 }
func (m ChannelAftertouch) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m ChannelAftertouch) String() string {
	return fmt.Sprintf("ChannelAftertouch channel=%d amount=%d", m.Channel, m.Amount)
}

// PitchBend carries a 14-bit bend amount split into two 7-bit halves.
// 0x2000 is the centre position.
type PitchBend struct {
	Channel uint8
	LSB     uint8
	MSB     uint8
}

// NewPitchBend splits a 14-bit amount.
func NewPitchBend(channel uint8, amount uint16) PitchBend {
	amount &= 0x3FFF
	return PitchBend{Channel: channel, LSB: uint8(amount & 0x7F), MSB: uint8(amount >> 7)}
}

// Amount joins the two halves into the 14-bit bend amount.
func (m PitchBend) Amount() uint16 {
	return uint16(m.MSB&0x7F)<<7 | uint16(m.LSB&0x7F)
}

func (PitchBend) Kind() Kind                 { return KindPitchBend }
func (PitchBend) encodedLen() int            { return 3 }
func (PitchBend) command() byte              { return pitchBendStatus }
func (m PitchBend) channel() uint8           { return m.Channel }
func (m PitchBend) params() (uint8, uint8)   { return m.LSB, m.MSB }
func (m PitchBend) appendTo(b []byte) []byte { return appendVoice(b, m) }
func (m PitchBend) String() string {
	return fmt.Sprintf("PitchBend channel=%d amount=%d", m.Channel, m.Amount())
}

// newVoiceMessage builds the voice message for a status nibble.
func newVoiceMessage(command, channel, p1, p2 uint8) Message {
	switch command {
	case noteOffStatus:
		return NoteOff{Channel: channel, Note: p1, Velocity: p2}
	case noteOnStatus:
		return NoteOn{Channel: channel, Note: p1, Velocity: p2}
	case noteAftertouchStatus:
		return NoteAftertouch{Channel: channel, Note: p1, Amount: p2}
	case controllerChangeStatus:
		return ControllerChange{Channel: channel, Controller: p1, Value: p2}
	case programChangeStatus:
		return ProgramChange{Channel: channel, Program: p1}
	case channelAftertouchStatus:
		return ChannelAftertouch{Channel: channel, Amount: p1}
	case pitchBendStatus:
		return PitchBend{Channel: channel, LSB: p1, MSB: p2}
	}
	return nil
}

// voiceDataLen is the number of data bytes following a voice status.
func voiceDataLen(command byte) int {
	if command == programChangeStatus || command == channelAftertouchStatus {
		return 1
	}
	return 2
}

func isVoiceMsgType(b byte) bool {
	return 0x8 <= b && b <= 0xE
}

const (
	sysExStatus       = 0xF0
	sysExEscapeStatus = 0xF7
)

// SystemExclusive is an F0 or F7 event. Status records which lead byte was used.
type SystemExclusive struct {
	Status byte
	Data   []byte
}

// NewSystemExclusive builds an F0 event.
func NewSystemExclusive(data []byte) SystemExclusive {
	return SystemExclusive{Status: sysExStatus, Data: data}
}

func (SystemExclusive) Kind() Kind { return KindSystemExclusive }

func (m SystemExclusive) status() byte {
	if m.Status == sysExEscapeStatus {
		return sysExEscapeStatus
	}
	return sysExStatus
}

func (m SystemExclusive) encodedLen() int {
	return 1 + varintLen(uint32(len(m.Data))) + len(m.Data)
}

func (m SystemExclusive) appendTo(b []byte) []byte {
	b = append(b, m.status())
	b = appendVarint(b, uint32(len(m.Data)))
	return append(b, m.Data...)
}

func (m SystemExclusive) String() string {
	return fmt.Sprintf("SystemExclusive status=%#x length=%d", m.status(), len(m.Data))
}

// MetronomeTick is synthesized by the playback processor on every beat.
// It never appears in a file and a Track refuses to store it.
type MetronomeTick struct {
	Measure int
	Beat    int
}

func (MetronomeTick) Kind() Kind               { return KindMetronome }
func (MetronomeTick) encodedLen() int          { return 0 }
func (MetronomeTick) appendTo(b []byte) []byte { return b }
func (m MetronomeTick) String() string {
	return fmt.Sprintf("Metronome measure=%d beat=%d", m.Measure, m.Beat)
}
