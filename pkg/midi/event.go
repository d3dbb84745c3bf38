package midi

import (
	"bytes"
	"fmt"
)

// Event is a message placed at an absolute tick. The delta time is owned by
// the Track holding the event and is recomputed whenever its neighbours change.
type Event struct {
	tick  int64
	delta uint32
	msg   Message
}

// NewEvent creates an event at tick. Its delta is set once inserted into a Track.
func NewEvent(tick int64, msg Message) *Event {
	if tick < 0 {
		tick = 0
	}
	return &Event{tick: tick, msg: msg}
}

func (e *Event) Tick() int64      { return e.tick }
func (e *Event) Delta() uint32    { return e.delta }
func (e *Event) Message() Message { return e.msg }
func (e *Event) Kind() Kind       { return e.msg.Kind() }

// Size is the number of bytes the event takes on the wire with its status byte.
func (e *Event) Size() int {
	return varintLen(e.delta) + e.msg.encodedLen()
}

// RequiresStatusByte reports whether the event must be written with its status
// byte when it follows prev.
func (e *Event) RequiresStatusByte(prev *Event) bool {
	if prev == nil {
		return true
	}
	cur, ok := e.msg.(voiceMessage)
	if !ok {
		return true
	}
	last, ok := prev.msg.(voiceMessage)
	if !ok {
		return true
	}
	return cur.command() != last.command() || cur.channel()&0x0F != last.channel()&0x0F
}

// appendTo appends the delta time, the status byte when status is true, and the payload.
func (e *Event) appendTo(b []byte, status bool) []byte {
	b = appendVarint(b, e.delta)
	if status {
		return e.msg.appendTo(b)
	}
	// running status: drop the leading status byte of a voice message
	start := len(b)
	b = e.msg.appendTo(b)
	return append(b[:start], b[start+1:]...)
}

func (e *Event) String() string {
	return fmt.Sprintf("%d (%d): %s", e.tick, e.delta, e.msg)
}

// category ranks simultaneous events of different top-level kinds.
func category(m Message) int {
	switch m.(type) {
	case metaMessage:
		return 0
	case SystemExclusive:
		return 1
	case voiceMessage:
		return 2
	}
	return 3
}

// Compare defines the order of events within a track. It returns -1, 0 or +1.
//
// Events are ordered by tick, then by delta descending, then meta before
// system exclusive before voice. Voice events of the same tick follow a fixed
// kind priority (program change, controller, note on, note off, aftertouch,
// channel aftertouch, pitch bend) and then their data bytes and channel.
// Meta events compare by type and payload, system exclusive by lead byte and payload.
func Compare(a, b *Event) int {
	if a.tick != b.tick {
		return cmpInt(a.tick, b.tick)
	}
	if a.delta != b.delta {
		return -cmpInt(int64(a.delta), int64(b.delta))
	}

	ca, cb := category(a.msg), category(b.msg)
	if ca != cb {
		return cmpInt(int64(ca), int64(cb))
	}

	switch am := a.msg.(type) {
	case voiceMessage:
		bm := b.msg.(voiceMessage)
		if am.command() != bm.command() {
			return cmpInt(int64(voicePriority[am.Kind()]), int64(voicePriority[bm.Kind()]))
		}
		a1, a2 := am.params()
		b1, b2 := bm.params()
		if a1 != b1 {
			return cmpInt(int64(a1), int64(b1))
		}
		if a2 != b2 {
			return cmpInt(int64(a2), int64(b2))
		}
		return cmpInt(int64(am.channel()), int64(bm.channel()))

	case metaMessage:
		bm := b.msg.(metaMessage)
		if am.metaType() != bm.metaType() {
			return cmpInt(int64(am.metaType()), int64(bm.metaType()))
		}
		return bytes.Compare(am.metaData(), bm.metaData())

	case SystemExclusive:
		bm := b.msg.(SystemExclusive)
		if am.status() != bm.status() {
			return cmpInt(int64(am.status()), int64(bm.status()))
		}
		return bytes.Compare(am.Data, bm.Data)

	case MetronomeTick:
		bm := b.msg.(MetronomeTick)
		if am.Measure != bm.Measure {
			return cmpInt(int64(am.Measure), int64(bm.Measure))
		}
		return cmpInt(int64(am.Beat), int64(bm.Beat))
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
