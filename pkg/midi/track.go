package midi

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
)

var trackChunkID = [4]byte{0x4D, 0x54, 0x72, 0x6B}

// Track is an ordered set of events. The delta time of every event always equals
// the distance to the previous event (or its own tick for the first one).
//
// The EndOfTrack marker is kept outside the event list: it is created by Close,
// or implicitly by WriteTo, at the last tick plus the end of track delta.
//
// A Track is not safe for concurrent use.
type Track struct {
	events []*Event
	end    *Event

	size      int
	sizeStale bool
	closed    bool

	endOfTrackDelta int64
}

func NewTrack() *Track {
	return &Track{}
}

// NewTempoTrack returns a track holding a 4/4 time signature and a 120 BPM tempo at tick 0.
func NewTempoTrack() *Track {
	t := NewTrack()
	_ = t.Insert(NewEvent(0, DefaultTimeSignature()))
	_ = t.Insert(NewEvent(0, Tempo{MPQN: DefaultMPQN}))
	return t
}

// Events returns a snapshot of the events in order. The EndOfTrack marker is not included.
func (t *Track) Events() []*Event {
	out := make([]*Event, len(t.events))
	copy(out, t.events)
	return out
}

// Len is the number of events, not counting EndOfTrack.
func (t *Track) Len() int { return len(t.events) }

func (t *Track) Closed() bool { return t.closed }

// EndOfTrackDelta is the gap between the last event and the EndOfTrack marker.
func (t *Track) EndOfTrackDelta() int64 { return t.endOfTrackDelta }

func (t *Track) SetEndOfTrackDelta(delta int64) {
	if delta < 0 {
		delta = 0
	} else if delta > MaxVarint {
		delta = MaxVarint
	}
	t.endOfTrackDelta = delta
}

// LengthInTicks is the tick of the last event.
func (t *Track) LengthInTicks() int64 {
	if len(t.events) == 0 {
		return 0
	}
	return t.events[len(t.events)-1].tick
}

// Size is the length of the chunk body when written with running status.
func (t *Track) Size() int {
	if t.sizeStale {
		t.recalculateSize()
	}
	return t.size
}

// Insert places e by the event order and fixes the delta of e and of its successor.
func (t *Track) Insert(e *Event) error {
	if e == nil || e.msg == nil {
		return fmt.Errorf("%w - nil event", ErrNotStorable)
	}
	if t.closed {
		trackLog.Warn("cannot add an event to a closed track", zap.Stringer("event", e))
		return ErrTrackClosed
	}

	switch e.msg.(type) {
	case MetronomeTick:
		return fmt.Errorf("%w - %s", ErrNotStorable, e.msg.Kind())
	case EndOfTrack:
		return t.insertEndOfTrack(e)
	}

	e.delta = 0
	i := sort.Search(len(t.events), func(i int) bool {
		return Compare(t.events[i], e) > 0
	})

	var prevTick int64
	if i > 0 {
		prevTick = t.events[i-1].tick
	}
	delta := e.tick - prevTick
	if delta > MaxVarint {
		return fmt.Errorf("%w - delta %d at tick %d", ErrValueRange, delta, e.tick)
	}
	if i < len(t.events) && t.events[i].tick-e.tick > MaxVarint {
		return fmt.Errorf("%w - delta %d at tick %d", ErrValueRange, t.events[i].tick-e.tick, t.events[i].tick)
	}

	t.events = append(t.events, nil)
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = e

	e.delta = uint32(delta)
	if i+1 < len(t.events) {
		next := t.events[i+1]
		next.delta = uint32(next.tick - e.tick)
	}

	t.sizeStale = true
	return nil
}

func (t *Track) insertEndOfTrack(e *Event) error {
	last := t.LengthInTicks()
	if e.tick < last {
		return fmt.Errorf("%w - end of track at %d, last event at %d", ErrEndOfTrackOrder, e.tick, last)
	}
	if e.tick-last > MaxVarint {
		return fmt.Errorf("%w - end of track delta %d", ErrValueRange, e.tick-last)
	}

	e.delta = uint32(e.tick - last)
	t.end = e
	t.closed = true
	t.sizeStale = true
	return nil
}

// InsertNote adds a note on at tick and its release (note on, velocity 0) at
// tick+duration. Nothing is added when either insert fails.
func (t *Track) InsertNote(channel, pitch, velocity uint8, tick, duration int64) error {
	on := NewEvent(tick, NoteOn{Channel: channel, Note: pitch, Velocity: velocity})
	if err := t.Insert(on); err != nil {
		return err
	}
	if err := t.Insert(NewEvent(tick+duration, NoteOn{Channel: channel, Note: pitch})); err != nil {
		t.Remove(on)
		return err
	}
	return nil
}

// Remove deletes e from the track and reports whether it was found.
func (t *Track) Remove(e *Event) bool {
	i := t.indexOf(e)
	if i < 0 {
		return false
	}

	copy(t.events[i:], t.events[i+1:])
	t.events[len(t.events)-1] = nil
	t.events = t.events[:len(t.events)-1]

	if i < len(t.events) {
		next := t.events[i]
		if i > 0 {
			next.delta = uint32(next.tick - t.events[i-1].tick)
		} else {
			next.delta = uint32(next.tick)
		}
	}
	if t.end != nil {
		// the marker keeps its tick
		gap := t.end.tick - t.LengthInTicks()
		if gap > MaxVarint {
			gap = MaxVarint
			t.end.tick = t.LengthInTicks() + gap
		}
		t.end.delta = uint32(gap)
		t.endOfTrackDelta = gap
	}

	t.sizeStale = true
	return true
}

func (t *Track) indexOf(e *Event) int {
	if e == nil {
		return -1
	}
	lo := sort.Search(len(t.events), func(i int) bool {
		return Compare(t.events[i], e) >= 0
	})
	for i := lo; i < len(t.events) && Compare(t.events[i], e) == 0; i++ {
		if t.events[i] == e {
			return i
		}
	}
	// the event may have been compared with a stale delta
	for i, ev := range t.events {
		if ev == e {
			return i
		}
	}
	return -1
}

// Close appends the EndOfTrack marker. Closing a closed track does nothing.
func (t *Track) Close() {
	if t.closed {
		return
	}
	t.end = NewEvent(t.LengthInTicks()+t.endOfTrackDelta, EndOfTrack{})
	t.end.delta = uint32(t.endOfTrackDelta)
	t.closed = true
	t.sizeStale = true
}

// EndOfTrack returns the marker set by Close, or nil while the track is open.
func (t *Track) EndOfTrack() *Event {
	return t.end
}

func (t *Track) recalculateSize() {
	t.size = 0
	var last *Event
	for _, e := range t.events {
		t.size += e.Size()
		if !e.RequiresStatusByte(last) {
			t.size--
		}
		last = e
	}
	if t.end != nil {
		t.size += t.end.Size()
	}
	t.sizeStale = false
}

// WriteTo closes the track if needed and writes the MTrk chunk.
func (t *Track) WriteTo(w io.Writer) (int64, error) {
	if !t.closed {
		t.Close()
	}
	if t.sizeStale {
		t.recalculateSize()
	}

	buf := make([]byte, 0, 8+t.size)
	buf = append(buf, trackChunkID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(t.size))

	var last *Event
	for _, e := range t.events {
		buf = e.appendTo(buf, e.RequiresStatusByte(last))
		last = e
	}
	buf = t.end.appendTo(buf, true)

	n, err := w.Write(buf)
	return int64(n), err
}

// readTrack decodes a chunk body. Events decoded before an error are kept.
func readTrack(body []byte) (*Track, error) {
	t := NewTrack()
	t.sizeStale = true
	er := newEventReader(body)

	var tick int64
	for er.more() {
		delta, _, err := readVarint(er.r)
		if err != nil {
			return t, truncated(err)
		}
		tick += int64(delta)

		e, err := er.next(tick, delta)
		if err != nil {
			decoderLog.Warn("track stopped early", zap.Int64("offset", er.offset()), zap.Error(err))
			return t, err
		}
		if e == nil {
			continue
		}
		// skipped bytes may sit between two events
		e.delta = uint32(e.tick - t.LengthInTicks())

		// EndOfTrack is dropped so the track stays editable.
		if e.Kind() == KindEndOfTrack {
			t.endOfTrackDelta = int64(e.delta)
			break
		}

		t.appendDecoded(e)
	}
	return t, nil
}

// appendDecoded adds an event whose delta came from the file. Events arrive in
// tick order; the search only has to reorder simultaneous events.
func (t *Track) appendDecoded(e *Event) {
	n := len(t.events)
	if n == 0 || Compare(t.events[n-1], e) <= 0 {
		t.events = append(t.events, e)
		return
	}
	i := sort.Search(n, func(i int) bool {
		return Compare(t.events[i], e) > 0
	})
	t.events = append(t.events, nil)
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = e
	t.fixDeltas(i)
}

func (t *Track) fixDeltas(from int) {
	for i := from; i < len(t.events) && i <= from+1; i++ {
		if i == 0 {
			t.events[i].delta = uint32(t.events[i].tick)
			continue
		}
		t.events[i].delta = uint32(t.events[i].tick - t.events[i-1].tick)
	}
}
