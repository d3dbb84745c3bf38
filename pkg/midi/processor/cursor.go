package processor

import "github.com/Garik-/midi/pkg/midi"

// cursor walks a snapshot of one track's events.
type cursor struct {
	events []*midi.Event
	pos    int
}

func newCursor(t *midi.Track) *cursor {
	return &cursor{events: t.Events()}
}

func (c *cursor) hasMore() bool {
	return c.pos < len(c.events)
}

func (c *cursor) peek() *midi.Event {
	if !c.hasMore() {
		return nil
	}
	return c.events[c.pos]
}

func (c *cursor) next() *midi.Event {
	e := c.peek()
	if e != nil {
		c.pos++
	}
	return e
}

// appendDue appends every pending event at or before tick.
func (c *cursor) appendDue(dst []*midi.Event, tick float64) []*midi.Event {
	for c.hasMore() && float64(c.peek().Tick()) <= tick {
		dst = append(dst, c.next())
	}
	return dst
}
