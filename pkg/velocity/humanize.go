package velocity

import (
	"fmt"
	"math/rand"

	"github.com/Garik-/midi/pkg/midi"
)

// Humanizer picks new note on velocities. Velocities come from the database
// when it knows the note at that quarter position, otherwise uniformly from
// Min..Max.
type Humanizer struct {
	db       Database
	min, max int
	rnd      *rand.Rand
}

// NewHumanizer clamps the bounds to 1..127 and swaps them if needed. db may be nil.
func NewHumanizer(db Database, min, max int, seed int64) *Humanizer {
	min, max = clamp(min), clamp(max)
	if min > max {
		min, max = max, min
	}
	return &Humanizer{db: db, min: min, max: max, rnd: rand.New(rand.NewSource(seed))}
}

func clamp(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}

func (h *Humanizer) Velocity(note uint8, position int) uint8 {
	var candidates []int
	for _, v := range h.db.Velocities(note, position) {
		if v >= h.min && v <= h.max {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) > 0 {
		return uint8(candidates[h.rnd.Intn(len(candidates))])
	}
	return uint8(h.min + h.rnd.Intn(h.max-h.min+1))
}

// Track replaces the velocity of every sounding note on of t and returns how
// many were changed. Releases (velocity 0) are left alone.
func (h *Humanizer) Track(t *midi.Track, resolution int) (int, error) {
	if t.Closed() {
		return 0, midi.ErrTrackClosed
	}

	n := 0
	for _, e := range t.Events() {
		on, ok := e.Message().(midi.NoteOn)
		if !ok || on.Velocity == 0 {
			continue
		}

		on.Velocity = h.Velocity(on.Note, midi.QuarterPosition(e.Tick(), resolution))
		if !t.Remove(e) {
			return n, fmt.Errorf("note on at tick %d not found in track", e.Tick())
		}
		if err := t.Insert(midi.NewEvent(e.Tick(), on)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (h *Humanizer) File(f *midi.File) (int, error) {
	total := 0
	for _, t := range f.Tracks() {
		n, err := h.Track(t, f.Resolution())
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
