// Package velocity collects note velocities from MIDI files and uses them to
// humanize other files.
package velocity

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/Garik-/midi/pkg/midi"
)

// Database maps note -> quarter position -> observed velocities, sorted and unique.
type Database map[uint8]map[int][]int

func (db Database) Add(note uint8, position int, velocity uint8) {
	positions, ok := db[note]
	if !ok {
		positions = make(map[int][]int)
		db[note] = positions
	}

	v := int(velocity)
	velocities := positions[position]
	i := sort.SearchInts(velocities, v)
	if i < len(velocities) && velocities[i] == v {
		return
	}
	velocities = append(velocities, 0)
	copy(velocities[i+1:], velocities[i:])
	velocities[i] = v
	positions[position] = velocities
}

// AddTrack records every sounding note on of t.
func (db Database) AddTrack(t *midi.Track, resolution int) int {
	n := 0
	for _, e := range t.Events() {
		on, ok := e.Message().(midi.NoteOn)
		if !ok || on.Velocity == 0 {
			continue
		}
		db.Add(on.Note, midi.QuarterPosition(e.Tick(), resolution), on.Velocity)
		n++
	}
	return n
}

// AddFile records every track of f.
func (db Database) AddFile(f *midi.File) int {
	n := 0
	for _, t := range f.Tracks() {
		n += db.AddTrack(t, f.Resolution())
	}
	return n
}

func (db Database) Merge(other Database) {
	for note, positions := range other {
		for position, velocities := range positions {
			for _, v := range velocities {
				db.Add(note, position, uint8(v))
			}
		}
	}
}

func (db Database) Velocities(note uint8, position int) []int {
	return db[note][position]
}

func Load(r io.Reader) (Database, error) {
	db := make(Database)
	if err := json.NewDecoder(r).Decode(&db); err != nil {
		return nil, err
	}
	return db, nil
}

func (db Database) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(db)
}
