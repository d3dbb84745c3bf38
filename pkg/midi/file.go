package midi

import (
	"bytes"
	"encoding/binary"
	"io"
)

// DefaultResolution is the number of ticks per quarter note of a new file.
const DefaultResolution = 480

// File is a Standard MIDI File: a header and an ordered list of tracks.
//
// Unless set with SetFormat, the format follows the track count: 0 for a
// single track (or none), 1 otherwise.
type File struct {
	format    uint16
	formatSet bool

	resolution int
	division   uint16

	tracks []*Track
}

func NewFile(resolution int) *File {
	f := &File{}
	f.SetResolution(resolution)
	return f
}

func (f *File) Format() int {
	if f.formatSet {
		return int(f.format)
	}
	if len(f.tracks) > 1 {
		return 1
	}
	return 0
}

// SetFormat overrides the derived format. Values below 0 become 0 and values
// above 2 become 1; format 0 with more than one track becomes 1.
func (f *File) SetFormat(format int) {
	switch {
	case format < 0:
		format = 0
	case format > 2:
		format = 1
	}
	if format == 0 && len(f.tracks) > 1 {
		format = 1
	}
	f.format = uint16(format)
	f.formatSet = true
}

// setFormat keeps a decoded format when it differs from the derived one.
func (f *File) setFormat(format uint16) {
	if int(format) != f.Format() {
		f.SetFormat(int(format))
	}
}

// Resolution is the number of ticks per quarter note.
func (f *File) Resolution() int { return f.resolution }

// SetResolution sets the ticks per quarter note. Values outside 1..0x7FFF
// fall back to DefaultResolution.
func (f *File) SetResolution(resolution int) {
	if resolution <= 0 || resolution > 0x7FFF {
		resolution = DefaultResolution
	}
	f.resolution = resolution
	f.division = uint16(resolution)
}

// TimeFormat reports whether the division counts ticks per quarter note or SMPTE frames.
func (f *File) TimeFormat() timeFormat {
	if f.division&0x8000 != 0 {
		return TimeCodeTF
	}
	return MetricalTF
}

// Tracks returns the tracks in order. The slice is a copy; the tracks are not.
func (f *File) Tracks() []*Track {
	out := make([]*Track, len(f.tracks))
	copy(out, f.tracks)
	return out
}

func (f *File) TrackCount() int { return len(f.tracks) }

// Track returns the track at pos, or nil.
func (f *File) Track(pos int) *Track {
	if pos < 0 || pos >= len(f.tracks) {
		return nil
	}
	return f.tracks[pos]
}

func (f *File) AddTrack(t *Track) {
	f.InsertTrack(t, len(f.tracks))
}

// InsertTrack places t at pos, clamped to the current track range.
func (f *File) InsertTrack(t *Track, pos int) {
	if t == nil {
		return
	}
	if pos < 0 {
		pos = 0
	} else if pos > len(f.tracks) {
		pos = len(f.tracks)
	}

	f.tracks = append(f.tracks, nil)
	copy(f.tracks[pos+1:], f.tracks[pos:])
	f.tracks[pos] = t

	if f.formatSet && f.format == 0 && len(f.tracks) > 1 {
		f.format = 1
	}
}

// RemoveTrack deletes the track at pos and returns it, or nil when pos is out of range.
func (f *File) RemoveTrack(pos int) *Track {
	if pos < 0 || pos >= len(f.tracks) {
		return nil
	}
	t := f.tracks[pos]
	copy(f.tracks[pos:], f.tracks[pos+1:])
	f.tracks[len(f.tracks)-1] = nil
	f.tracks = f.tracks[:len(f.tracks)-1]
	return t
}

// LengthInTicks is the largest last-event tick over all tracks.
func (f *File) LengthInTicks() int64 {
	var length int64
	for _, t := range f.tracks {
		if l := t.LengthInTicks(); l > length {
			length = l
		}
	}
	return length
}

// WriteTo writes the header chunk and every track. Open tracks are closed.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	h := make([]byte, 0, 8+headerSize)
	h = append(h, headerChunkID[:]...)
	h = binary.BigEndian.AppendUint32(h, headerSize)
	h = binary.BigEndian.AppendUint16(h, uint16(f.Format()))
	h = binary.BigEndian.AppendUint16(h, uint16(len(f.tracks)))
	h = binary.BigEndian.AppendUint16(h, f.division)

	n, err := w.Write(h)
	total := int64(n)
	if err != nil {
		return total, err
	}

	for _, t := range f.tracks {
		m, err := t.WriteTo(w)
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Bytes returns the serialized file.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}
