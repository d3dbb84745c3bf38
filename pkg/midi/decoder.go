package midi

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

type timeFormat int

const (
	MetricalTF timeFormat = iota + 1
	TimeCodeTF
)

func (tf timeFormat) String() string {
	switch tf {
	case MetricalTF:
		return "metrical"
	case TimeCodeTF:
		return "timecode"
	}
	return "unknown"
}

var headerChunkID = [4]byte{0x4D, 0x54, 0x68, 0x64}

const headerSize = 6

type header struct {
	Format    uint16
	NumTracks uint16
	Division  uint16
}

// Decoder reads a Standard MIDI File from a stream.
type Decoder struct {
	r      *bufio.Reader
	offset int64

	TicksPerQuarterNote uint16
	TimeFormat          timeFormat
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the header chunk and as many track chunks as the header announces.
//
// A header that is not a valid MThd chunk gives an empty file with the default
// resolution and an error wrapping ErrFmtNotSupported. Chunks other than MTrk
// are skipped. When a track is cut short the events read so far are kept in
// the returned file and the error wraps ErrTruncated.
func (d *Decoder) Decode() (*File, error) {
	d.offset = 0

	var h header
	if err := d.readHeader(&h); err != nil {
		decoderLog.Warn("invalid header", zap.Error(err))
		return NewFile(DefaultResolution), err
	}

	f := &File{resolution: int(h.Division), division: h.Division}
	if h.Division&0x8000 == 0 {
		d.TicksPerQuarterNote = h.Division & 0x7FFF
		d.TimeFormat = MetricalTF
	} else {
		d.TimeFormat = TimeCodeTF
		decoderLog.Debug("SMPTE time division", zap.Uint16("division", h.Division))
	}

	for len(f.tracks) < int(h.NumTracks) {
		id, size, err := d.chunkHeader()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w - %d of %d tracks", ErrTruncated, len(f.tracks), h.NumTracks)
			}
			f.setFormat(h.Format)
			return f, err
		}

		if id != trackChunkID {
			decoderLog.Info("skipping chunk", zap.String("id", string(id[:])), zap.Uint32("size", size))
			if err := d.skip(int64(size)); err != nil {
				f.setFormat(h.Format)
				return f, truncated(err)
			}
			continue
		}

		// the buffer grows with the data, not with the declared size
		var body bytes.Buffer
		n, err := body.ReadFrom(io.LimitReader(d.r, int64(size)))
		d.offset += n
		if err != nil || n < int64(size) {
			// keep what the short body holds
			t, _ := readTrack(body.Bytes())
			f.tracks = append(f.tracks, t)
			f.setFormat(h.Format)
			return f, fmt.Errorf("%w - track %d: %d of %d bytes", ErrTruncated, len(f.tracks)-1, n, size)
		}

		t, err := readTrack(body.Bytes())
		f.tracks = append(f.tracks, t)
		if err != nil {
			f.setFormat(h.Format)
			return f, fmt.Errorf("track %d: %w", len(f.tracks)-1, err)
		}
	}

	f.setFormat(h.Format)
	return f, nil
}

func (d *Decoder) readHeader(h *header) error {
	var code [4]byte
	if err := binary.Read(d.r, binary.BigEndian, &code); err != nil {
		return fmt.Errorf("%w - %v", ErrFmtNotSupported, err)
	}
	if code != headerChunkID {
		return fmt.Errorf("%w - %v", ErrFmtNotSupported, code)
	}
	d.offset += 4

	var size uint32
	if err := binary.Read(d.r, binary.BigEndian, &size); err != nil {
		return fmt.Errorf("%w - %v", ErrFmtNotSupported, err)
	}
	if size != headerSize {
		return fmt.Errorf("%w - expected header size to be 6, was %d", ErrFmtNotSupported, size)
	}
	d.offset += 4

	if err := binary.Read(d.r, binary.BigEndian, h); err != nil {
		return fmt.Errorf("%w - %v", ErrFmtNotSupported, err)
	}
	d.offset += headerSize
	return nil
}

// chunkHeader reads a chunk ID and its size.
func (d *Decoder) chunkHeader() ([4]byte, uint32, error) {
	var id [4]byte
	if err := binary.Read(d.r, binary.BigEndian, &id); err != nil {
		if err == io.ErrUnexpectedEOF {
			return id, 0, fmt.Errorf("%w - chunk ID at offset %d", ErrTruncated, d.offset)
		}
		return id, 0, err
	}
	d.offset += 4

	var size uint32
	if err := binary.Read(d.r, binary.BigEndian, &size); err != nil {
		return id, 0, fmt.Errorf("%w - chunk size at offset %d", ErrTruncated, d.offset)
	}
	d.offset += 4

	return id, size, nil
}

func (d *Decoder) skip(n int64) error {
	m, err := io.CopyN(io.Discard, d.r, n)
	d.offset += m
	return err
}

// Decode is a shorthand for NewDecoder(r).Decode().
func Decode(r io.Reader) (*File, error) {
	return NewDecoder(r).Decode()
}
