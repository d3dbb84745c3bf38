package midi

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	f := NewFile(DefaultResolution)

	tempo := NewTempoTrack()
	require.NoError(t, tempo.Insert(NewEvent(0, NewTrackName("tempo"))))
	f.AddTrack(tempo)

	notes := NewTrack()
	require.NoError(t, notes.Insert(NewEvent(0, ProgramChange{Channel: 9, Program: 0})))
	for i := int64(0); i < 8; i++ {
		require.NoError(t, notes.InsertNote(9, 35, uint8(60+i*8), i*240, 120))
	}
	require.NoError(t, notes.Insert(NewEvent(480, ControllerChange{Channel: 9, Controller: 7, Value: 100})))
	f.AddTrack(notes)
	return f
}

func TestDecoder_Decode(t *testing.T) {
	f := newTestFile(t)
	data := f.Bytes()

	got, err := NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)

	assert.Equal(t, 1, got.Format())
	assert.Equal(t, DefaultResolution, got.Resolution())
	assert.Equal(t, MetricalTF, got.TimeFormat())
	require.Equal(t, 2, got.TrackCount())

	for i, tr := range got.Tracks() {
		want := f.Track(i).Events()
		require.Equal(t, len(want), tr.Len(), "track %d", i)
		for j, e := range tr.Events() {
			assert.Equal(t, want[j].Tick(), e.Tick())
			assert.Equal(t, want[j].Delta(), e.Delta())
			assert.Equal(t, want[j].Message(), e.Message())
		}
	}

	assert.Equal(t, data, got.Bytes())
}

func TestDecoderFields(t *testing.T) {
	d := NewDecoder(bytes.NewReader(newTestFile(t).Bytes()))
	_, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint16(DefaultResolution), d.TicksPerQuarterNote)
	assert.Equal(t, MetricalTF, d.TimeFormat)
}

func TestDecodeTempoAndNotes(t *testing.T) {
	f := NewFile(480)
	tr := NewTrack()
	require.NoError(t, tr.Insert(NewEvent(0, Tempo{MPQN: DefaultMPQN})))
	require.NoError(t, tr.Insert(NewEvent(0, NoteOn{Note: 60, Velocity: 100})))
	require.NoError(t, tr.Insert(NewEvent(480, NoteOn{Note: 60})))
	f.AddTrack(tr)

	got, err := Decode(bytes.NewReader(f.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, 0, got.Format())
	assert.Equal(t, int64(480), got.LengthInTicks())

	events := got.Track(0).Events()
	require.Len(t, events, 3)
	assert.Equal(t, KindTempo, events[0].Kind())
	assert.Equal(t, uint32(0), events[1].Delta())
	assert.Equal(t, uint32(480), events[2].Delta())
}

func TestDecodeGenericMetaRoundTrip(t *testing.T) {
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0x01, 0xE0,
		'M', 'T', 'r', 'k', 0, 0, 0, 17,
		0x00, 0xFF, 0x51, 0x02, 0x07, 0xA1, // tempo with a bad length
		0x00, 0xFF, 0x60, 0x03, 1, 2, 3, // unknown type
		0x00, 0xFF, 0x2F, 0x00,
	}

	f, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	events := f.Track(0).Events()
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, KindGenericMeta, e.Kind())
	}
	assert.Equal(t, data, f.Bytes())
}

func TestDecodeHeaderMismatch(t *testing.T) {
	tests := [][]byte{
		nil,
		[]byte("RIFF\x00\x00\x00\x06\x00\x00\x00\x01\x01\xE0"),
		[]byte("MThd\x00\x00\x00\x08\x00\x00\x00\x01\x01\xE0\x00\x00"),
		[]byte("MThd\x00\x00\x00\x06\x00"),
	}

	for _, data := range tests {
		f, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrFmtNotSupported)
		require.NotNil(t, f)
		assert.Equal(t, 0, f.TrackCount())
		assert.Equal(t, DefaultResolution, f.Resolution())
	}
}

func TestDecodeSkipsAlienChunk(t *testing.T) {
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0, 96,
		'X', 'F', 'I', 'H', 0, 0, 0, 3, 1, 2, 3,
		'M', 'T', 'r', 'k', 0, 0, 0, 8,
		0x00, 0x90, 60, 100,
		0x00, 0xFF, 0x2F, 0x00,
	}

	f, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, f.TrackCount())
	assert.Equal(t, 96, f.Resolution())
	assert.Equal(t, 1, f.Track(0).Len())
}

func TestDecodeTruncated(t *testing.T) {
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 1, 0, 2, 0, 96,
		'M', 'T', 'r', 'k', 0, 0, 0, 20,
		0x00, 0x90, 60, 100,
		0x60, 0x80, 60,
	}

	f, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrTruncated)
	require.Equal(t, 1, f.TrackCount())
	assert.Equal(t, 1, f.Track(0).Len())

	// the second track is missing
	data = []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 1, 0, 2, 0, 96,
		'M', 'T', 'r', 'k', 0, 0, 0, 4,
		0x00, 0xFF, 0x2F, 0x00,
	}
	f, err = Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 1, f.TrackCount())
}

func TestDecodeOversizedTrackChunk(t *testing.T) {
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0, 96,
		'M', 'T', 'r', 'k', 0xFF, 0xFF, 0xFF, 0xF0,
		0x00, 0x90, 60, 100,
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	f, err := Decode(bytes.NewReader(data))
	runtime.ReadMemStats(&after)

	assert.ErrorIs(t, err, ErrTruncated)
	require.Equal(t, 1, f.TrackCount())
	assert.Equal(t, 1, f.Track(0).Len())
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestDecodeTimeCode(t *testing.T) {
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 0, 0xE7, 0x28,
	}
	d := NewDecoder(bytes.NewReader(data))
	f, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, TimeCodeTF, d.TimeFormat)
	assert.Equal(t, TimeCodeTF, f.TimeFormat())
	assert.Equal(t, data, f.Bytes())
}

func TestFileTracks(t *testing.T) {
	f := NewFile(0)
	assert.Equal(t, DefaultResolution, f.Resolution())
	assert.Equal(t, 0, f.Format())

	a, b, c := NewTrack(), NewTrack(), NewTrack()
	f.AddTrack(a)
	assert.Equal(t, 0, f.Format())

	f.InsertTrack(b, -3)
	f.InsertTrack(c, 99)
	assert.Equal(t, []*Track{b, a, c}, f.Tracks())
	assert.Equal(t, 1, f.Format())

	assert.Same(t, a, f.RemoveTrack(1))
	assert.Nil(t, f.RemoveTrack(5))
	assert.Same(t, c, f.RemoveTrack(1))
	assert.Equal(t, 0, f.Format())
	assert.Equal(t, 1, f.TrackCount())
}

func TestFileSetFormat(t *testing.T) {
	f := NewFile(DefaultResolution)
	f.SetFormat(-1)
	assert.Equal(t, 0, f.Format())
	f.SetFormat(7)
	assert.Equal(t, 1, f.Format())
	f.SetFormat(2)
	assert.Equal(t, 2, f.Format())

	// the override sticks when tracks change
	f.AddTrack(NewTrack())
	f.AddTrack(NewTrack())
	f.RemoveTrack(0)
	assert.Equal(t, 2, f.Format())

	f.AddTrack(NewTrack())
	f.SetFormat(0)
	assert.Equal(t, 1, f.Format())
}

func TestFileLengthInTicks(t *testing.T) {
	f := NewFile(DefaultResolution)
	assert.Equal(t, int64(0), f.LengthInTicks())

	a, b := NewTrack(), NewTrack()
	require.NoError(t, a.Insert(NewEvent(960, NoteOn{})))
	require.NoError(t, b.Insert(NewEvent(1920, NoteOn{})))
	f.AddTrack(a)
	f.AddTrack(b)
	assert.Equal(t, int64(1920), f.LengthInTicks())
}

func TestFileReadBySMF(t *testing.T) {
	f := newTestFile(t)

	s, err := smf.ReadFrom(bytes.NewReader(f.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, smf.MetricTicks(DefaultResolution), s.TimeFormat)
	require.Len(t, s.Tracks, 2)

	var bpm float64
	var tempos int
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			tempos++
		}
	}
	assert.Equal(t, 1, tempos)
	assert.InDelta(t, 120.0, bpm, 0.01)

	var ch, key, vel uint8
	var notes int
	var tick int64
	for _, ev := range s.Tracks[1] {
		tick += int64(ev.Delta)
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			assert.Equal(t, uint8(9), ch)
			assert.Equal(t, uint8(35), key)
			assert.Equal(t, int64(notes*240), tick)
			notes++
		}
	}
	assert.Equal(t, 8, notes)
}
