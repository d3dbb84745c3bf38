package midi

import (
	"bytes"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// eventReader decodes the body of one track chunk. It carries the running
// status between events.
type eventReader struct {
	r       *bytes.Reader
	size    int64
	running byte // last voice status byte, 0 when cancelled
}

func newEventReader(body []byte) *eventReader {
	return &eventReader{r: bytes.NewReader(body), size: int64(len(body))}
}

func (er *eventReader) more() bool {
	return er.r.Len() > 0
}

func (er *eventReader) offset() int64 {
	return er.size - int64(er.r.Len())
}

func (er *eventReader) readFull(n uint32) ([]byte, error) {
	if int64(n) > int64(er.r.Len()) {
		return nil, fmt.Errorf("%w - need %d bytes, %d left", ErrTruncated, n, er.r.Len())
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(er.r, buf)
	return buf, err
}

// next decodes one event at tick whose delta has already been consumed.
// A nil event with a nil error means the bytes were skipped.
func (er *eventReader) next(tick int64, delta uint32) (*Event, error) {
	statusByte, err := er.r.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}

	if statusByte&0x80 == 0 {
		if er.running == 0 {
			decoderLog.Warn("unable to handle status byte, skipping",
				zap.Uint8("byte", statusByte), zap.Int64("offset", er.offset()-1))
			return nil, nil
		}
		// running status: the byte is the first data byte
		if err := er.r.UnreadByte(); err != nil {
			return nil, err
		}
		statusByte = er.running
	}

	command := statusByte >> 4
	switch {
	case isVoiceMsgType(command):
		er.running = statusByte
		return er.voice(tick, delta, command, statusByte&0x0F)

	case statusByte == metaStatus:
		er.running = 0
		return er.meta(tick, delta)

	case statusByte == sysExStatus || statusByte == sysExEscapeStatus:
		er.running = 0
		length, _, err := readVarint(er.r)
		if err != nil {
			return nil, truncated(err)
		}
		data, err := er.readFull(length)
		if err != nil {
			return nil, err
		}
		e := NewEvent(tick, SystemExclusive{Status: statusByte, Data: data})
		e.delta = delta
		return e, nil
	}

	er.running = 0
	decoderLog.Warn("unable to handle status byte, skipping",
		zap.Uint8("byte", statusByte), zap.Int64("offset", er.offset()-1))
	return nil, nil
}

func (er *eventReader) voice(tick int64, delta uint32, command, channel byte) (*Event, error) {
	var params [2]byte
	n := voiceDataLen(command)
	for i := 0; i < n; i++ {
		b, err := er.r.ReadByte()
		if err != nil {
			return nil, truncated(err)
		}
		params[i] = b & 0x7F
	}

	e := NewEvent(tick, newVoiceMessage(command, channel, params[0], params[1]))
	e.delta = delta
	return e, nil
}

func (er *eventReader) meta(tick int64, delta uint32) (*Event, error) {
	typ, err := er.r.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	length, _, err := readVarint(er.r)
	if err != nil {
		return nil, truncated(err)
	}
	data, err := er.readFull(length)
	if err != nil {
		return nil, err
	}

	e := NewEvent(tick, newMetaMessage(MetaType(typ), data))
	e.delta = delta
	return e, nil
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w - %v", ErrTruncated, io.ErrUnexpectedEOF)
	}
	return err
}
