// Package midiout sends played events to a MIDI output port.
package midiout

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Garik-/midi/pkg/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

var senderLog = zap.NewNop()

func EnableDebugLogging(l *zap.Logger) {
	senderLog = l.Named("midiout")
}

const allNotesOff = 123

// Message converts a voice or system exclusive event to a wire message.
// Meta events and metronome ticks have no wire form and report false.
func Message(e *midi.Event) (gomidi.Message, bool) {
	switch m := e.Message().(type) {
	case midi.NoteOn:
		return gomidi.NoteOn(m.Channel, m.Note, m.Velocity), true
	case midi.NoteOff:
		return gomidi.NoteOffVelocity(m.Channel, m.Note, m.Velocity), true
	case midi.NoteAftertouch:
		return gomidi.PolyAfterTouch(m.Channel, m.Note, m.Amount), true
	case midi.ChannelAftertouch:
		return gomidi.AfterTouch(m.Channel, m.Amount), true
	case midi.ControllerChange:
		return gomidi.ControlChange(m.Channel, m.Controller, m.Value), true
	case midi.ProgramChange:
		return gomidi.ProgramChange(m.Channel, m.Program), true
	case midi.PitchBend:
		return gomidi.Pitchbend(m.Channel, int16(m.Amount())-0x2000), true
	case midi.SystemExclusive:
		if m.Status == 0xF7 {
			// escaped bytes go out as they are
			return gomidi.Message(append([]byte(nil), m.Data...)), true
		}
		data := m.Data
		if n := len(data); n > 0 && data[n-1] == 0xF7 {
			data = data[:n-1]
		}
		return gomidi.SysEx(data), true
	}
	return nil, false
}

// Sender is a playback listener that forwards events to send. When playback
// stops it switches off the notes of every channel it has used.
type Sender struct {
	send func(gomidi.Message) error

	mu       sync.Mutex
	channels [16]bool
}

func NewSender(send func(gomidi.Message) error) *Sender {
	return &Sender{send: send}
}

func (s *Sender) OnStart(bool) {}

func (s *Sender) OnEvent(e *midi.Event, _ time.Duration) {
	msg, ok := Message(e)
	if !ok {
		return
	}

	var ch uint8
	if msg.GetChannel(&ch) {
		s.mu.Lock()
		s.channels[ch&0x0F] = true
		s.mu.Unlock()
	}

	if err := s.send(msg); err != nil {
		senderLog.Warn("send failed", zap.Stringer("event", e), zap.Error(err))
	}
}

func (s *Sender) OnStop(bool) {
	s.mu.Lock()
	channels := s.channels
	s.channels = [16]bool{}
	s.mu.Unlock()

	for ch, used := range channels {
		if !used {
			continue
		}
		if err := s.send(gomidi.ControlChange(uint8(ch), allNotesOff, 0)); err != nil {
			senderLog.Warn("all notes off failed", zap.Int("channel", ch), zap.Error(err))
		}
	}
}

// Ports lists the output port names.
func Ports() []string {
	outs := gomidi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names
}

// Open returns a Sender for the first output port whose name contains name,
// ignoring case. An empty name picks the first port.
func Open(name string) (*Sender, error) {
	want := strings.ToLower(name)
	for _, out := range gomidi.GetOutPorts() {
		if !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("failed to open port %s: %w", out.String(), err)
		}
		senderLog.Debug("port opened", zap.String("port", out.String()))
		return NewSender(send), nil
	}
	return nil, fmt.Errorf("no MIDI output port matching %q", name)
}

// Close releases the MIDI driver.
func Close() {
	gomidi.CloseDriver()
}
