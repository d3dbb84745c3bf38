// Package processor plays a MIDI file against the wall clock and hands its
// events to listeners in tick order.
package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Garik-/midi/pkg/midi"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often the playback loop converts elapsed time to ticks.
const DefaultPollInterval = 8 * time.Millisecond

var (
	// ErrTimeCodeDivision reports a file timed in SMPTE frames, which cannot be played.
	ErrTimeCodeDivision = errors.New("SMPTE time division not supported")
	// ErrResolution reports a file without a usable ticks per quarter note value.
	ErrResolution = errors.New("invalid resolution")
)

type State int32

const (
	Idle State = iota
	Running
	Stopped
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Clock is the time source of a Processor.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Option func(*Processor)

// WithPollInterval sets how often elapsed time is converted to ticks.
// Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(p *Processor) {
		if c != nil {
			p.clock = c
		}
	}
}

// Processor plays the tracks of a File. Its tracks must not be modified while
// the processor is running; each Reset takes a fresh copy of their event lists.
type Processor struct {
	file         *midi.File
	resolution   int
	pollInterval time.Duration
	clock        Clock
	log          *zap.Logger

	registry *registry

	mu      sync.Mutex // Start, Reset, Wait
	running atomic.Bool
	state   atomic.Int32
	done    chan struct{}

	ticks   atomic.Uint64 // float64 bits
	elapsed atomic.Int64  // time.Duration
	mpqn    atomic.Uint32

	// owned by the playback goroutine while running
	cursors   []*cursor
	metronome *metronome
	due       []*midi.Event
}

// New prepares a processor for f. Files timed in SMPTE frames or with a zero
// resolution are rejected.
func New(f *midi.File, opts ...Option) (*Processor, error) {
	if f.TimeFormat() == midi.TimeCodeTF {
		return nil, ErrTimeCodeDivision
	}
	if f.Resolution() <= 0 {
		return nil, fmt.Errorf("%w - %d", ErrResolution, f.Resolution())
	}

	p := &Processor{
		file:         f,
		resolution:   f.Resolution(),
		pollInterval: DefaultPollInterval,
		clock:        systemClock{},
		log:          processorLog,
		registry:     newRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.reset()
	return p, nil
}

// Register subscribes l to events of the given kinds.
func (p *Processor) Register(l Listener, kinds ...midi.Kind) {
	for _, k := range kinds {
		p.registry.add(l, k)
	}
}

// RegisterAll subscribes l to every event.
func (p *Processor) RegisterAll(l Listener) {
	p.registry.addAll(l)
}

// Unregister removes every subscription of l.
func (p *Processor) Unregister(l Listener) {
	p.registry.remove(l)
}

// UnregisterKind removes the subscription of l to kind.
func (p *Processor) UnregisterKind(l Listener, kind midi.Kind) {
	p.registry.removeKind(l, kind)
}

func (p *Processor) UnregisterAll() {
	p.registry.clear()
}

// Start begins or resumes playback. It does nothing while running.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return
	}
	if p.done != nil {
		// a stopped loop may still be notifying listeners
		<-p.done
	}
	if State(p.state.Load()) == Finished {
		p.log.Debug("nothing left to play")
		return
	}

	p.running.Store(true)
	p.state.Store(int32(Running))
	p.done = make(chan struct{})
	go p.run(p.done)
}

// Stop asks the playback loop to exit at its next polling boundary. It does
// not wait; use Wait for that. Stop is safe to call from a listener.
func (p *Processor) Stop() {
	p.running.Store(false)
}

// Wait blocks until the playback loop has exited.
func (p *Processor) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Reset stops playback, waits for the loop to exit and rewinds to tick 0.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running.Store(false)
	if p.done != nil {
		<-p.done
		p.done = nil
	}
	p.reset()
}

func (p *Processor) reset() {
	p.ticks.Store(math.Float64bits(0))
	p.elapsed.Store(0)
	p.mpqn.Store(midi.DefaultMPQN)
	p.metronome = newMetronome(p.resolution)

	tracks := p.file.Tracks()
	p.cursors = make([]*cursor, len(tracks))
	for i, t := range tracks {
		p.cursors[i] = newCursor(t)
	}
	p.state.Store(int32(Idle))
}

func (p *Processor) State() State { return State(p.state.Load()) }

func (p *Processor) Running() bool { return p.running.Load() }

// Started reports whether playback has advanced past tick 0.
func (p *Processor) Started() bool { return p.Ticks() > 0 }

// Elapsed is the playback time since the last Reset.
func (p *Processor) Elapsed() time.Duration { return time.Duration(p.elapsed.Load()) }

// Ticks is the fractional tick position since the last Reset.
func (p *Processor) Ticks() float64 { return math.Float64frombits(p.ticks.Load()) }

// MPQN is the tempo currently in effect.
func (p *Processor) MPQN() uint32 { return p.mpqn.Load() }

func (p *Processor) run(done chan<- struct{}) {
	defer close(done)

	p.log.Debug("start", zap.Float64("ticks", p.Ticks()))
	p.notifyStart(p.Ticks() < 1)

	last := p.clock.Now()
	finished := false
	for p.running.Load() {
		now := p.clock.Now()
		since := now.Sub(last)
		if since < p.pollInterval {
			<-p.clock.After(p.pollInterval - since)
			continue
		}

		ticks := midi.DurationToTicks(since, p.MPQN(), p.resolution)
		if ticks < 1 {
			// keep the time and try again with more of it
			<-p.clock.After(p.pollInterval)
			continue
		}

		if p.metronome.update(ticks) {
			p.dispatch(midi.NewEvent(int64(p.Ticks()+ticks), p.metronome.tick()))
		}

		last = now
		p.elapsed.Add(int64(since))
		total := p.Ticks() + ticks
		p.ticks.Store(math.Float64bits(total))

		if !p.advance(total) {
			finished = true
			break
		}
	}

	p.running.Store(false)
	if finished {
		p.state.Store(int32(Finished))
	} else {
		p.state.Store(int32(Stopped))
	}
	p.log.Debug("stop", zap.Bool("finished", finished), zap.Duration("elapsed", p.Elapsed()))
	p.notifyStop(finished)
}

// advance dispatches every event due at tick and reports whether any track
// has events left. Events of one round are merged by tick; simultaneous
// events keep track order, lower track index first.
func (p *Processor) advance(tick float64) bool {
	p.due = p.due[:0]
	more := false
	for _, c := range p.cursors {
		if !c.hasMore() {
			continue
		}
		p.due = c.appendDue(p.due, tick)
		if c.hasMore() {
			more = true
		}
	}

	sort.SliceStable(p.due, func(i, j int) bool {
		return p.due[i].Tick() < p.due[j].Tick()
	})
	for _, e := range p.due {
		p.dispatch(e)
	}
	return more
}

func (p *Processor) dispatch(e *midi.Event) {
	switch m := e.Message().(type) {
	case midi.Tempo:
		if m.MPQN == 0 {
			p.log.Warn("ignoring tempo of 0 microseconds per quarter note", zap.Int64("tick", e.Tick()))
		} else {
			p.mpqn.Store(m.MPQN)
		}
	case midi.TimeSignature:
		flush := p.metronome.beatNumber() != 1
		p.metronome.setTimeSignature(m)
		if flush {
			p.dispatch(midi.NewEvent(e.Tick(), p.metronome.tick()))
		}
	}

	elapsed := p.Elapsed()
	for _, l := range p.registry.subscribers(e.Kind()) {
		l.OnEvent(e, elapsed)
	}
}

func (p *Processor) notifyStart(fromBeginning bool) {
	for _, l := range p.registry.listeners() {
		l.OnStart(fromBeginning)
	}
}

func (p *Processor) notifyStop(finished bool) {
	for _, l := range p.registry.listeners() {
		l.OnStop(finished)
	}
}
