package processor

import (
	"sync"
	"time"

	"github.com/Garik-/midi/pkg/midi"
)

// Listener receives playback notifications. All methods are called on the
// processor goroutine and must not block for long. A listener may call Stop
// or register and unregister listeners; it must not call Start, Reset or Wait.
//
// Listeners are compared with == when unregistering, so implementations
// should be pointers or other comparable values.
type Listener interface {
	OnStart(fromBeginning bool)
	OnEvent(e *midi.Event, elapsed time.Duration)
	OnStop(finished bool)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
// Register it by pointer.
type ListenerFuncs struct {
	Start func(fromBeginning bool)
	Event func(e *midi.Event, elapsed time.Duration)
	Stop  func(finished bool)
}

func (f *ListenerFuncs) OnStart(fromBeginning bool) {
	if f.Start != nil {
		f.Start(fromBeginning)
	}
}

func (f *ListenerFuncs) OnEvent(e *midi.Event, elapsed time.Duration) {
	if f.Event != nil {
		f.Event(e, elapsed)
	}
}

func (f *ListenerFuncs) OnStop(finished bool) {
	if f.Stop != nil {
		f.Stop(finished)
	}
}

// registry maps event kinds to listeners. Listeners registered for all events
// are kept apart and notified after the kind specific ones.
type registry struct {
	mu     sync.RWMutex
	byKind map[midi.Kind][]Listener
	all    []Listener

	// every registered listener once, in first registration order
	members []Listener
}

func newRegistry() *registry {
	return &registry{byKind: make(map[midi.Kind][]Listener)}
}

func (r *registry) add(l Listener, kind midi.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !contains(r.byKind[kind], l) {
		r.byKind[kind] = append(r.byKind[kind], l)
	}
	r.join(l)
}

func (r *registry) addAll(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !contains(r.all, l) {
		r.all = append(r.all, l)
	}
	r.join(l)
}

// join expects r.mu to be held.
func (r *registry) join(l Listener) {
	if !contains(r.members, l) {
		r.members = append(r.members, l)
	}
}

func (r *registry) remove(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind, listeners := range r.byKind {
		r.setKind(kind, without(listeners, l))
	}
	r.all = without(r.all, l)
	r.members = without(r.members, l)
}

func (r *registry) removeKind(l Listener, kind midi.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setKind(kind, without(r.byKind[kind], l))
	if contains(r.all, l) {
		return
	}
	for _, listeners := range r.byKind {
		if contains(listeners, l) {
			return
		}
	}
	r.members = without(r.members, l)
}

// setKind expects r.mu to be held.
func (r *registry) setKind(kind midi.Kind, listeners []Listener) {
	if len(listeners) == 0 {
		delete(r.byKind, kind)
		return
	}
	r.byKind[kind] = listeners
}

func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byKind = make(map[midi.Kind][]Listener)
	r.all = nil
	r.members = nil
}

// subscribers returns the listeners for kind followed by the listeners for
// all events. The result is a copy, safe to use after the lock is released.
func (r *registry) subscribers(kind midi.Kind) []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := r.byKind[kind]
	out := make([]Listener, 0, len(kinds)+len(r.all))
	out = append(out, kinds...)
	return append(out, r.all...)
}

func (r *registry) listeners() []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Listener, len(r.members))
	copy(out, r.members)
	return out
}

func contains(listeners []Listener, l Listener) bool {
	for _, x := range listeners {
		if x == l {
			return true
		}
	}
	return false
}

// without returns a new slice so copies handed out by subscribers stay intact.
func without(listeners []Listener, l Listener) []Listener {
	if !contains(listeners, l) {
		return listeners
	}
	out := make([]Listener, 0, len(listeners)-1)
	for _, x := range listeners {
		if x != l {
			out = append(out, x)
		}
	}
	return out
}
