package trace

import "sync"

// Recorder keeps events in memory. Tests use it to check what the
// composer reported.
type Recorder struct {
	mu     sync.Mutex
	level  Level
	events []Event
}

func NewRecorder(level Level) *Recorder {
	return &Recorder{level: level}
}

func (r *Recorder) Emit(ev *Event) {
	if ev == nil || !r.level.allows(ev) {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, *ev)
	r.mu.Unlock()
}

func (r *Recorder) Flush() error  { return nil }
func (r *Recorder) Close() error  { return nil }
func (r *Recorder) Level() Level  { return r.level }
func (r *Recorder) Enabled() bool { return r.level > LevelOff }

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the names of recorded events of kind k.
func (r *Recorder) Names(k Kind) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == k {
			out = append(out, ev.Name)
		}
	}
	return out
}
