// Package observ measures where a compose or build run spends its time.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// PhaseID refers to a phase started with Begin; -1 is a no-op handle.
type PhaseID int

type phase struct {
	name  string
	start time.Time
	end   time.Time
	note  string
}

// Timer records named phases. Parallel build entries share one timer,
// so every method locks; a nil *Timer ignores all calls.
type Timer struct {
	mu     sync.Mutex
	phases []phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin starts a phase.
func (t *Timer) Begin(name string) PhaseID {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, phase{name: name, start: time.Now()})
	return PhaseID(len(t.phases) - 1)
}

// End finishes a phase. Ending an unknown or finished phase does nothing.
func (t *Timer) End(id PhaseID, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || int(id) >= len(t.phases) || !t.phases[id].end.IsZero() {
		return
	}
	t.phases[id].end = time.Now()
	t.phases[id].note = note
}

// Measure runs fn as one phase noted "failed" when fn returns an error.
func (t *Timer) Measure(name string, fn func() error) error {
	id := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	t.End(id, note)
	return err
}

// PhaseReport is one finished or running phase.
type PhaseReport struct {
	Name     string
	Duration time.Duration // до текущего момента, если фаза не закончена
	Note     string
}

// Report holds the phases in start order. Sum adds phase durations and
// can exceed Wall when phases overlap.
type Report struct {
	Phases []PhaseReport
	Sum    time.Duration
	Wall   time.Duration
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var rep Report
	if len(t.phases) == 0 {
		return rep
	}
	now := time.Now()
	first, last := t.phases[0].start, t.phases[0].start
	for _, p := range t.phases {
		end := p.end
		if end.IsZero() {
			end = now
		}
		d := end.Sub(p.start)
		rep.Phases = append(rep.Phases, PhaseReport{Name: p.name, Duration: d, Note: p.note})
		rep.Sum += d
		if p.start.Before(first) {
			first = p.start
		}
		if end.After(last) {
			last = end
		}
	}
	rep.Wall = last.Sub(first)
	return rep
}

// Summary renders the report as an aligned table.
func (t *Timer) Summary() string {
	rep := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range rep.Phases {
		fmt.Fprintf(&sb, "  %-28s %8.2f ms", p.Name, millis(p.Duration))
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-28s %8.2f ms\n", "total", millis(rep.Wall))
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
