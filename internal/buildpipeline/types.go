package buildpipeline

import "time"

// Stage is one step of composing an entry.
type Stage string

const (
	StageLoad    Stage = "load"    // read the entry shader
	StageResolve Stage = "resolve" // compose with imports (or hit the cache)
	StageWrite   Stage = "write"   // write under out_dir
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageLoad, StageResolve, StageWrite}

const stageCount = 3

func (s Stage) index() int {
	switch s {
	case StageLoad:
		return 0
	case StageResolve:
		return 1
	case StageWrite:
		return 2
	}
	return -1
}

// Status is the state of an entry within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusCached  Status = "cached" // resolve only: output served from the cache
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress of one entry.
type Event struct {
	File    string // путь entry из манифеста
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Build calls it from several
// goroutines at once.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds per-stage durations of one entry or, merged, of a build.
type Timings struct {
	dur  [stageCount]time.Duration
	seen [stageCount]bool
}

// Set records dur for stage; unknown stages are ignored.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if i := stage.index(); i >= 0 {
		t.dur[i] = dur
		t.seen[i] = true
	}
}

// Merge adds every recorded stage of other.
func (t *Timings) Merge(other Timings) {
	for i := range other.dur {
		if other.seen[i] {
			t.dur[i] += other.dur[i]
			t.seen[i] = true
		}
	}
}

func (t Timings) Has(stage Stage) bool {
	i := stage.index()
	return i >= 0 && t.seen[i]
}

func (t Timings) Duration(stage Stage) time.Duration {
	if i := stage.index(); i >= 0 {
		return t.dur[i]
	}
	return 0
}

// Sum returns the total of the given stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += t.Duration(s)
	}
	return total
}
