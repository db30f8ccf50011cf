// Package buildpipeline composes every entry of a project manifest.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"wgslcompose/internal/cache"
	"wgslcompose/internal/compose"
	"wgslcompose/internal/loader"
	"wgslcompose/internal/observ"
	"wgslcompose/internal/project"
	"wgslcompose/internal/trace"
)

// BuildRequest configures a manifest build.
type BuildRequest struct {
	Manifest *project.Manifest
	// Loader resolves imports; nil means ProjectLoader(Manifest).
	Loader   loader.Loader
	Cache    *cache.Disk // nil disables the output cache
	Jobs     int         // 0 = по числу CPU
	Progress ProgressSink
	Tracer   trace.Tracer
	Timer    *observ.Timer
}

// EntryResult is the outcome of one manifest entry.
type EntryResult struct {
	Entry      project.Entry
	ID         string
	OutputPath string
	Unit       *compose.Unit // nil when served from the cache or on error
	Cached     bool
	Err        error
	Timings    Timings
}

// BuildResult captures per-entry results (in manifest order) and
// stage timings summed over entries.
type BuildResult struct {
	Entries []EntryResult
	Timings Timings
}

// Failed returns the entries that ended with an error.
func (r BuildResult) Failed() []EntryResult {
	var out []EntryResult
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// ProjectLoader builds a filesystem loader over the manifest roots with
// the [modules] aliases installed as overrides.
func ProjectLoader(m *project.Manifest) (*loader.FS, error) {
	l := loader.Dir(m.RootDirs()...)
	aliases, err := m.ModuleAliases()
	if err != nil {
		return nil, err
	}
	for _, a := range aliases {
		if err := l.Override(a.ID, a.File); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Build composes every entry. Entries run in parallel; one failed entry
// does not stop the others. The returned error joins all entry errors.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil || req.Manifest == nil {
		return result, fmt.Errorf("missing build request")
	}
	reqCopy := *req
	req = &reqCopy
	m := req.Manifest

	if req.Loader == nil {
		l, err := ProjectLoader(m)
		if err != nil {
			return result, err
		}
		req.Loader = l
	}
	if req.Tracer == nil {
		req.Tracer = trace.FromContext(ctx)
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = m.Compose.Jobs
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	span := trace.Begin(req.Tracer, trace.ScopeDriver, "build", trace.CurrentSpan(ctx).SpanID)
	span.WithExtra("entries", fmt.Sprint(len(m.Entries)))
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	for _, e := range m.Entries {
		emit(req.Progress, e.Path, StageLoad, StatusQueued, nil, 0)
	}

	phase := req.Timer.Begin("compose entries")
	results := make([]EntryResult, len(m.Entries))
	resolver := compose.New(req.Loader, compose.Options{Tracer: req.Tracer})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(m.Entries), 1)))
	for i, e := range m.Entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = buildEntry(gctx, req, resolver, e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		req.Timer.End(phase, "canceled")
		return result, err
	}
	req.Timer.End(phase, fmt.Sprintf("%d entries", len(results)))

	result.Entries = results
	var errs []error
	for _, r := range results {
		result.Timings.Merge(r.Timings)
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Entry.Path, r.Err))
		}
	}
	return result, errors.Join(errs...)
}

func buildEntry(ctx context.Context, req *BuildRequest, resolver *compose.Resolver, e project.Entry) EntryResult {
	m := req.Manifest
	res := EntryResult{Entry: e, OutputPath: filepath.Join(m.Abs(m.Compose.OutDir), filepath.FromSlash(e.Out))}
	fail := func(stage Stage, err error) EntryResult {
		res.Err = err
		emit(req.Progress, e.Path, stage, StatusError, err, 0)
		return res
	}

	// load
	start := time.Now()
	emit(req.Progress, e.Path, StageLoad, StatusWorking, nil, 0)
	id, err := m.EntryID(e)
	if err != nil {
		return fail(StageLoad, fmt.Errorf("entry id: %w", err))
	}
	res.ID = id
	data, err := os.ReadFile(m.Abs(e.Path))
	if err != nil {
		return fail(StageLoad, fmt.Errorf("read entry: %w", err))
	}
	text := string(data)
	res.Timings.Set(StageLoad, time.Since(start))
	emit(req.Progress, e.Path, StageLoad, StatusDone, nil, time.Since(start))

	// resolve
	start = time.Now()
	key := cache.Key(m.Path, id, e.Out)
	var output string
	if payload, ok := lookupCache(req, key, text); ok {
		output = payload.Output
		res.Cached = true
		trace.Point(req.Tracer, trace.ScopeEntry, "cache:"+id, "hit", trace.CurrentSpan(ctx).SpanID)
		emit(req.Progress, e.Path, StageResolve, StatusCached, nil, time.Since(start))
	} else {
		emit(req.Progress, e.Path, StageResolve, StatusWorking, nil, 0)
		unit, err := resolver.Resolve(ctx, text, id)
		if err != nil {
			return fail(StageResolve, err)
		}
		res.Unit = unit
		output = unit.Source
		if req.Cache != nil {
			if err := req.Cache.Put(key, payloadFor(text, unit)); err != nil {
				// кеш не должен ломать сборку
				trace.Fail(req.Tracer, trace.ScopeEntry, "cache:"+id, err, trace.CurrentSpan(ctx).SpanID)
			}
		}
		emit(req.Progress, e.Path, StageResolve, StatusDone, nil, time.Since(start))
	}
	res.Timings.Set(StageResolve, time.Since(start))

	// write
	start = time.Now()
	emit(req.Progress, e.Path, StageWrite, StatusWorking, nil, 0)
	if err := WriteAtomic(res.OutputPath, output); err != nil {
		return fail(StageWrite, err)
	}
	res.Timings.Set(StageWrite, time.Since(start))
	emit(req.Progress, e.Path, StageWrite, StatusDone, nil, time.Since(start))
	return res
}

// lookupCache returns a cached payload whose entry and module hashes all
// match what the loader returns now.
func lookupCache(req *BuildRequest, key project.Digest, entryText string) (*cache.Payload, bool) {
	if req.Cache == nil {
		return nil, false
	}
	payload, ok, err := req.Cache.Get(key)
	if err != nil || !ok {
		return nil, false
	}
	if payload.EntryHash != project.HashSource(entryText) {
		return nil, false
	}
	for i, id := range payload.Modules {
		text, err := req.Loader.Load(id)
		if err != nil || project.HashSource(text) != payload.Hashes[i] {
			return nil, false
		}
	}
	return payload, true
}

func payloadFor(entryText string, unit *compose.Unit) *cache.Payload {
	p := &cache.Payload{
		Entry:     unit.Entry,
		EntryHash: project.HashSource(entryText),
		Digest:    unit.Digest,
		Output:    unit.Source,
	}
	for _, mod := range unit.Modules {
		p.Modules = append(p.Modules, mod.ID)
		p.Hashes = append(p.Hashes, mod.Hash)
	}
	return p
}

// WriteAtomic writes content to a temp file next to path and renames it
// into place.
func WriteAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write build output %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move build output %q: %w", path, err)
	}
	return nil
}

func emit(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
