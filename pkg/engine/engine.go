package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ropsim/pkg/naming"
	"mercator-hq/ropsim/pkg/notification"
	"mercator-hq/ropsim/pkg/remote"
	"mercator-hq/ropsim/pkg/retention"
	"mercator-hq/ropsim/pkg/telemetry/logging"
	"mercator-hq/ropsim/pkg/telemetry/tracing"
	"mercator-hq/ropsim/pkg/templates"
)

// SkipOnNamingError controls how Rotate treats an entry whose path cannot be
// rewritten. When true the entry is logged and left at its current path while
// the rest of the cycle continues. Bootstrap always aborts on naming errors.
const SkipOnNamingError = true

// Config holds the engine's inputs.
type Config struct {
	// Targets is the number of synthetic nodes per category.
	Targets templates.Targets

	// BaseDir is the remote directory node files are published under.
	BaseDir string

	// BinDir is the remote directory holding the uploaded templates. A
	// template path's BinDir prefix is replaced by BaseDir to form its
	// published path.
	BinDir string

	// Permissions are applied to created links and node directories.
	Permissions os.FileMode

	// RetentionCapacity is the number of rotation snapshots kept before the
	// oldest one's paths are deleted.
	RetentionCapacity int

	// Location is the time zone windows are rendered in. Nil means the
	// clock's own location.
	Location *time.Location
}

// Stats are the counters for one Bootstrap or Rotate call.
type Stats struct {
	// Window is the ROP window label of the reference time.
	Window string `json:"window"`

	// Published counts links newly created by bootstrap.
	Published int `json:"published"`

	// Rotated counts entries advanced to the current window, EXIST included.
	Rotated int `json:"rotated"`

	// PerCategory counts entries per category: published ones for Bootstrap,
	// rotated ones for Rotate.
	PerCategory map[templates.Category]int `json:"per_category"`

	// Skipped counts rotate entries left in place after a naming error.
	Skipped int `json:"skipped"`

	Deleted        int `json:"deleted"`
	DeleteFailures int `json:"delete_failures"`

	// Live is the registry size when the call returned.
	Live int `json:"live"`

	Bootstrapped bool          `json:"bootstrapped"`
	Duration     time.Duration `json:"duration"`
}

func newStats(window string) Stats {
	return Stats{Window: window, PerCategory: make(map[templates.Category]int)}
}

// Engine publishes and rotates synthetic node files. Bootstrap and Rotate
// mutate shared state; they are serialized internally, and callers should not
// overlap triggers.
type Engine struct {
	cfg    Config
	store  remote.Store
	sink   notification.Sink
	pool   *templates.Pool
	now    func() time.Time
	logger *slog.Logger
	tracer trace.Tracer

	mu       sync.RWMutex
	live     *registry
	window   *retention.Window[Snapshot]
	last     Stats
	lastTime time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine publishing templates from pool into store.
func New(cfg Config, store remote.Store, sink notification.Sink, pool *templates.Pool, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		store:  store,
		sink:   sink,
		pool:   pool,
		now:    time.Now,
		logger: slog.Default(),
		tracer: otel.Tracer("mercator-hq/ropsim/pkg/engine"),
		live:   newRegistry(),
		window: retention.NewWindow[Snapshot](cfg.RetentionCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

func (e *Engine) reference() time.Time {
	t := e.now()
	if e.cfg.Location != nil {
		t = t.In(e.cfg.Location)
	}
	return t
}

// Expected returns the number of live paths a complete bootstrap produces.
func (e *Engine) Expected() int {
	return e.cfg.Targets.Total()
}

// IsComplete reports whether every target slot holds a live path.
func (e *Engine) IsComplete() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.len() == e.Expected()
}

// Live returns the number of live paths.
func (e *Engine) Live() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.len()
}

// LivePaths returns a copy of the live registry in id order.
func (e *Engine) LivePaths() []LivePath {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.list()
}

// LiveCounts returns the number of live paths per category.
func (e *Engine) LiveCounts() map[templates.Category]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.countByCategory()
}

// LastStats returns the counters of the most recent call and when it ended.
func (e *Engine) LastStats() (Stats, time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.lastTime
}

// Bootstrap publishes one link per empty target slot. Slots already live are
// left alone, so running it again on a complete registry does nothing.
func (e *Engine) Bootstrap(ctx context.Context) (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ref := e.reference()
	stats := newStats(windowLabel(ref))
	ctx = logging.WithROPWindow(ctx, stats.Window)
	ctx, span := e.tracer.Start(ctx, "engine.bootstrap", trace.WithAttributes(tracing.WindowAttr(stats.Window)))
	defer span.End()

	start := time.Now()
	var err error
	if !e.store.Connected(ctx) {
		err = &ConnectivityError{Operation: "bootstrap", Cause: remote.ErrNotConnected}
	} else {
		err = e.bootstrapLocked(ctx, ref, &stats)
	}
	e.finish(&stats, start, span, err)
	return stats, err
}

func (e *Engine) bootstrapLocked(ctx context.Context, ref time.Time, stats *Stats) error {
	stats.Bootstrapped = true

	for _, category := range templates.Categories {
		target := e.cfg.Targets[category]
		pool := e.pool.ByCategory(category)
		if len(pool) == 0 {
			if target > 0 {
				e.logger.WarnContext(ctx, "no templates for category, skipping", "category", category, "target", target)
			}
			continue
		}

		published := 0
		for i := 1; i <= target; i++ {
			if e.live.hasSlot(category, i) {
				continue
			}

			tpl := pool[(i-1)%len(pool)]
			path, err := naming.RenameWithNewNodeAndDateTime(tpl.Path, ref, i)
			if err != nil {
				e.logger.ErrorContext(ctx, "cannot derive node path from template",
					"template", tpl.Path, "node_index", i, "error", err)
				return err
			}
			path = templates.StripBinDir(path, e.cfg.BaseDir, e.cfg.BinDir)

			res, err := e.store.Symlink(ctx, tpl.Path, path, e.cfg.Permissions)
			switch res {
			case remote.SymlinkFailed:
				return &PublishError{Operation: "bootstrap", Source: tpl.Path, Target: path, Result: res, Cause: err}
			case remote.SymlinkExist:
				if !e.live.hasPath(path) {
					e.live.add(category, i, tpl.Path, path)
				}
				continue
			}

			e.live.add(category, i, tpl.Path, path)
			e.notify(ctx, category, path)
			stats.Published++
			stats.PerCategory[category]++
			published++
		}

		e.logger.InfoContext(ctx, "category bootstrapped", "category", category, "published", published, "target", target)
	}
	return nil
}

// Rotate advances every live path to the current ROP window and deletes paths
// that have fallen out of the retention window. An incomplete registry is
// bootstrapped first.
//
// A naming error on one entry skips that entry; a failed publish aborts the
// call. Failed deletes are logged and counted only.
func (e *Engine) Rotate(ctx context.Context) (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ref := e.reference()
	stats := newStats(windowLabel(ref))
	ctx = logging.WithROPWindow(ctx, stats.Window)
	ctx, span := e.tracer.Start(ctx, "engine.rotate", trace.WithAttributes(tracing.WindowAttr(stats.Window)))
	defer span.End()

	start := time.Now()
	err := e.rotateLocked(ctx, ref, &stats)
	e.finish(&stats, start, span, err)
	return stats, err
}

func (e *Engine) rotateLocked(ctx context.Context, ref time.Time, stats *Stats) error {
	if !e.store.Connected(ctx) {
		return &ConnectivityError{Operation: "rotate", Cause: remote.ErrNotConnected}
	}

	if e.live.len() != e.Expected() {
		e.logger.InfoContext(ctx, "live set incomplete, bootstrapping before rotation",
			"live", e.live.len(), "expected", e.Expected())
		if err := e.bootstrapLocked(ctx, ref, stats); err != nil {
			return err
		}
		clear(stats.PerCategory)
	}

	for _, entry := range e.live.list() {
		next, err := naming.UpdateFilePathWithNewDateTime(entry.Path, ref)
		if err != nil {
			if !SkipOnNamingError {
				return err
			}
			e.logger.ErrorContext(ctx, "cannot rewrite live path, leaving it in place",
				"path", entry.Path, "error", err)
			stats.Skipped++
			continue
		}

		res, err := e.store.Symlink(ctx, entry.Template, next, e.cfg.Permissions)
		if res == remote.SymlinkFailed {
			return &PublishError{Operation: "rotate", Source: entry.Template, Target: next, Result: res, Cause: err}
		}

		stats.Rotated++
		stats.PerCategory[entry.Category]++
		if res == remote.SymlinkExist {
			continue
		}

		e.live.move(entry.ID, next)
		e.notify(ctx, entry.Category, next)
	}

	evicted, ok := e.window.Push(e.live.snapshot())
	if ok {
		e.deleteEvicted(ctx, evicted, stats)
	}

	e.logger.InfoContext(ctx, "rotation complete",
		"window", stats.Window,
		"rotated", stats.Rotated,
		"skipped", stats.Skipped,
		"deleted", stats.Deleted,
	)
	return nil
}

// deleteEvicted removes the evicted snapshot's paths that are neither live
// nor held by a snapshot still in the window.
func (e *Engine) deleteEvicted(ctx context.Context, evicted Snapshot, stats *Stats) {
	retained := e.live.snapshot()
	e.window.Each(func(s Snapshot) {
		for p, c := range s {
			retained[p] = c
		}
	})

	for path := range evicted {
		if _, keep := retained[path]; keep {
			continue
		}
		if err := e.store.Delete(ctx, path); err != nil {
			e.logger.WarnContext(ctx, "failed to delete expired path", "path", path, "error", err)
			stats.DeleteFailures++
			continue
		}
		stats.Deleted++
	}
}

func (e *Engine) notify(ctx context.Context, category templates.Category, path string) {
	dataType := category.DataType()
	if dataType == "" {
		return
	}

	_, err := e.sink.Append(ctx, notification.Notice{
		NodeName:     naming.NodeName(path),
		DataType:     dataType,
		NodeType:     naming.NodeType(path),
		FileLocation: path,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "failed to record file notification", "path", path, "error", err)
	}
}

func (e *Engine) finish(stats *Stats, start time.Time, span trace.Span, err error) {
	stats.Live = e.live.len()
	stats.Duration = time.Since(start)
	e.last = *stats
	e.lastTime = e.now()

	tracing.SetCounts(span, tracing.Counts{
		Published: stats.Published,
		Rotated:   stats.Rotated,
		Skipped:   stats.Skipped,
		Deleted:   stats.Deleted,
		Live:      stats.Live,
	})
	tracing.SetStatus(span, err)
}

func windowLabel(ref time.Time) string {
	return naming.FormatWindow('A', ref)[1:]
}

// IsConnectivity reports whether err is a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsPublish reports whether err is a PublishError.
func IsPublish(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe)
}
