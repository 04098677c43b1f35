// Package generator runs one ROP generation per trigger. A trigger ensures the
// remote store is reachable, uploads the templates and bootstraps the live set
// when nothing is live, and otherwise rotates every live path to the current
// window. A live set left incomplete by an earlier trigger is completed by that
// rotation.
//
// Triggers come from startup, the scheduler and the manual HTTP endpoint; the
// generator serializes them so at most one engine call is in flight.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ropsim/pkg/engine"
	"mercator-hq/ropsim/pkg/history"
	"mercator-hq/ropsim/pkg/telemetry/logging"
	"mercator-hq/ropsim/pkg/telemetry/tracing"
	"mercator-hq/ropsim/pkg/templates"
)

// Source identifies what fired a trigger.
type Source string

const (
	SourceStartup  Source = "startup"
	SourceSchedule Source = "schedule"
	SourceManual   Source = "manual"
)

// Outcome is the result kind of one trigger.
type Outcome string

const (
	OutcomeBootstrapped Outcome = "bootstrapped"
	OutcomeRotated      Outcome = "rotated"
	OutcomeFailed       Outcome = "failed"
)

// Reason qualifies a failed trigger.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoConnection    Reason = "no_connection"
	ReasonBootstrapFailed Reason = "bootstrap_failed"
	ReasonRotationFailed  Reason = "rotation_failed"
)

// Engine is the part of engine.Engine a generator drives.
type Engine interface {
	Bootstrap(ctx context.Context) (engine.Stats, error)
	Rotate(ctx context.Context) (engine.Stats, error)
	IsComplete() bool
	Live() int
}

// Connector makes sure the remote store is reachable.
type Connector interface {
	Ensure(ctx context.Context, attempts int) error
}

// Recorder persists trigger outcomes.
type Recorder interface {
	Record(ctx context.Context, c history.Cycle) (int64, error)
}

// Preparer readies the remote store before a bootstrap, typically by
// uploading the templates.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Observer is told about every finished trigger.
type Observer interface {
	ObserveCycle(r Result)
}

// Result describes one trigger.
type Result struct {
	TriggerID string
	Source    Source
	Outcome   Outcome
	Reason    Reason
	Stats     engine.Stats
	Err       error
	StartedAt time.Time
}

// OK reports whether the trigger succeeded.
func (r Result) OK() bool {
	return r.Outcome != OutcomeFailed
}

// Config holds the generator's retry settings.
type Config struct {
	// ConnectAttempts bounds connection attempts per trigger.
	ConnectAttempts int

	// PrepareAttempts bounds how many times a trigger tries to prepare the
	// templates before giving up on the bootstrap.
	PrepareAttempts int

	// PrepareBackoff is the pause between preparation attempts.
	PrepareBackoff time.Duration

	// Targets feed the response text.
	Targets templates.Targets
}

// Generator serializes triggers against one engine.
type Generator struct {
	cfg       Config
	engine    Engine
	connector Connector
	recorder  Recorder
	preparer  Preparer
	observers []Observer
	logger    *slog.Logger
	tracer    trace.Tracer

	mu sync.Mutex
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRecorder records every trigger outcome.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		g.recorder = r
	}
}

// WithPreparer runs p before every bootstrap of an empty live set.
func WithPreparer(p Preparer) Option {
	return func(g *Generator) {
		g.preparer = p
	}
}

// WithObserver adds an observer called after every trigger.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		g.observers = append(g.observers, o)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a Generator.
func New(cfg Config, eng Engine, connector Connector, opts ...Option) *Generator {
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 1
	}
	if cfg.PrepareAttempts < 1 {
		cfg.PrepareAttempts = 1
	}
	g := &Generator{
		cfg:       cfg,
		engine:    eng,
		connector: connector,
		logger:    slog.Default(),
		tracer:    otel.Tracer("mercator-hq/ropsim/pkg/generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "generator")
	return g
}

// Trigger runs one generation. It blocks while another trigger is running.
func (g *Generator) Trigger(ctx context.Context, source Source) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := Result{
		TriggerID: uuid.NewString(),
		Source:    source,
		StartedAt: time.Now(),
	}

	ctx = logging.WithTriggerID(ctx, res.TriggerID)
	ctx = logging.WithTriggerSource(ctx, string(source))
	ctx, span := g.tracer.Start(ctx, "generator.trigger", tracing.TriggerAttrs(res.TriggerID, string(source)))
	defer span.End()

	log := logging.FromContext(ctx, g.logger)
	log.Info("generation triggered")

	g.run(ctx, &res)

	span.SetAttributes(
		attribute.String(tracing.AttrTriggerOutcome, string(res.Outcome)),
		attribute.String(tracing.AttrTriggerReason, string(res.Reason)),
		tracing.WindowAttr(res.Stats.Window),
	)
	tracing.SetStatus(span, res.Err)
	if res.Err != nil {
		log.Error("generation failed",
			"reason", res.Reason,
			"window", res.Stats.Window,
			"error", res.Err,
		)
	} else {
		log.Info("generation finished",
			"outcome", res.Outcome,
			"window", res.Stats.Window,
			"published", res.Stats.Published,
			"rotated", res.Stats.Rotated,
			"live", res.Stats.Live,
		)
	}

	g.record(ctx, res)
	for _, o := range g.observers {
		o.ObserveCycle(res)
	}
	return res
}

func (g *Generator) run(ctx context.Context, res *Result) {
	if err := g.connector.Ensure(ctx, g.cfg.ConnectAttempts); err != nil {
		res.fail(ReasonNoConnection, err)
		return
	}

	if g.engine.Live() == 0 {
		if err := g.prepare(ctx); err != nil {
			res.fail(reasonFor(err, ReasonBootstrapFailed), fmt.Errorf("prepare templates: %w", err))
			return
		}
		stats, err := g.engine.Bootstrap(ctx)
		res.Stats = stats
		if err != nil {
			res.fail(reasonFor(err, ReasonBootstrapFailed), err)
			return
		}
		res.Outcome = OutcomeBootstrapped
		return
	}

	if !g.engine.IsComplete() {
		logging.FromContext(ctx, g.logger).Info("live set incomplete, rotation bootstraps the missing slots",
			"live", g.engine.Live())
	}

	stats, err := g.engine.Rotate(ctx)
	res.Stats = stats
	if err != nil {
		res.fail(reasonFor(err, ReasonRotationFailed), err)
		return
	}
	res.Outcome = OutcomeRotated
}

// prepare runs the preparer until it succeeds, the attempts run out or ctx
// is done.
func (g *Generator) prepare(ctx context.Context) error {
	if g.preparer == nil {
		return nil
	}

	op := func() (struct{}, error) {
		return struct{}{}, g.preparer.Prepare(ctx)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(g.cfg.PrepareBackoff)),
		backoff.WithMaxTries(uint(g.cfg.PrepareAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			g.logger.Warn("template preparation failed, retrying", "retry_in", next, "error", err)
		}),
	)
	return err
}

func (g *Generator) record(ctx context.Context, res Result) {
	if g.recorder == nil {
		return
	}
	if _, err := g.recorder.Record(context.WithoutCancel(ctx), res.Cycle()); err != nil {
		g.logger.Warn("failed to record cycle", "trigger_id", res.TriggerID, "error", err)
	}
}

func (r *Result) fail(reason Reason, err error) {
	r.Outcome = OutcomeFailed
	r.Reason = reason
	r.Err = err
}

func reasonFor(err error, fallback Reason) Reason {
	if engine.IsConnectivity(err) {
		return ReasonNoConnection
	}
	return fallback
}

// Cycle converts r to a history entry.
func (r Result) Cycle() history.Cycle {
	c := history.Cycle{
		TriggerID:      r.TriggerID,
		Source:         string(r.Source),
		Outcome:        string(r.Outcome),
		Reason:         string(r.Reason),
		Window:         r.Stats.Window,
		Published:      r.Stats.Published,
		Rotated:        r.Stats.Rotated,
		Skipped:        r.Stats.Skipped,
		Deleted:        r.Stats.Deleted,
		DeleteFailures: r.Stats.DeleteFailures,
		Live:           r.Stats.Live,
		StartedAt:      r.StartedAt,
		Duration:       r.Stats.Duration,
	}
	if len(r.Stats.PerCategory) > 0 {
		c.PerCategory = make(map[string]int, len(r.Stats.PerCategory))
		for cat, n := range r.Stats.PerCategory {
			c.PerCategory[cat.String()] = n
		}
	}
	if r.Err != nil {
		c.Error = r.Err.Error()
	}
	return c
}

// Status renders the OK/NOT_OK marker of the manual trigger response.
func (r Result) Status() string {
	if r.OK() {
		return "OK"
	}
	return "NOT_OK"
}

// Message renders the manual trigger response for r, listing the configured
// node counts per category.
func (g *Generator) Message(r Result) string {
	t := g.cfg.Targets
	return fmt.Sprintf("MANUAL Rename and Sending of %d SFTP-FT Counter files and %d SFTP-FS EBS Counter files"+
		" and %d SFTP-FT Core Counter files and %d 5GPmEvent files and %d 4GPmEvent files: Status = %s\n",
		t[templates.PMCounter],
		t[templates.PMCounterEBS],
		t[templates.PMCounterCore],
		t[templates.Event5G],
		t[templates.Event4G],
		r.Status(),
	)
}
