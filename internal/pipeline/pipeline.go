// Package pipeline implements the staged, lazily-evaluated migration pipeline.
//
// A Pipeline composes an ordered list of Stages over a source sequence of
// object references. Each stage wraps the sequence produced by the previous
// stage, so evaluation is pull-based and single-threaded: nothing happens
// until Run drains the final sequence, and at most one item is in flight at
// any time. All useful work happens as stage side effects; item values
// escaping the last stage are discarded.
//
// Failure semantics follow a strict per-item isolation policy: a Process
// error is reported and the failing item is dropped, and the run continues
// with the next item. Only stage setup (BeforeProcess, which is where
// destination preloads happen) can abort the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// Stage is one transformation/side-effect step. BeforeProcess runs exactly
// once before the first item flows through the stage, AfterProcess exactly
// once after the input is exhausted (including exhaustion by cancellation).
type Stage interface {
	Name() string
	BeforeProcess(ctx context.Context) error
	Process(ctx context.Context, item objstore.ObjectRef) (objstore.ObjectRef, error)
	AfterProcess()
}

// Hooks provides no-op lifecycle hooks for stages that keep no cross-item
// state. Embed it and implement only Name and Process.
type Hooks struct{}

func (Hooks) BeforeProcess(context.Context) error { return nil }

func (Hooks) AfterProcess() {}

// SkipError marks an expected per-item skip condition (filter match, object
// already migrated). Skips are reported and the item is dropped, but they are
// not failures.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return e.Reason }

// IsSkip reports whether err is (or wraps) a SkipError.
func IsSkip(err error) bool {
	var s *SkipError
	return errors.As(err, &s)
}

// Pipeline drives a source sequence through an ordered chain of stages.
type Pipeline struct {
	source  iter.Seq[objstore.ObjectRef]
	stages  []Stage
	logger  zerolog.Logger
	elapsed time.Duration

	// OnSkip, when set, is invoked for every expected per-item skip after it
	// has been logged.
	OnSkip func(stage string, item objstore.ObjectRef, err error)

	// OnFailure, when set, is invoked for every per-item failure that is not
	// a skip, after the failure has been logged.
	OnFailure func(stage string, item objstore.ObjectRef, err error)
}

// New creates a pipeline over the given source sequence.
func New(source iter.Seq[objstore.ObjectRef]) *Pipeline {
	return &Pipeline{
		source: source,
		logger: log.Logger,
	}
}

// Add appends a stage to the end of the chain. The stage consumes the output
// of the current last stage.
func (p *Pipeline) Add(s Stage) *Pipeline {
	p.stages = append(p.stages, s)
	return p
}

// Elapsed returns the wall-clock duration of the last Run.
func (p *Pipeline) Elapsed() time.Duration { return p.elapsed }

// Run evaluates the composed chain to completion.
//
// All BeforeProcess hooks run first, in stage order; an error there (preload
// or other setup failure) aborts the run before any item flows and is
// returned to the caller. The chain is then drained, discarding values.
// AfterProcess hooks run in reverse stage order for every stage whose
// BeforeProcess succeeded, even when the drain stopped early on cancellation,
// so per-stage summaries always reflect the items actually processed.
//
// A cancellation observed between items stops the pull and Run returns nil;
// a cancellation during the setup phase aborts the run immediately and is
// returned as the context's error.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	var started []Stage
	defer func() {
		for i := len(started) - 1; i >= 0; i-- {
			started[i].AfterProcess()
		}
		p.elapsed = time.Since(start)
		p.logger.Info().
			Dur("elapsed", p.elapsed).
			Msg("Pipeline finished")
	}()

	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.BeforeProcess(ctx); err != nil {
			return fmt.Errorf("stage %s setup: %w", s.Name(), err)
		}
		started = append(started, s)
	}

	seq := p.source
	for _, s := range p.stages {
		seq = p.through(ctx, s, seq)
	}

	for range seq {
		if ctx.Err() != nil {
			p.logger.Info().Msg("Cancellation requested, stopping pipeline")
			break
		}
	}

	return nil
}

// through wraps the upstream sequence with one stage, applying the per-item
// isolation policy: skips and failures are reported and the item is dropped.
func (p *Pipeline) through(ctx context.Context, s Stage, in iter.Seq[objstore.ObjectRef]) iter.Seq[objstore.ObjectRef] {
	return func(yield func(objstore.ObjectRef) bool) {
		for item := range in {
			out, err := s.Process(ctx, item)
			if err != nil {
				if IsSkip(err) {
					p.logger.Info().
						Str("stage", s.Name()).
						Str("key", item.Name).
						Msgf("SKIPPED: %v", err)
					if p.OnSkip != nil {
						p.OnSkip(s.Name(), item, err)
					}
				} else {
					p.logger.Warn().
						Err(err).
						Str("stage", s.Name()).
						Str("key", item.Name).
						Msg("Item failed, dropping")
					if p.OnFailure != nil {
						p.OnFailure(s.Name(), item, err)
					}
				}
				continue
			}
			if !yield(out) {
				return
			}
		}
	}
}
