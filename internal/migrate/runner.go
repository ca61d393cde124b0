package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/internal/config"
	"github.com/piwi3910/ceph2swift/internal/metrics"
	"github.com/piwi3910/ceph2swift/internal/pipeline"
	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// Runner wires source, destination and configuration into the migration
// pipeline and drives one run.
type Runner struct {
	cfg    *config.Config
	source Source
	dest   Destination
	runID  string
}

// NewRunner creates a runner for one migration run.
func NewRunner(cfg *config.Config, source Source, dest Destination) *Runner {
	return &Runner{
		cfg:    cfg,
		source: source,
		dest:   dest,
		runID:  uuid.New().String(),
	}
}

// RunID returns the unique identifier of this run.
func (r *Runner) RunID() string { return r.runID }

// Run executes the migration. Setup failures (unreachable source bucket,
// destination container creation, preload failures) abort before any item is
// processed and are returned; per-item failures are isolated inside the
// pipeline. A user cancellation is a normal completion.
func (r *Runner) Run(ctx context.Context) error {
	logger := log.With().Str("run_id", r.runID).Str("tenant", r.cfg.Tenant).Logger()
	logger.Info().Str("container", r.dest.Container()).Msg("Starting migration")

	if err := r.source.Lookup(ctx); err != nil {
		return fmt.Errorf("source bucket: %w", err)
	}
	if err := r.dest.EnsureContainer(ctx); err != nil {
		return fmt.Errorf("destination container: %w", err)
	}

	failures, err := NewFailureLog(r.cfg.StateDir, r.runID)
	if err != nil {
		return err
	}
	defer func() { _ = failures.Close() }()

	p := pipeline.New(r.source.Objects(ctx)).
		Add(NewKeyInfoStage()).
		Add(pipeline.NewFilter("exclude keys with 'default' in the name", func(item objstore.ObjectRef) bool {
			return strings.Contains(item.Name, "default")
		})).
		Add(NewFolderStructureStage(r.dest, FolderOptions{
			Mode:    r.cfg.FolderMode,
			Preload: r.cfg.Preload,
		})).
		Add(pipeline.NewFilter("exclude keys ending in '/'", func(item objstore.ObjectRef) bool {
			return item.IsPlaceholder()
		})).
		Add(NewExistenceCheckStage(r.dest, r.cfg.Preload)).
		Add(NewUploadStage(r.source, r.dest))

	p.OnSkip = func(_ string, _ objstore.ObjectRef, cause error) {
		reason := metrics.ReasonFiltered
		if errors.Is(cause, ErrAlreadyExists) {
			reason = metrics.ReasonAlreadyExists
		}
		metrics.ObjectsSkipped.WithLabelValues(reason).Inc()
	}
	p.OnFailure = func(stage string, item objstore.ObjectRef, cause error) {
		metrics.ObjectsSkipped.WithLabelValues(metrics.ReasonFailed).Inc()
		failures.Record(stage, item, cause)
	}

	runErr := p.Run(ctx)
	metrics.ObserveRunDuration(p.Elapsed())

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info().Msg("Migration cancelled during setup")
			return nil
		}
		return runErr
	}

	if err := r.source.Err(); err != nil {
		return fmt.Errorf("source listing: %w", err)
	}

	if ctx.Err() != nil {
		logger.Info().Dur("elapsed", p.Elapsed()).Msg("Migration cancelled")
	} else {
		logger.Info().Dur("elapsed", p.Elapsed()).Msg("Migration complete")
	}
	return nil
}
