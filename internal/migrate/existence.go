package migrate

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// ExistenceCheckStage decides skip-vs-upload: an item whose destination copy
// already carries the source checksum is skipped as already migrated. The
// destination checksum comes from a preloaded name-to-checksum map when
// preloading is enabled, or from a live head request per item otherwise.
type ExistenceCheckStage struct {
	dest    objstore.ObjectStore
	preload bool

	existing map[string]string
	skipped  int
}

// NewExistenceCheckStage creates the existence check stage.
func NewExistenceCheckStage(dest objstore.ObjectStore, preload bool) *ExistenceCheckStage {
	return &ExistenceCheckStage{dest: dest, preload: preload}
}

func (s *ExistenceCheckStage) Name() string { return "existence check" }

// BeforeProcess preloads the destination's name-to-checksum mapping. A
// listing failure is fatal for the run.
func (s *ExistenceCheckStage) BeforeProcess(ctx context.Context) error {
	s.skipped = 0
	s.existing = nil

	if !s.preload {
		return nil
	}

	refs, err := s.dest.List(ctx)
	if err != nil {
		return err
	}

	s.existing = make(map[string]string, len(refs))
	for _, ref := range refs {
		s.existing[ref.Name] = ref.Checksum
	}
	log.Info().Int("files", len(s.existing)).Msg("Preloaded destination checksums")
	return nil
}

func (s *ExistenceCheckStage) Process(ctx context.Context, item objstore.ObjectRef) (objstore.ObjectRef, error) {
	destSum, present, err := s.destChecksum(ctx, item.Name)
	if err != nil {
		return objstore.ObjectRef{}, err
	}

	if present && destSum == item.Checksum {
		s.skipped++
		return objstore.ObjectRef{}, ErrAlreadyExists
	}
	return item, nil
}

// destChecksum resolves the destination checksum for name, reporting absence
// via the present flag.
func (s *ExistenceCheckStage) destChecksum(ctx context.Context, name string) (string, bool, error) {
	if s.existing != nil {
		sum, ok := s.existing[name]
		return sum, ok, nil
	}

	sum, err := s.dest.HeadChecksum(ctx, name)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return sum, true, nil
}

func (s *ExistenceCheckStage) AfterProcess() {
	log.Info().Int("already_present", s.skipped).Msg("Existence check complete")
}

// Skipped returns the number of items skipped as already migrated.
func (s *ExistenceCheckStage) Skipped() int { return s.skipped }
