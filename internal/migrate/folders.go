package migrate

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/internal/config"
	"github.com/piwi3910/ceph2swift/internal/metrics"
	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// FolderOptions configures folder discovery and preloading.
type FolderOptions struct {
	// Mode selects how existing destination folders are recognized:
	// config.FolderModeSuffix (trailing separator) or
	// config.FolderModeContentType (application/directory tag). The mode
	// also decides the naming of created placeholders.
	Mode string

	// Preload loads the full destination listing in BeforeProcess so no
	// remote existence check is needed per folder per item.
	Preload bool

	// Seed pre-populates the known-folder set with externally supplied
	// folder paths (no trailing separator).
	Seed []string
}

// FolderStructureStage ensures every ancestor prefix of an item's name exists
// in the destination as a folder placeholder before the item itself is
// uploaded. Prefixes are created shortest first so parents always precede
// children, and each created prefix is remembered so later items sharing it
// do not re-create it.
type FolderStructureStage struct {
	dest objstore.ObjectStore
	opts FolderOptions

	// known holds folder paths without trailing separator.
	known       map[string]struct{}
	created     int
	preexisting int
}

// NewFolderStructureStage creates the folder creation stage.
func NewFolderStructureStage(dest objstore.ObjectStore, opts FolderOptions) *FolderStructureStage {
	return &FolderStructureStage{dest: dest, opts: opts}
}

func (s *FolderStructureStage) Name() string { return "folder structure" }

// BeforeProcess builds the known-folder set: the external seed, plus the
// destination listing when preloading is enabled. A listing failure is fatal
// for the run.
func (s *FolderStructureStage) BeforeProcess(ctx context.Context) error {
	s.known = make(map[string]struct{}, len(s.opts.Seed))
	s.created = 0

	for _, path := range s.opts.Seed {
		s.known[strings.TrimSuffix(path, "/")] = struct{}{}
	}

	if s.opts.Preload {
		refs, err := s.dest.List(ctx)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if name, ok := s.folderName(ref); ok {
				s.known[name] = struct{}{}
			}
		}
	}

	s.preexisting = len(s.known)
	if s.opts.Preload {
		log.Info().Int("folders", s.preexisting).Msg("Preloaded destination folders")
	}
	return nil
}

// folderName extracts the folder path a destination listing entry denotes,
// according to the discovery mode.
func (s *FolderStructureStage) folderName(ref objstore.ObjectRef) (string, bool) {
	switch s.opts.Mode {
	case config.FolderModeSuffix:
		if ref.IsPlaceholder() {
			return strings.TrimSuffix(ref.Name, "/"), true
		}
	default:
		if ref.ContentType == objstore.DirectoryContentType {
			return strings.TrimSuffix(ref.Name, "/"), true
		}
	}
	return "", false
}

// placeholderName is the object name used when creating a folder placeholder
// for path.
func (s *FolderStructureStage) placeholderName(path string) string {
	if s.opts.Mode == config.FolderModeSuffix {
		return path + "/"
	}
	return path
}

func (s *FolderStructureStage) Process(ctx context.Context, item objstore.ObjectRef) (objstore.ObjectRef, error) {
	for path := range ancestorPrefixes(item.Name) {
		if _, ok := s.known[path]; ok {
			continue
		}
		if err := s.dest.PutPlaceholder(ctx, s.placeholderName(path), nil); err != nil {
			return objstore.ObjectRef{}, err
		}
		s.known[path] = struct{}{}
		s.created++
		metrics.FoldersCreated.Inc()
		log.Info().Str("folder", path).Msg("Folder created")
	}
	return item, nil
}

func (s *FolderStructureStage) AfterProcess() {
	log.Info().
		Int("created", s.created).
		Int("preexisting", s.preexisting).
		Msg("Folder structure complete")
}

// Created returns the number of placeholders created during the run.
func (s *FolderStructureStage) Created() int { return s.created }

// ancestorPrefixes yields the cumulative parent paths of name, shortest
// first, without trailing separators: "a/b/c.txt" yields "a" then "a/b".
// The leaf segment is never yielded.
func ancestorPrefixes(name string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		segments := strings.Split(name, "/")
		current := ""
		for _, segment := range segments[:len(segments)-1] {
			if segment == "" {
				continue
			}
			if current == "" {
				current = segment
			} else {
				current = current + "/" + segment
			}
			if !yield(current) {
				return
			}
		}
	}
}
