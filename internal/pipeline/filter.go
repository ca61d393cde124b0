package pipeline

import (
	"context"
	"fmt"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// Filter drops items matching a predicate. Filters compose with other stages
// in any order; placement matters, e.g. folder-marker keys are excluded after
// folder structure creation but before upload.
type Filter struct {
	Hooks
	name string
	pred func(objstore.ObjectRef) bool
}

// NewFilter creates a named filter stage. Items for which pred returns true
// are dropped and reported as skipped by this filter.
func NewFilter(name string, pred func(objstore.ObjectRef) bool) *Filter {
	return &Filter{name: name, pred: pred}
}

func (f *Filter) Name() string { return f.name }

func (f *Filter) Process(_ context.Context, item objstore.ObjectRef) (objstore.ObjectRef, error) {
	if f.pred(item) {
		return objstore.ObjectRef{}, &SkipError{Reason: fmt.Sprintf("by %s filter", f.name)}
	}
	return item, nil
}
