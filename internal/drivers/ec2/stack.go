package ec2

import (
	"context"
	"errors"
	"slices"

	"github.com/chainguard-dev/clog"
)

type (
	// stack accumulates the teardown steps of one 'Destroy' call.
	stack struct {
		Destructors []destructor
	}
	destructor struct {
		name string
		fn   func(ctx context.Context) error
	}
)

// Push adds a named destructor, to be run in the reverse order destructors
// were added.
func (s *stack) Push(name string, fn func(ctx context.Context) error) {
	s.Destructors = append(s.Destructors, destructor{name: name, fn: fn})
}

// Destroy calls all accumulated destructors in the reverse order they were
// added, returning all encountered errors joined. A failing destructor does
// not stop the ones after it.
func (s *stack) Destroy(ctx context.Context) error {
	log := clog.FromContext(ctx)
	var errs error
	for _, d := range slices.Backward(s.Destructors) {
		if err := d.fn(ctx); err != nil {
			log.Error("teardown step failed", "step", d.name, "error", err)
			errs = errors.Join(errs, err)
			continue
		}
		log.Debug("teardown step complete", "step", d.name)
	}
	return errs
}
