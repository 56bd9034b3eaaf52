package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Options tunes a GameEngine. The zero value is usable; DefaultOptions
// enables the invariant checker.
type Options struct {
	// Rand drives the shuffle. Nil uses the runtime's global generator.
	Rand *rand.Rand

	// Clock returns the current time for elapsed-time tracking
	Clock func() time.Time

	// MaxUndo bounds the undo history
	MaxUndo int

	// CheckInvariants validates the board after every mutation and rolls
	// back any mutation that corrupts it
	CheckInvariants bool
}

// DefaultOptions returns the standard engine options
func DefaultOptions() Options {
	return Options{
		Clock:           time.Now,
		MaxUndo:         DefaultMaxUndo,
		CheckInvariants: true,
	}
}

// ValidateOptions checks the options for correctness
func ValidateOptions(opts Options) error {
	if opts.MaxUndo < 0 {
		return fmt.Errorf("options validation: max_undo must be >= 0, got %d", opts.MaxUndo)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.MaxUndo == 0 {
		o.MaxUndo = DefaultMaxUndo
	}
	return o
}
