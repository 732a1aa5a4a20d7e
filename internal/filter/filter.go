// Package filter implements the PCM transform chain applied on each output
// thread: ReplayGain, sample conversion, resampling, channel remap, and
// software volume (spec §4.4's "Output Source" chain builder).
package filter

import (
	"context"
	"log/slog"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/logging"
)

// Filter transforms a block of interleaved PCM samples from its configured
// input format to its configured output format. Filters are stateful
// (a resampler carries fractional phase, ReplayGain carries its scalar)
// but are driven single-threaded by the owning output thread.
type Filter interface {
	// ID identifies the filter instance within its chain, for logging.
	ID() string

	// Configure fixes the filter's input and output formats. Called once
	// per Output Source build, before the first Process.
	Configure(in, out audioformat.AudioFormat) error

	// Process transforms data (a whole number of frames in the configured
	// input format) and returns data in the configured output format.
	// The returned slice may alias data's backing array.
	Process(ctx context.Context, data []byte) ([]byte, error)

	// Flush returns any residual output the filter is holding and resets
	// internal state. Every filter in this package returns nil; the
	// resampler discards the trailing frame it holds. Called on DRAIN.
	Flush() []byte
}

// Chain is an ordered stack of filters applied in sequence.
type Chain struct {
	filters []Filter
	logger  *slog.Logger
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	logger := logging.ForService("filter")
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{logger: logger.With("component", "filter_chain")}
}

// Append adds a filter to the tail of the chain.
func (c *Chain) Append(f Filter) {
	c.filters = append(c.filters, f)
}

// Filters returns the chain's filters in application order.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// Process runs data through every filter in order.
func (c *Chain) Process(ctx context.Context, data []byte) ([]byte, error) {
	current := data
	for _, f := range c.filters {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		next, err := f.Process(ctx, current)
		if err != nil {
			return nil, errors.New(err).
				Component("filter").
				Category(errors.CategoryFilter).
				Context("filter_id", f.ID()).
				Build()
		}
		current = next
	}
	return current, nil
}

// Flush drains every filter's residue in order, concatenating the result.
func (c *Chain) Flush() []byte {
	var out []byte
	for _, f := range c.filters {
		if residue := f.Flush(); len(residue) > 0 {
			out = append(out, residue...)
		}
	}
	return out
}
