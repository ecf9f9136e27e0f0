package stack

import (
	"github.com/rs/zerolog"

	"github.com/23skdu/elimstack/internal/numa"
)

// Option customizes New beyond what Config covers.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	topology *numa.Topology
}

// WithLogger sets the logger for setup, placement and combiner events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTopology replaces topology detection, e.g. to simulate several
// nodes on a single-node machine. Pinning uses the given CPU lists.
func WithTopology(topo *numa.Topology) Option {
	return func(o *options) { o.topology = topo }
}
