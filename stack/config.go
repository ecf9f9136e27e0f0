package stack

import (
	"errors"

	"github.com/kelseyhightower/envconfig"

	"github.com/23skdu/elimstack/internal/elimination"
)

// MaxThreads bounds the worker count.
const MaxThreads = 1024

// Config validation errors
var (
	ErrInvalidVariant      = errors.New("variant must be one of delegation, elimination, elimination-rendezvous, hybrid, hybrid-rendezvous")
	ErrInvalidThreads      = errors.New("threads must be between 1 and 1024")
	ErrInvalidNodes        = errors.New("nodes cannot be negative")
	ErrInvalidCoresPerNode = errors.New("cores_per_node cannot be negative")
	ErrInvalidCombinerNode = errors.New("combiner_node cannot be negative")
	ErrInvalidTuning       = errors.New("exchange tuning values cannot be negative")
)

// Config describes a Stack. Zero-valued sizing and tuning fields take
// values derived from the topology and the variant.
type Config struct {
	Variant string `envconfig:"VARIANT"`
	// Threads is the number of workers, each with its own id.
	Threads int `envconfig:"THREADS"`

	// Nodes limits how many NUMA nodes are used; 0 uses all of them.
	Nodes int `envconfig:"NODES"`
	// CoresPerNode is the size of the tid block mapped to one node.
	CoresPerNode int `envconfig:"CORES_PER_NODE"`
	// CombinerNode is the node the combiner runs on.
	CombinerNode int `envconfig:"COMBINER_NODE"`

	Pin        bool `envconfig:"PIN"`
	BindMemory bool `envconfig:"BIND_MEMORY"`

	ExchangeSpins     int `envconfig:"EXCHANGE_SPINS"`
	WaitingCount      int `envconfig:"WAITING_COUNT"`
	TryingCount       int `envconfig:"TRYING_COUNT"`
	IncreaseThreshold int `envconfig:"INCREASE_THRESHOLD"`
	DecreaseThreshold int `envconfig:"DECREASE_THRESHOLD"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Variant:    string(Elimination),
		Threads:    8,
		Pin:        true,
		BindMemory: true,
	}
}

// LoadConfig reads overrides of DefaultConfig from the environment, e.g.
// ELIMSTACK_THREADS for prefix "ELIMSTACK", and validates the result.
func LoadConfig(prefix string) (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate validates the configuration and returns an error if invalid
func (c Config) Validate() error {
	if _, err := ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.Threads < 1 || c.Threads > MaxThreads {
		return ErrInvalidThreads
	}
	if c.Nodes < 0 {
		return ErrInvalidNodes
	}
	if c.CoresPerNode < 0 {
		return ErrInvalidCoresPerNode
	}
	if c.CombinerNode < 0 {
		return ErrInvalidCombinerNode
	}
	if c.ExchangeSpins < 0 || c.WaitingCount < 0 || c.TryingCount < 0 ||
		c.IncreaseThreshold < 0 || c.DecreaseThreshold < 0 {
		return ErrInvalidTuning
	}
	return nil
}

// tuning overlays the non-zero tuning fields on the variant's defaults.
func (c Config) tuning(v Variant) elimination.Tuning {
	t := v.tuning()
	if c.ExchangeSpins > 0 {
		t.ExchangeSpins = c.ExchangeSpins
	}
	if c.WaitingCount > 0 {
		t.WaitingCount = c.WaitingCount
	}
	if c.TryingCount > 0 {
		t.TryingCount = c.TryingCount
	}
	if c.IncreaseThreshold > 0 {
		t.IncreaseThreshold = c.IncreaseThreshold
	}
	if c.DecreaseThreshold > 0 {
		t.DecreaseThreshold = c.DecreaseThreshold
	}
	return t
}
