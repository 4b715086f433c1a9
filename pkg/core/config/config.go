// Package config holds the immutable configuration of schedule construction.
//
// A Config is passed explicitly to the selector and the composer: strategy selection is a
// function of the operation descriptor and the Config only, there is no global state.
//
// Configurations can be given as an option string, in the same format used by backends
// ("hmem,workers=2,allreduce=ring"), as a YAML file, or taken from the COLLECTIVES_CONFIG
// environment variable.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// EnvVar is the environment variable with the option string used by FromEnv.
const EnvVar = "COLLECTIVES_CONFIG"

// Config of the schedule construction.
type Config struct {
	// UseHMEM requests direct transfers between device memory and the network transport.
	// It only takes effect if the transport also supports it.
	UseHMEM bool `yaml:"hmem"`

	// ScaleOutWorkers > 0 enables multi-worker scale-out: the network leg of a collective is
	// packaged as a sub-schedule and run concurrently by a worker.
	ScaleOutWorkers int `yaml:"workers"`

	// EnableBarrierPool enables cross-rank barriers backed by an IPC event pool, when one is
	// available. Otherwise barriers are built as barrier collectives.
	EnableBarrierPool bool `yaml:"barrier_pool"`

	// SingleList is the default execution mode of new schedules: all entries in one dependency
	// chain, with explicit event hand-off.
	SingleList bool `yaml:"single_list"`

	// Algorithms is the default algorithm per collective type, by name. Caller hints take
	// precedence.
	Algorithms map[string]string `yaml:"algorithms"`

	// MaxParallelism of the executor worker pool. 0 runs everything inline, -1 is unlimited.
	MaxParallelism int `yaml:"parallelism"`
}

// Default returns the default configuration: multi-list schedules, no HMEM, inline scale-out
// and barriers over the event pool when available.
func Default() Config {
	return Config{
		EnableBarrierPool: true,
		MaxParallelism:    -1,
	}
}

// IsMultiWorker returns whether multi-worker scale-out is enabled.
func (c Config) IsMultiWorker() bool {
	return c.ScaleOutWorkers > 0
}

// AlgorithmFor returns the configured default algorithm name for ctype, or "".
func (c Config) AlgorithmFor(ctype coll.CollectiveType) string {
	if c.Algorithms == nil {
		return ""
	}
	return c.Algorithms[ctype.String()]
}

// WithAlgorithm returns a copy of the configuration using algo by default for ctype.
func (c Config) WithAlgorithm(ctype coll.CollectiveType, algo string) Config {
	algorithms := make(map[string]string, len(c.Algorithms)+1)
	for k, v := range c.Algorithms {
		algorithms[k] = v
	}
	algorithms[ctype.String()] = algo
	c.Algorithms = algorithms
	return c
}

// Parse an option string on top of Default.
//
// Options are separated by commas:
//
//   - "hmem", "barrier_pool", "single_list": boolean flags, they can be negated with a "no_"
//     prefix (e.g. "no_barrier_pool").
//   - "workers=<n>": number of scale-out workers.
//   - "parallelism=<n>": executor parallelism.
//   - "<collective>=<algorithm>": default algorithm for the collective, e.g. "allreduce=ring".
func Parse(options string) (Config, error) {
	c := Default()
	for _, part := range strings.Split(options, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !hasValue {
			enabled := true
			if name, found := strings.CutPrefix(key, "no_"); found {
				key, enabled = name, false
			}
			switch key {
			case "hmem":
				c.UseHMEM = enabled
			case "barrier_pool":
				c.EnableBarrierPool = enabled
			case "single_list":
				c.SingleList = enabled
			default:
				return Config{}, errors.Errorf("unknown collectives configuration option %q in %q", part, options)
			}
			continue
		}
		switch key {
		case "workers", "parallelism":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, errors.Wrapf(err, "invalid value for option %q in %q", key, options)
			}
			if key == "workers" {
				c.ScaleOutWorkers = n
			} else {
				c.MaxParallelism = n
			}
		default:
			ctype, err := coll.CollectiveTypeString(key)
			if err != nil || ctype == coll.CollInvalid {
				return Config{}, errors.Errorf("unknown collectives configuration option %q in %q", part, options)
			}
			c = c.WithAlgorithm(ctype, value)
		}
	}
	return c, nil
}

// Load the configuration from a YAML file. Fields not present in the file take their
// Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading collectives configuration %q", path)
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "parsing collectives configuration %q", path)
	}
	for name := range c.Algorithms {
		if ctype, err := coll.CollectiveTypeString(name); err != nil || ctype == coll.CollInvalid {
			return Config{}, errors.Errorf("unknown collective %q in the algorithms of %q", name, path)
		}
	}
	return c, nil
}

// FromEnv returns the configuration given by the COLLECTIVES_CONFIG environment variable, or
// Default if it is not set.
func FromEnv() (Config, error) {
	options, found := os.LookupEnv(EnvVar)
	if !found {
		return Default(), nil
	}
	klog.V(1).Infof("collectives configuration from $%s=%q", EnvVar, options)
	c, err := Parse(options)
	if err != nil {
		return Config{}, errors.WithMessagef(err, "invalid $%s", EnvVar)
	}
	return c, nil
}
