// Package scenario replays scripted put/get sequences against a cache and
// checks the observed results.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"

	"gitlab.com/slon/memcached/lrucache"
)

// ErrUnknownOp and ErrMismatch are wrapped by Run failures.
var (
	ErrUnknownOp = errors.New("scenario: unknown op")
	ErrMismatch  = errors.New("scenario: mismatch")
)

// Supported step operations.
const (
	OpPut = "put"
	OpGet = "get"
)

// Scenario is a named sequence of steps run against a cache of Capacity.
type Scenario struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Steps    []Step `yaml:"steps"`
}

// Step is one operation followed by optional checks. Checks that are not
// set are skipped.
type Step struct {
	Op    string `yaml:"op"`
	Key   string `yaml:"key"`
	Value string `yaml:"value,omitempty"`

	// Expect is the value a get must return; Miss requires a get to miss.
	Expect *string `yaml:"expect,omitempty"`
	Miss   bool    `yaml:"miss,omitempty"`

	// Evicts names the key a put must evict; an empty string requires
	// that nothing is evicted.
	Evicts *string `yaml:"evicts,omitempty"`

	// Keys is the exact MRU to LRU order after the step, Live the same keys
	// in any order.
	Keys []string `yaml:"keys,omitempty"`
	Live []string `yaml:"live,omitempty"`
	Size *int     `yaml:"size,omitempty"`
}

// Report describes the cache after the last executed step.
type Report struct {
	Steps int
	Keys  []string
	Stats lrucache.Stats
}

// Load parses a YAML scenario.
func Load(r io.Reader) (*Scenario, error) {
	var s Scenario
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario: failed to parse YAML: %w", err)
	}
	return &s, nil
}

// LoadFile parses the scenario at path, naming it after the file if unnamed.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Run executes s against a fresh cache and stops at the first failed check.
func Run(s *Scenario, logger *zap.Logger) (Report, error) {
	c, err := lrucache.New[string, string](s.Capacity, lrucache.WithLogger(logger))
	if err != nil {
		return Report{}, err
	}

	for i, step := range s.Steps {
		if err := runStep(c, step); err != nil {
			return Report{Steps: i, Keys: c.Keys(), Stats: c.Stats()}, fmt.Errorf("step %d (%s %q): %w", i+1, step.Op, step.Key, err)
		}
		logger.Debug("step done",
			zap.Int("step", i+1),
			zap.String("op", step.Op),
			zap.String("key", step.Key),
			zap.Strings("keys", c.Keys()))
	}

	return Report{Steps: len(s.Steps), Keys: c.Keys(), Stats: c.Stats()}, nil
}

func runStep(c *lrucache.Cache[string, string], step Step) error {
	switch step.Op {
	case OpPut:
		evictedKey, _, evicted := c.Put(step.Key, step.Value)
		if step.Evicts != nil {
			if *step.Evicts == "" && evicted {
				return fmt.Errorf("%w: unexpected eviction of %q", ErrMismatch, evictedKey)
			}
			if *step.Evicts != "" && (!evicted || evictedKey != *step.Evicts) {
				return fmt.Errorf("%w: expected eviction of %q", ErrMismatch, *step.Evicts)
			}
		}

	case OpGet:
		value, ok := c.Get(step.Key)
		if step.Miss && ok {
			return fmt.Errorf("%w: expected miss, got %q", ErrMismatch, value)
		}
		if step.Expect != nil {
			if !ok {
				return fmt.Errorf("%w: expected %q, got miss", ErrMismatch, *step.Expect)
			}
			if value != *step.Expect {
				return fmt.Errorf("%w: expected %q, got %q", ErrMismatch, *step.Expect, value)
			}
		}

	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, step.Op)
	}

	return checkState(c, step)
}

func checkState(c *lrucache.Cache[string, string], step Step) error {
	keys := c.Keys()

	if step.Size != nil && c.Len() != *step.Size {
		return fmt.Errorf("%w: expected size %d, got %d", ErrMismatch, *step.Size, c.Len())
	}
	if step.Keys != nil && !slices.Equal(step.Keys, keys) {
		return fmt.Errorf("%w: expected keys %v, got %v", ErrMismatch, step.Keys, keys)
	}
	if step.Live != nil {
		if len(step.Live) != len(keys) {
			return fmt.Errorf("%w: expected live keys %v, got %v", ErrMismatch, step.Live, keys)
		}
		for _, k := range step.Live {
			if !slices.Contains(keys, k) {
				return fmt.Errorf("%w: expected live keys %v, got %v", ErrMismatch, step.Live, keys)
			}
		}
	}
	return nil
}
