// Package chain keeps the ordered filter steps applied to the source image.
package chain

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"image-filter-chain/internal/algorithms"
)

// Step is one filter application. Values never hold the primary image key;
// the renderer injects it.
type Step struct {
	ID     string
	Name   string
	Values map[string]algorithms.Value
}

// NewStep builds a step owning a copy of values.
func NewStep(name string, values map[string]algorithms.Value) Step {
	return Step{
		ID:     uuid.NewString(),
		Name:   name,
		Values: copyValues(values),
	}
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	return Step{ID: s.ID, Name: s.Name, Values: copyValues(s.Values)}
}

// Describe renders the step as name(key: value, ...) with keys sorted.
func (s Step) Describe() string {
	keys := make([]string, 0, len(s.Values))
	for key := range s.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s: %s", key, s.Values[key])
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(parts, ", "))
}

func copyValues(values map[string]algorithms.Value) map[string]algorithms.Value {
	out := make(map[string]algorithms.Value, len(values))
	for key, value := range values {
		if key == algorithms.ImageKey {
			continue
		}
		out[key] = value.Clone()
	}
	return out
}

// Chain is the edit history: insertion order is application order and the
// last step is the first undone.
type Chain struct {
	mu    sync.RWMutex
	steps []Step
}

func New() *Chain {
	return &Chain{steps: make([]Step, 0)}
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.steps)
}

// Last returns a copy of the most recent step.
func (c *Chain) Last() (Step, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.steps) == 0 {
		return Step{}, false
	}
	return c.steps[len(c.steps)-1].Clone(), true
}

// Select continues the last step when it runs the named filter; otherwise
// it appends a new step with values. It reports whether a step was appended.
func (c *Chain) Select(name string, values map[string]algorithms.Value) (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.steps); n > 0 && c.steps[n-1].Name == name {
		return c.steps[n-1].Clone(), false
	}

	step := NewStep(name, values)
	c.steps = append(c.steps, step)
	return step.Clone(), true
}

func (c *Chain) Append(step Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, step.Clone())
}

// ReplaceLastValues rebinds the parameters of the last step. It reports
// false on an empty chain.
func (c *Chain) ReplaceLastValues(values map[string]algorithms.Value) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.steps) == 0 {
		return false
	}
	c.steps[len(c.steps)-1].Values = copyValues(values)
	return true
}

// RemoveLast drops the most recent step. It reports false on an empty chain.
func (c *Chain) RemoveLast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.steps) == 0 {
		return false
	}
	c.steps[len(c.steps)-1] = Step{}
	c.steps = c.steps[:len(c.steps)-1]
	return true
}

// Steps returns a deep snapshot safe to hand to another goroutine.
func (c *Chain) Steps() []Step {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Step, len(c.steps))
	for i, step := range c.steps {
		out[i] = step.Clone()
	}
	return out
}

// Describe returns one line per step in chain order.
func (c *Chain) Describe() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines := make([]string, len(c.steps))
	for i, step := range c.steps {
		lines[i] = step.Describe()
	}
	return lines
}
