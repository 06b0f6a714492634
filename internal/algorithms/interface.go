// Filter registry: schemas and one-shot filter operations
package algorithms

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gocv.io/x/gocv"
)

// ImageKey is the primary image input. It is never stored on a step; the
// renderer binds it to the previous stage's output.
const ImageKey = "image"

var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrInstantiation = errors.New("cannot instantiate filter")
)

// Input describes one declared input of a filter.
type Input struct {
	Key         string
	Kind        Kind
	Min         float64
	Max         float64
	Bounded     bool
	Default     Value
	Description string
}

// Args are the bound inputs handed to an ApplyFunc.
type Args map[string]Value

func (a Args) Scalar(key string) float64   { return a[key].Float() }
func (a Args) Vector(key string) []float64 { return a[key].Floats() }
func (a Args) Text(key string) string      { return a[key].Text() }

// ApplyFunc runs a filter on input. The caller owns the returned Mat.
type ApplyFunc func(input gocv.Mat, args Args) (gocv.Mat, error)

// Definition registers a filter: its declared inputs and how to run it.
type Definition struct {
	Name        string
	Category    string
	Description string
	Inputs      []Input
	Apply       ApplyFunc
}

// Schema is the read-only view of a filter's declared inputs.
type Schema struct {
	name        string
	category    string
	description string
	inputs      []Input
}

func (s Schema) Name() string        { return s.name }
func (s Schema) Category() string    { return s.category }
func (s Schema) Description() string { return s.description }

// Inputs returns the declared inputs in order.
func (s Schema) Inputs() []Input {
	out := make([]Input, len(s.inputs))
	copy(out, s.inputs)
	return out
}

// Keys returns the declared input keys in order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s.inputs))
	for i, in := range s.inputs {
		keys[i] = in.Key
	}
	return keys
}

func (s Schema) Input(key string) (Input, bool) {
	for _, in := range s.inputs {
		if in.Key == key {
			return in, true
		}
	}
	return Input{}, false
}

func (s Schema) HasKey(key string) bool {
	_, ok := s.Input(key)
	return ok
}

// Operation is a filter bound to its inputs, not yet evaluated.
type Operation struct {
	name  string
	apply ApplyFunc
	input gocv.Mat
	args  Args
}

func (op *Operation) Name() string { return op.name }

// Evaluate runs the filter. The caller owns the returned Mat; the bound
// input Mat is left untouched.
func (op *Operation) Evaluate() (gocv.Mat, error) {
	if op.input.Empty() {
		return gocv.NewMat(), fmt.Errorf("%s: input image is empty", op.name)
	}
	return op.apply(op.input, op.args)
}

// Registry maps filter names to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns a registry holding the built-in filters.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, def := range builtins() {
		if err := r.Register(def); err != nil {
			panic(fmt.Sprintf("algorithms: invalid built-in %s: %v", def.Name, err))
		}
	}
	return r
}

// Register adds or replaces a filter definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("filter name is empty")
	}
	if def.Apply == nil {
		return fmt.Errorf("filter %s has no apply function", def.Name)
	}

	seen := make(map[string]bool, len(def.Inputs))
	for _, in := range def.Inputs {
		if in.Key == "" {
			return fmt.Errorf("filter %s declares an empty input key", def.Name)
		}
		if seen[in.Key] {
			return fmt.Errorf("filter %s declares input %q twice", def.Name, in.Key)
		}
		seen[in.Key] = true

		if in.Kind == KindInvalid {
			return fmt.Errorf("filter %s input %q has no kind", def.Name, in.Key)
		}
		if in.Key == ImageKey && in.Kind != KindImage {
			return fmt.Errorf("filter %s input %q must be an image", def.Name, in.Key)
		}
		if !in.Default.IsZero() && in.Default.Kind() != in.Kind {
			return fmt.Errorf("filter %s input %q default is %s, want %s",
				def.Name, in.Key, in.Default.Kind(), in.Kind)
		}
	}

	inputs := make([]Input, len(def.Inputs))
	copy(inputs, def.Inputs)
	def.Inputs = inputs

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	return nil
}

func (r *Registry) lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// SchemaFor returns the declared inputs of a filter.
func (r *Registry) SchemaFor(name string) (Schema, error) {
	def, ok := r.lookup(name)
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	return Schema{
		name:        def.Name,
		category:    def.Category,
		description: def.Description,
		inputs:      def.Inputs,
	}, nil
}

// Names returns every registered filter name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories groups filter names by category, each list sorted.
func (r *Registry) Categories() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string)
	for name, def := range r.defs {
		out[def.Category] = append(out[def.Category], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

// Instantiate binds values and imageInput to a fresh operation. Keys missing
// from values fall back to the schema default; a key with neither is an
// error, as is a value whose kind differs from the declared one.
func (r *Registry) Instantiate(name string, values map[string]Value, imageInput gocv.Mat) (*Operation, error) {
	def, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}

	declared := make(map[string]Input, len(def.Inputs))
	for _, in := range def.Inputs {
		declared[in.Key] = in
	}

	args := make(Args, len(def.Inputs))
	for key, value := range values {
		if key == ImageKey {
			continue
		}
		in, ok := declared[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no input %q", ErrInstantiation, name, key)
		}
		if value.Kind() != in.Kind {
			return nil, fmt.Errorf("%w: %s.%s is %s, want %s",
				ErrInstantiation, name, key, value.Kind(), in.Kind)
		}
		args[key] = value
	}

	for _, in := range def.Inputs {
		if in.Key == ImageKey {
			continue
		}
		if _, bound := args[in.Key]; bound {
			continue
		}
		if in.Default.IsZero() {
			return nil, fmt.Errorf("%w: %s.%s is unbound", ErrInstantiation, name, in.Key)
		}
		args[in.Key] = in.Default
	}

	return &Operation{
		name:  name,
		apply: def.Apply,
		input: imageInput,
		args:  args,
	}, nil
}
