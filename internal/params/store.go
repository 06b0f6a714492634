// Package params holds the user-chosen input values of the filter being edited.
package params

import (
	"image"
	"sync"

	"image-filter-chain/internal/algorithms"
)

// Store keeps one value per input key of the active schema.
type Store struct {
	mu           sync.RWMutex
	schema       algorithms.Schema
	active       bool
	values       map[string]algorithms.Value
	defaultImage image.Image
}

func NewStore() *Store {
	return &Store{values: make(map[string]algorithms.Value)}
}

// SetDefaultImage sets the image seeded into image-kind keys on Reset.
func (s *Store) SetDefaultImage(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultImage = img
}

// Reset drops every stored value and seeds the defaults of schema. Image-kind
// keys get the default image because schemas declare no default for them.
func (s *Store) Reset(schema algorithms.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schema = schema
	s.active = true
	s.values = make(map[string]algorithms.Value)

	for _, in := range schema.Inputs() {
		if in.Kind == algorithms.KindImage {
			if s.defaultImage != nil {
				s.values[in.Key] = algorithms.ImageValue(s.defaultImage)
			}
			continue
		}
		if !in.Default.IsZero() {
			s.values[in.Key] = in.Default.Clone()
		}
	}
}

// Overlay copies bound values for keys the active schema declares with the
// same kind. Used when editing continues on an existing step.
func (s *Store) Overlay(values map[string]algorithms.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range values {
		if key == algorithms.ImageKey {
			continue
		}
		in, ok := s.schema.Input(key)
		if !ok || in.Kind != value.Kind() {
			continue
		}
		s.values[key] = value.Clone()
	}
}

// Set stores value under key. It reports false, storing nothing, when key
// is neither the primary image key nor declared by the active schema.
func (s *Store) Set(key string, value algorithms.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key != algorithms.ImageKey && !s.schema.HasKey(key) {
		return false
	}
	s.values[key] = value.Clone()
	return true
}

func (s *Store) Get(key string) (algorithms.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Schema returns the active schema; ok is false before the first Reset.
func (s *Store) Schema() (algorithms.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema, s.active
}

// Values returns a copy of every stored value.
func (s *Store) Values() map[string]algorithms.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyValues("")
}

// ValuesExcludingImageKey returns a copy of every stored value except the
// primary image input, ready to bind onto a chain step.
func (s *Store) ValuesExcludingImageKey() map[string]algorithms.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyValues(algorithms.ImageKey)
}

func (s *Store) copyValues(skip string) map[string]algorithms.Value {
	out := make(map[string]algorithms.Value, len(s.values))
	for key, value := range s.values {
		if key == skip {
			continue
		}
		out[key] = value.Clone()
	}
	return out
}
