// Package metrics measures rendered images: per-channel histograms and
// quality metrics against the source image.
package metrics

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Metric compares a processed image with its reference.
type Metric interface {
	// Calculate computes the metric value
	Calculate(reference, processed gocv.Mat) (float64, error)

	// GetName and GetDescription label the metric for display.
	GetName() string
	GetDescription() string

	// IsHigherBetter returns true if higher values indicate better quality
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("psnr", NewPSNR())
	e.Register("mse", NewMSE())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names, sorted.
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, reference, processed gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(reference, processed)
}

// CalculateAll calculates all registered metrics; failing metrics are left out.
func (e *Evaluator) CalculateAll(reference, processed gocv.Mat) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(reference, processed); err == nil {
			results[name] = value
		}
	}
	return results
}

// Result is one computed metric with its display details.
type Result struct {
	Key            string
	Name           string
	Description    string
	Value          float64
	HigherIsBetter bool
}

// Results labels values computed by this evaluator, ordered by metric key.
// Unknown keys are skipped.
func (e *Evaluator) Results(values map[string]float64) []Result {
	results := make([]Result, 0, len(values))
	for _, key := range e.Names() {
		value, ok := values[key]
		if !ok {
			continue
		}
		metric := e.metrics[key]
		results = append(results, Result{
			Key:            key,
			Name:           metric.GetName(),
			Description:    metric.GetDescription(),
			Value:          value,
			HigherIsBetter: metric.IsHigherBetter(),
		})
	}
	return results
}

// Compare converts both images and calculates every metric. Images of
// different sizes cannot be compared.
func (e *Evaluator) Compare(reference, processed image.Image) (map[string]float64, error) {
	if reference == nil || processed == nil {
		return nil, ErrEmptyImage
	}
	if reference.Bounds().Size() != processed.Bounds().Size() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrSizeMismatch,
			reference.Bounds().Size(), processed.Bounds().Size())
	}

	ref, err := gocv.ImageToMatRGB(reference)
	if err != nil {
		return nil, fmt.Errorf("convert reference: %w", err)
	}
	defer ref.Close()

	proc, err := gocv.ImageToMatRGB(processed)
	if err != nil {
		return nil, fmt.Errorf("convert processed: %w", err)
	}
	defer proc.Close()

	return e.CalculateAll(ref, proc), nil
}
