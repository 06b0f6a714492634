// Render engine: replays a filter chain over the source image
package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"image-filter-chain/internal/algorithms"
	"image-filter-chain/internal/chain"
)

// PreviewSize is the edge of the square frame degenerate and undersized
// outputs are normalized to.
const PreviewSize = 640

var ErrStageEvaluation = errors.New("stage evaluation failed")

// PostProcess is the normalization applied to the last stage's output.
type PostProcess int

const (
	// PostDirect rasterizes the output at its own extent.
	PostDirect PostProcess = iota
	// PostStretch stretches a one pixel wide or high output to the preview frame.
	PostStretch
	// PostComposite places an undersized output over an opaque black frame.
	PostComposite
)

func (p PostProcess) String() string {
	switch p {
	case PostStretch:
		return "stretch"
	case PostComposite:
		return "composite"
	default:
		return "direct"
	}
}

// Classify picks the post-processing for an output extent.
func Classify(width, height int) PostProcess {
	switch {
	case width == 1 || height == 1:
		return PostStretch
	case width < PreviewSize || height < PreviewSize:
		return PostComposite
	default:
		return PostDirect
	}
}

// FilterRuntime builds one-shot filter operations by name.
type FilterRuntime interface {
	Instantiate(name string, values map[string]algorithms.Value, imageInput gocv.Mat) (*algorithms.Operation, error)
}

// Engine renders chains. Calls are serialized: a render requested while
// another is running blocks until it finishes.
type Engine struct {
	mu      sync.Mutex
	busy    atomic.Bool
	runtime FilterRuntime
	logger  *logrus.Logger
}

func NewEngine(runtime FilterRuntime, logger *logrus.Logger) *Engine {
	return &Engine{
		runtime: runtime,
		logger:  logger,
	}
}

// Busy reports whether a render is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Render applies steps in order to source and returns the normalized
// result. A nil source renders nothing and returns (nil, nil); an empty
// chain returns source unchanged.
func (e *Engine) Render(ctx context.Context, source image.Image, steps []chain.Step) (image.Image, error) {
	if source == nil {
		e.logger.Debug("RENDER: No source image, nothing to render")
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.busy.Store(true)
	defer e.busy.Store(false)

	if len(steps) == 0 {
		e.logger.Debug("RENDER: Empty chain, showing source image")
		return source, nil
	}

	start := time.Now()
	e.logger.WithFields(logrus.Fields{
		"steps":       len(steps),
		"source_size": source.Bounds().Size().String(),
	}).Info("RENDER: Starting render")

	stage, err := gocv.ImageToMatRGB(source)
	if err != nil {
		return nil, fmt.Errorf("convert source image: %w", err)
	}
	defer func() { stage.Close() }()

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			e.logger.WithField("step", i).Debug("RENDER: Render cancelled")
			return nil, err
		}

		result, err := e.evaluate(i, step, stage)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"step":    i,
				"step_id": step.ID,
				"filter":  step.Name,
				"error":   err,
			}).Error("RENDER: Stage failed")
			return nil, err
		}

		stage.Close()
		stage = result

		e.logger.WithFields(logrus.Fields{
			"step":   i,
			"filter": step.Name,
			"extent": fmt.Sprintf("%dx%d", stage.Cols(), stage.Rows()),
		}).Debug("RENDER: Stage completed")
	}

	mode := Classify(stage.Cols(), stage.Rows())
	output, err := postProcess(stage, mode)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"post_process": mode.String(),
		"output_size":  output.Bounds().Size().String(),
		"duration":     time.Since(start),
	}).Info("RENDER: Render completed")

	return output, nil
}

// evaluate builds a fresh operation for step bound to stage and runs it.
// On error it returns the zero Mat, which owns nothing.
func (e *Engine) evaluate(index int, step chain.Step, stage gocv.Mat) (gocv.Mat, error) {
	op, err := e.runtime.Instantiate(step.Name, step.Values, stage)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("stage %d (%s): %w", index, step.Name, err)
	}

	result, err := op.Evaluate()
	if err != nil {
		result.Close()
		return gocv.Mat{}, fmt.Errorf("%w: stage %d (%s): %w", ErrStageEvaluation, index, step.Name, err)
	}
	if result.Empty() {
		result.Close()
		return gocv.Mat{}, fmt.Errorf("%w: stage %d (%s) produced no image", ErrStageEvaluation, index, step.Name)
	}
	return result, nil
}

func postProcess(stage gocv.Mat, mode PostProcess) (image.Image, error) {
	preview := image.Rect(0, 0, PreviewSize, PreviewSize)

	switch mode {
	case PostStretch:
		stretched := gocv.NewMat()
		defer stretched.Close()
		if err := gocv.Resize(stage, &stretched, preview.Size(), 0, 0, gocv.InterpolationLinear); err != nil {
			return nil, fmt.Errorf("stretch to %dx%d: %w", PreviewSize, PreviewSize, err)
		}
		return rasterize(stretched, preview)

	case PostComposite:
		canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 255),
			PreviewSize, PreviewSize, stage.Type())
		defer canvas.Close()

		overlap := image.Rect(0, 0, min(stage.Cols(), PreviewSize), min(stage.Rows(), PreviewSize))
		src := stage.Region(overlap)
		defer src.Close()
		dst := canvas.Region(overlap)
		defer dst.Close()
		if err := src.CopyTo(&dst); err != nil {
			return nil, fmt.Errorf("composite onto canvas: %w", err)
		}

		return rasterize(canvas, preview)

	default:
		return rasterize(stage, image.Rect(0, 0, stage.Cols(), stage.Rows()))
	}
}

// rasterize converts region of m into a Go image.
func rasterize(m gocv.Mat, region image.Rectangle) (image.Image, error) {
	roi := m.Region(region)
	defer roi.Close()

	// ToImage reads the backing buffer linearly, so the region must be
	// copied into a continuous Mat first.
	continuous := roi.Clone()
	defer continuous.Close()

	return continuous.ToImage()
}
