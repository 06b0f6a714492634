// Package editor reacts to user events on the filter chain and drives renders.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"image-filter-chain/internal/algorithms"
	"image-filter-chain/internal/chain"
	"image-filter-chain/internal/core"
	"image-filter-chain/internal/params"
)

var ErrKindMismatch = errors.New("value kind does not match input")

// Registry resolves filter schemas.
type Registry interface {
	SchemaFor(name string) (algorithms.Schema, error)
	Names() []string
}

// Renderer replays a chain over a source image.
type Renderer interface {
	Render(ctx context.Context, source image.Image, steps []chain.Step) (image.Image, error)
	Busy() bool
}

// Controller owns the parameter store, the chain and the images. It never
// touches UI state; the UI registers callbacks instead.
type Controller struct {
	mu       sync.Mutex
	registry Registry
	engine   Renderer
	store    *params.Store
	chain    *chain.Chain
	images   *core.ImageData
	logger   *logrus.Logger

	current string
	schema  algorithms.Schema
	// editing is the ID of the step that receives the store's values.
	editing string

	onRender func(image.Image)
	onError  func(error)
}

func New(registry Registry, engine Renderer, logger *logrus.Logger) *Controller {
	return &Controller{
		registry: registry,
		engine:   engine,
		store:    params.NewStore(),
		chain:    chain.New(),
		images:   core.NewImageData(),
		logger:   logger,
	}
}

// SetCallbacks registers the receivers of rendered images and render errors.
// Callbacks run on the goroutine that triggered the render.
func (c *Controller) SetCallbacks(onRender func(image.Image), onError func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRender = onRender
	c.onError = onError
}

// SelectFilter makes name the filter being edited. Re-selecting the filter
// of the last step continues editing that step; any other name appends a
// new step seeded with the filter's defaults. Unknown names leave all state
// unchanged.
func (c *Controller) SelectFilter(name string) error {
	schema, err := c.registry.SchemaFor(name)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"filter": name, "error": err}).Warn("EDITOR: Filter selection rejected")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = name
	c.schema = schema
	c.store.Reset(schema)

	step, appended := c.chain.Select(name, c.store.ValuesExcludingImageKey())
	if !appended {
		c.store.Overlay(step.Values)
	}
	c.editing = step.ID

	c.logger.WithFields(logrus.Fields{
		"filter":    name,
		"step_id":   step.ID,
		"appended":  appended,
		"chain_len": c.chain.Len(),
	}).Info("EDITOR: Filter selected")
	return nil
}

// CommitParameterChange stores value for key on the filter being edited and
// re-renders. Writes to the primary image key, or to keys the filter does
// not declare, change nothing.
func (c *Controller) CommitParameterChange(ctx context.Context, key string, value algorithms.Value) error {
	if key == algorithms.ImageKey {
		return nil
	}

	c.mu.Lock()
	if c.current == "" {
		c.mu.Unlock()
		c.logger.WithField("key", key).Debug("EDITOR: Parameter change with no filter selected")
		return nil
	}

	in, ok := c.schema.Input(key)
	if !ok {
		c.mu.Unlock()
		c.logger.WithFields(logrus.Fields{"filter": c.current, "key": key}).Debug("EDITOR: Ignoring undeclared parameter")
		return nil
	}
	if value.Kind() != in.Kind {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s.%s is %s, got %s", ErrKindMismatch, c.current, key, in.Kind, value.Kind())
	}

	last, ok := c.chain.Last()
	if ok && last.Name == c.current && last.ID != c.editing {
		// The edited step was undone; continue the surviving step of the
		// same filter from its own values.
		c.store.Reset(c.schema)
		c.store.Overlay(last.Values)
		c.editing = last.ID
	}

	c.store.Set(key, value)
	if !ok || last.Name != c.current {
		step := chain.NewStep(c.current, c.store.ValuesExcludingImageKey())
		c.chain.Append(step)
		c.editing = step.ID
	}

	c.logger.WithFields(logrus.Fields{
		"filter": c.current,
		"key":    key,
		"value":  value.String(),
	}).Debug("EDITOR: Parameter changed")
	c.mu.Unlock()

	return c.Render(ctx)
}

// Undo removes the most recent step, if any, and always re-renders.
func (c *Controller) Undo(ctx context.Context) error {
	c.mu.Lock()
	removed := c.chain.RemoveLast()
	c.logger.WithFields(logrus.Fields{
		"removed":   removed,
		"chain_len": c.chain.Len(),
	}).Info("EDITOR: Undo")
	c.mu.Unlock()

	return c.Render(ctx)
}

// PickImage replaces the source image. The parameter store is reseeded for
// the filter being edited so image inputs default to the new picture.
func (c *Controller) PickImage(ctx context.Context, img image.Image, format string) error {
	c.mu.Lock()
	if err := c.images.SetSource(img, format); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("set source image: %w", err)
	}

	c.store.SetDefaultImage(img)
	if c.current != "" {
		values := c.store.ValuesExcludingImageKey()
		c.store.Reset(c.schema)
		c.store.Overlay(values)
	}

	empty := c.chain.Len() == 0
	onRender := c.onRender
	c.logger.WithFields(logrus.Fields{
		"size":      img.Bounds().Size().String(),
		"format":    format,
		"chain_len": c.chain.Len(),
	}).Info("EDITOR: Source image replaced")
	c.mu.Unlock()

	if empty {
		if onRender != nil {
			onRender(img)
		}
		return nil
	}
	return c.Render(ctx)
}

// PickCancelled records a dismissed picker; no state changes.
func (c *Controller) PickCancelled() {
	c.logger.Debug("EDITOR: Image pick cancelled")
}

// Render replays the chain over the source image and publishes the result.
// Without a source image it does nothing. On failure the rendered image
// keeps its last good value.
func (c *Controller) Render(ctx context.Context) error {
	c.mu.Lock()
	source := c.images.Source()
	if source == nil {
		c.mu.Unlock()
		return nil
	}

	if last, ok := c.chain.Last(); ok && last.ID == c.editing {
		c.chain.ReplaceLastValues(c.store.ValuesExcludingImageKey())
	}
	steps := c.chain.Steps()
	ticket := c.images.NextTicket()
	onRender, onError := c.onRender, c.onError
	c.mu.Unlock()

	out, err := c.engine.Render(ctx, source, steps)
	if err != nil {
		if c.images.Superseded(ticket) {
			c.logger.WithFields(logrus.Fields{"ticket": ticket, "error": err}).Debug("EDITOR: Ignoring failure of superseded render")
			return nil
		}
		c.logger.WithFields(logrus.Fields{"steps": len(steps), "error": err}).Error("EDITOR: Render failed")
		if onError != nil {
			onError(err)
		}
		return err
	}

	if !c.images.Publish(ticket, out) {
		c.logger.WithField("ticket", ticket).Debug("EDITOR: Discarding superseded render")
		return nil
	}
	if onRender != nil {
		onRender(out)
	}
	return nil
}

// Formula describes every step of the chain in order.
func (c *Controller) Formula() []string {
	return c.chain.Describe()
}

// ChainLen returns the number of steps.
func (c *Controller) ChainLen() int {
	return c.chain.Len()
}

// Steps returns a snapshot of the chain.
func (c *Controller) Steps() []chain.Step {
	return c.chain.Steps()
}

func (c *Controller) CurrentFilter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentSchema returns the schema of the filter being edited.
func (c *Controller) CurrentSchema() (algorithms.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema, c.current != ""
}

// Values returns the parameter store contents.
func (c *Controller) Values() map[string]algorithms.Value {
	return c.store.Values()
}

func (c *Controller) Source() image.Image {
	return c.images.Source()
}

func (c *Controller) Rendered() image.Image {
	return c.images.Rendered()
}

func (c *Controller) Metadata() core.ImageMetadata {
	return c.images.Metadata()
}

func (c *Controller) Busy() bool {
	return c.engine.Busy()
}

func (c *Controller) FilterNames() []string {
	return c.registry.Names()
}
