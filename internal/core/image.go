// Source and rendered image holder with thread-safe access
package core

import (
	"fmt"
	"image"
	"sync"
)

// ImageData keeps the user's source image and the latest rendered output.
// Renders take a ticket before they start; a render only publishes when its
// ticket is newer than the one that produced the current output, so a slow
// render finishing late cannot replace a newer result.
type ImageData struct {
	mu        sync.RWMutex
	source    image.Image
	rendered  image.Image
	metadata  ImageMetadata
	issued    uint64
	published uint64
}

// ImageMetadata describes the source image.
type ImageMetadata struct {
	Width  int
	Height int
	Format string
}

func NewImageData() *ImageData {
	return &ImageData{}
}

// SetSource replaces the source image; the rendered image is reset to it
// and renders started against the previous source can no longer publish.
func (d *ImageData) SetSource(img image.Image, format string) error {
	if err := ValidateImage(img); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := img.Bounds().Size()
	d.source = img
	d.rendered = img
	d.metadata = ImageMetadata{Width: size.X, Height: size.Y, Format: format}
	d.issued++
	d.published = d.issued
	return nil
}

func (d *ImageData) Source() image.Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source
}

func (d *ImageData) Rendered() image.Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rendered
}

func (d *ImageData) HasImage() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source != nil
}

func (d *ImageData) Metadata() ImageMetadata {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.metadata
}

// NextTicket reserves the publication slot for a render about to start.
func (d *ImageData) NextTicket() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.issued++
	return d.issued
}

// Publish stores img as the rendered image unless a newer ticket already
// published. It reports whether img was stored.
func (d *ImageData) Publish(ticket uint64, img image.Image) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ticket <= d.published || img == nil {
		return false
	}
	d.published = ticket
	d.rendered = img
	return true
}

// Superseded reports whether a render holding ticket has been overtaken by a
// newer render or a new source, so its outcome no longer matters.
func (d *ImageData) Superseded(ticket uint64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ticket < d.issued || ticket <= d.published
}

// ValidateImage checks an image is usable as a source.
func ValidateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}

	size := img.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", size.X, size.Y)
	}

	const maxDimension = 16384
	if size.X > maxDimension || size.Y > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", size.X, size.Y, maxDimension)
	}
	return nil
}
