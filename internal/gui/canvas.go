// Side by side display of the source and rendered images
package gui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// ImageCanvas shows the picked image next to the latest render.
type ImageCanvas struct {
	logger *logrus.Logger

	split         *container.Split
	originalImage *canvas.Image
	renderedImage *canvas.Image
	renderedCard  *widget.Card
}

func NewImageCanvas(logger *logrus.Logger) *ImageCanvas {
	ic := &ImageCanvas{logger: logger}
	ic.initializeUI()
	return ic
}

func (ic *ImageCanvas) initializeUI() {
	ic.originalImage = newImageView()
	ic.renderedImage = newImageView()
	ic.renderedCard = widget.NewCard("Rendered", "", ic.renderedImage)

	ic.split = container.NewHSplit(
		widget.NewCard("Original", "", ic.originalImage),
		ic.renderedCard,
	)
	ic.split.SetOffset(0.5)
}

func newImageView() *canvas.Image {
	img := canvas.NewImageFromImage(placeholder200x150())
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleSmooth
	img.SetMinSize(fyne.NewSize(200, 150))
	return img
}

func placeholder200x150() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	fill := color.RGBA{240, 240, 240, 255}
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return img
}

func (ic *ImageCanvas) GetContainer() fyne.CanvasObject {
	return ic.split
}

// UpdateOriginal must run on the Fyne thread.
func (ic *ImageCanvas) UpdateOriginal(img image.Image) {
	if img == nil {
		return
	}
	ic.originalImage.Image = img
	ic.originalImage.Refresh()
}

// UpdateRendered must run on the Fyne thread.
func (ic *ImageCanvas) UpdateRendered(img image.Image) {
	if img == nil {
		return
	}
	size := img.Bounds().Size()
	ic.logger.WithFields(logrus.Fields{"width": size.X, "height": size.Y}).Debug("Updating rendered view")

	ic.renderedImage.Image = img
	ic.renderedImage.Refresh()
	ic.renderedCard.SetSubTitle(size.String())
}

func (ic *ImageCanvas) Refresh() {
	ic.split.Refresh()
}
