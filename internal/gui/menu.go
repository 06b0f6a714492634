// Menu handler for application actions
package gui

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"image-filter-chain/internal/editor"
	imageio "image-filter-chain/internal/io"
)

// MenuHandler owns the file dialogs and the informational dialogs.
type MenuHandler struct {
	window     fyne.Window
	controller *editor.Controller
	loader     *imageio.ImageLoader
	logger     *logrus.Logger
	run        actionRunner

	onImageLoaded func(img image.Image, name string)
	onImageSaved  func(string)
}

func NewMenuHandler(window fyne.Window, controller *editor.Controller, loader *imageio.ImageLoader,
	logger *logrus.Logger, run actionRunner) *MenuHandler {
	return &MenuHandler{
		window:     window,
		controller: controller,
		loader:     loader,
		logger:     logger,
		run:        run,
	}
}

// GetMainMenu builds the menu; undo and histogram toggling live on the
// application and are passed in.
func (mh *MenuHandler) GetMainMenu(undo, toggleHistogram func()) *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Pick Image...", mh.OpenImage),
		fyne.NewMenuItem("Save Rendered Image...", mh.SaveImage),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo Last Filter", undo),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Formula", mh.ShowFormula),
		fyne.NewMenuItem("Toggle Histogram", toggleHistogram),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	return fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu)
}

// OpenImage shows the picker. A dismissed picker changes nothing.
func (mh *MenuHandler) OpenImage() {
	mh.logger.Info("Opening file dialog for image selection")

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			mh.controller.PickCancelled()
			return
		}

		name := reader.URI().Path()
		mh.run("Pick Image", func(ctx context.Context) error {
			defer reader.Close()
			return mh.PickFrom(ctx, reader, name)
		})
	}, mh.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter(mh.loader.OpenExtensions()))
	fileDialog.Show()
}

// PickFrom decodes an image and hands it to the controller.
func (mh *MenuHandler) PickFrom(ctx context.Context, r io.Reader, name string) error {
	img, format, err := mh.loader.Decode(r, name)
	if err != nil {
		return err
	}
	if err := mh.controller.PickImage(ctx, img, format); err != nil {
		return err
	}

	if mh.onImageLoaded != nil {
		mh.onImageLoaded(img, name)
	}
	return nil
}

// PickPath loads the image at path, as for the configured startup image.
func (mh *MenuHandler) PickPath(ctx context.Context, path string) error {
	img, format, err := mh.loader.LoadImage(path)
	if err != nil {
		return err
	}
	if err := mh.controller.PickImage(ctx, img, format); err != nil {
		return err
	}

	if mh.onImageLoaded != nil {
		mh.onImageLoaded(img, path)
	}
	return nil
}

// SaveImage writes the rendered image.
func (mh *MenuHandler) SaveImage() {
	rendered := mh.controller.Rendered()
	if rendered == nil {
		mh.showError("No Image", fmt.Errorf("no image loaded to save"))
		return
	}

	mh.logger.Info("Opening file dialog for image saving")

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}

		path := writer.URI().Path()
		mh.run("Save Image", func(context.Context) error {
			defer writer.Close()
			if err := mh.loader.Encode(writer, rendered, path); err != nil {
				return err
			}
			mh.logger.WithField("filepath", path).Info("Image saved successfully")
			if mh.onImageSaved != nil {
				mh.onImageSaved(path)
			}
			return nil
		})
	}, mh.window)

	fileDialog.SetFileName("rendered.png")
	fileDialog.SetFilter(storage.NewExtensionFileFilter(mh.loader.SaveExtensions()))
	fileDialog.Show()
}

// ShowFormula lists every step of the chain.
func (mh *MenuHandler) ShowFormula() {
	text := formulaText(mh.controller.Formula())

	label := widget.NewLabel(text)
	label.Wrapping = fyne.TextWrapWord
	scroll := container.NewVScroll(label)
	scroll.SetMinSize(fyne.NewSize(420, 240))

	dialog.NewCustom("Formula", "Close", scroll, mh.window).Show()
}

func formulaText(lines []string) string {
	if len(lines) == 0 {
		return "No filters applied."
	}
	numbered := make([]string, len(lines))
	for i, line := range lines {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, line)
	}
	return strings.Join(numbered, "\n")
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("Image Filter Chain"),
		widget.NewSeparator(),
		widget.NewLabel("Pick an image, stack filters and tune them live."),
		widget.NewLabel("Selecting the last step's filter keeps editing it;"),
		widget.NewLabel("Undo removes the most recent step."),
		widget.NewSeparator(),
		widget.NewLabel("Built with Go, Fyne v2.6, and OpenCV"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 260))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.WithField("error", err).Error(title)
	dialog.ShowError(err, mh.window)
}

// SetCallbacks registers handlers run after a successful pick or save. They
// run off the Fyne thread.
func (mh *MenuHandler) SetCallbacks(onImageLoaded func(image.Image, string), onImageSaved func(string)) {
	mh.onImageLoaded = onImageLoaded
	mh.onImageSaved = onImageSaved
}
