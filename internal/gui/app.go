// Main application window wiring the controller to the panels
package gui

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"image-filter-chain/internal/algorithms"
	"image-filter-chain/internal/config"
	"image-filter-chain/internal/core"
	"image-filter-chain/internal/editor"
	imageio "image-filter-chain/internal/io"
	"image-filter-chain/internal/metrics"
)

// actionRunner runs a controller action off the Fyne thread. Failures are
// reported in a dialog titled action.
type actionRunner func(action string, fn func(context.Context) error)

// Application represents the main application window
type Application struct {
	app       fyne.App
	window    fyne.Window
	logger    *logrus.Logger
	cfg       *config.Config
	debugMode bool

	ctx    context.Context
	cancel context.CancelFunc

	// Core components
	registry   *algorithms.Registry
	engine     *core.Engine
	controller *editor.Controller
	loader     *imageio.ImageLoader
	evaluator  *metrics.Evaluator

	// GUI components
	canvas      *ImageCanvas
	toolbar     *Toolbar
	properties  *PropertiesPanel
	infoPanel   *InfoPanel
	status      *StatusManager
	menuHandler *MenuHandler
}

func NewApplication(app fyne.App, cfg *config.Config, logger *logrus.Logger) *Application {
	window := app.NewWindow("Image Filter Chain")
	window.Resize(fyne.NewSize(float32(cfg.WindowWidth), float32(cfg.WindowHeight)))
	window.CenterOnScreen()

	ctx, cancel := context.WithCancel(context.Background())
	appInstance := &Application{
		app:       app,
		window:    window,
		logger:    logger,
		cfg:       cfg,
		debugMode: cfg.Debug,
		ctx:       ctx,
		cancel:    cancel,
	}

	appInstance.initializeCore()
	appInstance.initializeGUI()
	appInstance.setupLayout()
	appInstance.setupCallbacks()

	return appInstance
}

func (a *Application) initializeCore() {
	a.registry = algorithms.NewRegistry()
	a.engine = core.NewEngine(a.registry, a.logger)
	a.controller = editor.New(a.registry, a.engine, a.logger)
	a.loader = imageio.NewImageLoader(a.logger)
	a.evaluator = metrics.NewEvaluator()

	a.logger.WithFields(logrus.Fields{
		"filters":    len(a.registry.Names()),
		"categories": len(a.registry.Categories()),
	}).Info("Filter registry loaded")
}

func (a *Application) initializeGUI() {
	a.canvas = NewImageCanvas(a.logger)
	a.properties = NewPropertiesPanel(a.controller, a.registry, a.logger, a.run, a.showError)
	a.infoPanel = NewInfoPanel(a.logger)
	a.status = NewStatusManager()
	a.menuHandler = NewMenuHandler(a.window, a.controller, a.loader, a.logger, a.run)
	a.toolbar = NewToolbar(ToolbarActions{
		Open:            a.menuHandler.OpenImage,
		Save:            a.menuHandler.SaveImage,
		Undo:            a.undo,
		ViewFormula:     a.menuHandler.ShowFormula,
		ToggleHistogram: a.toggleHistogram,
	})
}

func (a *Application) setupLayout() {
	top := container.NewVBox(a.toolbar.GetContainer(), widget.NewSeparator())

	right := container.NewVScroll(a.infoPanel.GetContainer())
	right.SetMinSize(fyne.NewSize(280, 0))

	center := container.NewBorder(top, a.status.GetWidget(), nil, right,
		container.NewPadded(a.canvas.GetContainer()))

	main := container.NewHSplit(container.NewVScroll(a.properties.GetContainer()), center)
	main.SetOffset(0.25)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu(a.undo, a.toggleHistogram))
	a.window.SetContent(main)
}

func (a *Application) setupCallbacks() {
	a.controller.SetCallbacks(
		// onRender runs on the render goroutine; measuring happens here so
		// the Fyne thread only swaps widgets.
		func(rendered image.Image) {
			analysis, err := Analyze(a.evaluator, a.controller.Source(), rendered)
			if err != nil {
				a.logger.WithField("error", err).Warn("Histogram unavailable")
			}
			summary := chainSummary(a.controller.ChainLen(), a.controller.Source(), rendered)

			fyne.Do(func() {
				a.canvas.UpdateRendered(rendered)
				if err == nil {
					a.infoPanel.Update(analysis)
				}
				a.status.ShowSuccess(summary)
			})
		},
		func(err error) {
			fyne.Do(func() {
				a.status.ShowError(err)
			})
		},
	)

	a.menuHandler.SetCallbacks(
		func(img image.Image, name string) {
			fyne.Do(func() {
				a.canvas.UpdateOriginal(img)
				a.properties.Enable()
				a.properties.RebuildForm()
				a.toolbar.Enable()
				a.window.SetTitle(fmt.Sprintf("Image Filter Chain - %s", filepath.Base(name)))
			})
		},
		func(path string) {
			fyne.Do(func() {
				a.status.ShowSuccess(fmt.Sprintf("Saved: %s", path))
			})
		},
	)
}

// run executes fn on its own goroutine with the busy indicator shown.
func (a *Application) run(action string, fn func(context.Context) error) {
	a.status.SetBusy(true)

	go func() {
		err := fn(a.ctx)
		fyne.Do(func() {
			a.status.SetBusy(false)
			if err != nil {
				a.showError(action, err)
			}
		})
	}()
}

func (a *Application) undo() {
	a.run("Undo", a.controller.Undo)
}

func (a *Application) toggleHistogram() {
	if a.infoPanel.Visible() {
		a.infoPanel.Hide()
	} else {
		a.infoPanel.Show()
	}
}

// OpenStartupImage picks the configured image, if any.
func (a *Application) OpenStartupImage() {
	if a.cfg.DefaultImage == "" {
		return
	}
	path := a.cfg.DefaultImage
	a.run("Pick Image", func(ctx context.Context) error {
		return a.menuHandler.PickPath(ctx, path)
	})
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.OpenStartupImage()
	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	a.cancel()
}

func (a *Application) showError(title string, err error) {
	a.logger.WithField("error", err).Error(title)
	dialog.ShowError(err, a.window)
	a.status.ShowError(err)
}
