// Histogram, quality metrics and status line
package gui

import (
	"fmt"
	"image"
	"math"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"image-filter-chain/internal/metrics"
)

const histogramHeight = 120

// Analysis is what the info panel shows for one render.
type Analysis struct {
	Histogram metrics.Histogram
	Quality   []metrics.Result
	// QualityErr explains missing quality metrics, e.g. after post-processing
	// changed the image size.
	QualityErr error
}

// Analyze measures rendered, comparing it with source when both share a size.
func Analyze(evaluator *metrics.Evaluator, source, rendered image.Image) (Analysis, error) {
	h, err := metrics.ComputeHistogram(rendered)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{Histogram: h}
	values, err := evaluator.Compare(source, rendered)
	if err != nil {
		a.QualityErr = err
		return a, nil
	}
	a.Quality = evaluator.Results(values)
	return a, nil
}

// InfoPanel draws the histogram of the rendered image.
type InfoPanel struct {
	logger *logrus.Logger

	container      *fyne.Container
	histogramImage *canvas.Image
	statsContent   *fyne.Container
	qualityContent *fyne.Container
}

func NewInfoPanel(logger *logrus.Logger) *InfoPanel {
	panel := &InfoPanel{logger: logger}
	panel.initializeUI()
	return panel
}

func (ip *InfoPanel) initializeUI() {
	ip.histogramImage = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, metrics.Bins, histogramHeight)))
	ip.histogramImage.FillMode = canvas.ImageFillStretch
	ip.histogramImage.ScaleMode = canvas.ImageScalePixels
	ip.histogramImage.SetMinSize(fyne.NewSize(metrics.Bins, histogramHeight))

	ip.statsContent = container.NewVBox(widget.NewLabel("Histogram appears after the first render."))
	ip.qualityContent = container.NewVBox()

	ip.container = container.NewVBox(
		widget.NewCard("Histogram", "", container.NewVBox(ip.histogramImage, ip.statsContent)),
		widget.NewCard("Quality vs Original", "", ip.qualityContent),
	)
}

func (ip *InfoPanel) GetContainer() fyne.CanvasObject {
	return ip.container
}

// Update must run on the Fyne thread.
func (ip *InfoPanel) Update(a Analysis) {
	ip.histogramImage.Image = drawHistogram(a.Histogram, metrics.Bins, histogramHeight)
	ip.histogramImage.Refresh()

	ip.statsContent.RemoveAll()
	ip.statsContent.Add(widget.NewLabel(fmt.Sprintf("%s pixels", humanize.Comma(int64(a.Histogram.Pixels)))))
	for _, ch := range a.Histogram.Channels {
		ip.statsContent.Add(widget.NewLabel(fmt.Sprintf("%s  mean %.1f  σ %.1f", ch.Name, ch.Mean, ch.StdDev)))
	}
	ip.statsContent.Refresh()

	ip.qualityContent.RemoveAll()
	if a.QualityErr != nil {
		ip.qualityContent.Add(widget.NewLabel(fmt.Sprintf("Not available: %v", a.QualityErr)))
	} else {
		for _, line := range qualityLines(a.Quality) {
			ip.qualityContent.Add(widget.NewLabel(line))
		}
	}
	ip.qualityContent.Refresh()
}

func (ip *InfoPanel) Show() { ip.container.Show() }
func (ip *InfoPanel) Hide() { ip.container.Hide() }

func (ip *InfoPanel) Visible() bool { return ip.container.Visible() }

// qualityLines formats each metric as "↑ Name: value (description)", the
// arrow pointing the way that means better quality.
func qualityLines(results []metrics.Result) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		value := fmt.Sprintf("%.3f", r.Value)
		switch {
		case math.IsInf(r.Value, 1):
			value = "identical"
		case r.Key == "psnr":
			value = fmt.Sprintf("%.2f dB", r.Value)
		case r.Key == "mse":
			value = fmt.Sprintf("%.2f", r.Value)
		}

		arrow := "↓"
		if r.HigherIsBetter {
			arrow = "↑"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s (%s)", arrow, r.Name, value, r.Description))
	}
	return lines
}

// drawHistogram plots every channel as bars scaled to the tallest bin.
// Channels share the canvas additively so overlaps mix.
func drawHistogram(h metrics.Histogram, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	peak := 0.0
	for _, ch := range h.Channels {
		peak = max(peak, ch.Peak())
	}
	if peak == 0 {
		return img
	}

	for _, ch := range h.Channels {
		var mask [3]bool
		switch ch.Name {
		case "R":
			mask = [3]bool{true, false, false}
		case "G":
			mask = [3]bool{false, true, false}
		case "B":
			mask = [3]bool{false, false, true}
		default:
			mask = [3]bool{true, true, true}
		}

		for x := 0; x < width; x++ {
			bin := x * len(ch.Counts) / width
			bar := int(math.Round(ch.Counts[bin] / peak * float64(height)))
			for y := height - bar; y < height; y++ {
				off := img.PixOffset(x, y)
				for c := 0; c < 3; c++ {
					if mask[c] {
						img.Pix[off+c] = 255
					}
				}
			}
		}
	}
	return img
}

// StatusManager handles the status line and the busy indicator.
type StatusManager struct {
	card      *widget.Card
	container *fyne.Container
	progress  *widget.ProgressBarInfinite
}

func NewStatusManager() *StatusManager {
	manager := &StatusManager{}
	manager.initializeUI()
	return manager
}

func (sm *StatusManager) initializeUI() {
	sm.progress = widget.NewProgressBarInfinite()
	sm.progress.Stop()
	sm.progress.Hide()

	sm.container = container.NewHBox(
		widget.NewIcon(theme.InfoIcon()),
		widget.NewLabel("Application ready"),
	)
	sm.card = widget.NewCard("", "", container.NewVBox(sm.container, sm.progress))
}

func (sm *StatusManager) GetWidget() fyne.CanvasObject {
	return sm.card
}

// SetBusy shows the progress bar while a render is in flight.
func (sm *StatusManager) SetBusy(busy bool) {
	if busy {
		sm.progress.Show()
		sm.progress.Start()
		return
	}
	sm.progress.Stop()
	sm.progress.Hide()
}

func (sm *StatusManager) ShowInfo(message string) {
	sm.updateStatus(message, theme.InfoIcon())
}

func (sm *StatusManager) ShowSuccess(message string) {
	sm.updateStatus(message, theme.ConfirmIcon())
}

func (sm *StatusManager) ShowError(err error) {
	sm.updateStatus(fmt.Sprintf("Error: %s", err.Error()), theme.ErrorIcon())
}

func (sm *StatusManager) updateStatus(message string, icon fyne.Resource) {
	sm.container.RemoveAll()
	sm.container.Add(widget.NewIcon(icon))
	sm.container.Add(widget.NewLabel(message))
	sm.container.Refresh()
}

// chainSummary is the status line after a render.
func chainSummary(steps int, source image.Image, rendered image.Image) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", steps, pluralize(steps, "step", "steps"))
	if source != nil {
		size := source.Bounds().Size()
		fmt.Fprintf(&b, " | source %dx%d (%s px)", size.X, size.Y, humanize.Comma(int64(size.X*size.Y)))
	}
	if rendered != nil {
		size := rendered.Bounds().Size()
		fmt.Fprintf(&b, " | rendered %dx%d", size.X, size.Y)
	}
	return b.String()
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
