// Filter selection and the generated parameter form
package gui

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"image-filter-chain/internal/algorithms"
	"image-filter-chain/internal/editor"
)

// rowHeight is the fixed height of one parameter row.
const rowHeight = 85

// PropertiesPanel lets the user pick the filter being edited and tune its
// inputs. Every committed edit re-renders the chain.
type PropertiesPanel struct {
	controller *editor.Controller
	registry   *algorithms.Registry
	logger     *logrus.Logger
	run        actionRunner
	onError    func(title string, err error)

	vbox         *fyne.Container
	filterSelect *widget.Select
	options      map[string]string
	headerLabel  *widget.Label
	descLabel    *widget.Label
	paramContent *fyne.Container
}

func NewPropertiesPanel(controller *editor.Controller, registry *algorithms.Registry, logger *logrus.Logger,
	run actionRunner, onError func(string, error)) *PropertiesPanel {
	panel := &PropertiesPanel{
		controller: controller,
		registry:   registry,
		logger:     logger,
		run:        run,
		onError:    onError,
	}

	panel.initializeUI()
	return panel
}

func (pp *PropertiesPanel) initializeUI() {
	var labels []string
	labels, pp.options = filterOptions(pp.registry.Categories())

	pp.filterSelect = widget.NewSelect(labels, pp.onFilterSelected)
	pp.filterSelect.PlaceHolder = "Choose a filter..."
	pp.filterSelect.Disable()

	pp.headerLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	pp.descLabel = widget.NewLabel("")
	pp.descLabel.Wrapping = fyne.TextWrapWord

	pp.paramContent = container.NewVBox(widget.NewLabel("Pick an image, then choose a filter."))
	paramScroll := container.NewVScroll(pp.paramContent)
	paramScroll.SetMinSize(fyne.NewSize(300, 400))

	filterCard := widget.NewCard("Filter", "",
		container.NewVBox(
			widget.NewLabel("Selecting the last step's filter continues editing it:"),
			pp.filterSelect,
		))

	parametersCard := widget.NewCard("Parameters", "",
		container.NewVBox(pp.headerLabel, pp.descLabel, widget.NewSeparator(), paramScroll))

	pp.vbox = container.NewVBox(filterCard, widget.NewSeparator(), parametersCard)
}

func (pp *PropertiesPanel) onFilterSelected(selected string) {
	name, ok := pp.options[selected]
	if !ok {
		return
	}

	if err := pp.controller.SelectFilter(name); err != nil {
		pp.onError("Unknown Filter", err)
		return
	}
	pp.RebuildForm()
}

// RebuildForm regenerates one row per input of the filter being edited from
// the current parameter values.
func (pp *PropertiesPanel) RebuildForm() {
	pp.paramContent.RemoveAll()

	schema, ok := pp.controller.CurrentSchema()
	if !ok {
		pp.headerLabel.SetText("")
		pp.descLabel.SetText("")
		pp.paramContent.Add(widget.NewLabel("No filter selected."))
		pp.paramContent.Refresh()
		return
	}

	pp.headerLabel.SetText(fmt.Sprintf("%s (%s)", schema.Name(), schema.Category()))
	pp.descLabel.SetText(schema.Description())

	values := pp.controller.Values()
	rows := 0
	for _, in := range schema.Inputs() {
		if in.Key == algorithms.ImageKey {
			continue
		}
		pp.paramContent.Add(pp.inputRow(in, values[in.Key]))
		rows++
	}
	if rows == 0 {
		pp.paramContent.Add(widget.NewLabel("No configurable parameters for this filter."))
	}
	pp.paramContent.Refresh()

	pp.logger.WithFields(logrus.Fields{"filter": schema.Name(), "rows": rows}).Debug("Parameter form rebuilt")
}

func (pp *PropertiesPanel) inputRow(in algorithms.Input, current algorithms.Value) fyne.CanvasObject {
	label := widget.NewLabelWithStyle(in.Key, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	var field fyne.CanvasObject
	switch {
	case in.Kind == algorithms.KindScalar && in.Bounded:
		slider := widget.NewSlider(in.Min, in.Max)
		slider.Step = sliderStep(in)
		slider.SetValue(current.Float())

		valueLabel := widget.NewLabel(current.String())
		slider.OnChanged = func(v float64) {
			valueLabel.SetText(algorithms.ScalarValue(v).String())
		}
		slider.OnChangeEnded = func(v float64) {
			pp.commit(in.Key, algorithms.ScalarValue(v))
		}
		field = container.NewBorder(nil, nil, nil, valueLabel, slider)

	case in.Kind == algorithms.KindImage:
		field = widget.NewLabel("Uses the picked image")

	default:
		entry := widget.NewEntry()
		entry.SetText(formatInput(current))
		entry.SetPlaceHolder(placeholder(in.Kind))
		entry.OnSubmitted = func(text string) {
			v, err := parseInput(in, text)
			if err != nil {
				pp.onError("Invalid Parameter", err)
				return
			}
			pp.commit(in.Key, v)
		}
		field = entry
	}

	desc := widget.NewLabel(in.Description)
	desc.Importance = widget.LowImportance

	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(0, rowHeight))

	return container.NewStack(spacer, container.NewVBox(label, field, desc))
}

func (pp *PropertiesPanel) commit(key string, value algorithms.Value) {
	pp.run("Parameter Change", func(ctx context.Context) error {
		return pp.controller.CommitParameterChange(ctx, key, value)
	})
}

func (pp *PropertiesPanel) GetContainer() fyne.CanvasObject {
	return pp.vbox
}

func (pp *PropertiesPanel) Enable() {
	pp.filterSelect.Enable()
}

func (pp *PropertiesPanel) Disable() {
	pp.filterSelect.Disable()
}

func (pp *PropertiesPanel) Refresh() {
	pp.vbox.Refresh()
}

// filterOptions builds "Category → name" labels sorted by category then
// name, and the label to filter name lookup.
func filterOptions(categories map[string][]string) ([]string, map[string]string) {
	cats := make([]string, 0, len(categories))
	for cat := range categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var labels []string
	lookup := make(map[string]string)
	for _, cat := range cats {
		names := append([]string(nil), categories[cat]...)
		sort.Strings(names)
		for _, name := range names {
			label := fmt.Sprintf("%s → %s", cat, name)
			labels = append(labels, label)
			lookup[label] = name
		}
	}
	return labels, lookup
}

// sliderStep moves integral ranges in whole units and fractional ones in
// hundredths of the span.
func sliderStep(in algorithms.Input) float64 {
	span := in.Max - in.Min
	integral := in.Min == math.Trunc(in.Min) && in.Max == math.Trunc(in.Max) &&
		in.Default.Float() == math.Trunc(in.Default.Float())
	if integral && span >= 10 {
		return 1
	}
	return span / 100
}

func formatInput(v algorithms.Value) string {
	switch v.Kind() {
	case algorithms.KindString:
		return v.Text()
	case algorithms.KindInvalid:
		return ""
	default:
		return v.String()
	}
}

func placeholder(kind algorithms.Kind) string {
	switch kind {
	case algorithms.KindVector:
		return "x y width height"
	case algorithms.KindColor:
		return "#rrggbbaa"
	case algorithms.KindScalar:
		return "number"
	default:
		return ""
	}
}

// parseInput converts entry text into a value of the input's kind.
func parseInput(in algorithms.Input, text string) (algorithms.Value, error) {
	text = strings.TrimSpace(text)

	switch in.Kind {
	case algorithms.KindScalar:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return algorithms.Value{}, fmt.Errorf("%s: invalid number %q", in.Key, text)
		}
		return algorithms.ScalarValue(f), nil

	case algorithms.KindVector:
		components, err := algorithms.ParseVector(text)
		if err != nil {
			return algorithms.Value{}, fmt.Errorf("%s: %w", in.Key, err)
		}
		if want := len(in.Default.Floats()); want > 0 && len(components) != want {
			return algorithms.Value{}, fmt.Errorf("%s: want %d components, got %d", in.Key, want, len(components))
		}
		if len(components) == 0 {
			return algorithms.Value{}, fmt.Errorf("%s: empty vector", in.Key)
		}
		return algorithms.VectorValue(components...), nil

	case algorithms.KindColor:
		c, err := algorithms.ParseColor(text)
		if err != nil {
			return algorithms.Value{}, fmt.Errorf("%s: %w", in.Key, err)
		}
		return algorithms.ColorValue(c), nil

	case algorithms.KindString:
		return algorithms.StringValue(text), nil

	default:
		return algorithms.Value{}, fmt.Errorf("%s: %s inputs cannot be typed in", in.Key, in.Kind)
	}
}
