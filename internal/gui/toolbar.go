// Top toolbar with the editing actions
package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// ToolbarActions are the handlers behind the toolbar buttons.
type ToolbarActions struct {
	Open            func()
	Save            func()
	Undo            func()
	ViewFormula     func()
	ToggleHistogram func()
}

type Toolbar struct {
	container *fyne.Container

	openBtn      *widget.Button
	saveBtn      *widget.Button
	undoBtn      *widget.Button
	formulaBtn   *widget.Button
	histogramBtn *widget.Button
}

func NewToolbar(actions ToolbarActions) *Toolbar {
	tb := &Toolbar{}
	tb.initializeUI(actions)
	return tb
}

func (tb *Toolbar) initializeUI(actions ToolbarActions) {
	titleLabel := widget.NewLabelWithStyle("Image Filter Chain", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	tb.openBtn = widget.NewButtonWithIcon("Pick Image", theme.FolderOpenIcon(), actions.Open)
	tb.openBtn.Importance = widget.HighImportance

	tb.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), actions.Save)
	tb.undoBtn = widget.NewButtonWithIcon("Undo", theme.ContentUndoIcon(), actions.Undo)
	tb.formulaBtn = widget.NewButtonWithIcon("View Formula", theme.ListIcon(), actions.ViewFormula)
	tb.histogramBtn = widget.NewButtonWithIcon("Histogram", theme.VisibilityIcon(), actions.ToggleHistogram)

	tb.container = container.NewHBox(
		titleLabel,
		widget.NewSeparator(),
		tb.openBtn,
		tb.saveBtn,
		widget.NewSeparator(),
		tb.undoBtn,
		tb.formulaBtn,
		tb.histogramBtn,
	)
	tb.Disable()
}

func (tb *Toolbar) GetContainer() fyne.CanvasObject {
	return tb.container
}

// Enable turns on the actions that need a picked image.
func (tb *Toolbar) Enable() {
	tb.saveBtn.Enable()
	tb.undoBtn.Enable()
}

func (tb *Toolbar) Disable() {
	tb.saveBtn.Disable()
	tb.undoBtn.Disable()
}

func (tb *Toolbar) Refresh() {
	tb.container.Refresh()
}
