package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/pairplot/pkg/model"
)

// editValues lives on the heap so the form's value pointers stay valid while
// EditForm is copied around by value.
type editValues struct {
	instruction string
	input       string
	output      string
}

// EditForm edits the text of one record.
type EditForm struct {
	index    int
	original model.Record
	values   *editValues
	form     *huh.Form
}

// NewEditForm returns a form pre-populated from r.
func NewEditForm(r model.Record, width int) EditForm {
	v := &editValues{
		instruction: r.Instruction,
		input:       r.Input,
		output:      r.Output,
	}

	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel"))

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Instruction").
				Lines(4).
				Value(&v.instruction),
			huh.NewInput().
				Title("Input").
				Value(&v.input),
			huh.NewText().
				Title("Output").
				Lines(6).
				Value(&v.output),
		),
	).WithTheme(huh.ThemeDracula()).
		WithKeyMap(km).
		WithShowHelp(true).
		WithWidth(max(width, 40))

	return EditForm{index: r.Index, original: r, values: v, form: form}
}

// Index returns the stable index of the record being edited.
func (e EditForm) Index() int { return e.index }

// Init starts the form.
func (e EditForm) Init() tea.Cmd { return e.form.Init() }

// Update forwards every message to the form.
func (e EditForm) Update(msg tea.Msg) (EditForm, tea.Cmd) {
	m, cmd := e.form.Update(msg)
	if f, ok := m.(*huh.Form); ok {
		e.form = f
	}
	return e, cmd
}

// View renders the form.
func (e EditForm) View() string { return e.form.View() }

// Done reports whether the form was submitted.
func (e EditForm) Done() bool { return e.form.State == huh.StateCompleted }

// Aborted reports whether the form was cancelled.
func (e EditForm) Aborted() bool { return e.form.State == huh.StateAborted }

// Patch returns the fields that differ from the original record.
func (e EditForm) Patch() model.Patch {
	var p model.Patch
	if e.values.instruction != e.original.Instruction {
		p.Instruction = model.String(e.values.instruction)
	}
	if e.values.input != e.original.Input {
		p.Input = model.String(e.values.input)
	}
	if e.values.output != e.original.Output {
		p.Output = model.String(e.values.output)
	}
	return p
}
