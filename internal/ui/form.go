package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tern/internal/operate"
	"github.com/five82/tern/internal/state"
)

type formMode int

const (
	formAdd formMode = iota
	formEdit
)

const (
	fieldName = iota
	fieldValue
)

// formSubmitMsg carries a validated form to the model.
type formSubmitMsg struct {
	mode  formMode
	name  string
	value string
}

// variableForm is the add/edit dialog. Validation runs on every keystroke;
// messages for a field show once it has been edited or a save was attempted.
type variableForm struct {
	mode      formMode
	name      textinput.Model
	value     textarea.Model
	focus     int
	existing  []operate.Variable
	touched   [2]bool
	submitted bool
	errors    state.ValidationErrors
}

func newVariableForm(mode formMode, width int) *variableForm {
	inner := modalWidth(width) - 6

	name := textinput.New()
	name.Placeholder = "name"
	name.CharLimit = 256
	name.Width = inner

	value := textarea.New()
	value.Placeholder = `JSON value, e.g. "text", 42, {"k": true}`
	value.ShowLineNumbers = false
	value.CharLimit = 0
	value.SetWidth(inner)
	value.SetHeight(8)

	return &variableForm{mode: mode, name: name, value: value}
}

// newAddForm opens an empty form. existing is checked for duplicate names.
func newAddForm(existing []operate.Variable, width int) (*variableForm, tea.Cmd) {
	f := newVariableForm(formAdd, width)
	f.existing = existing
	f.focus = fieldName
	cmd := f.name.Focus()
	f.errors = f.validate()
	return f, cmd
}

// newEditForm opens a form for v with its current value filled in.
func newEditForm(v operate.Variable, width int) (*variableForm, tea.Cmd) {
	f := newVariableForm(formEdit, width)
	f.name.SetValue(v.Name)
	f.value.SetValue(prettyValue(v.Value))
	f.focus = fieldValue
	cmd := f.value.Focus()
	f.errors = f.validate()
	return f, cmd
}

func (f *variableForm) validate() state.ValidationErrors {
	if f.mode == formEdit {
		return state.ValidateValue(f.value.Value())
	}
	return state.Validate(f.name.Value(), f.value.Value(), f.existing)
}

// fieldError returns the message to show under a field, if any.
func (f *variableForm) fieldError(field int, name string) string {
	if !f.submitted && !f.touched[field] {
		return ""
	}
	if e, ok := f.errors.Field(name); ok {
		return e.Message()
	}
	return ""
}

func (f *variableForm) setFocus(field int) tea.Cmd {
	if f.mode == formEdit {
		field = fieldValue
	}
	f.focus = field
	if field == fieldName {
		f.value.Blur()
		return f.name.Focus()
	}
	f.name.Blur()
	return f.value.Focus()
}

// Update implements Modal.
func (f *variableForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Escape):
			return f, nil, true

		case key.Matches(k, keys.Submit):
			f.submitted = true
			f.errors = f.validate()
			if len(f.errors) > 0 {
				return f, nil, false
			}
			submit := formSubmitMsg{
				mode:  f.mode,
				name:  strings.TrimSpace(f.name.Value()),
				value: f.value.Value(),
			}
			return f, func() tea.Msg { return submit }, true

		case key.Matches(k, keys.NextField):
			return f, f.setFocus(1 - f.focus), false

		case key.Matches(k, keys.Confirm) && f.focus == fieldName:
			return f, f.setFocus(fieldValue), false
		}
	}

	var cmd tea.Cmd
	if f.focus == fieldName {
		before := f.name.Value()
		f.name, cmd = f.name.Update(msg)
		if f.name.Value() != before {
			f.touched[fieldName] = true
		}
	} else {
		before := f.value.Value()
		f.value, cmd = f.value.Update(msg)
		if f.value.Value() != before {
			f.touched[fieldValue] = true
		}
	}
	f.errors = f.validate()
	return f, cmd, false
}

// View implements Modal.
func (f *variableForm) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder

	title := "Add variable"
	if f.mode == formEdit {
		title = "Edit variable"
	}
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n\n")

	b.WriteString(styles.AccentText.Bold(true).Render("Name"))
	b.WriteString("\n")
	if f.mode == formEdit {
		b.WriteString(styles.Text.Render(f.name.Value()))
	} else {
		b.WriteString(f.name.View())
	}
	b.WriteString("\n")
	if msg := f.fieldError(fieldName, state.FieldName); msg != "" {
		b.WriteString(styles.DangerText.Render(msg))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(styles.AccentText.Bold(true).Render("Value"))
	b.WriteString("\n")
	b.WriteString(f.value.View())
	b.WriteString("\n")
	if msg := f.fieldError(fieldValue, state.FieldValue); msg != "" {
		b.WriteString(styles.DangerText.Render(msg))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	hints := []string{"ctrl+s save", "esc cancel"}
	if f.mode == formAdd {
		hints = append([]string{"tab next field"}, hints...)
	}
	b.WriteString(styles.FaintText.Render(strings.Join(hints, " · ")))

	return placeModal(theme, b.String(), width, height, modalWidth(width))
}
