package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tern/internal/operate"
	"github.com/five82/tern/internal/state"
)

// Store actions started from the UI.
const (
	actionFetch     = "fetch"
	actionAdd       = "add"
	actionEdit      = "edit"
	actionFullValue = "full value"
)

// openAddForm opens the add dialog unless a change is still being saved.
func (m Model) openAddForm() (tea.Model, tea.Cmd) {
	if m.snapshot.Scope == "" {
		m.setLocalNotice(state.NotifyError, "Choose a flow node instance first (s)")
		return m, nil
	}
	if m.snapshot.Pending != nil {
		m.setLocalNotice(state.NotifyError, "Another change is still being saved")
		return m, nil
	}
	form, cmd := newAddForm(m.snapshot.Items, m.width)
	m.modal = form
	return m, cmd
}

// openEditForm opens the edit dialog for the selected variable. Previews
// are completed first so the form never starts from a truncated value.
func (m Model) openEditForm() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRowData()
	if m.currentView == ViewValue {
		row, ok = m.valueRow()
	}
	if !ok {
		return m, nil
	}
	if m.snapshot.Pending != nil {
		m.setLocalNotice(state.NotifyError, "Another change is still being saved")
		return m, nil
	}
	v, found := m.snapshot.Find(row.Variable.Name)
	if !found {
		return m, nil
	}
	if v.IsPreview {
		m.editWhenFull = v.Name
		return m, m.fullValueCmd(v)
	}
	return m.openEditFormFor(v)
}

func (m Model) openEditFormFor(v operate.Variable) (tea.Model, tea.Cmd) {
	form, cmd := newEditForm(v, m.width)
	m.modal = form
	return m, cmd
}

// submitForm hands a validated form to the store. The store re-validates
// against its own state, so a race with a refresh still fails cleanly.
func (m Model) submitForm(msg formSubmitMsg) (tea.Model, tea.Cmd) {
	if m.store == nil {
		return m, nil
	}
	store, ctx := m.store, m.ctx
	name, value := msg.name, msg.value
	if msg.mode == formEdit {
		return m, storeCmd(actionEdit, name, func() error { return store.Edit(ctx, name, value) })
	}
	return m, storeCmd(actionAdd, name, func() error { return store.Add(ctx, name, value) })
}

func (m Model) fullValueCmd(v operate.Variable) tea.Cmd {
	if m.store == nil || v.ID == "" || !v.IsPreview {
		return nil
	}
	store, ctx, id := m.store, m.ctx, v.ID
	return storeCmd(actionFullValue, v.Name, func() error { return store.FetchFullValue(ctx, id) })
}

// openScopePrompt opens the flow node instance picker.
func (m Model) openScopePrompt() (tea.Model, tea.Cmd) {
	prompt, cmd := newScopePrompt(m.snapshot.Scope, m.prefs.RecentScopes)
	m.modal = prompt
	return m, cmd
}

// switchScope remembers scope and loads its variables.
func (m Model) switchScope(scope string) (tea.Model, tea.Cmd) {
	m.prefs.Remember(scope)
	m.savePrefs()
	m.selectedRow = 0
	m.editWhenFull = ""
	m.currentView = ViewVariables
	if m.store == nil {
		return m, nil
	}
	store, ctx := m.store, m.ctx
	return m, storeCmd(actionFetch, scope, func() error { return store.Fetch(ctx, scope) })
}
