package app

import "autopub/components"

func (m *model) clampSelection() {
	n := len(m.state.Steps)
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.inputIndex >= len(inputDefs) {
		m.inputIndex = len(inputDefs) - 1
	}
	if m.inputIndex < 0 {
		m.inputIndex = 0
	}
}

// moveSelection moves the cursor of the focused pane by delta rows.
func (m *model) moveSelection(delta int) {
	if m.focus == components.FocusInputs {
		m.inputIndex += delta
	} else {
		m.selected += delta
	}
	m.clampSelection()
}
