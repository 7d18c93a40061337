package app

import tea "github.com/charmbracelet/bubbletea"

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case spinnerTickMsg:
		return m.handleSpinnerTick()
	case stepUpdateMsg:
		return m.handleStepUpdate(msg)
	case runDoneMsg:
		return m.handleRunDone(msg)
	case stepDoneMsg:
		return m.handleStepDone(msg)
	case actionDoneMsg:
		return m.handleActionDone(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(tea.MouseEvent(msg))
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	default:
		return m, nil
	}
}
