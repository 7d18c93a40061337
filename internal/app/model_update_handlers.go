package app

import (
	"errors"
	"fmt"
	"strings"

	"autopub/components"
	"autopub/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.w, m.h = msg.Width, msg.Height
	return m, nil
}

func (m model) handleSpinnerTick() (tea.Model, tea.Cmd) {
	if m.working {
		m.spinnerTick = (m.spinnerTick + 1) % len(spinnerFrames)
		return m, spinnerCmd()
	}
	return m, nil
}

func (m model) handleStepUpdate(msg stepUpdateMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	if msg.res.Status == workflow.StepRunning {
		m.setStatus("Running " + m.stepTitle(msg.res.ID))
		if i := m.stepIndex(msg.res.ID); i >= 0 {
			m.selected = i
		}
	}
	return m, waitForUpdate(m.svc.Updates())
}

func (m model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.working = false
	m.refresh()
	if msg.err != nil {
		m.setError(runErrorText(msg.err))
		return m, nil
	}
	out := msg.out
	if i := m.stepIndex(out.Step); i >= 0 {
		m.selected = i
	}
	switch out.Status {
	case workflow.RunArchived:
		m.setStatus("Published. Run archived, a new run is ready.")
	case workflow.RunFailed:
		m.setError(fmt.Sprintf("%s failed: %s", m.stepTitle(out.Step), out.Reason))
	case workflow.RunBlocked:
		m.setError(fmt.Sprintf("Blocked at %s: %s", m.stepTitle(out.Step), out.Reason))
	case workflow.RunCanceled:
		m.setStatus("Run canceled")
	default:
		m.setStatus(out.String())
	}
	return m, nil
}

func (m model) handleStepDone(msg stepDoneMsg) (tea.Model, tea.Cmd) {
	m.working = false
	m.refresh()
	title := m.stepTitle(msg.id)
	switch {
	case msg.err != nil:
		m.setError(fmt.Sprintf("%s: %s", title, runErrorText(msg.err)))
	case msg.res.Status == workflow.StepError:
		m.setError(fmt.Sprintf("%s failed: %s", title, msg.res.Error))
	default:
		m.setStatus(title + " completed")
	}
	return m, nil
}

func (m model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.working = false
	m.refresh()
	if msg.err != nil {
		m.setError(msg.err.Error())
		return m, nil
	}
	m.setStatus(msg.status)
	return m, nil
}

func runErrorText(err error) string {
	switch {
	case errors.Is(err, workflow.ErrRunInProgress):
		return "a run is already in progress"
	case errors.Is(err, workflow.ErrNoPlatforms):
		return "enable at least one platform (1/2)"
	}
	return err.Error()
}

func (m model) handleMouseMsg(me tea.MouseEvent) (tea.Model, tea.Cmd) {
	if m.editing {
		return m, nil
	}
	switch me.Button {
	case tea.MouseButtonWheelUp:
		m.moveSelection(-1)
	case tea.MouseButtonWheelDown:
		m.moveSelection(1)
	case tea.MouseButtonLeft:
		if me.Action != tea.MouseActionPress {
			return m, nil
		}
		layout, ok := components.ComputeLayout(m.w, m.h)
		if !ok {
			return m, nil
		}
		switch {
		case layout.Steps.Contains(me.X, me.Y):
			m.focus = components.FocusSteps
			list := components.StepListRect(layout.Steps, len(m.state.Steps))
			if list.Contains(me.X, me.Y) {
				start := components.WindowStart(m.selected, len(m.state.Steps), list.H)
				m.selected = start + me.Y - list.Y
				m.clampSelection()
			}
		case layout.Run.Contains(me.X, me.Y):
			m.focus = components.FocusInputs
			list := components.InputListRect(layout.Run, len(inputDefs))
			if list.Contains(me.X, me.Y) {
				start := components.WindowStart(m.inputIndex, len(inputDefs), list.H)
				m.inputIndex = start + me.Y - list.Y
				m.clampSelection()
			}
		}
	}
	return m, nil
}

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m, tea.Quit
	}
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch k {
	case "q":
		return m, tea.Quit
	case "tab", "shift+tab":
		if m.focus == components.FocusSteps {
			m.focus = components.FocusInputs
		} else {
			m.focus = components.FocusSteps
		}
		return m, nil
	case "up", "k":
		m.moveSelection(-1)
		return m, nil
	case "down", "j":
		m.moveSelection(1)
		return m, nil
	case "enter":
		if m.focus == components.FocusInputs {
			m.beginEdit()
			return m, nil
		}
		return m, m.startStep()
	case "r":
		return m, m.startRun()
	case "1", "2":
		idx := int(k[0] - '1')
		if idx < len(workflow.Platforms) {
			return m, m.togglePlatform(workflow.Platforms[idx])
		}
		return m, nil
	case "x":
		return m, m.reset()
	case "a":
		return m, m.archive()
	case "s":
		return m, m.save()
	case "l":
		return m, m.restore()
	}
	return m, nil
}

func (m model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.setStatus("Edit canceled")
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		def := inputDefs[m.inputIndex]
		value := strings.ReplaceAll(m.edit.ValueString(), "¶", "\n")
		if err := m.svc.UpdateField(def.field, value); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.refresh()
		m.setStatus(def.label + " saved")
		return m, nil
	}
	m.edit.HandleKey(msg)
	return m, nil
}

func (m *model) beginEdit() {
	def := inputDefs[m.inputIndex]
	value, err := workflow.FieldValue(m.state.Data, def.field)
	if err != nil {
		m.setError(err.Error())
		return
	}
	m.edit = components.Field{Placeholder: def.label}
	m.edit.SetValue(strings.ReplaceAll(value, "\n", "¶"))
	m.editing = true
	m.setStatus("Editing " + def.label)
}
