package app

import (
	"time"

	"autopub/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

func spinnerCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return spinnerTickMsg{} })
}

// waitForUpdate blocks until the runtime reports the next step transition.
func waitForUpdate(ch <-chan workflow.StepResult) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return stepUpdateMsg{res: res}
	}
}

func (m *model) busy() bool {
	if m.working {
		m.setError("a run is already in progress")
		return true
	}
	return false
}

func (m *model) startRun() tea.Cmd {
	if m.busy() {
		return nil
	}
	if len(m.state.Config.Enabled()) == 0 {
		m.setError(runErrorText(workflow.ErrNoPlatforms))
		return nil
	}
	m.working = true
	m.spinnerTick = 0
	m.setStatus("Starting run")
	ctx, svc := m.ctx, m.svc
	return tea.Batch(func() tea.Msg {
		out, err := svc.Run(ctx)
		return runDoneMsg{out: out, err: err}
	}, spinnerCmd())
}

func (m *model) startStep() tea.Cmd {
	if m.busy() {
		return nil
	}
	if m.selected < 0 || m.selected >= len(m.state.Steps) {
		m.setError("no step selected, press r to resolve the pipeline")
		return nil
	}
	id := m.state.Steps[m.selected].ID
	m.working = true
	m.spinnerTick = 0
	m.setStatus("Retrying " + m.stepTitle(id))
	ctx, svc := m.ctx, m.svc
	return tea.Batch(func() tea.Msg {
		res, err := svc.RunStep(ctx, id)
		return stepDoneMsg{id: id, res: res, err: err}
	}, spinnerCmd())
}

func (m *model) togglePlatform(p workflow.Platform) tea.Cmd {
	if m.busy() {
		return nil
	}
	if err := m.svc.TogglePlatform(p); err != nil {
		m.setError(runErrorText(err))
		return nil
	}
	m.refresh()
	m.selected = 0
	state := "disabled"
	if m.state.Config.Platforms[p] {
		state = "enabled"
	}
	m.setStatus(workflow.PlatformLabel(p) + " " + state + ", pipeline regenerated")
	return nil
}

func (m *model) reset() tea.Cmd {
	if m.busy() {
		return nil
	}
	m.svc.Reset()
	m.refresh()
	m.selected = 0
	m.setStatus("Started a new run")
	return nil
}

func (m *model) archive() tea.Cmd {
	if m.busy() {
		return nil
	}
	m.working = true
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		if err := svc.Archive(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "Run archived, a new run is ready"}
	}
}

func (m *model) save() tea.Cmd {
	if err := m.svc.Persist(); err != nil {
		m.setError("save failed: " + err.Error())
		return nil
	}
	m.setStatus("Run saved")
	return nil
}

func (m *model) restore() tea.Cmd {
	if m.busy() {
		return nil
	}
	m.working = true
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		if svc.Restore(ctx) {
			return actionDoneMsg{status: "Resumed the latest unfinished run"}
		}
		return actionDoneMsg{status: "No unfinished run found, started a new one"}
	}
}

func (m model) stepIndex(id workflow.StepID) int {
	for i, s := range m.state.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m model) stepTitle(id workflow.StepID) string {
	if st, ok := m.state.Step(id); ok && st.Title != "" {
		return st.Title
	}
	return string(id)
}
