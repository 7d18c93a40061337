package app

import (
	"encoding/json"
	"strings"

	"autopub/components"
	"autopub/internal/workflow"
)

const detailPreviewRunes = 600

func mapStepState(s workflow.StepState) components.StepState {
	switch s {
	case workflow.StepRunning:
		return components.StepRunning
	case workflow.StepCompleted:
		return components.StepDone
	case workflow.StepError:
		return components.StepFailed
	default:
		return components.StepPending
	}
}

// stepDetail previews the stored response, or the description while the
// step has not produced one.
func stepDetail(s workflow.Step) string {
	if len(s.Response) == 0 {
		return s.Description
	}
	text := string(s.Response)
	var str string
	if json.Unmarshal(s.Response, &str) == nil {
		text = str
	}
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > detailPreviewRunes {
		text = string(r[:detailPreviewRunes]) + "…"
	}
	return text
}

func toComponentSteps(steps []workflow.Step) []components.Step {
	if len(steps) == 0 {
		return nil
	}
	out := make([]components.Step, 0, len(steps))
	for _, s := range steps {
		out = append(out, components.Step{
			ID:     string(s.ID),
			Label:  s.Title,
			State:  mapStepState(s.Status),
			Err:    s.Error,
			Detail: stepDetail(s),
		})
	}
	return out
}

func (m model) platformToggles() []components.PlatformToggle {
	out := make([]components.PlatformToggle, 0, len(workflow.Platforms))
	for i, p := range workflow.Platforms {
		out = append(out, components.PlatformToggle{
			Key:     string(rune('1' + i)),
			Label:   workflow.PlatformLabel(p),
			Enabled: m.state.Config.Platforms[p],
		})
	}
	return out
}

func (m model) inputRows() []components.InputRow {
	out := make([]components.InputRow, 0, len(inputDefs))
	for _, def := range inputDefs {
		v, _ := workflow.FieldValue(m.state.Data, def.field)
		out = append(out, components.InputRow{Label: def.label, Value: v})
	}
	return out
}

func (m model) spinnerRune() rune {
	if len(spinnerFrames) == 0 {
		return '*'
	}
	idx := m.spinnerTick % len(spinnerFrames)
	if idx < 0 {
		idx += len(spinnerFrames)
	}
	return spinnerFrames[idx]
}

func (m model) toViewState() components.ViewState {
	return components.ViewState{
		W: m.w,
		H: m.h,

		Focus:       m.focus,
		Working:     m.working,
		SpinnerRune: m.spinnerRune(),
		Status:      m.status,
		Err:         m.err,

		RunID:     m.state.ID,
		Progress:  m.state.ProgressPercent,
		Platforms: m.platformToggles(),

		Inputs:     m.inputRows(),
		InputIndex: m.inputIndex,
		Editing:    m.editing,
		Edit:       m.edit,

		Steps:    toComponentSteps(m.state.Steps),
		Selected: m.selected,

		QR:      m.qr,
		QRLabel: m.qrLabel,
	}
}

func (m model) View() string {
	return components.Render(m.toViewState())
}
