package app

import (
	"context"

	"autopub/components"
	"autopub/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

type stepUpdateMsg struct {
	res workflow.StepResult
}

type runDoneMsg struct {
	out workflow.Outcome
	err error
}

type stepDoneMsg struct {
	id  workflow.StepID
	res workflow.StepResult
	err error
}

// actionDoneMsg reports a store action (archive, save, restore) started from
// a key binding.
type actionDoneMsg struct {
	status string
	err    error
}

type spinnerTickMsg struct{}

var spinnerFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

type inputDef struct {
	field string
	label string
}

var inputDefs = []inputDef{
	{workflow.FieldSourceURL, "Source URL"},
	{workflow.FieldOriginalContent, "Original"},
	{workflow.FieldPolishPrompt, "Polish prompt"},
	{workflow.FieldPolishedContent, "Polished"},
	{workflow.FieldBackgroundImage, "Background"},
	{workflow.FieldFontColor, "Font color"},
	{workflow.FieldOutputDir, "Output dir"},
	{workflow.FieldTitle, "Title"},
	{workflow.FieldTags, "Tags"},
	{workflow.FieldTitlePrompt, "Title prompt"},
	{workflow.FieldTagsPrompt, "Tags prompt"},
}

type model struct {
	ctx context.Context
	svc Services

	w int
	h int

	state workflow.State

	focus   components.Focus
	working bool
	status  string
	err     string

	selected   int
	inputIndex int
	editing    bool
	edit       components.Field

	qr      [][]bool
	qrLabel string
	qrFor   string

	spinnerTick int
}

func NewModel(ctx context.Context, svc Services) tea.Model {
	m := model{ctx: ctx, svc: svc}
	m.refresh()
	m.status = "Ready. Press r to run."
	return m
}

func (m model) Init() tea.Cmd { return waitForUpdate(m.svc.Updates()) }

// refresh pulls a fresh snapshot of the active run and derives the preview.
func (m *model) refresh() {
	m.state = m.svc.State()
	m.clampSelection()
	m.refreshQR()
}

func (m *model) refreshQR() {
	path, platform := firstAsset(m.state)
	if path == "" {
		m.qr, m.qrLabel, m.qrFor = nil, "", ""
		return
	}
	url := m.svc.AssetURL(path)
	if url == m.qrFor {
		return
	}
	bm, err := components.QRBitmap(url)
	if err != nil {
		m.qr, m.qrLabel, m.qrFor = nil, "", ""
		return
	}
	m.qr = bm
	m.qrFor = url
	m.qrLabel = "Scan to preview " + workflow.PlatformLabel(platform) + " image"
}

func firstAsset(st workflow.State) (string, workflow.Platform) {
	for _, p := range st.Config.Enabled() {
		if paths := st.Data.Assets[p]; len(paths) > 0 {
			return paths[0], p
		}
	}
	return "", ""
}

func (m *model) setError(msg string) {
	m.err = msg
	m.status = ""
}

func (m *model) setStatus(msg string) {
	m.status = msg
	m.err = ""
}
