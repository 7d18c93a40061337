package ui

import (
	"fmt"
	"strings"
	"time"

	"autopub/internal/workflow"
)

// Status renders a step status with its glyph and color.
func Status(s workflow.StepState) string {
	switch s {
	case workflow.StepCompleted:
		return SuccessStyle.Render("✓ completed")
	case workflow.StepError:
		return ErrorStyle.Render("✗ error")
	case workflow.StepRunning:
		return WarnStyle.Render("● running")
	default:
		return MutedStyle.Render("· pending")
	}
}

// StepsTable lists the steps of a run.
func StepsTable(st workflow.State) string {
	rows := make([][]string, 0, len(st.Steps))
	for i, step := range st.Steps {
		detail := step.Error
		if detail == "" && step.Status == workflow.StepCompleted {
			detail = fmt.Sprintf("%d bytes", len(step.Response))
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(step.ID),
			step.Title,
			Status(step.Status),
			truncate(detail, 48),
		})
	}
	return Table([]string{"#", "ID", "STEP", "STATUS", "DETAIL"}, rows)
}

// RunsTable lists persisted runs, newest first.
func RunsTable(runs []workflow.State, active string) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		id := r.ID
		if id == active {
			id = "* " + id
		}
		var platforms []string
		for _, p := range r.Config.Enabled() {
			platforms = append(platforms, workflow.PlatformLabel(p))
		}
		rows = append(rows, []string{
			id,
			time.UnixMilli(r.Timestamp).Local().Format("2006-01-02 15:04"),
			strings.Join(platforms, ", "),
			fmt.Sprintf("%d%%", r.ProgressPercent),
			Bool(r.Completed),
		})
	}
	return Table([]string{"RUN", "CREATED", "PLATFORMS", "PROGRESS", "ARCHIVED"}, rows)
}

// RunSummary renders the key facts of the active run.
func RunSummary(st workflow.State) string {
	var platforms []string
	for _, p := range st.Config.Enabled() {
		platforms = append(platforms, workflow.PlatformLabel(p))
	}
	return KeyValues("  ",
		KV("run", st.ID),
		KV("platforms", strings.Join(platforms, ", ")),
		KV("progress", fmt.Sprintf("%d%%", st.ProgressPercent)),
		KV("source", orDash(st.Data.SourceURL)),
		KV("background", orDash(st.Data.BackgroundImage)),
	)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Muted("-")
	}
	return s
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
