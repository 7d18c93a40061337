package components

import "fmt"

func stepPrefix(state ViewState, s StepState) (string, rgb) {
	switch s {
	case StepRunning:
		spin := state.SpinnerRune
		if spin == 0 {
			spin = '*'
		}
		return "[" + string(spin) + "]", cLime
	case StepDone:
		return "[✓]", cLime
	case StepFailed:
		return "[✗]", cErr
	default:
		return "[ ]", cSub
	}
}

func stepStateLabel(s StepState) string {
	switch s {
	case StepRunning:
		return "running"
	case StepDone:
		return "completed"
	case StepFailed:
		return "error"
	default:
		return "pending"
	}
}

func drawStepsCard(state ViewState, b [][]cell, card Rect) {
	x, y, w, h := card.X, card.Y, card.W, card.H
	border := cGrid2
	if state.Focus == FocusSteps {
		border = cDim
	}
	drawBox(b, x, y, w, h, border)
	drawHeaderBar(b, x+1, y+1, w-2, stepsHeaderText)
	if w > 2 && h > 3 {
		fillRect(b, x+1, y+2, w-2, h-3, cText, cBG, ' ')
	}

	if len(state.Steps) == 0 {
		drawText(b, x+2, y+3, cSub, cBG, "No steps yet. Press r to resolve and run.")
		return
	}

	list := StepListRect(card, len(state.Steps))
	start := WindowStart(state.Selected, len(state.Steps), list.H)
	for row := 0; row < list.H && start+row < len(state.Steps); row++ {
		i := start + row
		step := state.Steps[i]
		rowY := list.Y + row

		selected := i == state.Selected
		if selected && state.Focus == FocusSteps {
			drawText(b, list.X-1, rowY, cLime, cBG, "›")
		}
		prefix, prefixFG := stepPrefix(state, step.State)
		drawText(b, list.X, rowY, prefixFG, cBG, prefix)

		lineFG := cText
		switch {
		case step.State == StepFailed:
			lineFG = cErr
		case step.State == StepPending:
			lineFG = cSub
		}
		if selected {
			lineFG = cLime
			if step.State == StepFailed {
				lineFG = cErr
			}
		}
		label := fmt.Sprintf("%d. %s", i+1, step.Label)
		drawTextClip(b, list.X+4, rowY, list.W-4, lineFG, cBG, label)
	}
	if start > 0 {
		drawText(b, x+w-10, y+3, cSub, cBG, "↑ more")
	}
	if start+list.H < len(state.Steps) {
		drawText(b, x+w-10, list.Y+list.H-1, cSub, cBG, "↓ more")
	}

	sepY := list.Y + list.H
	drawHLine(b, x+1, sepY, w-2, cGrid2, cBG, '─')
	drawStepDetail(state, b, Rect{X: list.X, Y: sepY + 1, W: list.W, H: y + h - 2 - sepY})
}

func drawStepDetail(state ViewState, b [][]cell, r Rect) {
	if r.H <= 0 || state.Selected < 0 || state.Selected >= len(state.Steps) {
		return
	}
	step := state.Steps[state.Selected]
	bottom := r.Y + r.H

	drawTextClip(b, r.X, r.Y, r.W, cDim, cBG, step.ID)
	_, fg := stepPrefix(state, step.State)
	drawTextClip(b, r.X+r.W-len("completed"), r.Y, len("completed"), fg, cBG, stepStateLabel(step.State))

	text, textFG := step.Detail, cSub
	if step.Err != "" {
		text, textFG = step.Err, cErr
	}
	if text == "" && step.State == StepFailed {
		text = "step failed"
	}
	yy := r.Y + 1
	for _, ln := range wrapText(text, r.W) {
		if yy >= bottom {
			break
		}
		drawTextClip(b, r.X, yy, r.W, textFG, cBG, ln)
		yy++
	}
	if step.State == StepFailed && yy < bottom {
		drawText(b, r.X, bottom-1, cWarn, cBG, "enter: retry this step")
	}
}
