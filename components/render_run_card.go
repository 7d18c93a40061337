package components

import "fmt"

func drawRunCard(state ViewState, b [][]cell, card Rect) {
	x, y, w, h := card.X, card.Y, card.W, card.H
	border := cGrid2
	if state.Focus == FocusInputs {
		border = cDim
	}
	drawBox(b, x, y, w, h, border)
	drawHeaderBar(b, x+1, y+1, w-2, runHeaderText)
	if w > 2 && h > 3 {
		fillRect(b, x+1, y+2, w-2, h-3, cText, cBG, ' ')
	}

	innerW := w - 4
	drawText(b, x+2, y+3, cDim, cBG, "Run")
	drawTextClip(b, x+2+6, y+3, innerW-6, cText, cBG, state.RunID)

	pct := fmt.Sprintf("%3d%%", clamp(state.Progress, 0, 100))
	barW := innerW - 6 - len(pct) - 1
	drawProgress(b, x+2+6, y+4, barW, state.Progress)
	drawText(b, x+2+6+barW+1, y+4, cText, cBG, pct)

	drawText(b, x+2, y+6, cDim, cBG, "Platforms")
	for i, p := range state.Platforms {
		mark := "[ ]"
		fg := cSub
		if p.Enabled {
			mark = "[x]"
			fg = cText
		}
		drawText(b, x+4, y+7+i, cLime, cBG, p.Key)
		drawText(b, x+6, y+7+i, fg, cBG, mark+" "+p.Label)
	}

	drawText(b, x+2, y+9, cDim, cBG, "Inputs")
	if state.Focus != FocusInputs {
		drawText(b, x+2+7, y+9, cSub, cBG, "(tab to edit)")
	} else if state.Editing {
		drawText(b, x+2+7, y+9, cSub, cBG, "(enter save, esc cancel)")
	} else {
		drawText(b, x+2+7, y+9, cSub, cBG, "(enter edit, tab back)")
	}

	list := InputListRect(card, len(state.Inputs))
	start := WindowStart(state.InputIndex, len(state.Inputs), list.H)
	for row := 0; row < list.H && start+row < len(state.Inputs); row++ {
		i := start + row
		in := state.Inputs[i]
		rowY := list.Y + row
		selected := state.Focus == FocusInputs && i == state.InputIndex

		labelFG := cSub
		if selected {
			labelFG = cLime
		}
		drawTextClip(b, list.X, rowY, inputLabelW, labelFG, cBG, in.Label)

		valX := list.X + inputLabelW
		valW := list.W - inputLabelW
		if selected && state.Editing {
			edit := state.Edit
			edit.drawInto(b, valX, rowY, valW, true)
			continue
		}
		val := oneLine(in.Value)
		fg := cText
		if val == "" {
			val = "-"
			fg = cSub
		}
		drawTextClip(b, valX, rowY, valW, fg, cBG, val)
	}

	qrTop := list.Y + list.H + 1
	drawQR(state, b, Rect{X: x + 2, Y: qrTop, W: innerW, H: y + h - 4 - qrTop})

	statusY := y + h - 2
	switch {
	case state.Err != "":
		lines := wrapText(state.Err, innerW)
		startY := statusY - minInt(len(lines), 2) + 1
		for i, ln := range lines {
			yy := startY + i
			if yy > statusY {
				break
			}
			drawTextClip(b, x+2, yy, innerW, cErr, cBG, ln)
		}
	case state.Status != "":
		msg := state.Status
		fg := cSub
		if state.Working {
			spin := state.SpinnerRune
			if spin == 0 {
				spin = '*'
			}
			msg = string(spin) + " " + msg
			fg = cLime
		}
		drawTextClip(b, x+2, statusY, innerW, fg, cBG, msg)
	}
}
