package components

func logoSize() (int, int) {
	boltW := maxLineLen(logoBolt)
	wordW := maxLineLen(logoWord)
	logoW := boltW + 2 + wordW
	logoH := maxInt(len(logoBolt), len(logoWord)+1)
	return logoW, logoH
}

// ComputeLayout places the logo and the run card in the left column and the
// pipeline card on the right. The bottom row holds the key help.
func ComputeLayout(w, h int) (Layout, bool) {
	if w <= 0 || h <= 0 {
		return Layout{}, false
	}
	_, logoH := logoSize()

	containerW := minInt(containerWFixed, w-2)
	if containerW < runCardW+colGap+stepsCardMinW {
		return Layout{}, false
	}
	cx0 := (w - containerW) / 2

	top := 1
	helpY := h - 1
	bodyH := helpY - top - 1
	if bodyH < 16 {
		return Layout{}, false
	}

	showLogo := bodyH-logoH-1 >= 18
	runY := top
	if showLogo {
		runY = top + logoH + 1
	}
	run := Rect{X: cx0, Y: runY, W: runCardW, H: top + bodyH - runY}
	steps := Rect{
		X: cx0 + runCardW + colGap,
		Y: top,
		W: containerW - runCardW - colGap,
		H: bodyH,
	}

	return Layout{
		LogoX:  cx0 + 1,
		LogoY:  top,
		Run:    run,
		Steps:  steps,
		HelpY:  helpY,
		Narrow: !showLogo,
	}, true
}

// StepListRect is the area of the pipeline card that lists steps. The rest
// of the card shows details of the selected step.
func StepListRect(card Rect, steps int) Rect {
	inner := Rect{X: card.X + 2, Y: card.Y + 3, W: card.W - 4, H: card.H - 4}
	detailH := minInt(9, inner.H/3)
	listH := inner.H - detailH - 1
	if steps < listH {
		listH = maxInt(steps, 1)
	}
	return Rect{X: inner.X, Y: inner.Y, W: inner.W, H: maxInt(listH, 1)}
}

// InputListRect is the area of the run card that lists editable inputs.
func InputListRect(card Rect, rows int) Rect {
	y := card.Y + 10
	avail := card.Y + card.H - 4 - y
	return Rect{X: card.X + 2, Y: y, W: card.W - 4, H: maxInt(minInt(rows, avail), 0)}
}
