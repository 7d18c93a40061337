package components

// Render draws the whole dashboard frame.
func Render(state ViewState) string {
	if state.W <= 0 || state.H <= 0 {
		return ""
	}

	b := newBuf(state.W, state.H)
	drawGrid(b, 6, 3)

	layout, ok := ComputeLayout(state.W, state.H)
	if !ok {
		msg := "Window too small for the dashboard"
		drawText(b, maxInt(0, (state.W-len(msg))/2), state.H/2, cText, cBG, msg)
		return renderBuf(b)
	}

	if !layout.Narrow {
		boltW := maxLineLen(logoBolt)
		drawLinesSkipSpaces(b, layout.LogoX, layout.LogoY, cLime, cBG, logoBolt)
		drawLinesSkipSpaces(b, layout.LogoX+boltW+2, layout.LogoY, cText, cBG, logoWord)
		drawTextSkipSpaces(b, layout.LogoX+boltW+2, layout.LogoY+len(logoWord), cDim, cBG, logoTag)
	}

	drawRunCard(state, b, layout.Run)
	drawStepsCard(state, b, layout.Steps)

	help := helpText
	if len(help) > state.W {
		help = help[:state.W]
	}
	fillRect(b, 0, layout.HelpY, state.W, 1, cSub, cBG, ' ')
	drawText(b, maxInt(0, (state.W-len(help))/2), layout.HelpY, cSub, cBG, help)

	return renderBuf(b)
}
