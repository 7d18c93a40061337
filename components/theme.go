package components

import "fmt"

type rgb struct{ r, g, b int }

// cell.ch == 0 marks the trailing half of a double-width rune.
type cell struct {
	ch rune
	fg rgb
	bg rgb
}

var (
	cBG    = rgb{0, 0, 0}
	cLime  = rgb{0xD7, 0xFF, 0x00}
	cDim   = rgb{0x9F, 0xB8, 0x00}
	cText  = rgb{0xEE, 0xEE, 0xEE}
	cSub   = rgb{0x88, 0x88, 0x88}
	cGrid  = rgb{0x16, 0x16, 0x16}
	cGrid2 = rgb{0x20, 0x20, 0x20}
	cErr   = rgb{0xFF, 0x4D, 0x4D}
	cWarn  = rgb{0xFF, 0xB0, 0x20}
	cWhite = rgb{0xFF, 0xFF, 0xFF}
)

func ansiFG(c rgb) string { return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c.r, c.g, c.b) }
func ansiBG(c rgb) string { return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", c.r, c.g, c.b) }

const ansiReset = "\x1b[0m"

const (
	logoTag = "Article to post, one step at a time"

	containerWFixed = 128
	runCardW        = 52
	colGap          = 4
	stepsCardMinW   = 44

	runHeaderText   = " 1 - RUN"
	stepsHeaderText = " 2 - PIPELINE"
	inputLabelW     = 14

	helpText = "r run  enter retry  tab inputs  1/2 platforms  x reset  a archive  s save  l restore  q quit"
)

var (
	logoBolt = []string{
		"     /",
		"   //",
		" ///",
		"////////",
		"    ///",
		"   //",
		"  /",
	}
	logoWord = []string{
		`   ___       __                __ `,
		`  / _ |__ __/ /____  ___  __ _/ / `,
		` / __ / // / __/ _ \/ _ \/ // / _ \`,
		`/_/ |_\_,_/\__/\___/ .__/\_,_/_.__/`,
		`                  /_/              `,
	}
)
