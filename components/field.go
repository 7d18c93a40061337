package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

// Field is a single-line text input.
type Field struct {
	Placeholder string

	Value  []rune
	Cursor int
}

func (f *Field) ValueString() string { return string(f.Value) }

// SetValue replaces the content and moves the cursor to the end.
func (f *Field) SetValue(s string) {
	f.Value = []rune(s)
	f.Cursor = len(f.Value)
}

func (f *Field) HandleKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyLeft:
		f.Cursor = clamp(f.Cursor-1, 0, len(f.Value))
	case tea.KeyRight:
		f.Cursor = clamp(f.Cursor+1, 0, len(f.Value))
	case tea.KeyHome, tea.KeyCtrlA:
		f.Cursor = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		f.Cursor = len(f.Value)
	case tea.KeyCtrlU:
		f.Value = append([]rune(nil), f.Value[f.Cursor:]...)
		f.Cursor = 0
	case tea.KeyBackspace:
		if f.Cursor > 0 && len(f.Value) > 0 {
			f.Value = append(f.Value[:f.Cursor-1], f.Value[f.Cursor:]...)
			f.Cursor--
		}
	case tea.KeyDelete:
		if f.Cursor < len(f.Value) {
			f.Value = append(f.Value[:f.Cursor], f.Value[f.Cursor+1:]...)
		}
	case tea.KeySpace:
		f.insert([]rune{' '})
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return
		}
		f.insert(msg.Runes)
	}
	f.Cursor = clamp(f.Cursor, 0, len(f.Value))
}

func (f *Field) insert(ins []rune) {
	buf := make([]rune, 0, len(f.Value)+len(ins))
	buf = append(buf, f.Value[:f.Cursor]...)
	buf = append(buf, ins...)
	buf = append(buf, f.Value[f.Cursor:]...)
	f.Value = buf
	f.Cursor += len(ins)
}

// drawInto renders the field into w columns, scrolling so the cursor stays
// visible.
func (f *Field) drawInto(b [][]cell, x, y, w int, focused bool) {
	if w < 1 {
		return
	}
	drawHLine(b, x, y, w, cText, cBG, ' ')

	if len(f.Value) == 0 && !focused {
		drawTextClip(b, x, y, w, cSub, cBG, f.Placeholder)
		return
	}

	cur := clamp(f.Cursor, 0, len(f.Value))
	start := 0
	if focused {
		// Walk back from the cursor until the window is full.
		width := 1
		start = cur
		for start > 0 {
			rw := runewidth.RuneWidth(f.Value[start-1])
			if width+rw > w {
				break
			}
			width += rw
			start--
		}
	}

	col := 0
	for i := start; i <= len(f.Value) && col < w; i++ {
		r := ' '
		if i < len(f.Value) {
			r = f.Value[i]
		}
		fg, bg := cText, cBG
		if focused && i == cur {
			fg, bg = cBG, cLime
		}
		used := drawTextClip(b, x+col, y, w-col, fg, bg, string(r))
		if used == 0 {
			break
		}
		col += used
	}
}
