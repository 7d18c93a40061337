package components

import (
	"github.com/skip2/go-qrcode"
)

// QRBitmap encodes content as a QR module grid without the quiet zone.
func QRBitmap(content string) ([][]bool, error) {
	q, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	return q.Bitmap(), nil
}

// drawQR renders the bitmap with half blocks, two modules per cell, on a
// one module white margin. It draws nothing when r is too small.
func drawQR(state ViewState, b [][]cell, r Rect) {
	n := len(state.QR)
	if n == 0 {
		return
	}
	size := n + 2
	rows := (size + 1) / 2
	if r.H < rows+1 || r.W < size {
		return
	}
	drawTextClip(b, r.X, r.Y, r.W, cDim, cBG, state.QRLabel)

	module := func(yy, xx int) rgb {
		yy--
		xx--
		if yy < 0 || xx < 0 || yy >= n || xx >= len(state.QR[yy]) {
			return cWhite
		}
		if state.QR[yy][xx] {
			return cBG
		}
		return cWhite
	}
	for row := 0; row < rows; row++ {
		cy := r.Y + 1 + row
		if cy < 0 || cy >= len(b) {
			continue
		}
		for col := 0; col < size; col++ {
			cx := r.X + col
			if cx < 0 || cx >= len(b[cy]) {
				continue
			}
			b[cy][cx] = cell{ch: '▀', fg: module(row*2, col), bg: module(row*2+1, col)}
		}
	}
}
