package components

import (
	"regexp"
	"strings"
	"testing"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string { return ansiRe.ReplaceAllString(s, "") }

func sampleState() ViewState {
	return ViewState{
		W:        140,
		H:        44,
		Focus:    FocusSteps,
		RunID:    "workflow_1772355600000",
		Progress: 40,
		Platforms: []PlatformToggle{
			{Key: "1", Label: "Xiaohongshu", Enabled: true},
			{Key: "2", Label: "Douyin"},
		},
		Inputs: []InputRow{
			{Label: "Source URL", Value: "https://zhuanlan.zhihu.com/p/1"},
			{Label: "Original", Value: "line one\nline two"},
		},
		Steps: []Step{
			{ID: "xiaohongshu-cookies", Label: "Xiaohongshu login", State: StepDone},
			{ID: "fetch", Label: "Fetch article", State: StepFailed, Err: "source URL is required"},
			{ID: "polish", Label: "Polish text", State: StepPending},
		},
		Selected: 1,
	}
}

func TestRenderShowsStepsAndSelectedError(t *testing.T) {
	out := plain(Render(sampleState()))
	for _, want := range []string{
		"[✓]",
		"[✗]",
		"2. Fetch article",
		"3. Polish text",
		"source URL is required",
		"workflow_1772355600000",
		"[x] Xiaohongshu",
		"[ ] Douyin",
		"line one¶line two",
		" 40%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q", want)
		}
	}
}

func TestRenderRowsMatchWindowSize(t *testing.T) {
	state := sampleState()
	lines := strings.Split(plain(Render(state)), "\n")
	if len(lines) != state.H {
		t.Fatalf("got %d rows, want %d", len(lines), state.H)
	}
}

func TestRenderTooSmall(t *testing.T) {
	state := sampleState()
	state.W, state.H = 40, 10
	out := plain(Render(state))
	if !strings.Contains(out, "Window too small") {
		t.Fatalf("expected fallback message, got %q", out)
	}
}

func TestRenderEmptyPipelineHint(t *testing.T) {
	state := sampleState()
	state.Steps = nil
	out := plain(Render(state))
	if !strings.Contains(out, "No steps yet") {
		t.Fatal("expected empty pipeline hint")
	}
}

func TestDrawTextClipWideRunes(t *testing.T) {
	b := newBuf(10, 1)
	n := drawTextClip(b, 0, 0, 5, cText, cBG, "小红书abc")
	if n != 4 {
		t.Fatalf("used %d columns, want 4", n)
	}
	if b[0][0].ch != '小' || b[0][1].ch != 0 || b[0][2].ch != '红' {
		t.Fatalf("unexpected cells: %q %q %q", b[0][0].ch, b[0][1].ch, b[0][2].ch)
	}
	if got := plain(renderBuf(b)); got != "小红      " {
		t.Fatalf("rendered %q", got)
	}
}

func TestWindowStartKeepsSelectionVisible(t *testing.T) {
	cases := []struct{ sel, total, avail, want int }{
		{0, 5, 10, 0},
		{0, 20, 5, 0},
		{10, 20, 5, 8},
		{19, 20, 5, 15},
	}
	for _, c := range cases {
		if got := WindowStart(c.sel, c.total, c.avail); got != c.want {
			t.Errorf("WindowStart(%d,%d,%d) = %d, want %d", c.sel, c.total, c.avail, got, c.want)
		}
	}
}

func TestQRBitmapIsSquare(t *testing.T) {
	bm, err := QRBitmap("http://127.0.0.1:8000/output/xiaohongshu/1.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(bm) == 0 || len(bm) != len(bm[0]) {
		t.Fatalf("bitmap is %dx%d", len(bm), len(bm[0]))
	}
}

func TestFieldEditing(t *testing.T) {
	var f Field
	f.SetValue("abc")
	f.Cursor = 1
	f.insert([]rune("X"))
	if f.ValueString() != "aXbc" || f.Cursor != 2 {
		t.Fatalf("value %q cursor %d", f.ValueString(), f.Cursor)
	}
}
