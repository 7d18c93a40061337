package components

type Focus int

const (
	FocusSteps Focus = iota
	FocusInputs
)

type StepState int

const (
	StepPending StepState = iota
	StepRunning
	StepDone
	StepFailed
)

type Step struct {
	ID     string
	Label  string
	State  StepState
	Err    string
	Detail string
}

type PlatformToggle struct {
	Key     string
	Label   string
	Enabled bool
}

type InputRow struct {
	Label string
	Value string
}

type Rect struct {
	X int
	Y int
	W int
	H int
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

type Layout struct {
	LogoX  int
	LogoY  int
	Run    Rect
	Steps  Rect
	HelpY  int
	Narrow bool
}

type ViewState struct {
	W int
	H int

	Focus       Focus
	Working     bool
	SpinnerRune rune
	Status      string
	Err         string

	RunID     string
	Progress  int
	Platforms []PlatformToggle

	Inputs     []InputRow
	InputIndex int
	Editing    bool
	Edit       Field

	Steps    []Step
	Selected int

	// QR is the module bitmap of the first generated image URL.
	QR      [][]bool
	QRLabel string
}
