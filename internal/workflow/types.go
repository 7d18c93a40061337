package workflow

import (
	"encoding/json"
	"errors"
)

type StepID string

type StepState string

const (
	StepPending   StepState = "pending"
	StepRunning   StepState = "running"
	StepCompleted StepState = "completed"
	StepError     StepState = "error"
)

type Platform string

const (
	PlatformXiaohongshu Platform = "xiaohongshu"
	PlatformDouyin      Platform = "douyin"
)

// Platforms lists every supported platform in the fixed resolution order.
var Platforms = []Platform{PlatformXiaohongshu, PlatformDouyin}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

type Step struct {
	ID          StepID          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      StepState       `json:"status"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StepResult is what one execution attempt produces. The store applies it;
// nothing else mutates step status after an attempt.
type StepResult struct {
	ID       StepID
	Status   StepState
	Response json.RawMessage
	Error    string
	Patch    DataPatch
}

// DataPatch carries WorkflowData changes a step produces for later steps.
// Nil fields are left untouched.
type DataPatch struct {
	OriginalContent *string
	PolishedContent *string
	Title           *string
	Tags            []string
	Assets          map[Platform][]string
}

func (p DataPatch) apply(d *WorkflowData) {
	if p.OriginalContent != nil {
		d.OriginalContent = *p.OriginalContent
	}
	if p.PolishedContent != nil {
		d.PolishedContent = *p.PolishedContent
	}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Tags != nil {
		d.Tags = append([]string(nil), p.Tags...)
	}
	for platform, paths := range p.Assets {
		if d.Assets == nil {
			d.Assets = map[Platform][]string{}
		}
		d.Assets[platform] = append([]string(nil), paths...)
	}
}

type WorkflowData struct {
	SourceURL       string                `json:"sourceUrl"`
	OriginalContent string                `json:"originalContent"`
	PolishPrompt    string                `json:"polishPrompt"`
	PolishedContent string                `json:"polishedContent"`
	BackgroundImage string                `json:"backgroundImage"`
	FontColor       string                `json:"fontColor"`
	OutputDir       string                `json:"outputDir"`
	Title           string                `json:"title"`
	Tags            []string              `json:"tags"`
	TitlePrompt     string                `json:"titlePrompt"`
	TagsPrompt      string                `json:"tagsPrompt"`
	Assets          map[Platform][]string `json:"assets,omitempty"`
}

func (d WorkflowData) clone() WorkflowData {
	out := d
	out.Tags = append([]string(nil), d.Tags...)
	if d.Assets != nil {
		out.Assets = make(map[Platform][]string, len(d.Assets))
		for k, v := range d.Assets {
			out.Assets[k] = append([]string(nil), v...)
		}
	}
	return out
}

type WorkflowConfig struct {
	Platforms map[Platform]bool `json:"platforms"`
}

// Enabled returns the enabled platforms in resolution order.
func (c WorkflowConfig) Enabled() []Platform {
	var out []Platform
	for _, p := range Platforms {
		if c.Platforms[p] {
			out = append(out, p)
		}
	}
	return out
}

func (c WorkflowConfig) clone() WorkflowConfig {
	out := WorkflowConfig{Platforms: make(map[Platform]bool, len(c.Platforms))}
	for k, v := range c.Platforms {
		out.Platforms[k] = v
	}
	return out
}

const SchemaVersion = 1

// State is the persisted unit for one run.
type State struct {
	Version          int            `json:"version"`
	ID               string         `json:"id"`
	Steps            []Step         `json:"steps"`
	Data             WorkflowData   `json:"data"`
	Config           WorkflowConfig `json:"config"`
	CurrentStepIndex int            `json:"currentStepIndex"`
	ProgressPercent  int            `json:"progressPercent"`
	Completed        bool           `json:"completed"`
	Timestamp        int64          `json:"timestamp"`
}

func (s State) clone() State {
	out := s
	out.Steps = make([]Step, len(s.Steps))
	for i, st := range s.Steps {
		st.Response = append(json.RawMessage(nil), st.Response...)
		out.Steps[i] = st
	}
	out.Data = s.Data.clone()
	out.Config = s.Config.clone()
	return out
}

// Step returns the step with the given id.
func (s State) Step(id StepID) (Step, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return Step{}, false
}

var (
	ErrNoPlatforms   = errors.New("at least one platform must be enabled")
	ErrStepNotFound  = errors.New("step not found")
	ErrStepRunning   = errors.New("step is already running")
	ErrNotRunning    = errors.New("step is not running")
	ErrPrecondition  = errors.New("step preconditions not met")
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrUnknownField  = errors.New("unknown workflow field")
)
