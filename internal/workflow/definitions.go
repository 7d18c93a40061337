package workflow

import "fmt"

const (
	StepFetchContent  StepID = "fetch-content"
	StepPolishContent StepID = "polish-content"
)

type StepKind int

const (
	KindCredential StepKind = iota
	KindFetch
	KindPolish
	KindImages
	KindMetadata
	KindPublish
)

type StepDef struct {
	ID          StepID
	Kind        StepKind
	Platform    Platform
	Title       string
	Description string
}

func CredentialStepID(p Platform) StepID { return StepID(string(p) + "-cookies") }
func ImagesStepID(p Platform) StepID     { return StepID(string(p) + "-images") }
func MetadataStepID(p Platform) StepID   { return StepID(string(p) + "-metadata") }
func PublishStepID(p Platform) StepID    { return StepID(string(p) + "-publish") }

var platformLabels = map[Platform]string{
	PlatformXiaohongshu: "Xiaohongshu",
	PlatformDouyin:      "Douyin",
}

func PlatformLabel(p Platform) string {
	if l, ok := platformLabels[p]; ok {
		return l
	}
	return string(p)
}

// platformAssetSteps lists the asset-preparation steps each platform needs
// before its publish step.
func platformAssetSteps(p Platform) []StepDef {
	label := PlatformLabel(p)
	defs := []StepDef{{
		ID:          ImagesStepID(p),
		Kind:        KindImages,
		Platform:    p,
		Title:       label + ": render images",
		Description: "Render the polished text onto the background image.",
	}}
	if p == PlatformDouyin {
		defs = append(defs, StepDef{
			ID:          MetadataStepID(p),
			Kind:        KindMetadata,
			Platform:    p,
			Title:       label + ": generate title and tags",
			Description: "Derive a short title and a tag set from the polished text.",
		})
	}
	return defs
}

// StepDefinitions returns the ordered step definitions for cfg.
func StepDefinitions(cfg WorkflowConfig) ([]StepDef, error) {
	enabled := cfg.Enabled()
	if len(enabled) == 0 {
		return nil, ErrNoPlatforms
	}

	var defs []StepDef
	for _, p := range enabled {
		defs = append(defs, StepDef{
			ID:          CredentialStepID(p),
			Kind:        KindCredential,
			Platform:    p,
			Title:       PlatformLabel(p) + ": acquire login cookies",
			Description: "Obtain a login session through the backend.",
		})
	}
	defs = append(defs,
		StepDef{
			ID:          StepFetchContent,
			Kind:        KindFetch,
			Title:       "Fetch article",
			Description: "Retrieve the source article text.",
		},
		StepDef{
			ID:          StepPolishContent,
			Kind:        KindPolish,
			Title:       "Polish article",
			Description: "Rewrite the article with the polish instruction.",
		},
	)
	for _, p := range enabled {
		defs = append(defs, platformAssetSteps(p)...)
		defs = append(defs, StepDef{
			ID:          PublishStepID(p),
			Kind:        KindPublish,
			Platform:    p,
			Title:       PlatformLabel(p) + ": publish",
			Description: "Publish the rendered images.",
		})
	}
	if err := ValidateStepDefinitions(defs); err != nil {
		return nil, fmt.Errorf("resolve steps: %w", err)
	}
	return defs, nil
}

// Resolve produces the fresh, all-pending step list for cfg.
func Resolve(cfg WorkflowConfig) ([]Step, error) {
	defs, err := StepDefinitions(cfg)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(defs))
	for _, def := range defs {
		steps = append(steps, Step{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Status:      StepPending,
		})
	}
	return steps, nil
}

// LookupDef finds the definition for id across every platform.
func LookupDef(id StepID) (StepDef, bool) {
	all := WorkflowConfig{Platforms: map[Platform]bool{}}
	for _, p := range Platforms {
		all.Platforms[p] = true
	}
	defs, err := StepDefinitions(all)
	if err != nil {
		return StepDef{}, false
	}
	for _, def := range defs {
		if def.ID == id {
			return def, true
		}
	}
	return StepDef{}, false
}
