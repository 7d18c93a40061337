package workflow

import "fmt"

func ValidateStepDefinitions(defs []StepDef) error {
	if len(defs) == 0 {
		return fmt.Errorf("empty step definitions")
	}
	seenIDs := map[StepID]struct{}{}
	for i, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("step %d has empty id", i)
		}
		if def.Title == "" {
			return fmt.Errorf("step %q has empty title", def.ID)
		}
		if def.Kind != KindFetch && def.Kind != KindPolish && !def.Platform.Valid() {
			return fmt.Errorf("step %q has unknown platform %q", def.ID, def.Platform)
		}
		if _, ok := seenIDs[def.ID]; ok {
			return fmt.Errorf("duplicate step id: %q", def.ID)
		}
		seenIDs[def.ID] = struct{}{}
	}
	return nil
}
