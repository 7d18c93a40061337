package workflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	FieldSourceURL       = "source_url"
	FieldOriginalContent = "original_content"
	FieldPolishPrompt    = "polish_prompt"
	FieldPolishedContent = "polished_content"
	FieldBackgroundImage = "background_image"
	FieldFontColor       = "font_color"
	FieldOutputDir       = "output_dir"
	FieldTitle           = "title"
	FieldTags            = "tags"
	FieldTitlePrompt     = "title_prompt"
	FieldTagsPrompt      = "tags_prompt"
)

// FontColors is the fixed set of text colors the renderer accepts.
var FontColors = []string{"black", "white"}

var tagSplitRe = regexp.MustCompile(`[,，#\s]+`)

var fieldSetters = map[string]func(d *WorkflowData, v string) error{
	FieldSourceURL:       func(d *WorkflowData, v string) error { d.SourceURL = strings.TrimSpace(v); return nil },
	FieldOriginalContent: func(d *WorkflowData, v string) error { d.OriginalContent = v; return nil },
	FieldPolishPrompt:    func(d *WorkflowData, v string) error { d.PolishPrompt = v; return nil },
	FieldPolishedContent: func(d *WorkflowData, v string) error { d.PolishedContent = v; return nil },
	FieldBackgroundImage: func(d *WorkflowData, v string) error { d.BackgroundImage = strings.TrimSpace(v); return nil },
	FieldFontColor: func(d *WorkflowData, v string) error {
		v = strings.ToLower(strings.TrimSpace(v))
		for _, c := range FontColors {
			if v == c {
				d.FontColor = v
				return nil
			}
		}
		return fmt.Errorf("font color must be one of %s", strings.Join(FontColors, ", "))
	},
	FieldOutputDir:   func(d *WorkflowData, v string) error { d.OutputDir = strings.TrimSpace(v); return nil },
	FieldTitle:       func(d *WorkflowData, v string) error { d.Title = strings.TrimSpace(v); return nil },
	FieldTags:        func(d *WorkflowData, v string) error { d.Tags = ParseTags(v); return nil },
	FieldTitlePrompt: func(d *WorkflowData, v string) error { d.TitlePrompt = v; return nil },
	FieldTagsPrompt:  func(d *WorkflowData, v string) error { d.TagsPrompt = v; return nil },
}

// FieldNames lists the editable WorkflowData fields.
func FieldNames() []string {
	names := make([]string, 0, len(fieldSetters))
	for name := range fieldSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldValue renders one field as the string UpdateField accepts.
func FieldValue(d WorkflowData, name string) (string, error) {
	switch name {
	case FieldSourceURL:
		return d.SourceURL, nil
	case FieldOriginalContent:
		return d.OriginalContent, nil
	case FieldPolishPrompt:
		return d.PolishPrompt, nil
	case FieldPolishedContent:
		return d.PolishedContent, nil
	case FieldBackgroundImage:
		return d.BackgroundImage, nil
	case FieldFontColor:
		return d.FontColor, nil
	case FieldOutputDir:
		return d.OutputDir, nil
	case FieldTitle:
		return d.Title, nil
	case FieldTags:
		return strings.Join(d.Tags, ", "), nil
	case FieldTitlePrompt:
		return d.TitlePrompt, nil
	case FieldTagsPrompt:
		return d.TagsPrompt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// ParseTags splits free-form tag text on commas, hashes and whitespace.
func ParseTags(v string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, t := range tagSplitRe.Split(v, -1) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// UpdateField sets one shared field and persists the run.
func (s *Store) UpdateField(name, value string) error {
	set, ok := fieldSetters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := set(&s.state.Data, value); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	s.persistLocked()
	return nil
}
