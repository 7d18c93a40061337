// Package prompts holds the default instruction texts sent with polish
// requests.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*
var templateFS embed.FS

const (
	MaxTitleRunes = 20
	MaxTags       = 5
)

// Data fills the prompt templates.
type Data struct {
	Platform      string
	MaxTitleRunes int
	MaxTags       int
}

// Set is one instruction per polish call the pipeline makes.
type Set struct {
	Polish string
	Title  string
	Tags   string
}

func renderStringTemplate(name, tpl string, data any) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}
	var out bytes.Buffer
	if err := t.Execute(&out, data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", name, err)
	}
	return strings.TrimSpace(out.String()), nil
}

func renderTemplateFile(path string, data any) (string, error) {
	raw, err := templateFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %q: %w", path, err)
	}
	return renderStringTemplate(path, string(raw), data)
}

// Render builds the instruction set for platform, a display label such as
// "Douyin".
func Render(platform string) (Set, error) {
	if platform == "" {
		platform = "social media"
	}
	data := Data{Platform: platform, MaxTitleRunes: MaxTitleRunes, MaxTags: MaxTags}
	var set Set
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{"templates/polish.md.tmpl", &set.Polish},
		{"templates/title.md.tmpl", &set.Title},
		{"templates/tags.md.tmpl", &set.Tags},
	} {
		text, err := renderTemplateFile(f.path, data)
		if err != nil {
			return Set{}, err
		}
		*f.dst = text
	}
	return set, nil
}

// Defaults is Render for the generic label. The embedded templates are
// fixed, so a failure here is a build defect.
func Defaults() Set {
	set, err := Render("")
	if err != nil {
		panic(err)
	}
	return set
}
