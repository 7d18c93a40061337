package prompts

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	set, err := Render("Douyin")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(set.Polish, "Douyin post") {
		t.Fatalf("platform missing from polish prompt: %q", set.Polish)
	}
	if !strings.Contains(set.Title, "20 characters") {
		t.Fatalf("title limit missing: %q", set.Title)
	}
	if !strings.HasPrefix(set.Tags, "Suggest 5 short topic tags") {
		t.Fatalf("unexpected tags prompt: %q", set.Tags)
	}
}

func TestDefaults(t *testing.T) {
	set := Defaults()
	if set.Polish == "" || set.Title == "" || set.Tags == "" {
		t.Fatalf("empty default prompt: %+v", set)
	}
	if !strings.Contains(set.Polish, "social media post") {
		t.Fatalf("expected generic label, got %q", set.Polish)
	}
}

func TestRenderStringTemplate_MissingKey(t *testing.T) {
	if _, err := renderStringTemplate("x", "{{.Nope}}", map[string]string{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
