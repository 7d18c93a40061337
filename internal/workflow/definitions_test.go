package workflow

import (
	"errors"
	"testing"
)

func cfgOf(platforms ...Platform) WorkflowConfig {
	cfg := WorkflowConfig{Platforms: map[Platform]bool{}}
	for _, p := range platforms {
		cfg.Platforms[p] = true
	}
	return cfg
}

func stepIDs(steps []Step) []StepID {
	out := make([]StepID, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}

func TestResolve_OrderPerSelection(t *testing.T) {
	cases := []struct {
		name string
		cfg  WorkflowConfig
		want []StepID
	}{
		{
			name: "xiaohongshu",
			cfg:  cfgOf(PlatformXiaohongshu),
			want: []StepID{
				"xiaohongshu-cookies", StepFetchContent, StepPolishContent,
				"xiaohongshu-images", "xiaohongshu-publish",
			},
		},
		{
			name: "douyin",
			cfg:  cfgOf(PlatformDouyin),
			want: []StepID{
				"douyin-cookies", StepFetchContent, StepPolishContent,
				"douyin-images", "douyin-metadata", "douyin-publish",
			},
		},
		{
			name: "both",
			cfg:  cfgOf(PlatformDouyin, PlatformXiaohongshu),
			want: []StepID{
				"xiaohongshu-cookies", "douyin-cookies", StepFetchContent, StepPolishContent,
				"xiaohongshu-images", "xiaohongshu-publish",
				"douyin-images", "douyin-metadata", "douyin-publish",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			steps, err := Resolve(tc.cfg)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			got := stepIDs(steps)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d steps, got %d: %v", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("step %d: expected %q, got %q", i, tc.want[i], got[i])
				}
				if steps[i].Status != StepPending {
					t.Fatalf("step %q should start pending, got %s", got[i], steps[i].Status)
				}
				if steps[i].Title == "" {
					t.Fatalf("step %q has no title", got[i])
				}
			}
		})
	}
}

func TestResolve_CountsPerKind(t *testing.T) {
	for _, cfg := range []WorkflowConfig{
		cfgOf(PlatformXiaohongshu),
		cfgOf(PlatformDouyin),
		cfgOf(PlatformXiaohongshu, PlatformDouyin),
	} {
		defs, err := StepDefinitions(cfg)
		if err != nil {
			t.Fatalf("definitions: %v", err)
		}
		counts := map[StepKind]int{}
		for _, d := range defs {
			counts[d.Kind]++
		}
		n := len(cfg.Enabled())
		if counts[KindCredential] != n || counts[KindPublish] != n {
			t.Fatalf("expected %d credential and publish steps, got %v", n, counts)
		}
		if counts[KindFetch] != 1 || counts[KindPolish] != 1 {
			t.Fatalf("expected one fetch and one polish step, got %v", counts)
		}
	}
}

func TestResolve_EmptySelectionRefused(t *testing.T) {
	for _, cfg := range []WorkflowConfig{{}, cfgOf(), {Platforms: map[Platform]bool{PlatformDouyin: false}}} {
		if _, err := Resolve(cfg); !errors.Is(err, ErrNoPlatforms) {
			t.Fatalf("expected ErrNoPlatforms, got %v", err)
		}
	}
}

func TestValidateStepDefinitions_Rejects(t *testing.T) {
	ok := StepDef{ID: "a", Kind: KindFetch, Title: "A"}
	cases := map[string][]StepDef{
		"empty":     nil,
		"no id":     {{Kind: KindFetch, Title: "A"}},
		"no title":  {{ID: "a", Kind: KindFetch}},
		"platform":  {{ID: "x-publish", Kind: KindPublish, Platform: "weibo", Title: "X"}},
		"duplicate": {ok, ok},
	}
	for name, defs := range cases {
		if err := ValidateStepDefinitions(defs); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := ValidateStepDefinitions([]StepDef{ok}); err != nil {
		t.Fatalf("valid definitions rejected: %v", err)
	}
}

func TestLookupDef(t *testing.T) {
	def, ok := LookupDef("douyin-metadata")
	if !ok || def.Kind != KindMetadata || def.Platform != PlatformDouyin {
		t.Fatalf("unexpected lookup result: %+v %v", def, ok)
	}
	if _, ok := LookupDef("xiaohongshu-metadata"); ok {
		t.Fatalf("xiaohongshu has no metadata step")
	}
}
