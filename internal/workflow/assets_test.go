package workflow

import (
	"reflect"
	"testing"
)

func TestParseAssetPaths(t *testing.T) {
	want := []string{"data/output_image/img_plan_1.png", "data/output_image/img_plan_2.png"}
	cases := map[string]string{
		"plain": "输出路径: data/output_image\n文件列表: img_plan_1.png, generated.png, img_plan_2.png",
		"json string": `"输出路径: data/output_image\n文件列表: img_plan_1.png, generated.png, img_plan_2.png"`,
		"tool response": `{"content":[{"type":"text","text":"输出路径: data/output_image\n文件列表: img_plan_1.png，generated.png img_plan_2.png"}]}`,
		"escaped newline": `输出路径: data/output_image\n文件列表: img_plan_1.png, img_plan_2.png`,
		"duplicates": "文件列表: img_plan_1.png, img_plan_1.png, img_plan_2.png\nsaved data/output_image/img_plan_2.png",
		"direct only": "wrote data/output_image/img_plan_1.png and data/output_image/img_plan_2.png",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got := ParseAssetPaths(in)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestParseAssetPaths_CustomDirAndFilters(t *testing.T) {
	got := ParseAssetPaths("输出路径：out/run1/\n文件列表：img_plan_a.png, cover.png, img_plan_b.jpg, generated.png")
	want := []string{"out/run1/img_plan_a.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseAssetPaths_StructuredFields(t *testing.T) {
	got := ParseAssetPaths(`{"result":"done","paths":["out/img_plan_0.png","out/generated.png"]}`)
	want := []string{"out/img_plan_0.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseAssetPaths_NothingFound(t *testing.T) {
	for _, in := range []string{"", "render failed", `{"content":[]}`} {
		if got := ParseAssetPaths(in); len(got) != 0 {
			t.Fatalf("%q: expected no paths, got %v", in, got)
		}
	}
}
