package workflow

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"
)

const (
	DefaultAssetDir = "data/output_image"

	assetPrefix   = "img_plan_"
	assetSentinel = "generated.png"
)

var (
	assetDirRe    = regexp.MustCompile(`输出路径[:：]\s*([^\r\n]*)`)
	assetListRe   = regexp.MustCompile(`文件列表[:：]\s*([^\r\n]*)`)
	assetSplitRe  = regexp.MustCompile(`[,，\s]+`)
	assetDirectRe = regexp.MustCompile(`data/output_image/` + assetPrefix + `[^\s,，"'\\/]*\.png`)
)

// ParseAssetPaths extracts generated image paths from render output. The
// output is either plain text, a JSON string, or a JSON tool response with
// content blocks and optional structured path fields. Order of first
// appearance is kept and duplicates are dropped.
func ParseAssetPaths(raw string) []string {
	text, structured := unwrapAssetText(raw)

	var out []string
	seen := map[string]struct{}{}
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	dir := DefaultAssetDir
	if m := assetDirRe.FindStringSubmatch(text); m != nil {
		if d := strings.TrimRight(strings.TrimSpace(m[1]), "/"); d != "" {
			dir = d
		}
	}
	if m := assetListRe.FindStringSubmatch(text); m != nil {
		for _, name := range assetSplitRe.Split(m[1], -1) {
			if isAssetName(name) {
				add(path.Join(dir, name))
			}
		}
	}
	for _, p := range assetDirectRe.FindAllString(text, -1) {
		add(p)
	}
	for _, p := range structured {
		if strings.HasSuffix(p, ".png") && path.Base(p) != assetSentinel {
			add(p)
		}
	}
	return out
}

func isAssetName(name string) bool {
	return strings.HasSuffix(name, ".png") &&
		name != assetSentinel &&
		strings.HasPrefix(name, assetPrefix)
}

// unwrapAssetText flattens JSON wrappers into plain text and collects any
// structured path fields on the way.
func unwrapAssetText(raw string) (string, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	var v any
	if strings.ContainsAny(trimmed[:1], `{["`) && json.Unmarshal([]byte(trimmed), &v) == nil {
		var texts, paths []string
		collectAssetText(v, &texts, &paths)
		return strings.Join(texts, "\n"), paths
	}
	if !strings.Contains(trimmed, "\n") && strings.Contains(trimmed, `\n`) {
		trimmed = strings.ReplaceAll(trimmed, `\n`, "\n")
	}
	return trimmed, nil
}

func collectAssetText(v any, texts, paths *[]string) {
	switch t := v.(type) {
	case string:
		inner, structured := unwrapAssetText(t)
		*texts = append(*texts, inner)
		*paths = append(*paths, structured...)
	case []any:
		for _, item := range t {
			collectAssetText(item, texts, paths)
		}
	case map[string]any:
		for _, key := range []string{"text", "content", "data", "result"} {
			if inner, ok := t[key]; ok {
				collectAssetText(inner, texts, paths)
			}
		}
		for _, key := range []string{"path", "paths", "image_paths", "files"} {
			switch p := t[key].(type) {
			case string:
				*paths = append(*paths, p)
			case []any:
				for _, item := range p {
					if s, ok := item.(string); ok {
						*paths = append(*paths, s)
					}
				}
			}
		}
	}
}
