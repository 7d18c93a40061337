package workflow

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var htmlTagRe = regexp.MustCompile(`(?i)<\s*(p|div|br|h[1-6]|ul|ol|li|figure|img|a|span|blockquote)[\s/>]`)

// LooksLikeHTML reports whether fetched text carries markup worth converting.
func LooksLikeHTML(text string) bool {
	return htmlTagRe.MatchString(text)
}

// NormalizeContent converts HTML article bodies to Markdown so the polish
// prompt sees prose rather than markup. Plain text is returned trimmed.
func NormalizeContent(text string) (string, error) {
	if !LooksLikeHTML(text) {
		return strings.TrimSpace(text), nil
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DefaultTitle derives a post title from the first non-empty line of text.
func DefaultTitle(text string, max int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#>*- "))
		if line == "" {
			continue
		}
		r := []rune(line)
		if max > 0 && len(r) > max {
			r = r[:max]
		}
		return string(r)
	}
	return ""
}
