package content

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultExcerptLength is the target plain-text preview length for feed rows.
const DefaultExcerptLength = 140

var (
	htmlTagRe       = regexp.MustCompile(`<[^>]*>`)
	markdownImgRe   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	markdownLinkRe  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownDecorRe = regexp.MustCompile("[*_~`#>]+")
	bareURLRe       = regexp.MustCompile(`https?://\S+`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Excerpt produces a plain-text preview of a raw markdown/HTML body, capped
// at max runes on a word boundary. It deliberately stays regex-only: excerpts
// are computed for every feed row and must not pay for a full render.
func Excerpt(body string, max int) string {
	if max <= 0 {
		max = DefaultExcerptLength
	}

	text := markdownImgRe.ReplaceAllString(body, "")
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = bareURLRe.ReplaceAllString(text, "")
	text = markdownDecorRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := max
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}
